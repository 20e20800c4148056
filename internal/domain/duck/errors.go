package duck

import "errors"

var (
	ErrUnknownKind    = errors.New("unknown duck kind")
	ErrInvalidCatalog = errors.New("invalid duck catalog")
)
