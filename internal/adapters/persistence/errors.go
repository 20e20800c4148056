package persistence

import "errors"

var (
	// ErrCorruptSnapshot means stored data exists but cannot be decoded.
	// Callers treat it as fatal at startup.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrSaveExhausted means every save attempt failed.
	ErrSaveExhausted = errors.New("snapshot save exhausted retries")
	// ErrEncode marks failures that retrying cannot fix.
	ErrEncode = errors.New("snapshot encode failed")
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown persistence backend")
)
