package spawn

import "errors"

var (
	ErrInvalidWindow = errors.New("invalid sleep window")
	ErrChannelFull   = errors.New("channel holds the maximum number of ducks")
	ErrNotJoined     = errors.New("channel not joined")
	ErrAsleep        = errors.New("ducks are asleep")
)
