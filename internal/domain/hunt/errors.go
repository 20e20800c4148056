package hunt

import "errors"

var (
	// ErrNotChannel is returned for actions issued outside a channel.
	ErrNotChannel = errors.New("actions are only allowed in a channel")
	// ErrBlankNick is returned when the actor has no nick.
	ErrBlankNick = errors.New("blank nick")
)
