package service

import "errors"

var (
	ErrUnauthorized = errors.New("admin rights required")
	ErrDuplicate    = errors.New("duplicate command")
	ErrNotStarted   = errors.New("service not started")
	ErrStopped      = errors.New("service stopped")
)
