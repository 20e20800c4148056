package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("player not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	// ErrPersistenceHalted is returned by mutations after a save exhausted
	// its retries, until Flush succeeds.
	ErrPersistenceHalted = errors.New("persistence halted")
)
