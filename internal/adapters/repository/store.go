// Package repository holds the in-memory arenas for ducks and players.
//
// Both stores are keyed by normalized channel name and then by duck id or
// folded nick. Callers never get pointers into a store: reads return copies
// and writes go through the store's methods.
package repository

import (
	"context"

	"github.com/okian/duckhunt/internal/adapters/persistence"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank            int
	Nick            string
	XP              int
	Level           int
	DucksShot       int
	DucksBefriended int
}

// Saver is the durable side of the player store.
type Saver interface {
	Save(ctx context.Context, snap persistence.Snapshot) error
}
