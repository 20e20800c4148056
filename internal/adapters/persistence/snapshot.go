// Package persistence stores and restores the player snapshot.
//
// A backend's Save must be all-or-nothing: either the previous snapshot or
// the new one is readable afterwards, never a mix. Retrying wraps a backend
// with bounded exponential backoff.
package persistence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/duckhunt/internal/domain/player"
)

// SnapshotVersion is the layout version written by this build.
const SnapshotVersion = 1

// Snapshot is the full durable state: joined channels and every player.
// Players is keyed by channel, then by case-folded nick.
type Snapshot struct {
	Version  int                                 `json:"version"`
	SavedAt  time.Time                           `json:"saved_at"`
	Channels []string                            `json:"channels"`
	Players  map[string]map[string]player.Player `json:"players"`
}

// EmptySnapshot is what Load returns when nothing was saved yet.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Version:  SnapshotVersion,
		Channels: []string{},
		Players:  map[string]map[string]player.Player{},
	}
}

// PlayerCount counts players across channels.
func (s Snapshot) PlayerCount() int {
	n := 0
	for _, ps := range s.Players {
		n += len(ps)
	}
	return n
}

// normalize fills nil collections and sorts channels so that equal states
// compare equal after a round trip.
func (s *Snapshot) normalize() error {
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	if s.Version > SnapshotVersion {
		return fmt.Errorf("%w: version %d is newer than %d", ErrCorruptSnapshot, s.Version, SnapshotVersion)
	}
	if s.Channels == nil {
		s.Channels = []string{}
	}
	sort.Strings(s.Channels)
	if s.Players == nil {
		s.Players = map[string]map[string]player.Player{}
	}
	for ch, ps := range s.Players {
		if ch == "" {
			return fmt.Errorf("%w: empty channel key", ErrCorruptSnapshot)
		}
		for nick := range ps {
			if nick == "" {
				return fmt.Errorf("%w: empty nick in %s", ErrCorruptSnapshot, ch)
			}
		}
	}
	return nil
}

// Store is a persistence backend.
type Store interface {
	// Save durably replaces the stored snapshot.
	Save(ctx context.Context, snap Snapshot) error
	// Load returns the stored snapshot, EmptySnapshot when none exists, or
	// ErrCorruptSnapshot when the stored data cannot be decoded.
	Load(ctx context.Context) (Snapshot, error)
	Close() error
}
