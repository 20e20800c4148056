package player

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidLevels is returned for an empty or unordered level table.
var ErrInvalidLevels = errors.New("invalid level table")

// Level is one rung of the progression table.
type Level struct {
	Name     string
	MinDucks int
	// AccuracyModifier is added to accuracy for the hit roll only.
	AccuracyModifier int
	// BefriendRate replaces the base befriend rate when > 0.
	BefriendRate int
	// Reliability is subtracted from the jam chance.
	Reliability int
}

// Levels is an ordered level table; level numbers are 1-based indices.
type Levels []Level

// NewLevels validates that the table starts at zero ducks and increases.
func NewLevels(ls []Level) (Levels, error) {
	if len(ls) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidLevels)
	}
	if ls[0].MinDucks != 0 {
		return nil, fmt.Errorf("%w: first level must start at 0 ducks", ErrInvalidLevels)
	}
	if !sort.SliceIsSorted(ls, func(i, j int) bool { return ls[i].MinDucks < ls[j].MinDucks }) {
		return nil, fmt.Errorf("%w: min_ducks must increase", ErrInvalidLevels)
	}
	for i := 1; i < len(ls); i++ {
		if ls[i].MinDucks == ls[i-1].MinDucks {
			return nil, fmt.Errorf("%w: duplicate min_ducks %d", ErrInvalidLevels, ls[i].MinDucks)
		}
	}
	return append(Levels(nil), ls...), nil
}

// For returns the 1-based level number for a duck total.
func (ls Levels) For(ducks int) int {
	n := sort.Search(len(ls), func(i int) bool { return ls[i].MinDucks > ducks })
	if n == 0 {
		return 1
	}
	return n
}

// Get returns the row for a 1-based level, clamped to the table.
func (ls Levels) Get(level int) Level {
	if len(ls) == 0 {
		return Level{}
	}
	return ls[Clamp(level, 1, len(ls))-1]
}

// Recompute refreshes p.Level from its duck counters.
func (ls Levels) Recompute(p *Player) {
	p.Level = ls.For(p.DucksShot + p.DucksBefriended)
}
