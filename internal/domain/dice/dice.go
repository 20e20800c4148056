// Package dice wraps the random source used by spawning and action
// resolution so tests can script every roll.
package dice

import (
	"math/rand/v2"
	"sync"
)

// Roller is a random source. Implementations must be safe for concurrent use.
type Roller interface {
	// Float64 returns a value in [0,1).
	Float64() float64
	// IntN returns a value in [0,n). n must be > 0.
	IntN(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a goroutine-safe PCG roller. seed 0 seeds from the runtime.
func New(seed uint64) Roller {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Between returns a uniform integer in [lo,hi].
func Between(r Roller, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// Chance reports true with probability p.
func Chance(r Roller, p float64) bool {
	if p <= 0 {
		return false
	}
	return r.Float64() < p
}

// Percent reports true with probability pct/100.
func Percent(r Roller, pct int) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return r.IntN(100) < pct
}
