package dice

import "sync"

// Script is a deterministic Roller that replays queued values. When a queue
// runs dry it returns the fallback: 0.999 for floats (every Chance fails) and
// n-1 for ints (every Percent below 100 fails).
type Script struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
}

// NewScript builds an empty script.
func NewScript() *Script { return &Script{} }

// Floats queues values returned by Float64.
func (s *Script) Floats(v ...float64) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floats = append(s.floats, v...)
	return s
}

// Ints queues values returned by IntN. Values are clamped into [0,n).
func (s *Script) Ints(v ...int) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, v...)
	return s
}

func (s *Script) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return 0.999
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *Script) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		return n - 1
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	switch {
	case v < 0:
		return 0
	case v >= n:
		return n - 1
	}
	return v
}
