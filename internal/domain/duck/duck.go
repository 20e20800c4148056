package duck

import "time"

// Duck is a live target in one channel. IDs are a per-channel sequence, so
// ordering by ID is spawn order.
type Duck struct {
	ID        uint64
	Channel   string
	Kind      Kind
	HP        int
	MaxHP     int
	SpawnedAt time.Time
	ExpiresAt time.Time
	Resolved  bool
}

// Expired reports whether the duck has outlived its timeout at now.
func (d Duck) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}

// Live reports whether the duck can still be targeted at now.
func (d Duck) Live(now time.Time) bool {
	return !d.Resolved && d.HP > 0 && !d.Expired(now)
}
