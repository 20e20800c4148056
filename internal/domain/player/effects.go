package player

import "time"

// Status effects are plain deadlines checked lazily against the caller's
// clock; nothing sweeps them. Setters only ever move a deadline forward.

// IsDisabled reports whether p may not act at now.
func IsDisabled(p *Player, now time.Time) bool {
	return now.Before(p.DisabledUntil)
}

// SetDisabledUntil extends the disabled deadline to t.
func SetDisabledUntil(p *Player, t time.Time) {
	if t.After(p.DisabledUntil) {
		p.DisabledUntil = t
	}
}

// IsPoisoned reports whether p is poisoned at now.
func IsPoisoned(p *Player, now time.Time) bool {
	return now.Before(p.PoisonedUntil)
}

// SetPoisonedUntil extends the poisoned deadline to t.
func SetPoisonedUntil(p *Player, t time.Time) {
	if t.After(p.PoisonedUntil) {
		p.PoisonedUntil = t
	}
}
