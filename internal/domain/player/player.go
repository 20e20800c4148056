// Package player models a hunter's persistent state in one channel.
package player

import (
	"time"
)

// Player is one nick's state in one channel. Every field is persisted.
type Player struct {
	Nick    string `json:"nick"`
	Channel string `json:"channel"`

	XP    int `json:"xp"`
	Level int `json:"level"`

	// Accuracy is a percentage kept within the configured bounds.
	Accuracy           int  `json:"accuracy"`
	Ammo               int  `json:"ammo"`
	Magazines          int  `json:"magazines"`
	BulletsPerMagazine int  `json:"bullets_per_magazine"`
	Jammed             bool `json:"jammed"`
	Confiscated        bool `json:"confiscated"`

	DisabledUntil time.Time `json:"disabled_until,omitzero"`
	PoisonedUntil time.Time `json:"poisoned_until,omitzero"`

	Coins     int64          `json:"coins"`
	Inventory map[string]int `json:"inventory,omitempty"`

	ShotsFired      int           `json:"shots_fired"`
	Hits            int           `json:"hits"`
	Misses          int           `json:"misses"`
	DucksShot       int           `json:"ducks_shot"`
	DucksBefriended int           `json:"ducks_befriended"`
	BestTime        time.Duration `json:"best_time,omitempty"`
	LastActive      time.Time     `json:"last_active,omitzero"`
}

// Defaults seed a new player.
type Defaults struct {
	Accuracy           int
	Magazines          int
	BulletsPerMagazine int
	Coins              int64
}

// New returns a fully loaded player.
func New(channel, nick string, d Defaults) *Player {
	return &Player{
		Nick:               nick,
		Channel:            channel,
		Level:              1,
		Accuracy:           d.Accuracy,
		Ammo:               d.BulletsPerMagazine,
		Magazines:          d.Magazines,
		BulletsPerMagazine: d.BulletsPerMagazine,
		Coins:              d.Coins,
	}
}

// Clone returns a deep copy safe to hand out of a store.
func (p *Player) Clone() *Player {
	c := *p
	if p.Inventory != nil {
		c.Inventory = make(map[string]int, len(p.Inventory))
		for k, v := range p.Inventory {
			c.Inventory[k] = v
		}
	}
	return &c
}

// Armed reports whether the player may take part in a shot, as shooter or
// as a friendly-fire victim.
func (p *Player) Armed() bool { return !p.Confiscated }

// AddXP applies delta and floors XP at zero.
func (p *Player) AddXP(delta int) {
	p.XP += delta
	if p.XP < 0 {
		p.XP = 0
	}
}

// AdjustAccuracy applies delta within [lo,hi].
func (p *Player) AdjustAccuracy(delta, lo, hi int) {
	p.Accuracy = Clamp(p.Accuracy+delta, lo, hi)
}

// Refill tops the ammo up to capacity and clears a jam.
func (p *Player) Refill() {
	p.Ammo = p.BulletsPerMagazine
	p.Jammed = false
}

// Confiscate takes the gun away until an admin rearms.
func (p *Player) Confiscate() {
	p.Confiscated = true
}

// Rearm returns the gun loaded.
func (p *Player) Rearm() {
	p.Confiscated = false
	p.Refill()
}

// RecordKill updates the kill counters and best reaction time.
func (p *Player) RecordKill(reaction time.Duration) {
	p.DucksShot++
	if reaction > 0 && (p.BestTime == 0 || reaction < p.BestTime) {
		p.BestTime = reaction
	}
}

// Clamp bounds v to [lo,hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
