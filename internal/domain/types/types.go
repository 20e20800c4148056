// Package types contains the JSON shapes served by the HTTP API.
package types

import (
	"time"

	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/hunt"
	"github.com/okian/duckhunt/internal/domain/player"
)

// Entry represents a leaderboard entry
type Entry struct {
	Rank            int    `json:"rank"`
	Nick            string `json:"nick"`
	XP              int    `json:"xp"`
	Level           int    `json:"level"`
	DucksShot       int    `json:"ducks_shot"`
	DucksBefriended int    `json:"ducks_befriended"`
}

// Duck is a live duck.
type Duck struct {
	ID        uint64    `json:"id"`
	Kind      string    `json:"kind"`
	HP        int       `json:"hp"`
	MaxHP     int       `json:"max_hp"`
	SpawnedAt time.Time `json:"spawned_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Player is a player's public state.
type Player struct {
	Nick            string         `json:"nick"`
	Channel         string         `json:"channel"`
	XP              int            `json:"xp"`
	Level           int            `json:"level"`
	Accuracy        int            `json:"accuracy"`
	Ammo            int            `json:"ammo"`
	Magazines       int            `json:"magazines"`
	Capacity        int            `json:"bullets_per_magazine"`
	Jammed          bool           `json:"jammed"`
	Confiscated     bool           `json:"confiscated"`
	DisabledUntil   *time.Time     `json:"disabled_until,omitempty"`
	PoisonedUntil   *time.Time     `json:"poisoned_until,omitempty"`
	Coins           int64          `json:"coins"`
	Inventory       map[string]int `json:"inventory,omitempty"`
	ShotsFired      int            `json:"shots_fired"`
	Hits            int            `json:"hits"`
	Misses          int            `json:"misses"`
	DucksShot       int            `json:"ducks_shot"`
	DucksBefriended int            `json:"ducks_befriended"`
	BestTimeMS      int64          `json:"best_time_ms,omitempty"`
}

// ActionRequest is the body of POST /v1/actions.
type ActionRequest struct {
	ID       string  `json:"id,omitempty"`
	Verb     string  `json:"verb"`
	Channel  string  `json:"channel"`
	Nick     string  `json:"nick"`
	Hostmask string  `json:"hostmask,omitempty"`
	Target   *uint64 `json:"target,omitempty"`
	Subject  string  `json:"subject,omitempty"`
	Kind     string  `json:"kind,omitempty"`
}

// ActionResponse reports a handled command.
type ActionResponse struct {
	ID       string   `json:"id"`
	Verb     string   `json:"verb"`
	Channel  string   `json:"channel,omitempty"`
	Outcome  string   `json:"outcome,omitempty"`
	XPDelta  int      `json:"xp_delta,omitempty"`
	Duck     *Duck    `json:"duck,omitempty"`
	Victim   string   `json:"victim,omitempty"`
	Item     string   `json:"item,omitempty"`
	Effect   string   `json:"effect,omitempty"`
	Rearmed  []string `json:"rearmed,omitempty"`
	Ducks    []Duck   `json:"ducks,omitempty"`
	Affected []string `json:"affected,omitempty"`
	Changed  bool     `json:"changed"`
	Player   *Player  `json:"player,omitempty"`
}

// Stats is the GET /stats payload.
type Stats struct {
	Started     bool     `json:"started"`
	Halted      bool     `json:"persistence_halted"`
	Channels    []string `json:"channels"`
	Players     int      `json:"players"`
	LiveDucks   int      `json:"live_ducks"`
	QueueLength int      `json:"queue_length"`
	Workers     int      `json:"workers"`
	DedupeSize  int64    `json:"dedupe_size"`
}

// FromDuck converts a registry duck.
func FromDuck(d duck.Duck) Duck {
	return Duck{ID: d.ID, Kind: d.Kind.String(), HP: d.HP, MaxHP: d.MaxHP, SpawnedAt: d.SpawnedAt, ExpiresAt: d.ExpiresAt}
}

// FromDucks converts a slice of registry ducks.
func FromDucks(ds []duck.Duck) []Duck {
	out := make([]Duck, len(ds))
	for i, d := range ds {
		out[i] = FromDuck(d)
	}
	return out
}

// FromPlayer converts a stored player. Effects that have lapsed at now are omitted.
func FromPlayer(p *player.Player, now time.Time) Player {
	out := Player{
		Nick:            p.Nick,
		Channel:         p.Channel,
		XP:              p.XP,
		Level:           p.Level,
		Accuracy:        p.Accuracy,
		Ammo:            p.Ammo,
		Magazines:       p.Magazines,
		Capacity:        p.BulletsPerMagazine,
		Jammed:          p.Jammed,
		Confiscated:     p.Confiscated,
		Coins:           p.Coins,
		ShotsFired:      p.ShotsFired,
		Hits:            p.Hits,
		Misses:          p.Misses,
		DucksShot:       p.DucksShot,
		DucksBefriended: p.DucksBefriended,
		BestTimeMS:      p.BestTime.Milliseconds(),
	}
	if len(p.Inventory) > 0 {
		out.Inventory = make(map[string]int, len(p.Inventory))
		for k, v := range p.Inventory {
			out.Inventory[k] = v
		}
	}
	if player.IsDisabled(p, now) {
		t := p.DisabledUntil
		out.DisabledUntil = &t
	}
	if player.IsPoisoned(p, now) {
		t := p.PoisonedUntil
		out.PoisonedUntil = &t
	}
	return out
}

// FromResult fills the action fields of a response.
func FromResult(r *hunt.Result, now time.Time) ActionResponse {
	out := ActionResponse{
		Verb:    string(r.Action),
		Channel: r.Channel,
		Outcome: string(r.Outcome),
		XPDelta: r.XPDelta,
		Victim:  r.Victim,
		Item:    r.Item,
		Rearmed: r.Rearmed,
		Changed: !r.Outcome.Failure(),
	}
	if r.Duck != nil {
		d := FromDuck(*r.Duck)
		out.Duck = &d
	}
	if r.Effect != duck.EffectNone {
		out.Effect = r.Effect.String()
	}
	p := FromPlayer(&r.Player, now)
	out.Player = &p
	return out
}
