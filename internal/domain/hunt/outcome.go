package hunt

import (
	"time"

	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/player"
)

// Action names a player command.
type Action string

const (
	ActionShoot    Action = "shoot"
	ActionBefriend Action = "befriend"
	ActionReload   Action = "reload"
)

// Outcome is how an action resolved. Gameplay failures are outcomes, not errors.
type Outcome string

const (
	Hit            Outcome = "hit"
	Kill           Outcome = "kill"
	Miss           Outcome = "miss"
	Jammed         Outcome = "jammed"
	WildShot       Outcome = "wild_shot"
	NoAmmo         Outcome = "no_ammo"
	NoMagazines    Outcome = "no_magazines"
	Disabled       Outcome = "disabled"
	Poisoned       Outcome = "poisoned"
	Confiscated    Outcome = "confiscated"
	TargetGone     Outcome = "target_gone"
	TeamKill       Outcome = "team_kill"
	Befriended     Outcome = "befriended"
	BefriendFailed Outcome = "befriend_failed"
	ScaredAway     Outcome = "scared_away"
	NoDuck         Outcome = "no_duck"
	Reloaded       Outcome = "reloaded"
	AlreadyLoaded  Outcome = "already_loaded"
)

// Failure reports whether the action did not achieve what the player asked for.
func (o Outcome) Failure() bool {
	switch o {
	case Hit, Kill, Befriended, Reloaded:
		return false
	}
	return true
}

// Result describes one resolved action.
type Result struct {
	Action  Action
	Outcome Outcome
	Channel string
	Nick    string

	// Duck is the target as it stood after the action, nil when none was involved.
	Duck    *duck.Duck
	XPDelta int
	// Victim is the friendly-fire target of a TeamKill.
	Victim string
	// Item is the drop awarded with a Kill, if any.
	Item        string
	Effect      duck.Effect
	EffectUntil time.Time
	// Rearmed lists players whose guns came back with this kill.
	Rearmed  []string
	Reaction time.Duration

	// Player is the acting player's state after the action.
	Player player.Player
}
