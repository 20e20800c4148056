// Package duck models duck kinds, their tunables and live duck instances.
package duck

import (
	"fmt"
	"strings"
)

// Kind is the closed set of duck kinds. Couple and family are broods of
// normal ducks, not kinds; see Brood.
type Kind uint8

const (
	Normal Kind = iota
	Fast
	Golden
	Concrete
	HolyGrail
	Diamond
	Explosive
	Poisonous
	Radioactive

	kindCount
)

var kindNames = [kindCount]string{
	Normal:      "normal",
	Fast:        "fast",
	Golden:      "golden",
	Concrete:    "concrete",
	HolyGrail:   "holy_grail",
	Diamond:     "diamond",
	Explosive:   "explosive",
	Poisonous:   "poisonous",
	Radioactive: "radioactive",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Normal; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Effect is a status penalty a duck inflicts on the player who resolved it.
type Effect uint8

const (
	EffectNone Effect = iota
	// EffectDisable blocks every action until it lapses.
	EffectDisable
	// EffectPoison blocks shooting and befriending until it lapses.
	EffectPoison
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectDisable:
		return "disabled"
	case EffectPoison:
		return "poisoned"
	}
	return fmt.Sprintf("effect(%d)", uint8(e))
}

// OnKill is the effect applied to the player landing the lethal hit.
func (k Kind) OnKill() Effect {
	switch k {
	case Explosive:
		return EffectDisable
	case Normal, Fast, Golden, Concrete, HolyGrail, Diamond, Poisonous, Radioactive:
		return EffectNone
	}
	return EffectNone
}

// OnBefriend is the effect applied to the player befriending the duck.
func (k Kind) OnBefriend() Effect {
	switch k {
	case Poisonous, Radioactive:
		return EffectPoison
	case Normal, Fast, Golden, Concrete, HolyGrail, Diamond, Explosive:
		return EffectNone
	}
	return EffectNone
}

// Brood is how many ducks a single spawn tick produces.
type Brood uint8

const (
	Single Brood = iota
	// Couple spawns two normal ducks.
	Couple
	// Family spawns three or four normal ducks.
	Family
)

func (b Brood) String() string {
	switch b {
	case Single:
		return "single"
	case Couple:
		return "couple"
	case Family:
		return "family"
	}
	return fmt.Sprintf("brood(%d)", uint8(b))
}
