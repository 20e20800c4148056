package service

import (
	"fmt"
	"strings"

	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/hunt"
)

// resultText renders the channel line for a resolved action. Outcomes the
// channel does not need to hear about return "".
func resultText(r *hunt.Result) string {
	nick := r.Nick
	switch r.Outcome {
	case hunt.Kill:
		line := fmt.Sprintf("%s shot the %s duck in %.3fs! [%+d xp]", nick, duckLabel(r.Duck), r.Reaction.Seconds(), r.XPDelta)
		if r.Item != "" {
			line += fmt.Sprintf(" It dropped a %s.", r.Item)
		}
		if r.Effect == duck.EffectDisable {
			line += fmt.Sprintf(" The blast knocks %s out until %s.", nick, r.EffectUntil.Format("15:04:05"))
		}
		if len(r.Rearmed) > 0 {
			line += fmt.Sprintf(" %s rearmed.", joinNicks(r.Rearmed))
		}
		return line
	case hunt.Hit:
		return fmt.Sprintf("%s hits the %s duck, %d hp left. [%+d xp]", nick, duckLabel(r.Duck), r.Duck.HP, r.XPDelta)
	case hunt.Miss:
		return fmt.Sprintf("%s missed. [%+d xp]", nick, r.XPDelta)
	case hunt.Jammed:
		return fmt.Sprintf("%s: *CLICK* your gun is jammed.", nick)
	case hunt.WildShot:
		return fmt.Sprintf("%s fires at nothing. Gun confiscated. [%+d xp]", nick, r.XPDelta)
	case hunt.TeamKill:
		return fmt.Sprintf("%s shot %s by accident! Gun confiscated. [%+d xp]", nick, r.Victim, r.XPDelta)
	case hunt.NoAmmo:
		return fmt.Sprintf("%s: out of ammo, reload.", nick)
	case hunt.NoMagazines:
		return fmt.Sprintf("%s: no magazines left.", nick)
	case hunt.Confiscated:
		return fmt.Sprintf("%s: you have no gun.", nick)
	case hunt.Disabled:
		return fmt.Sprintf("%s is still recovering.", nick)
	case hunt.Poisoned:
		return fmt.Sprintf("%s is too sick to do that.", nick)
	case hunt.TargetGone:
		return fmt.Sprintf("%s: that duck is gone.", nick)
	case hunt.NoDuck:
		return fmt.Sprintf("%s: there is no duck here.", nick)
	case hunt.Befriended:
		line := fmt.Sprintf("%s befriended the %s duck! [%+d xp]", nick, duckLabel(r.Duck), r.XPDelta)
		if r.Effect == duck.EffectPoison {
			line += fmt.Sprintf(" It was poisonous, %s is sick until %s.", nick, r.EffectUntil.Format("15:04:05"))
		}
		return line
	case hunt.BefriendFailed:
		return fmt.Sprintf("%s: the duck ignores you. [%+d xp]", nick, r.XPDelta)
	case hunt.ScaredAway:
		return fmt.Sprintf("%s scared the %s duck away. [%+d xp]", nick, duckLabel(r.Duck), r.XPDelta)
	case hunt.Reloaded:
		return fmt.Sprintf("%s reloads. %d/%d, %d magazines left.", nick, r.Player.Ammo, r.Player.BulletsPerMagazine, r.Player.Magazines)
	case hunt.AlreadyLoaded:
		return ""
	}
	return ""
}

func duckLabel(d *duck.Duck) string {
	if d == nil {
		return "unknown"
	}
	if d.Kind == duck.HolyGrail {
		return "holy grail"
	}
	return d.Kind.String()
}

func joinNicks(ns []string) string {
	switch len(ns) {
	case 0:
		return ""
	case 1:
		return ns[0]
	}
	return strings.Join(ns[:len(ns)-1], ", ") + " and " + ns[len(ns)-1]
}
