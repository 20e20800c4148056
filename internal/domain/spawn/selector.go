package spawn

import (
	"time"

	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/internal/domain/duck"
)

// Pick is the outcome of one weighted draw.
type Pick struct {
	Kind  duck.Kind
	Brood duck.Brood
}

// Select draws a kind or brood from the catalog. Each special kind, then the
// couple and family broods, own a slice of [0,1) of their configured size;
// whatever mass is left spawns a single normal duck.
func Select(c *duck.Catalog, r dice.Roller) Pick {
	roll := r.Float64()
	acc := 0.0
	for _, k := range duck.Kinds() {
		if k == duck.Normal {
			continue
		}
		acc += c.Spec(k).Chance
		if roll < acc {
			return Pick{Kind: k, Brood: duck.Single}
		}
	}
	if acc += c.CoupleChance(); roll < acc {
		return Pick{Kind: duck.Normal, Brood: duck.Couple}
	}
	if acc += c.FamilyChance(); roll < acc {
		return Pick{Kind: duck.Normal, Brood: duck.Family}
	}
	return Pick{Kind: duck.Normal, Brood: duck.Single}
}

// BroodSize is 1 for a single duck, 2 for a couple and 3 or 4 for a family.
func BroodSize(b duck.Brood, r dice.Roller) int {
	switch b {
	case duck.Couple:
		return 2
	case duck.Family:
		return dice.Between(r, 3, 4)
	case duck.Single:
		return 1
	}
	return 1
}

// Hatch builds the ducks for p at now. HP and timeout are drawn uniformly
// from the kind's ranges; timeouts have whole-second granularity.
func Hatch(c *duck.Catalog, p Pick, r dice.Roller, now time.Time) []duck.Duck {
	n := BroodSize(p.Brood, r)
	spec := c.Spec(p.Kind)
	out := make([]duck.Duck, 0, n)
	for i := 0; i < n; i++ {
		hp := dice.Between(r, spec.MinHP, spec.MaxHP)
		out = append(out, duck.Duck{
			Kind:      p.Kind,
			HP:        hp,
			MaxHP:     hp,
			SpawnedAt: now,
			ExpiresAt: now.Add(between(r, spec.TimeoutMin, spec.TimeoutMax)),
		})
	}
	return out
}

func between(r dice.Roller, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	span := int((hi - lo) / time.Second)
	return lo + time.Duration(r.IntN(span+1))*time.Second
}
