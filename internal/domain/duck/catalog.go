package duck

import (
	"fmt"
	"math"
	"time"
)

// Spec holds the tunables of one kind.
type Spec struct {
	Kind       Kind
	Chance     float64
	MinHP      int
	MaxHP      int
	XP         int
	TimeoutMin time.Duration
	TimeoutMax time.Duration
	// EffectFor is how long the kind's OnKill or OnBefriend effect lasts.
	EffectFor  time.Duration
	DropChance float64
	DropItems  []string
}

// Catalog is the validated, immutable table of kinds and brood chances.
type Catalog struct {
	specs        [kindCount]Spec
	coupleChance float64
	familyChance float64
}

// NewCatalog validates specs. Kinds missing from specs get a 1hp, zero-chance
// entry with the normal timeout. The chance mass left after every explicit
// kind and brood is assigned to Normal, so Normal's own Chance must be 0.
func NewCatalog(specs []Spec, coupleChance, familyChance float64) (*Catalog, error) {
	c := &Catalog{coupleChance: coupleChance, familyChance: familyChance}
	seen := [kindCount]bool{}
	for _, s := range specs {
		if s.Kind >= kindCount {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, s.Kind)
		}
		if seen[s.Kind] {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidCatalog, s.Kind)
		}
		seen[s.Kind] = true
		c.specs[s.Kind] = s
	}
	if !seen[Normal] {
		return nil, fmt.Errorf("%w: normal is required", ErrInvalidCatalog)
	}
	for k := Normal; k < kindCount; k++ {
		if !seen[k] {
			c.specs[k] = Spec{Kind: k, MinHP: 1, MaxHP: 1,
				TimeoutMin: c.specs[Normal].TimeoutMin, TimeoutMax: c.specs[Normal].TimeoutMax}
		}
	}

	total := coupleChance + familyChance
	if invalidProbability(coupleChance) || invalidProbability(familyChance) {
		return nil, fmt.Errorf("%w: brood chance out of [0,1]", ErrInvalidCatalog)
	}
	for _, s := range c.specs {
		if invalidProbability(s.Chance) || invalidProbability(s.DropChance) {
			return nil, fmt.Errorf("%w: %s chance out of [0,1]", ErrInvalidCatalog, s.Kind)
		}
		if s.MinHP < 1 || s.MaxHP < s.MinHP {
			return nil, fmt.Errorf("%w: %s hp range [%d,%d]", ErrInvalidCatalog, s.Kind, s.MinHP, s.MaxHP)
		}
		if s.TimeoutMin <= 0 || s.TimeoutMax < s.TimeoutMin {
			return nil, fmt.Errorf("%w: %s timeout range [%s,%s]", ErrInvalidCatalog, s.Kind, s.TimeoutMin, s.TimeoutMax)
		}
		if s.DropChance > 0 && len(s.DropItems) == 0 {
			return nil, fmt.Errorf("%w: %s drops without items", ErrInvalidCatalog, s.Kind)
		}
		total += s.Chance
	}
	if c.specs[Normal].Chance != 0 {
		return nil, fmt.Errorf("%w: normal takes the remaining chance", ErrInvalidCatalog)
	}
	if total > 1+1e-9 {
		return nil, fmt.Errorf("%w: chances sum to %.4f", ErrInvalidCatalog, total)
	}
	return c, nil
}

func invalidProbability(p float64) bool {
	return math.IsNaN(p) || p < 0 || p > 1
}

// Spec returns the tunables for k.
func (c *Catalog) Spec(k Kind) Spec {
	if k >= kindCount {
		return c.specs[Normal]
	}
	return c.specs[k]
}

// CoupleChance is the probability a tick spawns a couple.
func (c *Catalog) CoupleChance() float64 { return c.coupleChance }

// FamilyChance is the probability a tick spawns a family.
func (c *Catalog) FamilyChance() float64 { return c.familyChance }
