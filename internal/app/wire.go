package service

import (
	"fmt"
	"time"

	"github.com/okian/duckhunt/internal/config"
	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/hunt"
	"github.com/okian/duckhunt/internal/domain/player"
	"github.com/okian/duckhunt/internal/domain/spawn"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Catalog builds the duck table from duck_types.
func Catalog(cfg *config.Config) (*duck.Catalog, error) {
	var (
		specs          []duck.Spec
		couple, family float64
	)
	for name, dt := range cfg.DuckTypes {
		switch name {
		case config.BroodCouple:
			couple = dt.Chance
			continue
		case config.BroodFamily:
			family = dt.Chance
			continue
		}
		kind, err := duck.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: duck_types.%s: %w", config.ErrInvalidConfig, name, err)
		}
		specs = append(specs, duck.Spec{
			Kind:       kind,
			Chance:     dt.Chance,
			MinHP:      dt.MinHP,
			MaxHP:      dt.MaxHP,
			XP:         dt.XP,
			TimeoutMin: seconds(dt.TimeoutMinSeconds),
			TimeoutMax: seconds(dt.TimeoutMaxSeconds),
			EffectFor:  seconds(dt.EffectSeconds),
			DropChance: dt.DropChance,
			DropItems:  dt.DropItems,
		})
	}
	c, err := duck.NewCatalog(specs, couple, family)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return c, nil
}

// Levels builds the level table.
func Levels(cfg *config.Config) (player.Levels, error) {
	rows := make([]player.Level, len(cfg.Levels))
	for i, l := range cfg.Levels {
		rows[i] = player.Level{
			Name:             l.Name,
			MinDucks:         l.MinDucks,
			AccuracyModifier: l.AccuracyModifier,
			BefriendRate:     l.BefriendRate,
			Reliability:      l.Reliability,
		}
	}
	ls, err := player.NewLevels(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return ls, nil
}

// Rules maps the gameplay section onto resolver rules.
func Rules(cfg *config.Config) hunt.Rules {
	g := cfg.Gameplay
	return hunt.Rules{
		AccuracyGainOnHit:      g.AccuracyGainOnHit,
		AccuracyLossOnMiss:     g.AccuracyLossOnMiss,
		MinAccuracy:            g.MinAccuracy,
		MaxAccuracy:            g.MaxAccuracy,
		MissXPPenalty:          g.MissXPPenalty,
		WildShotXPPenalty:      g.WildShotXPPenalty,
		TeamkillXPPenalty:      g.TeamkillXPPenalty,
		FriendlyFire:           g.FriendlyFireEnabled,
		FriendlyFireChance:     g.FriendlyFireChance,
		BefriendRate:           g.BefriendSuccessRate,
		MinBefriendRate:        g.MinBefriendRate,
		MaxBefriendRate:        g.MaxBefriendRate,
		BefriendXP:             g.BefriendXP,
		BefriendFailXPPenalty:  g.BefriendFailXPPenalty,
		ScaredAwayChance:       g.ScaredAwayChance,
		JamChanceBase:          g.JamChanceBase,
		AutoRearm:              g.AutoRearm,
		RearmConfiscatedOnKill: g.RearmConfiscatedOnKill,
		MaxEffect:              seconds(g.MaxEffectSeconds),
	}
}

// Defaults seeds new players.
func Defaults(cfg *config.Config) player.Defaults {
	d := cfg.PlayerDefaults
	return player.Defaults{
		Accuracy:           d.Accuracy,
		Magazines:          d.Magazines,
		BulletsPerMagazine: d.BulletsPerMagazine,
		Coins:              d.Coins,
	}
}

// SpawnSettings maps the spawn section onto scheduler settings.
func SpawnSettings(cfg *config.Config) (spawn.Settings, error) {
	s := cfg.Spawn
	set := spawn.Settings{
		MinDelay: seconds(s.MinSeconds),
		MaxDelay: seconds(s.MaxSeconds),
		MaxDucks: s.MaxDucksPerChannel,
		Sweep:    seconds(s.SweepSeconds),
		Location: cfg.Location(),
	}
	for _, w := range s.SleepWindows {
		win, err := spawn.ParseWindow(w.Start, w.End)
		if err != nil {
			return spawn.Settings{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
		set.Windows = append(set.Windows, win)
	}
	return set, nil
}
