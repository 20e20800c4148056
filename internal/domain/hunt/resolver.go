// Package hunt resolves shoot, befriend and reload commands.
//
// Every action runs inside one PlayerStore transaction. The duck side of a
// hit or befriend goes through the registry's Hit or Resolve, which only one
// caller per duck id can win, so a duck is never credited twice.
package hunt

import (
	"context"
	"sort"
	"time"

	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/names"
	"github.com/okian/duckhunt/internal/domain/player"
	"github.com/okian/duckhunt/pkg/logger"
	"github.com/okian/duckhunt/pkg/metrics"
)

// Ducks is the live duck registry.
type Ducks interface {
	Get(channel string, id uint64, now time.Time) (duck.Duck, bool)
	Oldest(channel string, now time.Time) (duck.Duck, bool)
	Hit(channel string, id uint64, now time.Time) (duck.Duck, bool)
	Resolve(channel string, id uint64, now time.Time) (duck.Duck, bool)
}

// Players runs a saved transaction over one channel's players.
type Players interface {
	Update(ctx context.Context, channel string, fn func(player.Roster) (bool, error)) error
}

// Resolver applies player actions.
type Resolver struct {
	ducks   Ducks
	players Players
	catalog *duck.Catalog
	levels  player.Levels
	rules   Rules

	roller dice.Roller
	now    func() time.Time
	logger logger.Logger
}

// NewResolver builds a resolver over the given registries.
func NewResolver(ducks Ducks, players Players, catalog *duck.Catalog, levels player.Levels, rules Rules, opts ...Option) *Resolver {
	r := &Resolver{
		ducks:   ducks,
		players: players,
		catalog: catalog,
		levels:  levels,
		rules:   rules,
		roller:  dice.New(0),
		now:     time.Now,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Shoot fires one round at target, or at the oldest live duck when target is nil.
func (r *Resolver) Shoot(ctx context.Context, channel, nick string, target *uint64) (Result, error) {
	return r.run(ctx, ActionShoot, channel, nick, func(res *Result, ros player.Roster, p *player.Player, now time.Time) bool {
		return r.shoot(res, ros, p, target, now)
	})
}

// Befriend tries to win over target, or the oldest live duck when target is nil.
func (r *Resolver) Befriend(ctx context.Context, channel, nick string, target *uint64) (Result, error) {
	return r.run(ctx, ActionBefriend, channel, nick, func(res *Result, _ player.Roster, p *player.Player, now time.Time) bool {
		return r.befriend(res, p, target, now)
	})
}

// Reload swaps in a fresh magazine.
func (r *Resolver) Reload(ctx context.Context, channel, nick string) (Result, error) {
	return r.run(ctx, ActionReload, channel, nick, func(res *Result, _ player.Roster, p *player.Player, now time.Time) bool {
		return r.reload(res, p, now)
	})
}

type step func(res *Result, ros player.Roster, p *player.Player, now time.Time) bool

func (r *Resolver) run(ctx context.Context, action Action, channel, nick string, fn step) (Result, error) {
	start := time.Now()
	if !names.IsChannel(channel) {
		return Result{}, ErrNotChannel
	}
	if names.Nick(nick) == "" {
		return Result{}, ErrBlankNick
	}
	channel = names.Channel(channel)

	res := Result{Action: action, Channel: channel, Nick: nick}
	err := r.players.Update(ctx, channel, func(ros player.Roster) (bool, error) {
		now := r.now().Round(0)
		p, created := ros.Get(nick)
		xp := p.XP
		changed := fn(&res, ros, p, now)
		if changed {
			p.LastActive = now
			r.levels.Recompute(p)
		}
		res.XPDelta = p.XP - xp
		res.Player = *p.Clone()
		return changed || created, nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("hunt", "persist")
		r.logger.Error(ctx, "action not saved",
			logger.String("action", string(action)),
			logger.String("channel", channel),
			logger.String("nick", nick),
			logger.String("outcome", string(res.Outcome)),
			logger.Error(err))
		return Result{}, err
	}

	metrics.RecordAction(string(action), string(res.Outcome))
	metrics.RecordActionLatency(string(action), float64(time.Since(start).Microseconds())/1000.0)
	r.logger.Debug(ctx, "action resolved",
		logger.String("action", string(action)),
		logger.String("channel", channel),
		logger.String("nick", nick),
		logger.String("outcome", string(res.Outcome)),
		logger.Int("xp_delta", res.XPDelta))
	return res, nil
}

// blocked applies the checks shared by shoot and befriend.
func blocked(p *player.Player, now time.Time) (Outcome, bool) {
	switch {
	case player.IsDisabled(p, now):
		return Disabled, true
	case player.IsPoisoned(p, now):
		return Poisoned, true
	}
	return "", false
}

// pick returns the duck to aim at. An explicit id must still be live, else
// TargetGone; without one the oldest live duck is used, else empty.
func (r *Resolver) pick(channel string, target *uint64, now time.Time, empty Outcome) (duck.Duck, Outcome) {
	if target != nil {
		if d, ok := r.ducks.Get(channel, *target, now); ok {
			return d, ""
		}
		return duck.Duck{}, TargetGone
	}
	if d, ok := r.ducks.Oldest(channel, now); ok {
		return d, ""
	}
	return duck.Duck{}, empty
}

func (r *Resolver) shoot(res *Result, ros player.Roster, p *player.Player, target *uint64, now time.Time) bool {
	if o, stop := blocked(p, now); stop {
		res.Outcome = o
		return false
	}
	switch {
	case p.Confiscated:
		res.Outcome = Confiscated
		return false
	case p.Jammed:
		res.Outcome = Jammed
		return false
	case p.Ammo <= 0:
		res.Outcome = NoAmmo
		return false
	}

	lvl := r.levels.Get(p.Level)
	jam := player.Clamp(r.rules.JamChanceBase-lvl.Reliability, 0, 100)
	p.Ammo--
	p.ShotsFired++
	if dice.Percent(r.roller, jam) {
		p.Jammed = true
		res.Outcome = Jammed
		return true
	}

	d, o := r.pick(res.Channel, target, now, WildShot)
	switch o {
	case WildShot:
		p.AddXP(-r.rules.WildShotXPPenalty)
		p.Confiscate()
		res.Outcome = WildShot
		return true
	case TargetGone:
		res.Outcome = TargetGone
		return true
	}
	res.Duck = &d

	acc := player.Clamp(p.Accuracy+lvl.AccuracyModifier, r.rules.MinAccuracy, r.rules.MaxAccuracy)
	if !dice.Percent(r.roller, acc) {
		p.Misses++
		p.AdjustAccuracy(-r.rules.AccuracyLossOnMiss, r.rules.MinAccuracy, r.rules.MaxAccuracy)
		p.AddXP(-r.rules.MissXPPenalty)
		res.Outcome = Miss
		return true
	}

	if r.rules.FriendlyFire && dice.Chance(r.roller, r.rules.FriendlyFireChance) {
		if victim, found := r.victim(ros, p); found {
			p.AddXP(-r.rules.TeamkillXPPenalty)
			p.Confiscate()
			res.Outcome = TeamKill
			res.Victim = victim
			return true
		}
	}

	hit, ok := r.ducks.Hit(res.Channel, d.ID, now)
	if !ok {
		res.Outcome = TargetGone
		return true
	}
	res.Duck = &hit
	spec := r.catalog.Spec(hit.Kind)
	p.Hits++
	p.AddXP(spec.XP)
	p.AdjustAccuracy(r.rules.AccuracyGainOnHit, r.rules.MinAccuracy, r.rules.MaxAccuracy)
	if !hit.Resolved {
		res.Outcome = Hit
		return true
	}

	res.Outcome = Kill
	res.Reaction = now.Sub(hit.SpawnedAt)
	p.RecordKill(res.Reaction)
	metrics.RecordDuckResolved(hit.Kind.String(), "shot")

	if eff := hit.Kind.OnKill(); eff == duck.EffectDisable {
		until := now.Add(r.rules.effectFor(spec.EffectFor))
		player.SetDisabledUntil(p, until)
		res.Effect, res.EffectUntil = eff, until
	}
	if r.rules.AutoRearm {
		p.Refill()
	}
	if r.rules.RearmConfiscatedOnKill {
		ros.Range(func(o *player.Player) bool {
			if o != p && o.Confiscated {
				o.Rearm()
				res.Rearmed = append(res.Rearmed, o.Nick)
			}
			return true
		})
		sort.Strings(res.Rearmed)
	}
	if len(spec.DropItems) > 0 && dice.Chance(r.roller, spec.DropChance) {
		item := spec.DropItems[r.roller.IntN(len(spec.DropItems))]
		if err := p.AddItem(item, 1); err == nil {
			res.Item = item
		}
	}
	return true
}

// victim picks another armed player in the channel, in nick order so that a
// scripted roller is repeatable.
func (r *Resolver) victim(ros player.Roster, shooter *player.Player) (string, bool) {
	var pool []string
	ros.Range(func(o *player.Player) bool {
		if o != shooter && o.Armed() {
			pool = append(pool, o.Nick)
		}
		return true
	})
	if len(pool) == 0 {
		return "", false
	}
	sort.Strings(pool)
	return pool[r.roller.IntN(len(pool))], true
}

func (r *Resolver) befriend(res *Result, p *player.Player, target *uint64, now time.Time) bool {
	if o, stop := blocked(p, now); stop {
		res.Outcome = o
		return false
	}
	d, o := r.pick(res.Channel, target, now, NoDuck)
	if o != "" {
		res.Outcome = o
		return false
	}
	res.Duck = &d

	lvl := r.levels.Get(p.Level)
	rate := r.rules.BefriendRate
	if lvl.BefriendRate > 0 {
		rate = lvl.BefriendRate
	}
	rate = player.Clamp(rate, r.rules.MinBefriendRate, r.rules.MaxBefriendRate)

	if !dice.Percent(r.roller, rate) {
		p.AddXP(-r.rules.BefriendFailXPPenalty)
		res.Outcome = BefriendFailed
		if dice.Chance(r.roller, r.rules.ScaredAwayChance) {
			if gone, ok := r.ducks.Resolve(res.Channel, d.ID, now); ok {
				res.Duck = &gone
				res.Outcome = ScaredAway
				metrics.RecordDuckResolved(gone.Kind.String(), "scared")
			}
		}
		return true
	}

	won, ok := r.ducks.Resolve(res.Channel, d.ID, now)
	if !ok {
		res.Outcome = TargetGone
		return false
	}
	res.Duck = &won
	res.Outcome = Befriended
	p.DucksBefriended++
	p.AddXP(r.rules.BefriendXP)
	metrics.RecordDuckResolved(won.Kind.String(), "befriended")

	if eff := won.Kind.OnBefriend(); eff == duck.EffectPoison {
		until := now.Add(r.rules.effectFor(r.catalog.Spec(won.Kind).EffectFor))
		player.SetPoisonedUntil(p, until)
		res.Effect, res.EffectUntil = eff, until
	}
	return true
}

func (r *Resolver) reload(res *Result, p *player.Player, now time.Time) bool {
	switch {
	case player.IsDisabled(p, now):
		res.Outcome = Disabled
		return false
	case p.Confiscated:
		res.Outcome = Confiscated
		return false
	case !p.Jammed && p.Ammo >= p.BulletsPerMagazine:
		res.Outcome = AlreadyLoaded
		return false
	case p.Magazines <= 0:
		res.Outcome = NoMagazines
		return false
	}
	p.Magazines--
	p.Refill()
	res.Outcome = Reloaded
	return true
}
