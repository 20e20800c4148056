package hunt_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"pgregory.net/rapid"

	"github.com/okian/duckhunt/internal/adapters/persistence"
	"github.com/okian/duckhunt/internal/adapters/repository"
	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/hunt"
	"github.com/okian/duckhunt/internal/domain/player"
)

const channel = "#ducks"

var start = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

type nopSaver struct {
	mu    sync.Mutex
	err   error
	saves int
}

func (s *nopSaver) Save(context.Context, persistence.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves++
	return nil
}

func (s *nopSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func baseRules() hunt.Rules {
	return hunt.Rules{
		AccuracyGainOnHit:     1,
		AccuracyLossOnMiss:    2,
		MinAccuracy:           10,
		MaxAccuracy:           100,
		MissXPPenalty:         1,
		WildShotXPPenalty:     2,
		TeamkillXPPenalty:     25,
		BefriendRate:          75,
		MinBefriendRate:       5,
		MaxBefriendRate:       95,
		BefriendXP:            5,
		BefriendFailXPPenalty: 1,
		MaxEffect:             7 * 24 * time.Hour,
	}
}

func testCatalog() *duck.Catalog {
	minute := time.Minute
	c, err := duck.NewCatalog([]duck.Spec{
		{Kind: duck.Normal, MinHP: 1, MaxHP: 1, XP: 10, TimeoutMin: minute, TimeoutMax: minute},
		{Kind: duck.Golden, Chance: 0.1, MinHP: 3, MaxHP: 3, XP: 15, TimeoutMin: minute, TimeoutMax: minute,
			DropChance: 1, DropItems: []string{"golden_feather"}},
		{Kind: duck.Concrete, Chance: 0.1, MinHP: 3, MaxHP: 3, XP: 20, TimeoutMin: minute, TimeoutMax: minute},
		{Kind: duck.Explosive, Chance: 0.1, MinHP: 1, MaxHP: 1, XP: 15, TimeoutMin: minute, TimeoutMax: minute,
			EffectFor: 2 * time.Hour},
		{Kind: duck.Poisonous, Chance: 0.1, MinHP: 1, MaxHP: 1, XP: 8, TimeoutMin: minute, TimeoutMax: minute,
			EffectFor: 2 * time.Hour},
	}, 0, 0)
	if err != nil {
		panic(err)
	}
	return c
}

type fixture struct {
	ctx     context.Context
	ducks   *repository.DuckStore
	players *repository.PlayerStore
	saver   *nopSaver
	roll    *dice.Script
	now     time.Time
	res     *hunt.Resolver
}

func newFixture(rules hunt.Rules, defaults player.Defaults) *fixture {
	levels, err := player.NewLevels([]player.Level{{Name: "novice"}, {Name: "hunter", MinDucks: 1}})
	if err != nil {
		panic(err)
	}
	f := &fixture{ctx: context.Background(), ducks: repository.NewDuckStore(), saver: &nopSaver{}, roll: dice.NewScript(), now: start}
	f.players = repository.NewPlayerStore(f.saver, repository.WithDefaults(defaults))
	f.res = hunt.NewResolver(f.ducks, f.players, testCatalog(), levels, rules,
		hunt.WithRoller(f.roll), hunt.WithClock(func() time.Time { return f.now }))
	return f
}

var stdDefaults = player.Defaults{Accuracy: 75, Magazines: 3, BulletsPerMagazine: 6}

func (f *fixture) spawn(kind duck.Kind, hp int) uint64 {
	id, ok := f.ducks.Spawn(channel, duck.Duck{Kind: kind, HP: hp, MaxHP: hp, SpawnedAt: f.now, ExpiresAt: f.now.Add(time.Hour)}, 10)
	if !ok {
		panic("channel full")
	}
	return id
}

func (f *fixture) edit(nick string, fn func(p *player.Player)) {
	err := f.players.Update(f.ctx, channel, func(r player.Roster) (bool, error) {
		p, _ := r.Get(nick)
		fn(p)
		return true, nil
	})
	if err != nil {
		panic(err)
	}
}

func (f *fixture) player(nick string) player.Player {
	p, err := f.players.Get(channel, nick)
	if err != nil {
		panic(err)
	}
	return p
}

func TestShootRace(t *testing.T) {
	Convey("Given 32 hunters with perfect aim and a single 1 hp duck", t, func() {
		rules := baseRules()
		rules.MinAccuracy = 100
		f := newFixture(rules, stdDefaults)
		id := f.spawn(duck.Normal, 1)

		var mu sync.Mutex
		outcomes := map[hunt.Outcome]int{}
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := f.res.Shoot(f.ctx, channel, fmt.Sprintf("hunter%02d", i), &id)
				if err != nil {
					panic(err)
				}
				mu.Lock()
				outcomes[res.Outcome]++
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		Convey("Exactly one is credited with the kill", func() {
			So(outcomes[hunt.Kill], ShouldEqual, 1)
			So(outcomes[hunt.TargetGone], ShouldEqual, 31)
			So(outcomes[hunt.Hit], ShouldEqual, 0)
		})

		Convey("Every shooter paid exactly one round and only the winner scored", func() {
			kills, xp := 0, 0
			for _, p := range f.players.List(channel) {
				So(p.Ammo, ShouldEqual, 5)
				kills += p.DucksShot
				xp += p.XP
			}
			So(kills, ShouldEqual, 1)
			So(xp, ShouldEqual, 10)
		})
	})
}

// lostRace reports every duck as live but loses every Hit, as when another
// shooter resolves the duck between the aim and the hit.
type lostRace struct {
	*repository.DuckStore
}

func (lostRace) Hit(string, uint64, time.Time) (duck.Duck, bool) {
	return duck.Duck{}, false
}

func TestShootLostRace(t *testing.T) {
	Convey("Given a landed shot whose duck is taken before the hit lands", t, func() {
		rules := baseRules()
		rules.MinAccuracy = 100
		f := newFixture(rules, stdDefaults)
		levels, err := player.NewLevels([]player.Level{{Name: "novice"}, {Name: "hunter", MinDucks: 1}})
		So(err, ShouldBeNil)
		res := hunt.NewResolver(lostRace{f.ducks}, f.players, testCatalog(), levels, rules,
			hunt.WithRoller(f.roll), hunt.WithClock(func() time.Time { return f.now }))
		id := f.spawn(duck.Normal, 1)

		r, err := res.Shoot(f.ctx, channel, "alice", &id)
		So(err, ShouldBeNil)

		Convey("The shooter sees the target gone", func() {
			So(r.Outcome, ShouldEqual, hunt.TargetGone)
			So(r.XPDelta, ShouldEqual, 0)
		})

		Convey("The round is charged but nothing is credited", func() {
			p := f.player("alice")
			So(p.Ammo, ShouldEqual, 5)
			So(p.ShotsFired, ShouldEqual, 1)
			So(p.Hits, ShouldEqual, 0)
			So(p.XP, ShouldEqual, 0)
			So(p.DucksShot, ShouldEqual, 0)
			So(p.Accuracy, ShouldEqual, 75)
		})
	})
}

func TestLastActiveWallClock(t *testing.T) {
	Convey("Given a resolver on the real clock", t, func() {
		f := newFixture(baseRules(), stdDefaults)
		levels, err := player.NewLevels([]player.Level{{Name: "novice"}})
		So(err, ShouldBeNil)
		res := hunt.NewResolver(f.ducks, f.players, testCatalog(), levels, baseRules())

		_, err = res.Shoot(f.ctx, channel, "alice", nil)
		So(err, ShouldBeNil)

		Convey("Last active carries no monotonic reading", func() {
			p := f.player("alice")
			So(p.LastActive.IsZero(), ShouldBeFalse)
			So(p.LastActive == p.LastActive.Round(0), ShouldBeTrue)
		})
	})
}

func TestShootMultiHit(t *testing.T) {
	Convey("Given a 3 hp concrete duck", t, func() {
		rules := baseRules()
		rules.MinAccuracy = 100
		f := newFixture(rules, stdDefaults)
		id := f.spawn(duck.Concrete, 3)

		Convey("Three landed hits each pay xp and only the third kills", func() {
			r1, err := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(err, ShouldBeNil)
			So(r1.Outcome, ShouldEqual, hunt.Hit)
			So(r1.Duck.HP, ShouldEqual, 2)
			So(r1.XPDelta, ShouldEqual, 20)

			r2, _ := f.res.Shoot(f.ctx, channel, "alice", &id)
			So(r2.Outcome, ShouldEqual, hunt.Hit)
			So(f.ducks.Count(channel, f.now), ShouldEqual, 1)

			r3, _ := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(r3.Outcome, ShouldEqual, hunt.Kill)
			So(r3.Duck.Resolved, ShouldBeTrue)
			So(f.ducks.Count(channel, f.now), ShouldEqual, 0)

			p := f.player("alice")
			So(p.XP, ShouldEqual, 3*20)
			So(p.Hits, ShouldEqual, 3)
			So(p.DucksShot, ShouldEqual, 1)
			So(p.Level, ShouldEqual, 2)
			So(p.Ammo, ShouldEqual, 3)
		})
	})
}

func TestShootGuards(t *testing.T) {
	Convey("Given a hunter and a normal duck", t, func() {
		f := newFixture(baseRules(), stdDefaults)
		f.spawn(duck.Normal, 1)

		Convey("An empty gun yields NoAmmo and changes nothing", func() {
			f.edit("alice", func(p *player.Player) { p.Ammo = 0 })
			before := f.player("alice")
			saves := f.saver.count()

			f.now = f.now.Add(time.Minute)
			res, err := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, hunt.NoAmmo)
			So(f.player("alice"), ShouldResemble, before)
			So(f.saver.count(), ShouldEqual, saves)
			So(f.ducks.Count(channel, f.now), ShouldEqual, 1)
		})

		Convey("A miss costs accuracy and xp, floored at zero", func() {
			f.roll.Ints(99)
			res, err := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, hunt.Miss)
			p := f.player("alice")
			So(p.Accuracy, ShouldEqual, 73)
			So(p.XP, ShouldEqual, 0)
			So(p.Misses, ShouldEqual, 1)
			So(p.Ammo, ShouldEqual, 5)
			So(f.ducks.Count(channel, f.now), ShouldEqual, 1)
		})

		Convey("An explicit target that is gone costs only the round", func() {
			missing := uint64(99)
			res, err := f.res.Shoot(f.ctx, channel, "alice", &missing)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, hunt.TargetGone)
			p := f.player("alice")
			So(p.Ammo, ShouldEqual, 5)
			So(p.XP, ShouldEqual, 0)
		})

		Convey("A jam costs a round and blocks until reload", func() {
			rules := baseRules()
			rules.JamChanceBase = 100
			f := newFixture(rules, stdDefaults)
			f.spawn(duck.Normal, 1)

			res, _ := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.Jammed)
			So(f.player("alice").Ammo, ShouldEqual, 5)

			res, _ = f.res.Shoot(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.Jammed)
			So(f.player("alice").Ammo, ShouldEqual, 5)

			res, _ = f.res.Reload(f.ctx, channel, "alice")
			So(res.Outcome, ShouldEqual, hunt.Reloaded)
			p := f.player("alice")
			So(p.Jammed, ShouldBeFalse)
			So(p.Ammo, ShouldEqual, 6)
			So(p.Magazines, ShouldEqual, 2)
		})

		Convey("Actions outside a channel are rejected", func() {
			_, err := f.res.Shoot(f.ctx, "alice", "alice", nil)
			So(errors.Is(err, hunt.ErrNotChannel), ShouldBeTrue)
			_, err = f.res.Reload(f.ctx, channel, "  ")
			So(errors.Is(err, hunt.ErrBlankNick), ShouldBeTrue)
		})
	})
}

func TestWildShot(t *testing.T) {
	Convey("Given an empty sky", t, func() {
		f := newFixture(baseRules(), stdDefaults)
		f.edit("alice", func(p *player.Player) { p.XP = 1 })

		res, err := f.res.Shoot(f.ctx, channel, "alice", nil)
		So(err, ShouldBeNil)

		Convey("The shot is wild and the gun is taken", func() {
			So(res.Outcome, ShouldEqual, hunt.WildShot)
			p := f.player("alice")
			So(p.XP, ShouldEqual, 0)
			So(p.Confiscated, ShouldBeTrue)
			So(p.Ammo, ShouldEqual, 5)
		})

		Convey("Shooting and reloading are blocked while confiscated", func() {
			f.spawn(duck.Normal, 1)
			res, _ := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.Confiscated)
			res, _ = f.res.Reload(f.ctx, channel, "alice")
			So(res.Outcome, ShouldEqual, hunt.Confiscated)
		})

		Convey("Another hunter's kill rearms the gun", func() {
			rules := baseRules()
			rules.MinAccuracy = 100
			rules.RearmConfiscatedOnKill = true
			f2 := newFixture(rules, stdDefaults)
			f2.edit("alice", func(p *player.Player) { p.Confiscate() })
			f2.spawn(duck.Normal, 1)

			res, _ := f2.res.Shoot(f2.ctx, channel, "bob", nil)
			So(res.Outcome, ShouldEqual, hunt.Kill)
			So(res.Rearmed, ShouldResemble, []string{"alice"})
			So(f2.player("alice").Confiscated, ShouldBeFalse)
		})
	})
}

func TestKillEffects(t *testing.T) {
	Convey("Given perfect aim", t, func() {
		rules := baseRules()
		rules.MinAccuracy = 100

		Convey("Killing an explosive duck disables the shooter for two hours", func() {
			f := newFixture(rules, stdDefaults)
			f.spawn(duck.Explosive, 1)
			res, err := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, hunt.Kill)
			So(res.Effect, ShouldEqual, duck.EffectDisable)
			So(f.player("alice").DisabledUntil, ShouldEqual, start.Add(2*time.Hour))

			f.spawn(duck.Normal, 1)
			f.now = start.Add(time.Hour)
			res, _ = f.res.Shoot(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.Disabled)
			res, _ = f.res.Befriend(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.Disabled)
			res, _ = f.res.Reload(f.ctx, channel, "alice")
			So(res.Outcome, ShouldEqual, hunt.Disabled)
			So(f.player("alice").Ammo, ShouldEqual, 5)
			So(f.player("alice").Magazines, ShouldEqual, 3)

			f.now = start.Add(2 * time.Hour)
			res, _ = f.res.Shoot(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldNotEqual, hunt.Disabled)
		})

		Convey("A golden kill drops its item", func() {
			f := newFixture(rules, stdDefaults)
			f.spawn(duck.Golden, 1)
			res, _ := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.Kill)
			So(res.Item, ShouldEqual, "golden_feather")
			So(f.player("alice").Inventory["golden_feather"], ShouldEqual, 1)
		})

		Convey("Auto rearm refills the magazine on a kill", func() {
			rules.AutoRearm = true
			f := newFixture(rules, stdDefaults)
			f.spawn(duck.Normal, 1)
			f.res.Shoot(f.ctx, channel, "alice", nil)
			So(f.player("alice").Ammo, ShouldEqual, 6)
		})

		Convey("Friendly fire hits another armed hunter instead", func() {
			rules.FriendlyFire = true
			rules.FriendlyFireChance = 1
			f := newFixture(rules, stdDefaults)
			f.edit("bob", func(*player.Player) {})
			f.spawn(duck.Normal, 1)

			res, _ := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.TeamKill)
			So(res.Victim, ShouldEqual, "bob")
			So(f.player("alice").Confiscated, ShouldBeTrue)
			So(f.ducks.Count(channel, f.now), ShouldEqual, 1)
		})

		Convey("Friendly fire with nobody else around still hits the duck", func() {
			rules.FriendlyFire = true
			rules.FriendlyFireChance = 1
			f := newFixture(rules, stdDefaults)
			f.spawn(duck.Normal, 1)

			res, _ := f.res.Shoot(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.Kill)
		})
	})
}

func TestBefriend(t *testing.T) {
	Convey("Given a poisonous duck", t, func() {
		f := newFixture(baseRules(), stdDefaults)
		f.spawn(duck.Poisonous, 1)

		Convey("A successful befriend resolves it and poisons the hunter", func() {
			f.roll.Ints(0)
			res, err := f.res.Befriend(f.ctx, channel, "alice", nil)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, hunt.Befriended)
			So(res.XPDelta, ShouldEqual, 5)
			So(f.ducks.Count(channel, f.now), ShouldEqual, 0)
			p := f.player("alice")
			So(p.DucksBefriended, ShouldEqual, 1)
			So(p.PoisonedUntil, ShouldEqual, start.Add(2*time.Hour))

			f.spawn(duck.Normal, 1)
			res, _ = f.res.Shoot(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.Poisoned)
		})

		Convey("A failed befriend costs xp and may scare the duck off", func() {
			rules := baseRules()
			rules.ScaredAwayChance = 1
			f := newFixture(rules, stdDefaults)
			f.spawn(duck.Normal, 1)
			f.edit("alice", func(p *player.Player) { p.XP = 3 })

			f.roll.Ints(99)
			res, _ := f.res.Befriend(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.ScaredAway)
			So(f.player("alice").XP, ShouldEqual, 2)
			So(f.ducks.Count(channel, f.now), ShouldEqual, 0)
		})

		Convey("A failed befriend without a scare leaves the duck", func() {
			f.roll.Ints(99)
			res, _ := f.res.Befriend(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.BefriendFailed)
			So(f.ducks.Count(channel, f.now), ShouldEqual, 1)
		})

		Convey("Befriending a multi hp duck resolves it whole", func() {
			f := newFixture(baseRules(), stdDefaults)
			f.spawn(duck.Concrete, 3)
			f.roll.Ints(0)
			res, _ := f.res.Befriend(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.Befriended)
			So(f.ducks.Count(channel, f.now), ShouldEqual, 0)
		})

		Convey("Nothing to befriend", func() {
			f := newFixture(baseRules(), stdDefaults)
			res, _ := f.res.Befriend(f.ctx, channel, "alice", nil)
			So(res.Outcome, ShouldEqual, hunt.NoDuck)
			So(res.Outcome.Failure(), ShouldBeTrue)
		})
	})
}

func TestReload(t *testing.T) {
	Convey("Given a hunter", t, func() {
		f := newFixture(baseRules(), stdDefaults)

		Convey("A full gun is already loaded", func() {
			res, _ := f.res.Reload(f.ctx, channel, "alice")
			So(res.Outcome, ShouldEqual, hunt.AlreadyLoaded)
			So(f.player("alice").Magazines, ShouldEqual, 3)
		})

		Convey("An empty gun with no magazines cannot reload", func() {
			f.edit("alice", func(p *player.Player) { p.Ammo, p.Magazines = 0, 0 })
			res, _ := f.res.Reload(f.ctx, channel, "alice")
			So(res.Outcome, ShouldEqual, hunt.NoMagazines)
			So(f.player("alice").Ammo, ShouldEqual, 0)
		})

		Convey("A failed save surfaces as an error and halts later actions", func() {
			f.saver.mu.Lock()
			f.saver.err = fmt.Errorf("%w: disk", persistence.ErrSaveExhausted)
			f.saver.mu.Unlock()

			_, err := f.res.Reload(f.ctx, channel, "bob")
			So(errors.Is(err, repository.ErrPersistenceHalted), ShouldBeTrue)
			_, err = f.res.Shoot(f.ctx, channel, "bob", nil)
			So(errors.Is(err, repository.ErrPersistenceHalted), ShouldBeTrue)
		})
	})
}

func TestAccuracyBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rules := baseRules()
		rules.MinAccuracy = rapid.IntRange(5, 50).Draw(t, "min")
		rules.MaxAccuracy = rapid.IntRange(rules.MinAccuracy, 100).Draw(t, "max")
		rules.AccuracyGainOnHit = rapid.IntRange(0, 10).Draw(t, "gain")
		rules.AccuracyLossOnMiss = rapid.IntRange(0, 10).Draw(t, "loss")
		f := newFixture(rules, player.Defaults{Accuracy: 75, Magazines: 0, BulletsPerMagazine: 1000})
		f.spawn(duck.Concrete, 1)
		f.edit("alice", func(p *player.Player) { p.Accuracy = player.Clamp(p.Accuracy, rules.MinAccuracy, rules.MaxAccuracy) })

		shots := rapid.IntRange(1, 60).Draw(t, "shots")
		for i := 0; i < shots; i++ {
			if rapid.Bool().Draw(t, "hit") {
				f.roll.Ints(0)
			} else {
				f.roll.Ints(99)
			}
			if _, err := f.res.Shoot(f.ctx, channel, "alice", nil); err != nil {
				t.Fatal(err)
			}
			if f.ducks.Count(channel, f.now) == 0 {
				f.spawn(duck.Concrete, 1)
			}
			acc := f.player("alice").Accuracy
			if acc < rules.MinAccuracy || acc > rules.MaxAccuracy {
				t.Fatalf("accuracy %d outside [%d,%d]", acc, rules.MinAccuracy, rules.MaxAccuracy)
			}
		}
	})
}
