package player_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/duckhunt/internal/domain/player"
	. "github.com/smartystreets/goconvey/convey"
	"pgregory.net/rapid"
)

var defaults = player.Defaults{Accuracy: 75, Magazines: 3, BulletsPerMagazine: 6}

func TestPlayer(t *testing.T) {
	Convey("Given a new player", t, func() {
		p := player.New("#ducks", "alice", defaults)

		Convey("Then it starts loaded at level 1", func() {
			So(p.Ammo, ShouldEqual, 6)
			So(p.Magazines, ShouldEqual, 3)
			So(p.Level, ShouldEqual, 1)
			So(p.Armed(), ShouldBeTrue)
		})

		Convey("When XP goes negative", func() {
			p.AddXP(3)
			p.AddXP(-10)

			Convey("Then it floors at zero", func() {
				So(p.XP, ShouldEqual, 0)
			})
		})

		Convey("When the gun is confiscated and rearmed", func() {
			p.Ammo = 0
			p.Jammed = true
			p.Confiscate()
			So(p.Armed(), ShouldBeFalse)
			p.Rearm()

			Convey("Then it is loaded and clear", func() {
				So(p.Armed(), ShouldBeTrue)
				So(p.Ammo, ShouldEqual, 6)
				So(p.Jammed, ShouldBeFalse)
			})
		})

		Convey("When kills are recorded", func() {
			p.RecordKill(5 * time.Second)
			p.RecordKill(9 * time.Second)
			p.RecordKill(2 * time.Second)

			Convey("Then the best time is the fastest", func() {
				So(p.DucksShot, ShouldEqual, 3)
				So(p.BestTime, ShouldEqual, 2*time.Second)
			})
		})

		Convey("When cloned", func() {
			p.Inventory = map[string]int{"bread": 1}
			c := p.Clone()
			c.Inventory["bread"] = 5

			Convey("Then the inventory is not shared", func() {
				So(p.Inventory["bread"], ShouldEqual, 1)
			})
		})
	})
}

func TestStatusEffects(t *testing.T) {
	Convey("Given a player and a clock", t, func() {
		p := player.New("#ducks", "bob", defaults)
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

		Convey("When disabled for two hours", func() {
			player.SetDisabledUntil(p, now.Add(2*time.Hour))

			Convey("Then the check is time based", func() {
				So(player.IsDisabled(p, now), ShouldBeTrue)
				So(player.IsDisabled(p, now.Add(2*time.Hour)), ShouldBeFalse)
			})

			Convey("Then a shorter penalty does not shorten it", func() {
				player.SetDisabledUntil(p, now.Add(time.Minute))
				So(p.DisabledUntil, ShouldEqual, now.Add(2*time.Hour))
			})
		})

		Convey("When poisoned twice", func() {
			player.SetPoisonedUntil(p, now.Add(8*time.Hour))
			player.SetPoisonedUntil(p, now.Add(2*time.Hour))

			Convey("Then the later deadline wins", func() {
				So(player.IsPoisoned(p, now.Add(7*time.Hour)), ShouldBeTrue)
				So(player.IsPoisoned(p, now.Add(9*time.Hour)), ShouldBeFalse)
			})
		})
	})
}

func TestDeadlinesAreMonotonic(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rapid.Check(t, func(t *rapid.T) {
		p := &player.Player{}
		offsets := rapid.SliceOf(rapid.IntRange(0, 100_000)).Draw(t, "offsets")
		var prev time.Time
		for _, off := range offsets {
			player.SetDisabledUntil(p, base.Add(time.Duration(off)*time.Second))
			if p.DisabledUntil.Before(prev) {
				t.Fatalf("deadline moved backwards: %s -> %s", prev, p.DisabledUntil)
			}
			prev = p.DisabledUntil
		}
	})
}

func TestAccuracyStaysInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.IntRange(0, 50).Draw(t, "lo")
		hi := rapid.IntRange(lo, 100).Draw(t, "hi")
		p := &player.Player{Accuracy: rapid.IntRange(lo, hi).Draw(t, "start")}
		deltas := rapid.SliceOf(rapid.IntRange(-20, 20)).Draw(t, "deltas")
		for _, d := range deltas {
			p.AdjustAccuracy(d, lo, hi)
			if p.Accuracy < lo || p.Accuracy > hi {
				t.Fatalf("accuracy %d escaped [%d,%d]", p.Accuracy, lo, hi)
			}
		}
	})
}

func TestLevels(t *testing.T) {
	Convey("Given the default level table", t, func() {
		ls, err := player.NewLevels([]player.Level{
			{Name: "Novice", MinDucks: 0, AccuracyModifier: 5, BefriendRate: 85},
			{Name: "Hunter", MinDucks: 10, BefriendRate: 75},
			{Name: "Marksman", MinDucks: 50, AccuracyModifier: -5},
		})
		So(err, ShouldBeNil)

		Convey("Then levels are chosen by duck total", func() {
			So(ls.For(0), ShouldEqual, 1)
			So(ls.For(9), ShouldEqual, 1)
			So(ls.For(10), ShouldEqual, 2)
			So(ls.For(49), ShouldEqual, 2)
			So(ls.For(500), ShouldEqual, 3)
		})

		Convey("Then Recompute counts shot and befriended ducks", func() {
			p := &player.Player{DucksShot: 6, DucksBefriended: 4}
			ls.Recompute(p)
			So(p.Level, ShouldEqual, 2)
			So(ls.Get(p.Level).Name, ShouldEqual, "Hunter")
			So(ls.Get(99).Name, ShouldEqual, "Marksman")
		})
	})

	Convey("Given malformed level tables", t, func() {
		_, err := player.NewLevels(nil)
		So(errors.Is(err, player.ErrInvalidLevels), ShouldBeTrue)

		_, err = player.NewLevels([]player.Level{{MinDucks: 5}})
		So(errors.Is(err, player.ErrInvalidLevels), ShouldBeTrue)

		_, err = player.NewLevels([]player.Level{{MinDucks: 0}, {MinDucks: 20}, {MinDucks: 20}})
		So(errors.Is(err, player.ErrInvalidLevels), ShouldBeTrue)
	})
}

func TestEconomy(t *testing.T) {
	Convey("Given a player", t, func() {
		p := player.New("#ducks", "alice", defaults)

		Convey("When a credit would wrap the balance", func() {
			p.Coins = math.MaxInt64 - 5
			err := p.Credit(6)

			Convey("Then it is refused and the balance is kept", func() {
				So(errors.Is(err, player.ErrBalanceOverflow), ShouldBeTrue)
				So(p.Coins, ShouldEqual, int64(math.MaxInt64-5))
				So(p.Credit(5), ShouldBeNil)
				So(p.Coins, ShouldEqual, int64(math.MaxInt64))
			})
		})

		Convey("When an item grant would wrap the count", func() {
			So(p.AddItem("bread", math.MaxInt-1), ShouldBeNil)
			err := p.AddItem("bread", 2)

			Convey("Then it is refused and the count is kept", func() {
				So(errors.Is(err, player.ErrBalanceOverflow), ShouldBeTrue)
				So(p.Inventory["bread"], ShouldEqual, math.MaxInt-1)
			})
		})

		Convey("When the last item is removed", func() {
			So(p.AddItem("bread", 2), ShouldBeNil)
			So(p.RemoveItem("bread", 2), ShouldBeNil)

			Convey("Then the inventory is nil again", func() {
				So(p.Inventory, ShouldBeNil)
			})
		})
	})
}
