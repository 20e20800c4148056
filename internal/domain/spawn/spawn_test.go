package spawn_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/duckhunt/internal/adapters/repository"
	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/spawn"
)

var noon = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Send(_ context.Context, target, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, target+" "+text)
	return nil
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func catalog(t *testing.T, couple, family float64, extra ...duck.Spec) *duck.Catalog {
	t.Helper()
	minute := time.Minute
	specs := append([]duck.Spec{
		{Kind: duck.Normal, MinHP: 1, MaxHP: 1, XP: 10, TimeoutMin: minute, TimeoutMax: minute},
	}, extra...)
	c, err := duck.NewCatalog(specs, couple, family)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSelectFrequencies(t *testing.T) {
	Convey("Given golden at 15% and fast at 25%", t, func() {
		minute := time.Minute
		c := catalog(t, 0, 0,
			duck.Spec{Kind: duck.Golden, Chance: 0.15, MinHP: 3, MaxHP: 5, XP: 15, TimeoutMin: minute, TimeoutMax: minute},
			duck.Spec{Kind: duck.Fast, Chance: 0.25, MinHP: 1, MaxHP: 1, XP: 12, TimeoutMin: minute, TimeoutMax: minute},
		)
		r := dice.New(42)

		const ticks = 100_000
		counts := map[duck.Kind]int{}
		for i := 0; i < ticks; i++ {
			counts[spawn.Select(c, r).Kind]++
		}

		Convey("Each kind lands within 1.5 points of its weight", func() {
			golden := float64(counts[duck.Golden]) / ticks
			fast := float64(counts[duck.Fast]) / ticks
			normal := float64(counts[duck.Normal]) / ticks
			So(golden, ShouldBeBetween, 0.135, 0.165)
			So(fast, ShouldBeBetween, 0.235, 0.265)
			So(normal, ShouldBeBetween, 0.585, 0.615)
		})
	})

	Convey("Given only brood chances", t, func() {
		c := catalog(t, 0.5, 0.5)

		Convey("Low rolls give a couple, high rolls a family", func() {
			So(spawn.Select(c, dice.NewScript().Floats(0.1)), ShouldResemble, spawn.Pick{Kind: duck.Normal, Brood: duck.Couple})
			So(spawn.Select(c, dice.NewScript().Floats(0.7)), ShouldResemble, spawn.Pick{Kind: duck.Normal, Brood: duck.Family})
		})

		Convey("A family has three or four ducks", func() {
			So(spawn.BroodSize(duck.Family, dice.NewScript().Ints(0)), ShouldEqual, 3)
			So(spawn.BroodSize(duck.Family, dice.NewScript().Ints(1)), ShouldEqual, 4)
			So(spawn.BroodSize(duck.Couple, dice.NewScript()), ShouldEqual, 2)
		})
	})
}

func TestHatch(t *testing.T) {
	Convey("Given a golden kind with hp 3-5 and a 60-120s timeout", t, func() {
		c := catalog(t, 0, 0, duck.Spec{Kind: duck.Golden, Chance: 0.1, MinHP: 3, MaxHP: 5, XP: 15,
			TimeoutMin: time.Minute, TimeoutMax: 2 * time.Minute})

		ds := spawn.Hatch(c, spawn.Pick{Kind: duck.Golden}, dice.NewScript().Ints(1, 30), noon)

		So(ds, ShouldHaveLength, 1)
		So(ds[0].HP, ShouldEqual, 4)
		So(ds[0].MaxHP, ShouldEqual, 4)
		So(ds[0].SpawnedAt, ShouldEqual, noon)
		So(ds[0].ExpiresAt, ShouldEqual, noon.Add(90*time.Second))
	})
}

func TestSleepWindows(t *testing.T) {
	Convey("Given a window that wraps midnight", t, func() {
		w, err := spawn.ParseWindow("23:00", "06:00")
		So(err, ShouldBeNil)

		So(w.Contains(time.Date(2026, 6, 1, 23, 30, 0, 0, time.UTC)), ShouldBeTrue)
		So(w.Contains(time.Date(2026, 6, 2, 5, 59, 0, 0, time.UTC)), ShouldBeTrue)
		So(w.Contains(time.Date(2026, 6, 2, 6, 0, 0, 0, time.UTC)), ShouldBeFalse)
		So(w.Contains(noon), ShouldBeFalse)
	})

	Convey("Given a daytime window", t, func() {
		w, err := spawn.ParseWindow("09:00", "17:00")
		So(err, ShouldBeNil)
		So(spawn.Asleep([]spawn.Window{w}, noon), ShouldBeTrue)
		So(spawn.Asleep([]spawn.Window{w}, noon.Add(6*time.Hour)), ShouldBeFalse)
		So(spawn.Asleep(nil, noon), ShouldBeFalse)
	})

	Convey("Malformed or empty windows are rejected", t, func() {
		_, err := spawn.ParseWindow("25:00", "06:00")
		So(errors.Is(err, spawn.ErrInvalidWindow), ShouldBeTrue)
		_, err = spawn.ParseWindow("10:00", "10:00")
		So(errors.Is(err, spawn.ErrInvalidWindow), ShouldBeTrue)
	})
}

func TestSchedulerTick(t *testing.T) {
	ctx := context.Background()

	Convey("Given a scheduler over a real duck store", t, func() {
		reg := repository.NewDuckStore()
		clk := &clock{t: noon}
		rec := &recorder{}
		night, _ := spawn.ParseWindow("22:00", "07:00")
		newScheduler := func(c *duck.Catalog, r dice.Roller) *spawn.Scheduler {
			return spawn.New(reg, c, spawn.Settings{
				MinDelay: time.Minute, MaxDelay: time.Minute, MaxDucks: 3,
				Windows: []spawn.Window{night},
			}, spawn.WithClock(clk.now), spawn.WithRoller(r), spawn.WithNotifier(rec))
		}

		Convey("A daytime tick spawns one announced duck", func() {
			s := newScheduler(catalog(t, 0, 0), dice.NewScript())
			ds, err := s.Tick(ctx, "#Ducks")
			So(err, ShouldBeNil)
			So(ds, ShouldHaveLength, 1)
			So(ds[0].ID, ShouldEqual, 1)
			So(ds[0].Channel, ShouldEqual, "#ducks")
			So(reg.Count("#ducks", noon), ShouldEqual, 1)
			So(rec.all(), ShouldHaveLength, 1)
			So(rec.all()[0], ShouldContainSubstring, "QUACK")
		})

		Convey("A tick inside a sleep window is skipped", func() {
			s := newScheduler(catalog(t, 0, 0), dice.NewScript())
			clk.set(time.Date(2026, 6, 1, 23, 15, 0, 0, time.UTC))
			_, err := s.Tick(ctx, "#ducks")
			So(errors.Is(err, spawn.ErrAsleep), ShouldBeTrue)
			So(reg.Total(), ShouldEqual, 0)
		})

		Convey("A family is cut down to the room left", func() {
			s := newScheduler(catalog(t, 0, 1), dice.NewScript())
			_, err := s.Tick(ctx, "#ducks")
			So(err, ShouldBeNil)
			So(reg.Count("#ducks", noon), ShouldEqual, 3)

			reg.Clear("#ducks")
			reg.Spawn("#ducks", duck.Duck{Kind: duck.Normal, HP: 1, MaxHP: 1, SpawnedAt: noon, ExpiresAt: noon.Add(time.Minute)}, 3)
			ds, err := s.Tick(ctx, "#ducks")
			So(err, ShouldBeNil)
			So(ds, ShouldHaveLength, 2)
			So(reg.Count("#ducks", noon), ShouldEqual, 3)
		})

		Convey("A full channel skips the tick", func() {
			s := newScheduler(catalog(t, 0, 0), dice.NewScript())
			for i := 0; i < 3; i++ {
				_, err := s.Tick(ctx, "#ducks")
				So(err, ShouldBeNil)
			}
			_, err := s.Tick(ctx, "#ducks")
			So(errors.Is(err, spawn.ErrChannelFull), ShouldBeTrue)
		})

		Convey("Sweep removes and announces expired ducks", func() {
			s := newScheduler(catalog(t, 0, 0), dice.NewScript())
			_, err := s.Tick(ctx, "#ducks")
			So(err, ShouldBeNil)
			So(s.Sweep(ctx, "#ducks"), ShouldBeEmpty)

			clk.set(noon.Add(2 * time.Minute))
			gone := s.Sweep(ctx, "#ducks")
			So(gone, ShouldHaveLength, 1)
			So(reg.Total(), ShouldEqual, 0)
			lines := rec.all()
			So(lines[len(lines)-1], ShouldContainSubstring, "flies away")
		})

		Convey("Launch needs a joined channel and honours a forced kind", func() {
			c := catalog(t, 0, 0, duck.Spec{Kind: duck.Golden, Chance: 0.1, MinHP: 3, MaxHP: 3, XP: 15,
				TimeoutMin: time.Minute, TimeoutMax: time.Minute})
			s := newScheduler(c, dice.NewScript())
			golden := duck.Golden
			_, err := s.Launch(ctx, "#ducks", &golden)
			So(errors.Is(err, spawn.ErrNotJoined), ShouldBeTrue)

			lctx, cancel := context.WithCancel(ctx)
			defer cancel()
			So(s.Join(lctx, "#ducks"), ShouldBeTrue)
			defer s.Stop()

			clk.set(time.Date(2026, 6, 1, 23, 15, 0, 0, time.UTC))
			ds, err := s.Launch(ctx, "#ducks", &golden)
			So(err, ShouldBeNil)
			So(ds, ShouldHaveLength, 1)
			So(ds[0].Kind, ShouldEqual, duck.Golden)
			So(ds[0].HP, ShouldEqual, 3)
		})
	})
}

func TestSchedulerLoop(t *testing.T) {
	Convey("Given a scheduler with millisecond delays", t, func() {
		reg := repository.NewDuckStore()
		rec := &recorder{}
		s := spawn.New(reg, catalog(t, 0, 0), spawn.Settings{
			MinDelay: 2 * time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxDucks: 2,
			Sweep: time.Millisecond,
		}, spawn.WithRoller(dice.New(7)), spawn.WithNotifier(rec))
		Reset(s.Stop)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		So(s.Join(ctx, "#ducks"), ShouldBeTrue)
		So(s.Join(ctx, "#DUCKS"), ShouldBeFalse)
		So(s.Channels(), ShouldResemble, []string{"#ducks"})

		deadline := time.Now().Add(2 * time.Second)
		for reg.Count("#ducks", time.Now()) < 2 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}

		Convey("The loop fills the channel up to capacity", func() {
			So(reg.Count("#ducks", time.Now()), ShouldEqual, 2)
			for _, l := range rec.all() {
				So(strings.HasPrefix(l, "#ducks "), ShouldBeTrue)
			}
		})

		Convey("Part stops the loop and drops its ducks", func() {
			So(s.Part("#ducks"), ShouldBeTrue)
			So(s.Joined("#ducks"), ShouldBeFalse)
			So(reg.Total(), ShouldEqual, 0)
			So(s.Part("#ducks"), ShouldBeFalse)
		})
	})
}
