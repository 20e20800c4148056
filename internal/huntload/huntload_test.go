package huntload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/duckhunt/internal/adapters/http/api"
	"github.com/okian/duckhunt/internal/adapters/persistence"
	service "github.com/okian/duckhunt/internal/app"
	"github.com/okian/duckhunt/internal/config"
	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/internal/domain/model"
	"github.com/okian/duckhunt/internal/domain/types"
)

func loadConfig(base string) *Config {
	return &Config{
		BaseURL:  base,
		Commands: 200,
		Players:  6,
		Channels: []string{"#ducks", "#pond"},
		Admin:    "op",
		TopN:     50,
		Workers:  4,
		Timeout:  5 * time.Second,
		Replays:  10,
		Seed:     42,
	}
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.New(context.Background())
	cfg.WorkerCount = 2
	cfg.Channels = []string{"#ducks", "#pond"}
	cfg.Admins = []string{"op"}
	cfg.Timezone = "UTC"
	cfg.Spawn.MinSeconds = 3600
	cfg.Spawn.MaxSeconds = 3600

	store, err := persistence.NewFileStore(filepath.Join(t.TempDir(), "state.json"), false)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	svc, err := service.New(cfg, store, service.WithRoller(dice.New(3)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded plan", t, func() {
		cfg := loadConfig("http://unused")
		a := Generate(cfg, dice.New(cfg.Seed))
		b := Generate(cfg, dice.New(cfg.Seed))

		Convey("Then it has one request per command", func() {
			So(a, ShouldHaveLength, cfg.Commands)
		})

		Convey("Then the same seed picks the same verbs, channels and nicks", func() {
			for i := range a {
				So(a[i].Verb, ShouldEqual, b[i].Verb)
				So(a[i].Channel, ShouldEqual, b[i].Channel)
				So(a[i].Nick, ShouldEqual, b[i].Nick)
			}
		})

		Convey("Then admin verbs are issued by the admin nick", func() {
			for _, req := range a {
				v := model.Verb(req.Verb)
				if v.Admin() {
					So(req.Nick, ShouldEqual, cfg.Admin)
				}
				if v == model.VerbLaunch {
					So(req.Kind, ShouldEqual, "normal")
				}
			}
		})

		Convey("Then every replay slot repeats an earlier ID", func() {
			seen := make(map[string]bool)
			for i, req := range a {
				if i > 0 && i%cfg.Replays == 0 {
					So(seen[req.ID], ShouldBeTrue)
				}
				seen[req.ID] = true
			}
		})
	})
}

func TestVerifyOrdering(t *testing.T) {
	Convey("Given leaderboard rows", t, func() {
		Convey("When sorted with ties they pass", func() {
			board := []types.Entry{
				{Rank: 1, Nick: "a", XP: 20},
				{Rank: 2, Nick: "b", XP: 10},
				{Rank: 2, Nick: "c", XP: 10},
			}
			So(verifyOrdering(board), ShouldBeNil)
		})

		Convey("When a lower row has more XP they fail", func() {
			board := []types.Entry{
				{Rank: 1, Nick: "a", XP: 5},
				{Rank: 2, Nick: "b", XP: 9},
			}
			So(verifyOrdering(board), ShouldNotBeNil)
		})

		Convey("When a row disagrees with the player view it fails", func() {
			e := types.Entry{Nick: "a", XP: 5, DucksShot: 1}
			So(verifyEntry(e, types.Player{Nick: "a", XP: 5, DucksShot: 1}), ShouldBeNil)
			So(verifyEntry(e, types.Player{Nick: "a", XP: 4, DucksShot: 1}), ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv := startServer(t)
		cfg := loadConfig(srv.URL)

		Convey("When the load run completes", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			stats, err := Run(ctx, cfg)

			Convey("Then every command is answered and replays are dropped", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, cfg.Commands)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Duplicate, ShouldEqual, (cfg.Commands-1)/cfg.Replays)
				So(stats.Successful+stats.Duplicate+stats.Rejected, ShouldEqual, cfg.Commands)
				So(stats.Players, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given an incomplete config", t, func() {
		cfg := loadConfig("")
		_, err := Run(context.Background(), cfg)
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})
}
