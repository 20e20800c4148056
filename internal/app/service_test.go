package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/duckhunt/internal/app"
	"github.com/okian/duckhunt/internal/adapters/persistence"
	"github.com/okian/duckhunt/internal/config"
	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/internal/domain/model"
	"github.com/okian/duckhunt/internal/domain/spawn"
)

const channel = "#ducks"

// recorder collects announcements.
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

func (r *recorder) contains(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

// flakyStore fails every save with ErrSaveExhausted while fail is set.
type flakyStore struct {
	*persistence.FileStore
	fail atomic.Bool
}

func (f *flakyStore) Save(ctx context.Context, snap persistence.Snapshot) error {
	if f.fail.Load() {
		return fmt.Errorf("%w: disk gone", persistence.ErrSaveExhausted)
	}
	return f.FileStore.Save(ctx, snap)
}

// testConfig disables every random branch of a shot so outcomes are fixed:
// accuracy is pinned at 100, jams and friendly fire are off and no spawn
// timer fires during a test.
func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.WorkerCount = 2
	cfg.QueueSize = 64
	cfg.DedupeSize = 128
	cfg.Channels = []string{channel}
	cfg.Admins = []string{"op"}
	cfg.Timezone = "UTC"
	cfg.Spawn.MinSeconds = 3600
	cfg.Spawn.MaxSeconds = 3600
	cfg.Gameplay.JamChanceBase = 0
	cfg.Gameplay.FriendlyFireEnabled = false
	cfg.PlayerDefaults.Accuracy = 100
	return cfg
}

func fileStore(t *testing.T, dir string) *persistence.FileStore {
	t.Helper()
	fs, err := persistence.NewFileStore(filepath.Join(dir, "state.json"), false)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return fs
}

func newService(t *testing.T, cfg *config.Config, store service.Store, rec *recorder) *service.Service {
	t.Helper()
	svc, err := service.New(cfg, store,
		service.WithSender(rec),
		service.WithRoller(dice.New(7)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o600)
}

func ctxTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func TestService_New(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := testConfig()

		Convey("Then a service is built", func() {
			svc, err := service.New(cfg, fileStore(t, t.TempDir()))
			So(err, ShouldBeNil)
			So(svc, ShouldNotBeNil)
			So(svc.GetStats().Started, ShouldBeFalse)
		})

		Convey("When a duck type is unknown", func() {
			cfg.DuckTypes["plastic"] = config.DuckType{Chance: 0.1, MinHP: 1, MaxHP: 1}
			_, err := service.New(cfg, fileStore(t, t.TempDir()))

			Convey("Then construction fails as invalid config", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When an admin entry is blank", func() {
			cfg.Admins = []string{"  "}
			_, err := service.New(cfg, fileStore(t, t.TempDir()))

			Convey("Then construction fails as invalid config", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service on an empty store", t, func() {
		ctx, cancel := ctxTimeout()
		defer cancel()
		svc := newService(t, testConfig(), fileStore(t, t.TempDir()), &recorder{})

		Convey("Submitting before Start is refused", func() {
			_, err := svc.Submit(ctx, model.Command{Verb: model.VerbShoot, Channel: channel, Nick: "alice"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When it starts", func() {
			So(svc.Start(ctx), ShouldBeNil)
			Reset(func() { _ = svc.Stop(ctx) })

			Convey("Then configured channels are joined", func() {
				stats := svc.GetStats()
				So(stats.Started, ShouldBeTrue)
				So(stats.Channels, ShouldResemble, []string{channel})
				So(stats.Workers, ShouldEqual, 2)
			})

			Convey("Then Start again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And after Stop it cannot start again", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.GetStats().Started, ShouldBeFalse)
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
			})
		})
	})

	Convey("Given a corrupt snapshot on disk", t, func() {
		ctx, cancel := ctxTimeout()
		defer cancel()
		dir := t.TempDir()
		fs := fileStore(t, dir)
		So(writeFile(filepath.Join(dir, "state.json"), "{not json"), ShouldBeNil)
		svc := newService(t, testConfig(), fs, &recorder{})

		Convey("Then Start fails with ErrCorruptSnapshot", func() {
			err := svc.Start(ctx)
			So(errors.Is(err, persistence.ErrCorruptSnapshot), ShouldBeTrue)
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := ctxTimeout()
		defer cancel()
		rec := &recorder{}
		svc := newService(t, testConfig(), fileStore(t, t.TempDir()), rec)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("An invalid command is rejected before queueing", func() {
			_, err := svc.Submit(ctx, model.Command{Verb: model.VerbShoot, Channel: "ducks", Nick: "alice"})
			So(errors.Is(err, model.ErrInvalidCommand), ShouldBeTrue)
		})

		Convey("A command id is assigned when missing", func() {
			reply, err := svc.Submit(ctx, model.Command{Verb: model.VerbReload, Channel: channel, Nick: "alice"})
			So(err, ShouldBeNil)
			So(reply.CommandID, ShouldNotBeEmpty)
		})

		Convey("A repeated command id is a duplicate", func() {
			cmd := model.Command{ID: "c-1", Verb: model.VerbReload, Channel: channel, Nick: "alice"}
			_, err := svc.Submit(ctx, cmd)
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, cmd)
			So(errors.Is(err, service.ErrDuplicate), ShouldBeTrue)
		})

		Convey("Actions in a channel that is not joined fail", func() {
			_, err := svc.Submit(ctx, model.Command{Verb: model.VerbShoot, Channel: "#elsewhere", Nick: "alice"})
			So(errors.Is(err, spawn.ErrNotJoined), ShouldBeTrue)
		})

		Convey("Admin verbs from other nicks are refused", func() {
			_, err := svc.Submit(ctx, model.Command{Verb: model.VerbLaunch, Channel: channel, Nick: "mallory"})
			So(errors.Is(err, service.ErrUnauthorized), ShouldBeTrue)
			So(svc.Ducks(ctx, channel), ShouldBeEmpty)
		})

		Convey("Shooting into an empty channel is a wild shot", func() {
			reply, err := svc.Submit(ctx, model.Command{Verb: model.VerbShoot, Channel: channel, Nick: "alice"})
			So(err, ShouldBeNil)
			So(string(reply.Result.Outcome), ShouldEqual, "wild_shot")
			So(reply.Result.Player.Confiscated, ShouldBeTrue)
			So(rec.contains("fires at nothing"), ShouldBeTrue)
		})
	})
}

func TestService_Halt(t *testing.T) {
	Convey("Given a started service whose saves give up", t, func() {
		ctx, cancel := ctxTimeout()
		defer cancel()
		store := &flakyStore{FileStore: fileStore(t, t.TempDir())}
		svc := newService(t, testConfig(), store, &recorder{})
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		store.fail.Store(true)
		_, err := svc.Submit(ctx, model.Command{Verb: model.VerbShoot, Channel: channel, Nick: "alice"})
		So(err, ShouldNotBeNil)
		So(svc.Halted(), ShouldBeTrue)

		Convey("Then later mutations are refused", func() {
			_, err := svc.Submit(ctx, model.Command{Verb: model.VerbReload, Channel: channel, Nick: "bob"})
			So(err, ShouldNotBeNil)
			So(svc.GetStats().Halted, ShouldBeTrue)
		})

		Convey("When an admin flushes after the disk recovers", func() {
			store.fail.Store(false)
			reply, err := svc.Submit(ctx, model.Command{Verb: model.VerbFlush, Nick: "op"})

			Convey("Then the halt lifts", func() {
				So(err, ShouldBeNil)
				So(reply.Changed, ShouldBeTrue)
				So(svc.Halted(), ShouldBeFalse)
			})
		})
	})
}
