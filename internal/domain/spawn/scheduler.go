// Package spawn decides when and which ducks appear in each channel.
//
// Every joined channel gets its own timer goroutine. A tick waits a uniform
// random delay, skips while a sleep window is active, and otherwise inserts
// a weighted kind or brood into the registry up to the channel's capacity.
// The next tick is scheduled whatever the outcome.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/names"
	"github.com/okian/duckhunt/pkg/logger"
	"github.com/okian/duckhunt/pkg/metrics"
)

// Registry is the part of the duck registry the scheduler writes to.
type Registry interface {
	SpawnMany(channel string, ds []duck.Duck, max int) []uint64
	Count(channel string, now time.Time) int
	Expire(channel string, now time.Time) []duck.Duck
	Clear(channel string) int
}

// Notifier delivers channel announcements.
type Notifier interface {
	Send(ctx context.Context, target, text string) error
}

// Settings are the scheduler tunables.
type Settings struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	MaxDucks int
	// Sweep is how often expired ducks are removed and announced.
	Sweep    time.Duration
	Windows  []Window
	Location *time.Location
}

type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler owns the per-channel spawn loops.
type Scheduler struct {
	reg     Registry
	catalog *duck.Catalog
	set     Settings

	roller dice.Roller
	now    func() time.Time
	notify Notifier
	logger logger.Logger

	mu    sync.Mutex
	loops map[string]*loop
}

// New builds a scheduler. No loop runs until Join.
func New(reg Registry, catalog *duck.Catalog, set Settings, opts ...Option) *Scheduler {
	if set.Location == nil {
		set.Location = time.UTC
	}
	if set.Sweep <= 0 {
		set.Sweep = 2 * time.Second
	}
	s := &Scheduler{
		reg:     reg,
		catalog: catalog,
		set:     set,
		roller:  dice.New(0),
		now:     time.Now,
		logger:  logger.Nop(),
		loops:   make(map[string]*loop),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Join starts the channel's loop under ctx. It reports false if one already runs.
func (s *Scheduler) Join(ctx context.Context, channel string) bool {
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loops[channel]; ok {
		return false
	}
	lctx, cancel := context.WithCancel(ctx)
	l := &loop{cancel: cancel, done: make(chan struct{})}
	s.loops[channel] = l
	go s.run(lctx, channel, l)

	s.logger.Info(ctx, "spawn loop started", logger.String("channel", channel))
	return true
}

// Part stops the channel's loop, waits for it to exit and drops its ducks.
func (s *Scheduler) Part(channel string) bool {
	channel = names.Channel(channel)

	s.mu.Lock()
	l, ok := s.loops[channel]
	delete(s.loops, channel)
	s.mu.Unlock()
	if !ok {
		return false
	}
	l.cancel()
	<-l.done
	s.reg.Clear(channel)
	return true
}

// Stop parts every channel.
func (s *Scheduler) Stop() {
	for _, ch := range s.Channels() {
		s.Part(ch)
	}
}

// Channels lists channels with a running loop.
func (s *Scheduler) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.loops))
	for ch := range s.loops {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Joined reports whether channel has a running loop.
func (s *Scheduler) Joined(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[names.Channel(channel)]
	return ok
}

func (s *Scheduler) run(ctx context.Context, channel string, l *loop) {
	defer close(l.done)

	timer := time.NewTimer(s.delay())
	defer timer.Stop()
	sweep := time.NewTicker(s.set.Sweep)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			s.Sweep(ctx, channel)
		case <-timer.C:
			if _, err := s.Tick(ctx, channel); err != nil {
				s.logger.Debug(ctx, "spawn tick skipped", logger.String("channel", channel), logger.Error(err))
			}
			timer.Reset(s.delay())
		}
	}
}

func (s *Scheduler) delay() time.Duration {
	lo, hi := s.set.MinDelay, s.set.MaxDelay
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.roller.IntN(int(hi-lo)+1))
}

// Tick runs one scheduled spawn for channel.
func (s *Scheduler) Tick(ctx context.Context, channel string) ([]duck.Duck, error) {
	now := s.now()
	if Asleep(s.set.Windows, now.In(s.set.Location)) {
		metrics.RecordSpawnSkipped("asleep")
		return nil, ErrAsleep
	}
	return s.spawn(ctx, names.Channel(channel), Select(s.catalog, s.roller), now)
}

// Launch forces a spawn in a joined channel, ignoring sleep windows. A nil
// kind draws from the weighted table.
func (s *Scheduler) Launch(ctx context.Context, channel string, kind *duck.Kind) ([]duck.Duck, error) {
	channel = names.Channel(channel)
	if !s.Joined(channel) {
		return nil, fmt.Errorf("%w: %s", ErrNotJoined, channel)
	}
	pick := Select(s.catalog, s.roller)
	if kind != nil {
		pick = Pick{Kind: *kind, Brood: duck.Single}
	}
	return s.spawn(ctx, channel, pick, s.now())
}

func (s *Scheduler) spawn(ctx context.Context, channel string, pick Pick, now time.Time) ([]duck.Duck, error) {
	if s.reg.Count(channel, now) >= s.set.MaxDucks {
		metrics.RecordSpawnSkipped("full")
		return nil, ErrChannelFull
	}
	ds := Hatch(s.catalog, pick, s.roller, now)
	ids := s.reg.SpawnMany(channel, ds, s.set.MaxDucks)
	if len(ids) == 0 {
		metrics.RecordSpawnSkipped("full")
		return nil, ErrChannelFull
	}
	ds = ds[:len(ids)]
	for i, id := range ids {
		ds[i].ID = id
		ds[i].Channel = channel
		metrics.RecordDuckSpawned(ds[i].Kind.String())
	}

	s.logger.Info(ctx, "ducks spawned",
		logger.String("channel", channel),
		logger.String("kind", pick.Kind.String()),
		logger.String("brood", pick.Brood.String()),
		logger.Int("count", len(ds)))
	s.announce(ctx, channel, spawnText(pick, ds))
	return ds, nil
}

// Sweep removes and announces the channel's expired ducks.
func (s *Scheduler) Sweep(ctx context.Context, channel string) []duck.Duck {
	channel = names.Channel(channel)
	gone := s.reg.Expire(channel, s.now())
	for _, d := range gone {
		metrics.RecordDuckResolved(d.Kind.String(), "expired")
		s.announce(ctx, channel, fmt.Sprintf("The %s duck (#%d) flies away.", kindLabel(d.Kind), d.ID))
	}
	return gone
}

func (s *Scheduler) announce(ctx context.Context, channel, text string) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Send(ctx, channel, text); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn(ctx, "announce failed", logger.String("channel", channel), logger.Error(err))
	}
}

func spawnText(p Pick, ds []duck.Duck) string {
	switch {
	case len(ds) > 1:
		return fmt.Sprintf("A %s of %d ducks lands! (#%d-#%d)", p.Brood, len(ds), ds[0].ID, ds[len(ds)-1].ID)
	case p.Kind == duck.Normal:
		return fmt.Sprintf("\\_O< QUACK! A duck appears. (#%d)", ds[0].ID)
	}
	return fmt.Sprintf("\\_O< QUACK! A %s duck appears. (#%d)", kindLabel(p.Kind), ds[0].ID)
}

func kindLabel(k duck.Kind) string {
	if k == duck.HolyGrail {
		return "holy grail"
	}
	return k.String()
}
