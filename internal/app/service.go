// Package service wires the game engine together and implements the
// dependencies required by the HTTP API.
//
// Commands are submitted through Submit, which deduplicates them by id and
// queues them on the shard owning their channel. A worker per shard calls
// Handle, so each channel sees its commands in arrival order.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/duckhunt/internal/adapters/access"
	"github.com/okian/duckhunt/internal/adapters/announce"
	"github.com/okian/duckhunt/internal/adapters/mq/queue"
	"github.com/okian/duckhunt/internal/adapters/mq/worker"
	"github.com/okian/duckhunt/internal/adapters/persistence"
	"github.com/okian/duckhunt/internal/adapters/repository"
	"github.com/okian/duckhunt/internal/config"
	"github.com/okian/duckhunt/internal/domain/dedupe"
	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/hunt"
	"github.com/okian/duckhunt/internal/domain/model"
	"github.com/okian/duckhunt/internal/domain/names"
	"github.com/okian/duckhunt/internal/domain/spawn"
	"github.com/okian/duckhunt/internal/domain/types"
	"github.com/okian/duckhunt/pkg/logger"
	"github.com/okian/duckhunt/pkg/metrics"
)

// Store is the persistence backend the service restores from and saves to.
type Store interface {
	repository.Saver
	Load(ctx context.Context) (persistence.Snapshot, error)
}

// Service owns the engine components.
type Service struct {
	mu sync.RWMutex

	cfg   *config.Config
	store Store

	players   *repository.PlayerStore
	ducks     *repository.DuckStore
	resolver  *hunt.Resolver
	scheduler *spawn.Scheduler
	catalog   *duck.Catalog

	deduper dedupe.Deduper
	shards  *queue.Sharded
	pool    *worker.Pool

	auth   access.Authorizer
	sender announce.Sender
	roller dice.Roller
	now    func() time.Time

	started bool
	runCtx  context.Context
	cancel  context.CancelFunc

	logger logger.Logger
}

// New builds a stopped service from cfg.
func New(cfg *config.Config, store Store, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		store:  store,
		roller: dice.New(0),
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sender == nil {
		s.sender = announce.NewLogSender(s.logger.Named("announce"))
	}
	if s.auth == nil {
		a, err := access.NewStatic(cfg.Admins)
		if err != nil {
			return nil, fmt.Errorf("%w: admins: %w", config.ErrInvalidConfig, err)
		}
		s.auth = a
	}

	catalog, err := Catalog(cfg)
	if err != nil {
		return nil, err
	}
	levels, err := Levels(cfg)
	if err != nil {
		return nil, err
	}
	settings, err := SpawnSettings(cfg)
	if err != nil {
		return nil, err
	}
	s.catalog = catalog

	s.players = repository.NewPlayerStore(store,
		repository.WithDefaults(Defaults(cfg)),
		repository.WithLogger(s.logger.Named("players")),
		repository.WithClock(s.now))
	s.ducks = repository.NewDuckStore()
	s.resolver = hunt.NewResolver(s.ducks, s.players, catalog, levels, Rules(cfg),
		hunt.WithRoller(s.roller),
		hunt.WithClock(s.now),
		hunt.WithLogger(s.logger.Named("hunt")))
	s.scheduler = spawn.New(s.ducks, catalog, settings,
		spawn.WithRoller(s.roller),
		spawn.WithClock(s.now),
		spawn.WithNotifier(s.sender),
		spawn.WithLogger(s.logger.Named("spawn")))

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))
	s.shards = queue.NewSharded(cfg.WorkerCount,
		queue.WithCapacity(cfg.QueueSize),
		queue.WithBufferSize(cfg.QueueSize))
	s.pool = worker.NewPool(s.shards, s, worker.WithLogger(s.logger))
	return s, nil
}

// Start restores the saved state, starts the workers and joins every saved
// or configured channel. A corrupt snapshot is returned wrapped. A stopped
// service cannot be started again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.cancel != nil {
		return ErrStopped
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	s.players.Restore(snap)

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.pool.Start(s.runCtx)

	channels := append(s.players.Channels(), s.cfg.Channels...)
	for _, ch := range channels {
		if !names.IsChannel(ch) {
			s.logger.Warn(ctx, "skipping non-channel", logger.String("channel", ch))
			continue
		}
		if _, err := s.players.Join(ctx, ch); err != nil {
			s.scheduler.Stop()
			_ = s.pool.Shutdown(ctx)
			s.cancel()
			return fmt.Errorf("join %s: %w", ch, err)
		}
		s.scheduler.Join(s.runCtx, ch)
	}

	s.started = true
	s.logger.Info(ctx, "duck hunt service started",
		logger.Int("channels", len(s.scheduler.Channels())),
		logger.Int("players", s.players.Count()),
		logger.Int("workers", s.shards.Shards()))
	return nil
}

// Stop drains the queues, stops the spawn loops and writes a final snapshot.
// Commands already queued still run; new submits get ErrNotStarted.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping duck hunt service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.scheduler.Stop()
	cancel()
	if err := s.players.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("final flush: %w", err))
	}

	s.logger.Info(ctx, "duck hunt service stopped")
	return errors.Join(errs...)
}

// Submit queues cmd and waits for its reply. Commands without an id get a
// fresh one; a repeated id is rejected with ErrDuplicate.
func (s *Service) Submit(ctx context.Context, cmd model.Command) (model.Reply, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.Reply{}, ErrNotStarted
	}

	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.ReceivedAt.IsZero() {
		cmd.ReceivedAt = s.now()
	}
	if err := cmd.Validate(); err != nil {
		return model.Reply{}, err
	}

	if s.deduper.SeenAndRecord(ctx, cmd.ID) {
		metrics.RecordCommandDuplicate()
		return model.Reply{}, fmt.Errorf("%w: %s", ErrDuplicate, cmd.ID)
	}
	env := model.NewEnvelope(cmd)
	if err := s.shards.Enqueue(ctx, env); err != nil {
		s.deduper.Unrecord(ctx, cmd.ID)
		return model.Reply{}, err
	}

	select {
	case resp := <-env.Reply:
		return resp.Reply, resp.Err
	case <-ctx.Done():
		return model.Reply{}, ctx.Err()
	}
}

// Leaderboard returns the top n players of channel.
func (s *Service) Leaderboard(_ context.Context, channel string, n int) ([]types.Entry, error) {
	if lim := s.cfg.MaxLeaderboardLimit; lim > 0 && n > lim {
		n = lim
	}
	entries, err := s.players.TopN(channel, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = entryView(e)
	}
	return out, nil
}

// Rank returns one player's leaderboard row.
func (s *Service) Rank(_ context.Context, channel, nick string) (types.Entry, error) {
	e, err := s.players.Rank(channel, nick)
	if err != nil {
		return types.Entry{}, err
	}
	return entryView(e), nil
}

func entryView(e repository.Entry) types.Entry {
	return types.Entry{
		Rank:            e.Rank,
		Nick:            e.Nick,
		XP:              e.XP,
		Level:           e.Level,
		DucksShot:       e.DucksShot,
		DucksBefriended: e.DucksBefriended,
	}
}

// Player returns one player's state.
func (s *Service) Player(_ context.Context, channel, nick string) (types.Player, error) {
	p, err := s.players.Get(channel, nick)
	if err != nil {
		return types.Player{}, err
	}
	return types.FromPlayer(&p, s.now()), nil
}

// Ducks lists the live ducks of channel in spawn order.
func (s *Service) Ducks(_ context.Context, channel string) []types.Duck {
	return types.FromDucks(s.ducks.Live(channel, s.now()))
}

// Halted reports whether persistence has given up until the next flush.
func (s *Service) Halted() bool { return s.players.Halted() }

// CreditCoins adds amount to a player's balance and returns the new balance.
func (s *Service) CreditCoins(ctx context.Context, channel, nick string, amount int64) (int64, error) {
	return s.players.CreditCoins(ctx, channel, nick, amount)
}

// DebitCoins removes amount from a player's balance. The balance never goes negative.
func (s *Service) DebitCoins(ctx context.Context, channel, nick string, amount int64) (int64, error) {
	return s.players.DebitCoins(ctx, channel, nick, amount)
}

// AddItem gives a player n of item and returns how many they hold.
func (s *Service) AddItem(ctx context.Context, channel, nick, item string, n int) (int, error) {
	return s.players.AddItem(ctx, channel, nick, item, n)
}

// RemoveItem takes n of item from a player and returns how many remain.
func (s *Service) RemoveItem(ctx context.Context, channel, nick, item string, n int) (int, error) {
	return s.players.RemoveItem(ctx, channel, nick, item, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	return types.Stats{
		Started:     s.started,
		Halted:      s.players.Halted(),
		Channels:    s.scheduler.Channels(),
		Players:     s.players.Count(),
		LiveDucks:   s.ducks.Total(),
		QueueLength: s.shards.Len(ctx),
		Workers:     s.shards.Shards(),
		DedupeSize:  s.deduper.Size(),
	}
}
