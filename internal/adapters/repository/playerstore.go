package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/duckhunt/internal/adapters/persistence"
	"github.com/okian/duckhunt/internal/domain/names"
	"github.com/okian/duckhunt/internal/domain/player"
	"github.com/okian/duckhunt/pkg/logger"
	"github.com/okian/duckhunt/pkg/metrics"
)

// PlayerStore is the player arena plus the joined channel list. Mutations run
// as transactions: the closure works on copies, the copies are committed
// under the lock, and the whole state is saved before Update returns.
type PlayerStore struct {
	mu       sync.RWMutex
	players  map[string]map[string]*player.Player
	channels map[string]struct{}

	saver    Saver
	saveMu   sync.Mutex
	halted   atomic.Bool
	defaults player.Defaults
	logger   logger.Logger
	now      func() time.Time
}

// NewPlayerStore returns an empty store saving through saver.
func NewPlayerStore(saver Saver, opts ...Option) *PlayerStore {
	s := &PlayerStore{
		players:  make(map[string]map[string]*player.Player),
		channels: make(map[string]struct{}),
		saver:    saver,
		logger:   logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// roster is the transaction view handed to Update closures.
type roster struct {
	channel string
	base    map[string]*player.Player
	work    map[string]*player.Player
	created map[string]bool
	defs    player.Defaults
}

func (r *roster) Channel() string { return r.channel }

func (r *roster) Get(nick string) (*player.Player, bool) {
	if p, ok := r.Find(nick); ok {
		return p, false
	}
	key := names.Nick(nick)
	p := player.New(r.channel, nick, r.defs)
	r.work[key] = p
	r.created[key] = true
	return p, true
}

func (r *roster) Find(nick string) (*player.Player, bool) {
	key := names.Nick(nick)
	if key == "" {
		return nil, false
	}
	if p, ok := r.work[key]; ok {
		return p, true
	}
	base, ok := r.base[key]
	if !ok {
		return nil, false
	}
	p := base.Clone()
	r.work[key] = p
	return p, true
}

func (r *roster) Range(fn func(*player.Player) bool) {
	keys := make([]string, 0, len(r.base)+len(r.created))
	for k := range r.base {
		keys = append(keys, k)
	}
	for k := range r.created {
		keys = append(keys, k)
	}
	for _, k := range keys {
		p, ok := r.Find(k)
		if !ok {
			continue
		}
		if !fn(p) {
			return
		}
	}
}

// Update runs fn against the channel's roster. When fn reports a change and
// no error, the touched players are committed and the state is saved; a
// failed save is returned and halts later mutations. On error nothing is
// committed.
func (s *PlayerStore) Update(ctx context.Context, channel string, fn func(player.Roster) (bool, error)) error {
	if s.halted.Load() {
		return ErrPersistenceHalted
	}
	channel = names.Channel(channel)

	s.mu.Lock()
	r := &roster{
		channel: channel,
		base:    s.players[channel],
		work:    make(map[string]*player.Player),
		created: make(map[string]bool),
		defs:    s.defaults,
	}
	changed, err := fn(r)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	ps := s.players[channel]
	if ps == nil {
		ps = make(map[string]*player.Player)
		s.players[channel] = ps
	}
	for k, p := range r.work {
		ps[k] = p
	}
	count := s.countLocked()
	s.mu.Unlock()

	metrics.UpdatePlayers(count)
	return s.persist(ctx)
}

// persist saves a copy of the full state. Saves are serialized so a later
// snapshot never lands before an earlier one.
func (s *PlayerStore) persist(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if s.halted.Load() {
		return ErrPersistenceHalted
	}
	if err := s.saver.Save(ctx, s.Snapshot()); err != nil {
		if errors.Is(err, persistence.ErrSaveExhausted) {
			s.halted.Store(true)
			metrics.UpdateSaveHalted(true)
			s.logger.Error(ctx, "persistence halted, mutations disabled until flush", logger.Error(err))
			return fmt.Errorf("%w: %w", ErrPersistenceHalted, err)
		}
		return err
	}
	return nil
}

// Flush saves the current state and, on success, lifts a halt.
func (s *PlayerStore) Flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.saver.Save(ctx, s.Snapshot()); err != nil {
		return err
	}
	if s.halted.Swap(false) {
		metrics.UpdateSaveHalted(false)
		s.logger.Info(ctx, "persistence resumed")
	}
	return nil
}

// Halted reports whether mutations are blocked by a failed save.
func (s *PlayerStore) Halted() bool { return s.halted.Load() }

// Restore replaces the in-memory state with snap without saving it.
func (s *PlayerStore) Restore(snap persistence.Snapshot) {
	players := make(map[string]map[string]*player.Player, len(snap.Players))
	for ch, ps := range snap.Players {
		key := names.Channel(ch)
		m := make(map[string]*player.Player, len(ps))
		for nick, p := range ps {
			c := p.Clone()
			c.Channel = key
			m[names.Nick(nick)] = c
		}
		players[key] = m
	}
	channels := make(map[string]struct{}, len(snap.Channels))
	for _, ch := range snap.Channels {
		channels[names.Channel(ch)] = struct{}{}
	}

	s.mu.Lock()
	s.players = players
	s.channels = channels
	count := s.countLocked()
	s.mu.Unlock()

	metrics.UpdatePlayers(count)
	metrics.UpdateChannels(len(channels))
}

// Snapshot returns a deep copy of the state.
func (s *PlayerStore) Snapshot() persistence.Snapshot {
	snap := persistence.EmptySnapshot()
	snap.SavedAt = s.now().UTC()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.channels {
		snap.Channels = append(snap.Channels, ch)
	}
	sort.Strings(snap.Channels)
	for ch, ps := range s.players {
		if len(ps) == 0 {
			continue
		}
		m := make(map[string]player.Player, len(ps))
		for nick, p := range ps {
			m[nick] = *p.Clone()
		}
		snap.Players[ch] = m
	}
	return snap
}

// Get returns a copy of one player.
func (s *PlayerStore) Get(channel, nick string) (player.Player, error) {
	channel, key := names.Channel(channel), names.Nick(nick)

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[channel][key]
	if !ok {
		return player.Player{}, fmt.Errorf("%w: %s in %s", ErrNotFound, nick, channel)
	}
	return *p.Clone(), nil
}

// List returns copies of the channel's players ordered by folded nick.
func (s *PlayerStore) List(channel string) []player.Player {
	channel = names.Channel(channel)

	s.mu.RLock()
	defer s.mu.RUnlock()

	ps := s.players[channel]
	keys := make([]string, 0, len(ps))
	for k := range ps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]player.Player, 0, len(keys))
	for _, k := range keys {
		out = append(out, *ps[k].Clone())
	}
	return out
}

// Count returns the number of players across channels.
func (s *PlayerStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked()
}

func (s *PlayerStore) countLocked() int {
	n := 0
	for _, ps := range s.players {
		n += len(ps)
	}
	return n
}

// Join records channel as configured. It reports whether it was new.
func (s *PlayerStore) Join(ctx context.Context, channel string) (bool, error) {
	return s.setChannel(ctx, names.Channel(channel), true)
}

// Part forgets channel. Its players stay until Reset.
func (s *PlayerStore) Part(ctx context.Context, channel string) (bool, error) {
	return s.setChannel(ctx, names.Channel(channel), false)
}

func (s *PlayerStore) setChannel(ctx context.Context, channel string, joined bool) (bool, error) {
	if s.halted.Load() {
		return false, ErrPersistenceHalted
	}
	s.mu.Lock()
	_, had := s.channels[channel]
	if had == joined {
		s.mu.Unlock()
		return false, nil
	}
	if joined {
		s.channels[channel] = struct{}{}
	} else {
		delete(s.channels, channel)
	}
	n := len(s.channels)
	s.mu.Unlock()

	metrics.UpdateChannels(n)
	return true, s.persist(ctx)
}

// Channels lists joined channels in order.
func (s *PlayerStore) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Reset deletes one player. It reports whether the player existed.
func (s *PlayerStore) Reset(ctx context.Context, channel, nick string) (bool, error) {
	if s.halted.Load() {
		return false, ErrPersistenceHalted
	}
	channel, key := names.Channel(channel), names.Nick(nick)

	s.mu.Lock()
	ps := s.players[channel]
	if _, ok := ps[key]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(ps, key)
	if len(ps) == 0 {
		delete(s.players, channel)
	}
	count := s.countLocked()
	s.mu.Unlock()

	metrics.UpdatePlayers(count)
	return true, s.persist(ctx)
}
