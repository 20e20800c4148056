package repository

import (
	"sync"
	"time"

	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/names"
	"github.com/okian/duckhunt/pkg/metrics"
)

// pond is one channel's ducks in spawn order.
type pond struct {
	seq   uint64
	ducks []duck.Duck
}

func (p *pond) index(id uint64) int {
	for i := range p.ducks {
		if p.ducks[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *pond) remove(i int) {
	p.ducks = append(p.ducks[:i], p.ducks[i+1:]...)
}

func (p *pond) live(now time.Time) int {
	n := 0
	for _, d := range p.ducks {
		if d.Live(now) {
			n++
		}
	}
	return n
}

// DuckStore is the live duck registry. One mutex guards every pond, so
// Hit and Resolve are the compare-and-set on a duck's resolved state.
type DuckStore struct {
	mu    sync.Mutex
	ponds map[string]*pond
	total int
}

// NewDuckStore returns an empty registry.
func NewDuckStore() *DuckStore {
	return &DuckStore{ponds: make(map[string]*pond)}
}

func (s *DuckStore) pond(channel string) *pond {
	p, ok := s.ponds[channel]
	if !ok {
		p = &pond{}
		s.ponds[channel] = p
	}
	return p
}

// Spawn inserts d unless the channel already holds max live ducks. The
// store assigns ID and Channel.
func (s *DuckStore) Spawn(channel string, d duck.Duck, max int) (uint64, bool) {
	ids := s.SpawnMany(channel, []duck.Duck{d}, max)
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// SpawnMany inserts as many of ds as fit under max live ducks and drops the
// rest. Capacity is measured at the first duck's spawn time.
func (s *DuckStore) SpawnMany(channel string, ds []duck.Duck, max int) []uint64 {
	if len(ds) == 0 {
		return nil
	}
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pond(channel)
	room := max - p.live(ds[0].SpawnedAt)
	if room <= 0 {
		return nil
	}
	if len(ds) > room {
		ds = ds[:room]
	}
	ids := make([]uint64, 0, len(ds))
	for _, d := range ds {
		p.seq++
		d.ID = p.seq
		d.Channel = channel
		d.Resolved = false
		p.ducks = append(p.ducks, d)
		ids = append(ids, d.ID)
	}
	s.total += len(ids)
	metrics.UpdateLiveDucks(s.total)
	return ids
}

// Get returns a copy of a live duck.
func (s *DuckStore) Get(channel string, id uint64, now time.Time) (duck.Duck, bool) {
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ponds[channel]
	if !ok {
		return duck.Duck{}, false
	}
	i := p.index(id)
	if i < 0 || !p.ducks[i].Live(now) {
		return duck.Duck{}, false
	}
	return p.ducks[i], true
}

// Live lists the channel's live ducks ordered by id.
func (s *DuckStore) Live(channel string, now time.Time) []duck.Duck {
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ponds[channel]
	if !ok {
		return nil
	}
	out := make([]duck.Duck, 0, len(p.ducks))
	for _, d := range p.ducks {
		if d.Live(now) {
			out = append(out, d)
		}
	}
	return out
}

// Oldest returns the live duck with the lowest id.
func (s *DuckStore) Oldest(channel string, now time.Time) (duck.Duck, bool) {
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ponds[channel]
	if !ok {
		return duck.Duck{}, false
	}
	for _, d := range p.ducks {
		if d.Live(now) {
			return d, true
		}
	}
	return duck.Duck{}, false
}

// Hit takes one hp off a live duck. When hp reaches zero the duck is marked
// resolved and removed in the same step. The returned copy reflects the duck
// after the hit; false means the duck was already gone.
func (s *DuckStore) Hit(channel string, id uint64, now time.Time) (duck.Duck, bool) {
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ponds[channel]
	if !ok {
		return duck.Duck{}, false
	}
	i := p.index(id)
	if i < 0 || !p.ducks[i].Live(now) {
		return duck.Duck{}, false
	}
	p.ducks[i].HP--
	d := p.ducks[i]
	if d.HP <= 0 {
		d.HP = 0
		d.Resolved = true
		p.remove(i)
		s.total--
		metrics.UpdateLiveDucks(s.total)
	}
	return d, true
}

// Resolve removes a live duck regardless of its hp. Only the first caller
// for a given id gets true.
func (s *DuckStore) Resolve(channel string, id uint64, now time.Time) (duck.Duck, bool) {
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ponds[channel]
	if !ok {
		return duck.Duck{}, false
	}
	i := p.index(id)
	if i < 0 || !p.ducks[i].Live(now) {
		return duck.Duck{}, false
	}
	d := p.ducks[i]
	d.Resolved = true
	p.remove(i)
	s.total--
	metrics.UpdateLiveDucks(s.total)
	return d, true
}

// Expire removes and returns the channel's ducks whose timeout has passed.
func (s *DuckStore) Expire(channel string, now time.Time) []duck.Duck {
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ponds[channel]
	if !ok {
		return nil
	}
	var gone []duck.Duck
	kept := p.ducks[:0]
	for _, d := range p.ducks {
		if d.Expired(now) {
			gone = append(gone, d)
			continue
		}
		kept = append(kept, d)
	}
	p.ducks = kept
	if len(gone) > 0 {
		s.total -= len(gone)
		metrics.UpdateLiveDucks(s.total)
	}
	return gone
}

// Clear drops every duck in the channel and forgets its sequence.
func (s *DuckStore) Clear(channel string) int {
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ponds[channel]
	if !ok {
		return 0
	}
	n := len(p.ducks)
	delete(s.ponds, channel)
	s.total -= n
	metrics.UpdateLiveDucks(s.total)
	return n
}

// Count returns the channel's live duck count.
func (s *DuckStore) Count(channel string, now time.Time) int {
	channel = names.Channel(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ponds[channel]
	if !ok {
		return 0
	}
	return p.live(now)
}

// Total counts ducks held across channels, including expired ducks not yet swept.
func (s *DuckStore) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
