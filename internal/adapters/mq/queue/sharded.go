package queue

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/duckhunt/internal/domain/names"
	"github.com/okian/duckhunt/pkg/metrics"
)

// Sharded routes envelopes to one of several queues by channel.
type Sharded struct {
	shards []*InMemoryQueue
}

// NewSharded creates n shards, each built with opts. n < 1 means one shard.
func NewSharded(n int, opts ...Option) *Sharded {
	if n < 1 {
		n = 1
	}
	s := &Sharded{shards: make([]*InMemoryQueue, n)}
	total := 0
	for i := range s.shards {
		s.shards[i] = NewInMemoryQueue(opts...)
		total += s.shards[i].Capacity()
	}
	metrics.UpdateQueueCapacity(total)
	metrics.UpdateQueueSize(0)
	return s
}

// Route returns the shard index owning channel.
func (s *Sharded) Route(channel string) int {
	return int(xxhash.Sum64String(names.Channel(channel)) % uint64(len(s.shards)))
}

// Shard returns queue i.
func (s *Sharded) Shard(i int) *InMemoryQueue { return s.shards[i] }

// Shards is the number of queues.
func (s *Sharded) Shards() int { return len(s.shards) }

// Enqueue puts e on the shard owning its channel.
func (s *Sharded) Enqueue(ctx context.Context, e Envelope) error {
	q := s.shards[s.Route(e.Command.Channel)]
	if q.IsClosed() {
		return ErrStopped
	}
	if !q.Enqueue(ctx, e) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: shard %d holds %d", ErrQueueFull, s.Route(e.Command.Channel), q.Len(ctx))
	}
	metrics.UpdateQueueSize(s.Len(ctx))
	return nil
}

// Len is the total queued across shards.
func (s *Sharded) Len(ctx context.Context) int {
	n := 0
	for _, q := range s.shards {
		n += q.Len(ctx)
	}
	return n
}

// Close closes every shard.
func (s *Sharded) Close() error {
	for _, q := range s.shards {
		_ = q.Close()
	}
	return nil
}
