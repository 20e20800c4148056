// Package worker drains the command shards. Each shard has exactly one
// worker, which is what keeps a channel's commands in arrival order.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/duckhunt/internal/adapters/mq/queue"
	"github.com/okian/duckhunt/internal/domain/model"
	"github.com/okian/duckhunt/pkg/logger"
	"github.com/okian/duckhunt/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Handler executes one command.
type Handler interface {
	Handle(ctx context.Context, cmd model.Command) (model.Reply, error)
}

// Queue defines how workers receive envelopes.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Envelope
}

// Worker processes envelopes from one queue.
type Worker interface {
	// Run handles envelopes until the queue closes or ctx is cancelled.
	Run(ctx context.Context)

	// Shutdown waits for Run to return.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   q,
		handler: h,
		name:    "worker",
		done:    make(chan struct{}),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for env := range w.queue.Dequeue(ctx) {
		w.process(ctx, env)
	}
}

// Shutdown waits for the worker to drain its queue.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, env queue.Envelope) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	reply, err := w.handler.Handle(ctx, env.Command)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Debug(ctx, "command failed",
			logger.String("id", env.Command.ID),
			logger.String("verb", string(env.Command.Verb)),
			logger.String("channel", env.Command.Channel),
			logger.Error(err))
	}
	if env.Reply == nil {
		return
	}
	select {
	case env.Reply <- model.Response{Reply: reply, Err: err}:
	default:
		w.logger.Warn(ctx, "reply dropped", logger.String("id", env.Command.ID))
	}
}

// Pool runs one worker per shard.
type Pool struct {
	shards  *queue.Sharded
	workers []*InMemoryWorker
	wg      sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a worker for every shard of q.
func NewPool(q *queue.Sharded, h Handler, opts ...Option) *Pool {
	base := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(base)
	}
	p := &Pool{
		shards:  q,
		workers: make([]*InMemoryWorker, q.Shards()),
		logger:  base.logger.Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q.Shard(i), h, wopts...)
	}
	metrics.UpdateWorkerCount(len(p.workers))
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Shutdown closes the shards and waits for the workers to drain them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.shards.Close(); err != nil {
		p.logger.Error(ctx, "error closing queues", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return err
		}
	}
	p.wg.Wait()
	metrics.UpdateWorkerCount(0)
	return nil
}
