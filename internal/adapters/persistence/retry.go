package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/duckhunt/pkg/logger"
	"github.com/okian/duckhunt/pkg/metrics"
)

// Retrying retries a backend's Save with capped exponential backoff.
type Retrying struct {
	inner     Store
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
	logger    logger.Logger
}

// NewRetrying wraps inner. Defaults: 3 attempts, 500ms base, 5s cap.
func NewRetrying(inner Store, opts ...Option) *Retrying {
	r := &Retrying{
		inner:     inner,
		attempts:  3,
		baseDelay: 500 * time.Millisecond,
		maxDelay:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save tries inner.Save up to the configured attempts. When they are all
// used up the error wraps ErrSaveExhausted. Context cancellation is returned
// as is.
func (r *Retrying) Save(ctx context.Context, snap Snapshot) error {
	start := time.Now()
	defer func() {
		metrics.RecordSaveLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.baseDelay
	b.MaxInterval = r.maxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := r.inner.Save(ctx, snap); err != nil {
			if errors.Is(err, ErrEncode) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.RecordSaveRetry()
			if r.logger != nil {
				r.logger.Warn(ctx, "snapshot save failed, retrying",
					logger.Int("attempt", attempt), logger.Duration("next", next), logger.Error(err))
			}
		}),
	)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	metrics.RecordSaveFailure()
	return fmt.Errorf("%w after %d attempts: %w", ErrSaveExhausted, attempt, err)
}

func (r *Retrying) Load(ctx context.Context) (Snapshot, error) {
	return r.inner.Load(ctx)
}

func (r *Retrying) Close() error {
	return r.inner.Close()
}
