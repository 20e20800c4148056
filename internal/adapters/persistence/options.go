package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/duckhunt/pkg/logger"
)

// Option configures Retrying.
type Option func(*Retrying)

// WithMaxAttempts bounds the number of save attempts.
func WithMaxAttempts(n int) Option {
	return func(r *Retrying) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithDelays sets the first retry delay and its cap.
func WithDelays(base, limit time.Duration) Option {
	return func(r *Retrying) {
		if base > 0 {
			r.baseDelay = base
		}
		if limit >= r.baseDelay {
			r.maxDelay = limit
		}
	}
}

// WithLogger logs each retry.
func WithLogger(l logger.Logger) Option {
	return func(r *Retrying) {
		r.logger = l
	}
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open builds the named backend wrapped in Retrying.
func Open(ctx context.Context, backend, path string, compress bool, opts ...Option) (*Retrying, error) {
	var inner Store
	switch backend {
	case BackendFile, "":
		fs, err := NewFileStore(path, compress)
		if err != nil {
			return nil, err
		}
		inner = fs
	case BackendSQLite:
		ss, err := NewSQLiteStore(ctx, path)
		if err != nil {
			return nil, err
		}
		inner = ss
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	return NewRetrying(inner, opts...), nil
}
