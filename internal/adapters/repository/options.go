package repository

import (
	"time"

	"github.com/okian/duckhunt/internal/domain/player"
	"github.com/okian/duckhunt/pkg/logger"
)

// Option applies a configuration option to the PlayerStore.
type Option func(*PlayerStore)

// WithDefaults sets the stats given to lazily created players.
func WithDefaults(d player.Defaults) Option {
	return func(s *PlayerStore) {
		s.defaults = d
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *PlayerStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *PlayerStore) {
		if now != nil {
			s.now = now
		}
	}
}
