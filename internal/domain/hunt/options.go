package hunt

import (
	"time"

	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/pkg/logger"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithRoller replaces the random source.
func WithRoller(r dice.Roller) Option {
	return func(res *Resolver) {
		if r != nil {
			res.roller = r
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(res *Resolver) {
		if now != nil {
			res.now = now
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(res *Resolver) {
		if l != nil {
			res.logger = l
		}
	}
}
