package spawn

import (
	"time"

	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/pkg/logger"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRoller replaces the random source.
func WithRoller(r dice.Roller) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.roller = r
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier sets where spawn and fly-away announcements go.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) { s.notify = n }
}

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}
