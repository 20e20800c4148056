package service

import (
	"time"

	"github.com/okian/duckhunt/internal/adapters/access"
	"github.com/okian/duckhunt/internal/adapters/announce"
	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSender sets where announcements go.
func WithSender(snd announce.Sender) Option {
	return func(s *Service) {
		if snd != nil {
			s.sender = snd
		}
	}
}

// WithAuthorizer replaces the admin list from config.
func WithAuthorizer(a access.Authorizer) Option {
	return func(s *Service) {
		if a != nil {
			s.auth = a
		}
	}
}

// WithRoller replaces the random source of spawning and resolution.
func WithRoller(r dice.Roller) Option {
	return func(s *Service) {
		if r != nil {
			s.roller = r
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
