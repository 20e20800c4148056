package api

import (
	"net/http"

	"github.com/okian/duckhunt/pkg/logger"
)

const defaultMaxLimit = 100

type options struct {
	maxLimit int
	feed     http.Handler
	logger   logger.Logger
}

// Option configures a Server.
type Option func(*options)

// WithMaxLimit caps the leaderboard limit parameter.
func WithMaxLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithFeed mounts h at GET /v1/feed.
func WithFeed(h http.Handler) Option {
	return func(o *options) { o.feed = h }
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
