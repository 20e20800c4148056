// Package huntload drives a running duck hunt server over HTTP: it submits a
// generated mix of player and admin commands concurrently and then checks
// that the channel leaderboards agree with the per-player views.
package huntload

import (
	"errors"
	"time"

	"github.com/okian/duckhunt/pkg/logger"
)

// ErrInvalidConfig is returned by Run when the Config cannot drive a test.
var ErrInvalidConfig = errors.New("invalid load config")

// Config holds configuration for a load run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Commands int           // Number of commands to generate
	Players  int           // Distinct nicks per channel
	Channels []string      // Channels to play in; they must be joined
	Admin    string        // Nick used for launch and rearm
	TopN     int           // Leaderboard rows fetched per channel
	Workers  int           // Concurrent submitters
	Timeout  time.Duration // HTTP request timeout
	Replays  int           // Every Replays-th command reuses an earlier ID; 0 disables
	Seed     uint64        // 0 picks a random seed
	Verbose  bool          // Log every failed request
	Logger   logger.Logger // nil discards output
}

func (c *Config) validate() error {
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalidConfig, errors.New("base url is empty"))
	case c.Commands < 1:
		return errors.Join(ErrInvalidConfig, errors.New("commands must be positive"))
	case c.Players < 1:
		return errors.Join(ErrInvalidConfig, errors.New("players must be positive"))
	case len(c.Channels) == 0:
		return errors.Join(ErrInvalidConfig, errors.New("no channels"))
	case c.Admin == "":
		return errors.Join(ErrInvalidConfig, errors.New("admin nick is empty"))
	case c.Workers < 1:
		return errors.Join(ErrInvalidConfig, errors.New("workers must be positive"))
	case c.TopN < 1:
		return errors.Join(ErrInvalidConfig, errors.New("top must be positive"))
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Successful  int
	Duplicate   int
	Rejected    int // 4xx other than duplicate
	Failed      int // transport errors and 5xx
	Outcomes    map[string]int
	Leaderboard int
	Players     int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
