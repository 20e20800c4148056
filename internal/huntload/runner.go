package huntload

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/pkg/logger"
)

// healthTries bounds the wait for the service to come up.
const healthTries = 10

// Run executes the complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := cfg.Logger
	log.Info(ctx, "starting duck hunt load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("commands", cfg.Commands),
		logger.Int("players", cfg.Players),
		logger.Any("channels", cfg.Channels),
		logger.Int("workers", cfg.Workers))

	c := newClient(cfg)
	if err := waitHealthy(ctx, c); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	actions := Generate(cfg, dice.New(cfg.Seed))
	stats.Generated = len(actions)

	if err := submitActions(ctx, cfg, c, actions, stats); err != nil {
		return stats, err
	}

	for _, ch := range cfg.Channels {
		if err := verifyChannel(ctx, cfg, c, ch, stats); err != nil {
			return stats, fmt.Errorf("result verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// waitHealthy polls /healthz with exponential backoff.
func waitHealthy(ctx context.Context, c *client) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return struct{}{}, fmt.Errorf("health status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(healthTries))
	return err
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * 100
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Any("outcomes", stats.Outcomes),
		logger.Int("leaderboardEntries", stats.Leaderboard),
		logger.Int("playersChecked", stats.Players),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("commandsPerSecond", perSecond))
}
