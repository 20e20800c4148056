package huntload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/duckhunt/internal/domain/types"
	"github.com/okian/duckhunt/pkg/logger"
)

// result classes for a submitted command.
const (
	resultSuccess   = "success"
	resultDuplicate = "duplicate"
	resultRejected  = "rejected"
	resultFailed    = "failed"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// client wraps http.Client with the service base URL.
type client struct {
	http *http.Client
	base string
}

func newClient(cfg *Config) *client {
	return &client{http: &http.Client{Timeout: cfg.Timeout}, base: cfg.BaseURL}
}

// getJSON decodes a 200 response into v.
func (c *client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// postAction submits one command and returns its result class.
func (c *client) postAction(ctx context.Context, action types.ActionRequest) (string, types.ActionResponse, error) {
	data, err := json.Marshal(action)
	if err != nil {
		return resultFailed, types.ActionResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/actions", bytes.NewReader(data))
	if err != nil {
		return resultFailed, types.ActionResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return resultFailed, types.ActionResponse{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resultFailed, types.ActionResponse{}, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var out types.ActionResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return resultFailed, out, fmt.Errorf("failed to parse response: %w", err)
		}
		return resultSuccess, out, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return resultFailed, types.ActionResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	default:
		var e apiError
		_ = json.Unmarshal(body, &e)
		if e.Code == resultDuplicate {
			return resultDuplicate, types.ActionResponse{}, nil
		}
		return resultRejected, types.ActionResponse{}, fmt.Errorf("HTTP %d %s: %s", resp.StatusCode, e.Code, e.Message)
	}
}

// submitActions posts actions with cfg.Workers concurrent requests.
func submitActions(ctx context.Context, cfg *Config, c *client, actions []types.ActionRequest, stats *Stats) error {
	log := cfg.Logger
	log.Info(ctx, "submitting commands",
		logger.Int("commands", len(actions)), logger.Int("workers", cfg.Workers))

	var (
		mu         sync.Mutex
		lastReport = time.Now()
	)
	stats.Outcomes = make(map[string]int)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, a := range actions {
		g.Go(func() error {
			class, resp, err := c.postAction(gctx, a)
			if err != nil && cfg.Verbose {
				log.Warn(gctx, "command not applied",
					logger.String("verb", a.Verb), logger.String("nick", a.Nick), logger.Error(err))
			}

			mu.Lock()
			defer mu.Unlock()
			stats.Submitted++
			switch class {
			case resultSuccess:
				stats.Successful++
				if resp.Outcome != "" {
					stats.Outcomes[resp.Outcome]++
				}
			case resultDuplicate:
				stats.Duplicate++
			case resultRejected:
				stats.Rejected++
			default:
				stats.Failed++
			}
			if time.Since(lastReport) >= time.Second {
				lastReport = time.Now()
				log.Info(gctx, "progress",
					logger.Int("submitted", stats.Submitted), logger.Int("total", len(actions)),
					logger.Int("failed", stats.Failed))
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}

	log.Info(ctx, "command submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed))
	return nil
}

// channelPath escapes a channel name for use as a path segment.
func channelPath(channel string) string {
	return url.PathEscape(channel)
}
