// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/duckhunt/internal/app"
	"github.com/okian/duckhunt/internal/adapters/mq/queue"
	"github.com/okian/duckhunt/internal/adapters/repository"
	"github.com/okian/duckhunt/internal/domain/model"
	"github.com/okian/duckhunt/internal/domain/player"
	"github.com/okian/duckhunt/internal/domain/spawn"
	"github.com/okian/duckhunt/internal/domain/types"
	"github.com/okian/duckhunt/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ActionDependencies
	LeaderboardDependencies
	RankDependencies
	ChannelDependencies
	EconomyDependencies
	StatsProvider
	HealthProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the game API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	actionsHandler     *ActionsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	channelHandler     *ChannelHandler
	economyHandler     *EconomyHandler

	feed http.Handler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := options{maxLimit: defaultMaxLimit, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		actionsHandler:     NewActionsHandler(deps, cfg.logger),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
		rankHandler:        NewRankHandler(deps),
		channelHandler:     NewChannelHandler(deps),
		economyHandler:     NewEconomyHandler(deps),
		feed:               cfg.feed,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /v1/actions", MetricsMiddleware(s.actionsHandler.HandlePostAction, "actions"))
	mux.HandleFunc("GET /v1/channels/{channel}/ducks", MetricsMiddleware(s.channelHandler.HandleGetDucks, "ducks"))
	mux.HandleFunc("GET /v1/channels/{channel}/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /v1/channels/{channel}/rank/{nick}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /v1/channels/{channel}/players/{nick}", MetricsMiddleware(s.channelHandler.HandleGetPlayer, "player"))
	mux.HandleFunc("POST /v1/channels/{channel}/players/{nick}/coins", MetricsMiddleware(s.economyHandler.HandleCoins, "coins"))
	mux.HandleFunc("POST /v1/channels/{channel}/players/{nick}/items", MetricsMiddleware(s.economyHandler.HandleItems, "items"))

	if s.feed != nil {
		mux.Handle("GET /v1/feed", s.feed)
	}
}

// channelParam reads {channel}. The leading "#" is optional in the path
// since it has to be escaped in URLs.
func channelParam(r *http.Request) string {
	ch := strings.TrimSpace(r.PathValue("channel"))
	if ch == "" || strings.HasPrefix(ch, "#") || strings.HasPrefix(ch, "&") {
		return ch
	}
	return "#" + ch
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status and code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalidCommand),
		errors.Is(err, repository.ErrInvalidLimit), errors.Is(err, player.ErrInvalidAmount):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, player.ErrInsufficientFunds), errors.Is(err, player.ErrInsufficientItems):
		return http.StatusConflict, "insufficient"
	case errors.Is(err, player.ErrBalanceOverflow):
		return http.StatusConflict, "overflow"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, spawn.ErrNotJoined):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, spawn.ErrChannelFull):
		return http.StatusConflict, "channel_full"
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, repository.ErrPersistenceHalted), errors.Is(err, queue.ErrStopped),
		errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}
