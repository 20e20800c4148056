package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/duckhunt/pkg/metrics"
)

// HealthProvider reports whether the engine can still accept mutations.
type HealthProvider interface {
	Halted() bool
}

// HealthHandler handles health check and metrics requests.
type HealthHandler struct {
	deps    HealthProvider
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthProvider) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth handles GET /healthz requests. A halted persistence layer
// reports 503 so that orchestrators stop routing commands here.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	if h.deps.Halted() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "halted"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// HandleMetrics serves the Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
