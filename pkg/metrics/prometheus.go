// Package metrics provides Prometheus metrics for the duckhunt engine.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector of the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Game
	ducksSpawned  *prometheus.CounterVec
	ducksResolved *prometheus.CounterVec
	liveDucks     prometheus.Gauge
	actions       *prometheus.CounterVec
	actionLatency *prometheus.HistogramVec
	players       prometheus.Gauge
	channels      prometheus.Gauge
	spawnSkipped  *prometheus.CounterVec

	// Persistence
	saveLatency  prometheus.Histogram
	saveRetries  prometheus.Counter
	saveFailures prometheus.Counter
	saveHalted   prometheus.Gauge

	// Dispatch
	commandsDuplicate  prometheus.Counter
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Setup replaces the global manager with one built from opts over a fresh
// registry. Call it once at startup, before anything records or serves
// GetRegistry.
func Setup(opts ...Option) *Manager {
	reg := prometheus.NewRegistry()
	customRegistry = reg
	globalManager = NewManager(append(opts, WithPrometheusRegistry(reg))...)
	return globalManager
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "duckhunt",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often gauge updaters should poll.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.ducksSpawned = auto.NewCounterVec(m.counterOpts("ducks_spawned_total",
		"Ducks spawned by kind"), []string{"kind"})
	m.ducksResolved = auto.NewCounterVec(m.counterOpts("ducks_resolved_total",
		"Ducks removed by kind and reason (shot, befriended, scared, expired, cleared)"), []string{"kind", "reason"})
	m.liveDucks = auto.NewGauge(m.gaugeOpts("live_ducks", "Live ducks across all channels"))
	m.actions = auto.NewCounterVec(m.counterOpts("actions_total",
		"Player actions by action and outcome"), []string{"action", "outcome"})
	m.actionLatency = auto.NewHistogramVec(m.histogramOpts("action_latency_milliseconds",
		"End to end action latency including persistence"), []string{"action"})
	m.players = auto.NewGauge(m.gaugeOpts("players", "Known players across all channels"))
	m.channels = auto.NewGauge(m.gaugeOpts("channels", "Channels with an active spawn timer"))
	m.spawnSkipped = auto.NewCounterVec(m.counterOpts("spawn_ticks_skipped_total",
		"Spawn ticks that produced no duck by reason (sleep, full)"), []string{"reason"})

	m.saveLatency = auto.NewHistogram(m.histogramOpts("persistence_save_latency_milliseconds",
		"Latency of a snapshot save including retries"))
	m.saveRetries = auto.NewCounter(m.counterOpts("persistence_save_retries_total",
		"Snapshot save attempts that were retried"))
	m.saveFailures = auto.NewCounter(m.counterOpts("persistence_save_failures_total",
		"Snapshot saves that exhausted every attempt"))
	m.saveHalted = auto.NewGauge(m.gaugeOpts("persistence_halted",
		"1 while mutations are halted after a failed save"))

	m.commandsDuplicate = auto.NewCounter(m.counterOpts("commands_duplicate_total",
		"Commands dropped because their id was already seen"))
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Commands waiting across all shards"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Total command queue capacity"))
	m.queueEnqueue = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Commands enqueued"))
	m.queueDequeue = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Commands dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total",
		"Commands rejected by a full or stopped queue"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Running command workers"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time a worker spends handling one command"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total",
		"Commands whose handler returned an error"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

func on() bool { return globalManager.enabled }

// RecordDuckSpawned counts a spawned duck.
func RecordDuckSpawned(kind string) {
	if on() {
		globalManager.ducksSpawned.WithLabelValues(kind).Inc()
	}
}

// RecordDuckResolved counts a removed duck.
func RecordDuckResolved(kind, reason string) {
	if on() {
		globalManager.ducksResolved.WithLabelValues(kind, reason).Inc()
	}
}

// UpdateLiveDucks sets the live duck gauge.
func UpdateLiveDucks(n int) {
	if on() {
		globalManager.liveDucks.Set(float64(n))
	}
}

// RecordAction counts one resolved action.
func RecordAction(action, outcome string) {
	if on() {
		globalManager.actions.WithLabelValues(action, outcome).Inc()
	}
}

// RecordActionLatency observes action latency in milliseconds.
func RecordActionLatency(action string, ms float64) {
	if on() {
		globalManager.actionLatency.WithLabelValues(action).Observe(ms)
	}
}

// UpdatePlayers sets the known player gauge.
func UpdatePlayers(n int) {
	if on() {
		globalManager.players.Set(float64(n))
	}
}

// UpdateChannels sets the active channel gauge.
func UpdateChannels(n int) {
	if on() {
		globalManager.channels.Set(float64(n))
	}
}

// RecordSpawnSkipped counts a tick that spawned nothing.
func RecordSpawnSkipped(reason string) {
	if on() {
		globalManager.spawnSkipped.WithLabelValues(reason).Inc()
	}
}

// RecordSaveLatency observes snapshot save latency in milliseconds.
func RecordSaveLatency(ms float64) {
	if on() {
		globalManager.saveLatency.Observe(ms)
	}
}

// RecordSaveRetry counts a retried save attempt.
func RecordSaveRetry() {
	if on() {
		globalManager.saveRetries.Inc()
	}
}

// RecordSaveFailure counts an exhausted save.
func RecordSaveFailure() {
	if on() {
		globalManager.saveFailures.Inc()
	}
}

// UpdateSaveHalted flips the halted gauge.
func UpdateSaveHalted(halted bool) {
	if !on() {
		return
	}
	v := 0.0
	if halted {
		v = 1
	}
	globalManager.saveHalted.Set(v)
}

// RecordCommandDuplicate counts a deduplicated command.
func RecordCommandDuplicate() {
	if on() {
		globalManager.commandsDuplicate.Inc()
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if on() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if on() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if on() {
		globalManager.queueEnqueue.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if on() {
		globalManager.queueDequeue.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if on() {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	if on() {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(ms float64) {
	if on() {
		globalManager.workerLatency.Observe(ms)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if on() {
		globalManager.workerErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if on() {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if on() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if on() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Default returns the global manager.
func Default() *Manager {
	return globalManager
}

// Sum gathers the registry and returns the summed value of every series of the
// named family, e.g. "duckhunt_engine_actions_total".
func Sum(family string) (float64, error) {
	mfs, err := customRegistry.Gather()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != family {
			continue
		}
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				total += metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return total, nil
}
