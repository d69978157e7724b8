package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the portal client
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// Backend API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	// Session lifecycle metrics
	SessionSignIns   prometheus.Counter
	SessionTeardowns *prometheus.CounterVec

	// Notification metrics
	Notifications *prometheus.CounterVec

	// Query cache metrics
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	QueryFetches    *prometheus.CounterVec
	QueryDiscarded  *prometheus.CounterVec
	MutationResults *prometheus.CounterVec

	// CSV export metrics
	Exports     *prometheus.CounterVec
	ExportBytes *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		// Command metrics
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wakanet_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		// API metrics
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_api_requests_total",
				Help: "Total number of backend API requests by outcome",
			},
			[]string{"method", "outcome"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wakanet_api_latency_seconds",
				Help:    "Backend API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),

		// Session metrics
		SessionSignIns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wakanet_session_sign_ins_total",
				Help: "Total number of successful sign-ins",
			},
		),
		SessionTeardowns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_session_teardowns_total",
				Help: "Total number of ended sessions by reason",
			},
			[]string{"reason"},
		),

		// Notification metrics
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_notifications_total",
				Help: "Total number of notifications shown by severity",
			},
			[]string{"severity"},
		),

		// Query metrics
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_query_cache_hits_total",
				Help: "Total number of query cache hits",
			},
			[]string{"key"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_query_cache_misses_total",
				Help: "Total number of query cache misses",
			},
			[]string{"key"},
		),
		QueryFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_query_fetches_total",
				Help: "Total number of query fetches",
			},
			[]string{"key", "success"},
		),
		QueryDiscarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_query_discarded_total",
				Help: "Total number of query responses dropped because a newer fetch or unmount superseded them",
			},
			[]string{"key"},
		),
		MutationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_mutations_total",
				Help: "Total number of mutations",
			},
			[]string{"success"},
		),

		// Export metrics
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_exports_total",
				Help: "Total number of CSV exports",
			},
			[]string{"success"},
		),
		ExportBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_export_bytes_total",
				Help: "Total bytes written by CSV exports",
			},
			[]string{},
		),

		// Error metrics (by structured error code)
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wakanet_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// The helpers below are nil-safe so components can run without metrics.

// ObserveCommand records a finished command
func (m *Metrics) ObserveCommand(command string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(success)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveRequest records a finished API request
func (m *Metrics) ObserveRequest(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, outcome).Inc()
	m.APILatency.WithLabelValues(method).Observe(d.Seconds())
}

// SignedIn counts a successful sign-in
func (m *Metrics) SignedIn() {
	if m == nil {
		return
	}
	m.SessionSignIns.Inc()
}

// SessionEnded counts a session teardown
func (m *Metrics) SessionEnded(reason string) {
	if m == nil {
		return
	}
	m.SessionTeardowns.WithLabelValues(reason).Inc()
}

// Notified counts a shown notification
func (m *Metrics) Notified(severity string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(severity).Inc()
}

// CacheLookup counts a query cache lookup
func (m *Metrics) CacheLookup(key string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(key).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(key).Inc()
}

// Fetched counts a query fetch
func (m *Metrics) Fetched(key string, success bool) {
	if m == nil {
		return
	}
	m.QueryFetches.WithLabelValues(key, strconv.FormatBool(success)).Inc()
}

// Discarded counts a dropped stale response
func (m *Metrics) Discarded(key string) {
	if m == nil {
		return
	}
	m.QueryDiscarded.WithLabelValues(key).Inc()
}

// Mutated counts a finished mutation
func (m *Metrics) Mutated(success bool) {
	if m == nil {
		return
	}
	m.MutationResults.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// Exported counts a finished export
func (m *Metrics) Exported(success bool, bytes int64) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(strconv.FormatBool(success)).Inc()
	if success && bytes > 0 {
		m.ExportBytes.WithLabelValues().Add(float64(bytes))
	}
}

// Error counts a coded error
func (m *Metrics) Error(code, component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(code, component).Inc()
}
