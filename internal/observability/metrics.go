package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsDispatched counts dispatched actions by type and scope.
	ActionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echocircle_actions_dispatched_total",
		Help: "Total number of dispatched store actions by type and scope",
	}, []string{"type", "scope"})

	// SerializabilityViolations counts domain actions carrying non-serializable payloads.
	SerializabilityViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echocircle_serializability_violations_total",
		Help: "Total number of domain actions with non-serializable payloads",
	}, []string{"type"})

	// SnapshotSaveLatency records snapshot write latency by backend.
	SnapshotSaveLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "echocircle_snapshot_save_latency_seconds",
		Help:    "Snapshot write latency in seconds by backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	// SnapshotSaveFailures counts best-effort snapshot writes that failed.
	SnapshotSaveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echocircle_snapshot_save_failures_total",
		Help: "Total number of failed snapshot writes by backend",
	}, []string{"backend"})

	// HydrationOutcome counts gate completions by result (restored, cold, discarded, timeout, error).
	HydrationOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echocircle_hydration_outcome_total",
		Help: "Startup hydration completions by outcome",
	}, []string{"outcome"})

	// HydrationDuration records the time the startup gate spent loading.
	HydrationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "echocircle_hydration_duration_seconds",
		Help:    "Duration of the startup snapshot load in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// StateStreamSubscribers is the gauge of connected devtools state streams.
	StateStreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "echocircle_state_stream_subscribers",
		Help: "Number of active devtools state stream connections",
	})

	// StateStreamDrops counts state updates dropped due to slow stream consumers.
	StateStreamDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echocircle_state_stream_drops_total",
		Help: "Total number of state updates dropped due to backpressure",
	})

	// BackendRequestLatency records REST round-trip latency by operation.
	BackendRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "echocircle_backend_request_latency_seconds",
		Help:    "Backend REST request latency in seconds by operation and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// SnapshotMetrics wraps snapshot write instrumentation for one backend.
type SnapshotMetrics struct {
	backend string
}

// NewSnapshotMetrics returns a SnapshotMetrics instance for the backend name.
func NewSnapshotMetrics(backend string) *SnapshotMetrics {
	return &SnapshotMetrics{backend: backend}
}

// TrackSave returns a function that records write latency when called (e.g. defer).
func (m *SnapshotMetrics) TrackSave() func() {
	start := time.Now()
	return func() {
		SnapshotSaveLatency.WithLabelValues(m.backend).Observe(time.Since(start).Seconds())
	}
}

// RecordFailure increments the failed-write counter.
func (m *SnapshotMetrics) RecordFailure() {
	SnapshotSaveFailures.WithLabelValues(m.backend).Inc()
}
