package recovery

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics records Runner activity as Prometheus metrics.
//
// Metrics (namespace "recovery"):
//
//  1. runs_total{outcome} (counter)
//     outcome: success, failed, error
//
//  2. recovery_decisions_total{outcome} (counter)
//     outcome: recovered, absent, dependencies_changed, from_scratch, error
//
//  3. steps_total{computation, mode} (counter)
//     mode: replayed, executed
//
//  4. step_latency_ms{computation} (histogram)
//     Duration of executed steps. Replayed steps are not observed.
//
//  5. computations_total{computation, status} (counter)
//     status: completed, failed
//
//  6. snapshot_writes_total{reason, status} (counter)
//     reason: failure, flush; status: success, error
//
// A high replayed/executed ratio after a restart is the signature of a
// working resume; executed-only counts after a restart usually mean the
// dependencies changed.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := recovery.NewPrometheusMetrics(registry)
//	runner, _ := recovery.New(deps, recovery.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	runs           *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	steps          *prometheus.CounterVec
	stepLatency    *prometheus.HistogramVec
	computations   *prometheus.CounterVec
	snapshotWrites *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers the metrics with registry
// (prometheus.DefaultRegisterer when nil).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recovery",
			Name:      "runs_total",
			Help:      "Runs finished, by outcome",
		}, []string{"outcome"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recovery",
			Name:      "recovery_decisions_total",
			Help:      "Snapshot applicability decisions taken at the start of a run",
		}, []string{"outcome"}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recovery",
			Name:      "steps_total",
			Help:      "Step boundaries crossed, by whether the result was replayed or executed",
		}, []string{"computation", "mode"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recovery",
			Name:      "step_latency_ms",
			Help:      "Duration of executed steps in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"computation"}),
		computations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recovery",
			Name:      "computations_total",
			Help:      "Computations finished, by status",
		}, []string{"computation", "status"}),
		snapshotWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recovery",
			Name:      "snapshot_writes_total",
			Help:      "Snapshot writes, by reason and status",
		}, []string{"reason", "status"}),
	}
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// RecordRun counts a finished run.
func (pm *PrometheusMetrics) RecordRun(outcome string) {
	if !pm.isEnabled() {
		return
	}
	pm.runs.WithLabelValues(outcome).Inc()
}

// RecordRecoveryDecision counts a recovery decision.
func (pm *PrometheusMetrics) RecordRecoveryDecision(outcome string) {
	if !pm.isEnabled() {
		return
	}
	pm.decisions.WithLabelValues(outcome).Inc()
}

// RecordStep counts a step and, for executed steps, observes its latency.
func (pm *PrometheusMetrics) RecordStep(computation, mode string, latency time.Duration) {
	if !pm.isEnabled() {
		return
	}
	pm.steps.WithLabelValues(computation, mode).Inc()
	if mode == "executed" {
		pm.stepLatency.WithLabelValues(computation).Observe(float64(latency.Milliseconds()))
	}
}

// RecordComputation counts a finished computation.
func (pm *PrometheusMetrics) RecordComputation(computation, status string) {
	if !pm.isEnabled() {
		return
	}
	pm.computations.WithLabelValues(computation, status).Inc()
}

// RecordSnapshotWrite counts a snapshot write attempt.
func (pm *PrometheusMetrics) RecordSnapshotWrite(reason, status string) {
	if !pm.isEnabled() {
		return
	}
	pm.snapshotWrites.WithLabelValues(reason, status).Inc()
}

// Disable stops recording until Enable is called.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable resumes recording.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

// Reset clears all recorded series.
func (pm *PrometheusMetrics) Reset() {
	pm.runs.Reset()
	pm.decisions.Reset()
	pm.steps.Reset()
	pm.stepLatency.Reset()
	pm.computations.Reset()
	pm.snapshotWrites.Reset()
}
