// Package metrics counts model calls, repairs and file changes for a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics owns a private registry so several runs in one process (and
// tests) never collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	modelCalls    *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	repairs       *prometheus.CounterVec
	changes       *prometheus.CounterVec
	retries       prometheus.Counter
	incomplete    prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		modelCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gitagent_model_calls_total",
			Help: "Model calls by stage and result",
		}, []string{"stage", "result"}),
		modelDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gitagent_model_call_duration_seconds",
			Help:    "Model call latency",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"stage"}),
		repairs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gitagent_json_repairs_total",
			Help: "JSON repair attempts by result",
		}, []string{"result"}),
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gitagent_code_changes_total",
			Help: "Code changes by action and outcome",
		}, []string{"action", "outcome"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "gitagent_completion_retries_total",
			Help: "Completion retry loop iterations",
		}),
		incomplete: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gitagent_incomplete_functions",
			Help: "Incomplete functions found by the last validation pass",
		}),
	}
}

// Registry exposes the underlying gatherer.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ModelCall records one model call.
func (m *Metrics) ModelCall(stage string, ok bool, took time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(stage, result(ok)).Inc()
	m.modelDuration.WithLabelValues(stage).Observe(took.Seconds())
}

// Repair records one JSON repair attempt.
func (m *Metrics) Repair(ok bool) {
	if m == nil {
		return
	}
	m.repairs.WithLabelValues(result(ok)).Inc()
}

// Change records a code change outcome such as applied or skipped.
func (m *Metrics) Change(action, outcome string) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(action, outcome).Inc()
}

// Retry records one completion retry iteration.
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// Incomplete sets the number of incomplete functions last observed.
func (m *Metrics) Incomplete(n int) {
	if m == nil {
		return
	}
	m.incomplete.Set(float64(n))
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
