// Package monitoring exposes Prometheus metrics for validation runs.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	ErrorsTotal   *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	StageDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "validator_runs_total",
			Help: "The total number of validation runs by terminal status",
		}, []string{"status"}), // PASS, FAIL, FAILED
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "validator_errors_total",
			Help: "The total number of run errors by error kind",
		}, []string{"kind"}), // e.g. 'zeplin_auth', 'navigation', 'render_timeout'
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "validator_run_duration_seconds",
			Help:    "End-to-end duration of validation runs",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 180},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "validator_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}), // fetch_design, capture, diff, stylecheck
	}
}

func (m *Metrics) ObserveRun(status string, seconds float64) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) IncErrorsTotal(kind string) {
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveStage(stage string, seconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}
