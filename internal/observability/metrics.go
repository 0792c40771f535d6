// Package observability exports pipeline stage events as Prometheus
// metrics and OpenTelemetry spans.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JaimeStill/attest/pkg/graph"
)

// Metrics holds the service collectors. It implements graph.Observer for
// stage events; the remaining methods record request-level outcomes. A nil
// *Metrics records nothing.
type Metrics struct {
	StageDuration      *prometheus.HistogramVec
	StageFailures      *prometheus.CounterVec
	Validations        *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	CacheLookups       *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attest_stage_duration_seconds",
			Help:    "Duration of pipeline stage invocations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"graph", "stage", "outcome"}),

		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_stage_failures_total",
			Help: "Pipeline stage invocations that returned an error",
		}, []string{"graph", "stage"}),

		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_validations_total",
			Help: "Completed validations by classification, or error",
		}, []string{"classification"}),

		ValidationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_validation_duration_seconds",
			Help:    "End-to-end validation duration",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_cache_lookups_total",
			Help: "Verdict cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) StageStarted(ctx context.Context, _ graph.Event) context.Context {
	return ctx
}

func (m *Metrics) StageFinished(_ context.Context, e graph.Event) {
	if m == nil {
		return
	}

	outcome := "ok"
	if e.Err != nil {
		outcome = "error"
		m.StageFailures.WithLabelValues(e.Graph, e.Stage).Inc()
	}
	m.StageDuration.WithLabelValues(e.Graph, e.Stage, outcome).Observe(e.Duration.Seconds())
}

// ObserveValidation records one finished validation. classification is the
// verdict classification, or "error" when the run failed.
func (m *Metrics) ObserveValidation(classification string, d time.Duration) {
	if m != nil {
		m.Validations.WithLabelValues(classification).Inc()
		m.ValidationDuration.Observe(d.Seconds())
	}
}

// ObserveCache records a cache lookup result: hit, miss or error.
func (m *Metrics) ObserveCache(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}
