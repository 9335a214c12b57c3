// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess           = "success"
	OutcomeModelUnavailable  = "model_unavailable"
	OutcomeMalformedResponse = "malformed_response"
	OutcomePersistenceFailed = "persistence_failed"
	OutcomeBudgetExceeded    = "budget_exceeded"
	OutcomeError             = "error"
)

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	tokens             *prometheus.CounterVec
	renders            *prometheus.CounterVec
	renderedPages      prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "educonnect",
			Name:      "course_generations_total",
			Help:      "Course generation requests by outcome.",
		}, []string{"outcome"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "educonnect",
			Name:      "course_generation_duration_seconds",
			Help:      "Wall time of course generation including the model call.",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 90, 120, 180, 300},
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "educonnect",
			Name:      "ai_tokens_total",
			Help:      "Tokens consumed by model calls.",
		}, []string{"model", "direction"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "educonnect",
			Name:      "document_renders_total",
			Help:      "Topic document renders by format and outcome.",
		}, []string{"format", "outcome"}),
		renderedPages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "educonnect",
			Name:      "document_pages",
			Help:      "Pages per rendered topic document.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generations,
		m.generationDuration,
		m.tokens,
		m.renders,
		m.renderedPages,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveGeneration records one generation attempt.
func (m *Metrics) ObserveGeneration(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(elapsed.Seconds())
}

// ObserveTokens records model token usage.
func (m *Metrics) ObserveTokens(model string, input, output int) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(model, "input").Add(float64(input))
	m.tokens.WithLabelValues(model, "output").Add(float64(output))
}

// ObserveRender records a document render. pages is ignored on failure.
func (m *Metrics) ObserveRender(format, outcome string, pages int) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(format, outcome).Inc()
	if outcome == OutcomeSuccess && pages > 0 {
		m.renderedPages.Observe(float64(pages))
	}
}
