// Package metrics registers the Prometheus collectors for report runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockbrief_pipeline_runs_total",
		Help: "Pipeline runs by outcome (completed, aborted, interrupted).",
	}, []string{"outcome"})

	Sections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockbrief_sections_total",
		Help: "Section results by section id and failure kind.",
	}, []string{"section", "outcome"})

	SectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockbrief_section_duration_seconds",
		Help:    "Time spent producing and validating one section.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"section"})

	HealthChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockbrief_health_checks_total",
		Help: "Dependency probes by dependency and result.",
	}, []string{"dependency", "healthy"})

	Alerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockbrief_alerts_total",
		Help: "Alerts handed to the sink, by severity and delivery result.",
	}, []string{"severity", "delivered"})

	AlertsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockbrief_alerts_dropped_total",
		Help: "Alerts dropped because the background queue was full or closed.",
	})

	SectionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockbrief_section_cache_total",
		Help: "Section cache lookups by result (hit, miss).",
	}, []string{"result"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockbrief_llm_requests_total",
		Help: "LLM generate calls by provider and result.",
	}, []string{"provider", "result"})
)

// Bool renders a boolean label value.
func Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
