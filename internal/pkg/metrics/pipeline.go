// Package metrics provides Prometheus metrics recording for internal packages.
// This package exists to avoid import cycles between the tool and service packages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pipelineRuns tracks extraction pipeline runs by terminal outcome
	pipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medextract_pipeline_runs_total",
			Help: "Total number of extraction pipeline runs",
		},
		[]string{"outcome"},
	)

	// pipelineDuration tracks end-to-end pipeline run duration in seconds
	pipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medextract_pipeline_duration_seconds",
			Help:    "Extraction pipeline run duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// stepDuration tracks per-step duration in seconds
	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medextract_pipeline_step_duration_seconds",
			Help:    "Pipeline step duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"step", "status"},
	)

	// lookupRequests tracks code lookup outcomes per vocabulary and strategy
	lookupRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medextract_code_lookups_total",
			Help: "Total number of reference-code lookups",
		},
		[]string{"vocabulary", "outcome"},
	)

	// lookupCache tracks lookup cache hits and misses
	lookupCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medextract_lookup_cache_total",
			Help: "Lookup cache hits and misses",
		},
		[]string{"vocabulary", "result"},
	)

	// llmRequests tracks text-generation calls by provider and outcome
	llmRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medextract_llm_requests_total",
			Help: "Total number of text-generation requests",
		},
		[]string{"provider", "outcome"},
	)
)

// RecordPipelineRun records a completed pipeline run
func RecordPipelineRun(outcome string, duration time.Duration) {
	pipelineRuns.WithLabelValues(outcome).Inc()
	pipelineDuration.Observe(duration.Seconds())
}

// RecordStep records a finished pipeline step
func RecordStep(step, status string, duration time.Duration) {
	stepDuration.WithLabelValues(step, status).Observe(duration.Seconds())
}

// RecordLookup records a reference-code lookup outcome
// (found, not_found, timeout, error)
func RecordLookup(vocabulary, outcome string) {
	lookupRequests.WithLabelValues(vocabulary, outcome).Inc()
}

// RecordCache records a lookup cache hit or miss
func RecordCache(vocabulary, result string) {
	lookupCache.WithLabelValues(vocabulary, result).Inc()
}

// RecordLLMRequest records a text-generation call outcome
func RecordLLMRequest(provider, outcome string) {
	llmRequests.WithLabelValues(provider, outcome).Inc()
}
