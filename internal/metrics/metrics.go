// Package metrics exposes the Prometheus collectors used by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crowdshield"

// Outcome labels for integration calls.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// IntegrationCalls counts every vendor dispatch, labelled with the
	// strategy that served it (live or fallback).
	IntegrationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "integration",
			Name:      "calls_total",
			Help:      "Integration calls by mode and outcome",
		},
		[]string{"integration", "mode", "outcome"},
	)

	IntegrationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "integration",
			Name:      "call_duration_seconds",
			Help:      "Integration call duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"integration"},
	)

	TTSEngineTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tts",
			Name:      "engine_total",
			Help:      "Speech synthesis results by engine",
		},
		[]string{"engine", "outcome"},
	)

	GraphLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "graph_loads_total",
			Help:      "Street graph loads by source (memory, cache, download, grid)",
		},
		[]string{"source"},
	)

	GraphEdges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "graph_edges",
			Help:      "Edges in the loaded street graph",
		},
	)

	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "created_total",
			Help:      "Incident reports by type",
		},
		[]string{"type"},
	)
)

// ObserveIntegration records one dispatch outcome.
func ObserveIntegration(integration, mode, outcome string) {
	IntegrationCalls.WithLabelValues(integration, mode, outcome).Inc()
}
