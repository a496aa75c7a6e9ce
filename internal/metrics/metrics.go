// Package metrics holds the Prometheus collectors for DeckForge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "deckforge"

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

	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_total",
			Help:      "Finished deck generations by outcome",
		},
		[]string{"provider", "outcome"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End-to-end generation duration in seconds",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Completion call duration in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	DeckSlides = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deck_slides",
			Help:      "Slides per produced deck, title slide included",
			Buckets:   prometheus.LinearBuckets(1, 2, 11),
		},
	)
)

// RecordGeneration observes a finished pipeline run.
func RecordGeneration(provider, outcome string, seconds float64) {
	GenerationTotal.WithLabelValues(provider, outcome).Inc()
	GenerationDuration.WithLabelValues(provider).Observe(seconds)
}

func RecordLLMRequest(provider, model string, seconds float64) {
	LLMRequestDuration.WithLabelValues(provider, model).Observe(seconds)
}
