// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes recorded on GenerationsTotal.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

var (
	// GenerationsTotal counts pipeline runs by engine backend and outcome.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magictext",
		Name:      "generations_total",
		Help:      "Number of generation requests by backend and outcome.",
	}, []string{"backend", "outcome"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "magictext",
		Name:      "generation_duration_seconds",
		Help:      "Time spent in the engine per generation.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"backend"})

	PromptTokens = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "magictext",
		Name:      "prompt_tokens",
		Help:      "Token count of composed prompts.",
		Buckets:   prometheus.LinearBuckets(10, 20, 10),
	})

	CompletionTokens = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "magictext",
		Name:      "completion_tokens",
		Help:      "Tokens generated beyond the prompt.",
		Buckets:   prometheus.LinearBuckets(25, 50, 10),
	})

	// FeedbackTotal counts feedback submissions by rating.
	FeedbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magictext",
		Name:      "feedback_total",
		Help:      "Feedback submissions by rating.",
	}, []string{"rating"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magictext",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "code"})

	// EngineLoaded is 1 once the engine has been constructed.
	EngineLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "magictext",
		Name:      "engine_loaded",
		Help:      "Whether the generation engine has been constructed.",
	})
)
