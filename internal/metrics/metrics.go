package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, route, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqverify_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	// RequestDuration tracks HTTP latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reqverify_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// RequestsInFlight is the number of requests being served.
	RequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reqverify_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})

	// ProviderCalls counts provider analyses by outcome (ok, fallback).
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqverify_provider_calls_total",
		Help: "Provider analyses by provider and outcome.",
	}, []string{"provider", "outcome"})

	// Fallbacks counts degradations to the mock provider by failure kind.
	Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqverify_provider_fallbacks_total",
		Help: "Degradations to the mock provider by provider and reason.",
	}, []string{"provider", "reason"})

	// NormalizationFailures counts model outputs that were not JSON objects.
	NormalizationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqverify_normalization_failures_total",
		Help: "Model responses that fell back to the degraded result.",
	}, []string{"provider"})

	// ProviderDuration tracks backend latency per provider.
	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reqverify_provider_duration_seconds",
		Help:    "Time spent waiting on the model backend.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider"})

	// PromptChars tracks the distribution of prompt sizes.
	PromptChars = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reqverify_prompt_chars",
		Help:    "Number of characters in analysis prompts.",
		Buckets: []float64{1000, 5000, 20000, 50000, 100000, 200000, 400000},
	})
)
