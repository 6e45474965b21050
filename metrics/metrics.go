// Package metrics exposes pipeline counters and latency histograms via
// Prometheus. Collectors register once on first use.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	routeDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trafficqa",
		Name:      "route_decisions_total",
		Help:      "Route decisions by resolved route.",
	}, []string{"route"})

	generations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trafficqa",
		Name:      "query_generations_total",
		Help:      "Query generations by source and validation outcome.",
	}, []string{"source", "validated"})

	llmAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trafficqa",
		Name:      "llm_generation_attempts",
		Help:      "LLM calls spent per generation.",
		Buckets:   []float64{1, 2, 3},
	})

	retrievalLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trafficqa",
		Name:      "retrieval_latency_seconds",
		Help:      "End-to-end document retrieval latency.",
		Buckets:   prometheus.DefBuckets,
	})

	cacheHitRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trafficqa",
		Name:      "cache_hit_rate",
		Help:      "Hit rate per result cache.",
	}, []string{"cache"})
)

func ensureRegistered() {
	registerOnce.Do(func() {
		prometheus.MustRegister(routeDecisions, generations, llmAttempts, retrievalLatency, cacheHitRate)
	})
}

// IncRouteDecision counts a routing outcome.
func IncRouteDecision(route string) {
	ensureRegistered()
	routeDecisions.WithLabelValues(route).Inc()
}

// IncGeneration counts a query generation outcome.
func IncGeneration(source string, validated bool) {
	ensureRegistered()
	v := "false"
	if validated {
		v = "true"
	}
	generations.WithLabelValues(source, v).Inc()
}

// ObserveLLMAttempts records LLM calls spent on one generation.
func ObserveLLMAttempts(n int) {
	ensureRegistered()
	llmAttempts.Observe(float64(n))
}

// ObserveRetrievalLatency records one retrieval's wall time in seconds.
func ObserveRetrievalLatency(seconds float64) {
	ensureRegistered()
	retrievalLatency.Observe(seconds)
}

// SetCacheHitRate publishes a cache's current hit rate.
func SetCacheHitRate(cacheName string, rate float64) {
	ensureRegistered()
	cacheHitRate.WithLabelValues(cacheName).Set(rate)
}
