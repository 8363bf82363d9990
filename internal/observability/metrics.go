// Package observability defines the Prometheus metrics exposed by the
// SDK and the evaluation server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (e.g. vordr_...).
const namespace = "vordr"

// lowLatencyBuckets gives sub-5ms resolution for in-process evaluation
// and HTTP serving; the default buckets start too coarse for either.
var lowLatencyBuckets = []float64{.0001, .0005, .001, .002, .005, .010, .025, .050, .100, .500}

var (
	// EvaluationsTotal counts spec evaluations by kind (gate, config,
	// layer) and the reason attached to the result.
	// Metric: vordr_engine_evaluations_total
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "evaluations_total",
		Help:      "Total spec evaluations by kind and evaluation reason",
	}, []string{"kind", "reason"})

	// StoreEvictionsTotal counts user records dropped by the bounded
	// cache. A high rate means more distinct identities than the cache
	// cap can hold.
	// Metric: vordr_store_evictions_total
	StoreEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "evictions_total",
		Help:      "Total cached user records evicted by the max-users bound",
	})

	// RulesetFetchesTotal counts spec source fetches by outcome
	// (updated, not_modified, error).
	// Metric: vordr_transport_ruleset_fetches_total
	RulesetFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "ruleset_fetches_total",
		Help:      "Total ruleset fetches by outcome",
	}, []string{"outcome"})

	// EvalAPIReqDuration measures evaluation server request latency.
	// Metric: vordr_evalapi_http_handling_seconds
	EvalAPIReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "evalapi",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle evaluation HTTP requests",
		Buckets:   lowLatencyBuckets,
	}, []string{"method", "path"})

	// EvalAPIReqTotal counts evaluation server requests.
	// Metric: vordr_evalapi_http_requests_total
	EvalAPIReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "evalapi",
		Name:      "http_requests_total",
		Help:      "Total evaluation HTTP requests",
	}, []string{"method", "path", "code"})
)
