// Package observability defines the Prometheus metrics exposed by the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UpstreamRequests counts individual HTTP requests to billing APIs, including
// retried attempts.
var UpstreamRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "costwatch_upstream_requests_total",
		Help: "Total number of HTTP requests issued to upstream billing APIs",
	},
	[]string{"provider"},
)

// UpstreamRetries counts retry attempts triggered by transient upstream failures.
var UpstreamRetries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "costwatch_upstream_retries_total",
		Help: "Total number of retries after transient upstream failures",
	},
	[]string{"provider"},
)

// CacheHits counts cost queries answered from the result cache.
var CacheHits = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "costwatch_cache_hits_total",
		Help: "Total number of cost queries served from the result cache",
	},
)

// CacheMisses counts cost queries that had to run the full pipeline.
var CacheMisses = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "costwatch_cache_misses_total",
		Help: "Total number of cost queries not found in the result cache",
	},
)

// QueriesComputed counts completed cost computations per provider.
var QueriesComputed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "costwatch_queries_computed_total",
		Help: "Total number of cost queries computed through the full pipeline",
	},
	[]string{"provider"},
)

// QueryFailures counts aborted cost computations by provider and error kind.
var QueryFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "costwatch_query_failures_total",
		Help: "Total number of cost queries aborted by a fatal upstream error",
	},
	[]string{"provider", "kind"},
)
