package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ops_console_http_request_duration_milliseconds",
		Help:    "Time spent serving console HTTP requests.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"route", "method", "code"})

	// CacheLookups counts tag cache reads by outcome (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ops_console_cache_lookups_total",
		Help: "Tag cache lookups by tag and outcome.",
	}, []string{"tag", "outcome"})

	// CacheInvalidations counts dropped tags, including dependents.
	CacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ops_console_cache_invalidations_total",
		Help: "Tag cache invalidations by tag.",
	}, []string{"tag"})

	// Mutations counts executor writes by kind, action and result.
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ops_console_mutations_total",
		Help: "Entity mutations by kind, action and result.",
	}, []string{"kind", "action", "result"})

	// PushDeliveries counts change notification deliveries by result.
	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ops_console_push_deliveries_total",
		Help: "Web push change notifications by result.",
	}, []string{"result"})
)
