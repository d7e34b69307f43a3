// Package metrics defines the Prometheus collectors exported by storefront.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks list reads served from the cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_hits_total",
			Help: "Total number of list cache hits",
		},
		[]string{"key"},
	)

	// CacheMisses tracks list reads that went to the store
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_misses_total",
			Help: "Total number of list cache misses",
		},
		[]string{"key"},
	)

	// CacheErrors tracks failed cache operations
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"op"}, // "get", "generation", "set", "invalidate", "decode", "attempts"
	)

	// CacheInvalidations tracks successful post-commit invalidations
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_invalidations_total",
			Help: "Total number of list cache invalidations",
		},
		[]string{"key"},
	)

	// LoginFailures tracks rejected credential checks
	LoginFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_login_failures_total",
			Help: "Total number of failed login attempts",
		},
	)

	// LoginBlocked tracks logins refused by the attempt limiter
	LoginBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_login_blocked_total",
			Help: "Total number of logins refused by the rate limiter",
		},
	)

	// HTTPRequests tracks served requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration tracks request latency per route
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// OrdersPlaced tracks committed orders
	OrdersPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders placed",
		},
	)

	// OrdersCancelled tracks committed cancellations
	OrdersCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		},
	)
)
