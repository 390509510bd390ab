package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis, memory).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mexc_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mexc_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheErrors tracks backend operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mexc_cache_errors_total",
			Help: "Total number of cache backend operation errors",
		},
		[]string{"operation"}, // "get", "set", "clear"
	)

	// CacheFallbacks tracks calls served while Redis was unreachable.
	CacheFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mexc_cache_fallbacks_total",
			Help: "Total number of cache calls served by the memory fallback",
		},
	)
)
