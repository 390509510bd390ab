// Package cache provides the tiered response cache for the trading proxy:
// a Redis backend with a transparent in-process memory fallback.
//
// The cache has three layers of abstraction:
//
//   - Store: the key-value contract (Get, Set, Clear, Available) with
//     per-entry TTL. RedisStore and MemoryStore implement it; TieredStore
//     combines both behind the same interface.
//   - Key: deterministic fingerprint derived from an endpoint class and
//     normalized request parameters.
//   - Manager: TTL policy per endpoint class plus the FetchOrCompute
//     read-through path used by the request handlers.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewTieredStore(cache.NewRedisStore(redisClient), cache.NewMemoryStore())
//	manager := cache.NewManager(store, cache.DefaultPolicy())
//
//	data, err := manager.FetchOrCompute(ctx, cache.ClassMarketData,
//		map[string]string{"symbol": "BTC_USDT"},
//		func(ctx context.Context) ([]byte, error) {
//			return upstreamClient.Ticker(ctx, "BTC_USDT")
//		})
//
// # Fallback Semantics
//
// Redis availability is probed at call time and never cached, so the store
// recovers automatically when Redis comes back. Writes go to Redis when it
// is reachable and always to memory, which is what makes reads keep working
// the moment Redis dies. Clear wipes matching entries from both backends
// regardless of which one is currently active, and reports how many went.
// Backend trouble is logged, never surfaced: the only
// caller-visible outcomes are hit, miss, and the compute function's own
// error.
//
// # Concurrency
//
// Concurrent misses for the same key each invoke the compute function
// independently; with short TTLs over idempotent reads that duplication is
// accepted. NewManager(..., WithSingleFlight()) switches the manager to
// per-key deduplication instead.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - mexc_cache_hits_total{layer="redis"|"memory"} - cache hits by layer
//   - mexc_cache_misses_total - cache misses
//   - mexc_cache_errors_total{operation} - backend operation errors
//   - mexc_cache_fallbacks_total - calls served while Redis was unreachable
package cache
