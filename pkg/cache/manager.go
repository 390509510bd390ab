package cache

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a cache miss, typically an upstream
// API call returning the raw response body.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Manager applies the TTL policy and drives the read-through path used by
// the request handlers.
type Manager struct {
	store  Store
	policy Policy
	logger zerolog.Logger
	group  *singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithSingleFlight deduplicates concurrent misses per key: only one
// compute runs, the rest share its result. Off by default, where
// concurrent misses each compute independently. That is acceptable for
// short TTLs over idempotent reads.
func WithSingleFlight() Option {
	return func(m *Manager) {
		m.group = &singleflight.Group{}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a cache manager over a store.
func NewManager(store Store, policy Policy, opts ...Option) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	m := &Manager{
		store:  store,
		policy: policy,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FetchOrCompute returns the cached value for (class, params) or invokes
// compute on a miss, caching the result with the class TTL before
// returning it. A cached value is returned unchanged with no upstream
// revalidation. A compute failure propagates to the caller and nothing is
// cached.
func (m *Manager) FetchOrCompute(ctx context.Context, class string, params map[string]string, compute ComputeFunc) ([]byte, error) {
	key := Key{Class: class, Params: params}

	entry, err := m.store.Get(ctx, key)
	if err == nil {
		m.logger.Debug().Str("key", key.Canonical()).Msg("Cache hit")
		return entry.Value, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		m.logger.Warn().Err(err).Str("key", key.Canonical()).Msg("Cache get failed, computing")
	}

	if m.group != nil {
		value, err, _ := m.group.Do(key.String(), func() (interface{}, error) {
			return m.computeAndStore(ctx, key, class, compute)
		})
		if err != nil {
			return nil, err
		}
		return value.([]byte), nil
	}

	return m.computeAndStore(ctx, key, class, compute)
}

func (m *Manager) computeAndStore(ctx context.Context, key Key, class string, compute ComputeFunc) ([]byte, error) {
	value, err := compute(ctx)
	if err != nil {
		// No negative caching: the next call re-invokes compute.
		return nil, err
	}

	ttl := m.policy.TTL(class)
	if err := m.store.Set(ctx, key, NewEntry(value, ttl), ttl); err != nil {
		m.logger.Warn().Err(err).Str("key", key.Canonical()).Msg("Cache set failed")
	} else {
		m.logger.Debug().Str("key", key.Canonical()).Dur("ttl", ttl).Msg("Cached response")
	}

	return value, nil
}

// Clear removes cached entries matching the glob pattern from all
// backends and returns the number removed. An empty pattern or "*" clears
// everything.
func (m *Manager) Clear(ctx context.Context, pattern string) (int, error) {
	return m.store.Clear(ctx, pattern)
}

// Stats describes the cache state reported by /metrics.
type Stats struct {
	BackendAvailable bool `json:"backend_available"`
	MemoryCacheSize  int  `json:"memory_cache_size"`
}

// Stats returns the current cache state. MemoryCacheSize is zero for
// stores without a memory layer.
func (m *Manager) Stats(ctx context.Context) Stats {
	stats := Stats{
		BackendAvailable: m.store.Available(ctx),
	}
	if tiered, ok := m.store.(*TieredStore); ok {
		stats.MemoryCacheSize = tiered.MemorySize()
	} else if mem, ok := m.store.(*MemoryStore); ok {
		stats.MemoryCacheSize = mem.Len()
	}
	return stats
}
