package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// TieredStore fronts a Redis backend with a memory fallback behind the
// same Store interface. Redis availability is probed per call; writes go
// to Redis when reachable and always to memory, so reads keep working the
// moment Redis dies and recover automatically when it returns.
type TieredStore struct {
	redis  *RedisStore
	memory *MemoryStore
	logger zerolog.Logger
}

// NewTieredStore combines a Redis store and a memory store. The redis
// store may be nil, in which case the tiered store runs memory-only.
func NewTieredStore(redis *RedisStore, memory *MemoryStore, logger zerolog.Logger) *TieredStore {
	if memory == nil {
		panic("memory store cannot be nil")
	}
	return &TieredStore{
		redis:  redis,
		memory: memory,
		logger: logger,
	}
}

// Get prefers Redis, falling back to memory when Redis is unreachable,
// errors, or misses. Backend errors are logged, never returned; the only
// error a caller sees is ErrCacheMiss.
func (s *TieredStore) Get(ctx context.Context, key Key) (*Entry, error) {
	if s.redis != nil && s.redis.Available(ctx) {
		entry, err := s.redis.Get(ctx, key)
		if err == nil {
			CacheHits.WithLabelValues("redis").Inc()
			return entry, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key.String()).Msg("Redis get failed, trying memory")
		}
	} else if s.redis != nil {
		CacheFallbacks.Inc()
	}

	entry, err := s.memory.Get(ctx, key)
	if err != nil {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	CacheHits.WithLabelValues("memory").Inc()
	return entry, nil
}

// Set writes through to Redis when reachable and always to memory.
func (s *TieredStore) Set(ctx context.Context, key Key, entry *Entry, ttl time.Duration) error {
	if s.redis != nil {
		if s.redis.Available(ctx) {
			if err := s.redis.Set(ctx, key, entry, ttl); err != nil {
				s.logger.Warn().Err(err).Str("key", key.String()).Msg("Redis set failed")
			}
		} else {
			CacheFallbacks.Inc()
		}
	}

	return s.memory.Set(ctx, key, entry, ttl)
}

// Clear wipes matching entries from both backends so behavior is
// predictable regardless of which backend served recent reads. The count
// sums both layers; an entry present in both is counted twice, matching
// how each backend reports its own deletions. A Redis failure still
// clears memory and is reported to the caller.
func (s *TieredStore) Clear(ctx context.Context, pattern string) (int, error) {
	cleared := 0
	var redisErr error
	if s.redis != nil && s.redis.Available(ctx) {
		var n int
		n, redisErr = s.redis.Clear(ctx, pattern)
		cleared += n
		if redisErr != nil {
			s.logger.Warn().Err(redisErr).Msg("Redis clear failed")
		}
	}

	n, err := s.memory.Clear(ctx, pattern)
	cleared += n
	if err != nil {
		return cleared, err
	}
	return cleared, redisErr
}

// Available reports whether the Redis backend is reachable. The memory
// fallback keeps the store usable either way; this signal feeds /metrics.
func (s *TieredStore) Available(ctx context.Context) bool {
	return s.redis != nil && s.redis.Available(ctx)
}

// MemorySize returns the entry count of the memory layer.
func (s *TieredStore) MemorySize() int {
	return s.memory.Len()
}
