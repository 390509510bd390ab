package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared cache backend. Expiry relies on Redis native
// key TTLs; the entry envelope carries the expiry timestamp as well so a
// Redis instance with stale persistence cannot serve expired data.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{client: client}
}

// Get retrieves an entry by key.
func (s *RedisStore) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := s.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = s.client.Del(ctx, key.String()).Err()
		return nil, ErrCacheMiss
	}

	return &entry, nil
}

// Set stores an entry with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key Key, entry *Entry, ttl time.Duration) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if ttl <= 0 {
		// Already expired, don't cache.
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.client.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear removes proxy entries matching the pattern, leaving unrelated
// keys in a shared Redis instance untouched. Keys are collected with SCAN
// to avoid blocking the server the way KEYS would.
func (s *RedisStore) Clear(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		pattern = "*"
	}
	iter := s.client.Scan(ctx, 0, keyPrefix+":"+pattern, 100).Iterator()

	cleared := 0
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 500 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				CacheErrors.WithLabelValues("clear").Inc()
				return cleared, fmt.Errorf("redis del: %w", err)
			}
			cleared += len(keys)
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		return cleared, fmt.Errorf("redis scan: %w", err)
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			CacheErrors.WithLabelValues("clear").Inc()
			return cleared, fmt.Errorf("redis del: %w", err)
		}
		cleared += len(keys)
	}
	return cleared, nil
}

// Available pings Redis. The probe runs on every call so a recovered
// backend is picked up immediately.
func (s *RedisStore) Available(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}
