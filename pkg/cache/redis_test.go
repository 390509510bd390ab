package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client. Unit tests skip when no
// local Redis is reachable; tests/integration covers the same paths with
// testcontainers-go.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil client")
		}
	}()
	NewRedisStore(nil)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))
	ctx := context.Background()
	key := Key{Class: ClassContractInfo, Params: map[string]string{"symbol": "BTC_USDT"}}

	entry := NewEntry([]byte(`{"price":50000}`), 60*time.Second)
	if err := store.Set(ctx, key, entry, 60*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Value) != `{"price":50000}` {
		t.Errorf("Value mismatch: got %s", got.Value)
	}
}

func TestRedisStore_Get_Miss(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))

	_, err := store.Get(context.Background(), Key{Class: ClassMarketData, Params: map[string]string{"symbol": "NONE"}})
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisStore_Set_ExpiredNotStored(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))
	ctx := context.Background()
	key := Key{Class: ClassMarketData, Params: map[string]string{"symbol": "BTC_USDT"}}

	expired := &Entry{Value: []byte(`{}`), Expires: time.Now().Add(-time.Minute)}
	if err := store.Set(ctx, key, expired, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := store.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Expired entry should not be stored, got %v", err)
	}
}

func TestRedisStore_Clear_OnlyProxyKeys(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	key := Key{Class: ClassPositions, Params: map[string]string{"uid": "u1"}}
	if err := store.Set(ctx, key, NewEntry([]byte(`{}`), time.Minute), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Unrelated key in the same DB must survive Clear.
	if err := client.Set(ctx, "other:service:key", "keep", time.Minute).Err(); err != nil {
		t.Fatalf("Failed to plant unrelated key: %v", err)
	}

	cleared, err := store.Clear(ctx, "*")
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cleared != 1 {
		t.Errorf("Cleared count: got %d, want 1", cleared)
	}

	if _, err := store.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Get after Clear should miss, got %v", err)
	}
	if val, err := client.Get(ctx, "other:service:key").Result(); err != nil || val != "keep" {
		t.Errorf("Unrelated key should survive Clear: val=%q err=%v", val, err)
	}
}

func TestRedisStore_ClearPattern(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	keep := Key{Class: ClassContractInfo, Params: map[string]string{"symbol": "BTC_USDT"}}
	drop := Key{Class: ClassPositions, Params: map[string]string{"uid": "u1"}}
	for _, k := range []Key{keep, drop} {
		if err := store.Set(ctx, k, NewEntry([]byte(`{}`), time.Minute), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	fingerprint := strings.TrimPrefix(drop.String(), "mexc:")
	cleared, err := store.Clear(ctx, fingerprint)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cleared != 1 {
		t.Errorf("Cleared count: got %d, want 1", cleared)
	}

	if _, err := store.Get(ctx, drop); err != ErrCacheMiss {
		t.Errorf("Matched key should be gone, got %v", err)
	}
	if _, err := store.Get(ctx, keep); err != nil {
		t.Errorf("Unmatched key should survive, got %v", err)
	}
}

func TestRedisStore_Available(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))
	if !store.Available(context.Background()) {
		t.Error("Available should be true for a reachable Redis")
	}
}

func TestRedisStore_NativeTTL(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()
	key := Key{Class: ClassMarketData, Params: map[string]string{"symbol": "BTC_USDT"}}

	if err := store.Set(ctx, key, NewEntry([]byte(`{}`), time.Minute), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl, err := client.TTL(ctx, key.String()).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("Native TTL out of range: %v", ttl)
	}
}
