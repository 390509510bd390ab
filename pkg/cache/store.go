package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found or has expired.
	// A miss is normal control flow, not a failure.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the key-value contract shared by all cache backends.
type Store interface {
	// Get retrieves an entry. Returns ErrCacheMiss if the key is absent
	// or the entry has expired.
	Get(ctx context.Context, key Key) (*Entry, error)

	// Set stores an entry with the given TTL.
	Set(ctx context.Context, key Key, entry *Entry, ttl time.Duration) error

	// Clear removes proxy entries whose stored key matches the glob
	// pattern, scoped to the proxy's key prefix. An empty pattern or "*"
	// removes everything. Returns the number of entries removed.
	Clear(ctx context.Context, pattern string) (int, error)

	// Available reports whether the backend is reachable right now.
	// The result is probed fresh on every call, never cached.
	Available(ctx context.Context) bool
}
