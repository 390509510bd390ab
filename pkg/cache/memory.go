package cache

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"
)

// purgeThreshold is the map size above which Set opportunistically sweeps
// expired entries.
const purgeThreshold = 1000

// MemoryStore is the in-process fallback backend. Expiry is tracked per
// entry and enforced lazily: expired entries are removed when read, and
// swept in bulk when the map grows past purgeThreshold.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves an entry, removing it if expired.
func (s *MemoryStore) Get(_ context.Context, key Key) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	if !ok {
		return nil, ErrCacheMiss
	}
	if entry.IsExpired() {
		delete(s.entries, key.String())
		return nil, ErrCacheMiss
	}
	return entry, nil
}

// Set stores an entry. The entry's Expires field governs expiry; the ttl
// argument is accepted for Store interface symmetry with RedisStore.
func (s *MemoryStore) Set(_ context.Context, key Key, entry *Entry, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key.String()] = entry

	if len(s.entries) > purgeThreshold {
		s.purgeExpiredLocked()
	}
	return nil
}

// Clear removes entries matching the pattern and returns how many went.
func (s *MemoryStore) Clear(_ context.Context, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pattern == "" || pattern == "*" {
		cleared := len(s.entries)
		s.entries = make(map[string]*Entry)
		return cleared, nil
	}

	match := keyPrefix + ":" + pattern
	cleared := 0
	for k := range s.entries {
		ok, err := path.Match(match, k)
		if err != nil {
			return cleared, fmt.Errorf("invalid clear pattern %q: %w", pattern, err)
		}
		if ok {
			delete(s.entries, k)
			cleared++
		}
	}
	return cleared, nil
}

// Available always reports true; the process-local map cannot be unreachable.
func (s *MemoryStore) Available(_ context.Context) bool {
	return true
}

// Len returns the number of stored entries, including not-yet-swept
// expired ones. Reported as memory_cache_size in /metrics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// purgeExpiredLocked sweeps expired entries. Caller holds s.mu.
func (s *MemoryStore) purgeExpiredLocked() {
	now := time.Now()
	for k, entry := range s.entries {
		if now.After(entry.Expires) {
			delete(s.entries, k)
		}
	}
}
