package cache

import (
	"encoding/json"
	"time"
)

// Entry is the cached envelope around an upstream response payload.
type Entry struct {
	// Value is the raw response body.
	Value json.RawMessage `json:"value"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates an entry expiring ttl from now.
func NewEntry(value []byte, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Value:    value,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
