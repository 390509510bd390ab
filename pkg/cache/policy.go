package cache

import "time"

// Endpoint classes. Each class maps to one TTL in the Policy.
const (
	// ClassContractInfo covers contract specifications (tick size,
	// leverage bounds). Changes rarely.
	ClassContractInfo = "contract_info"

	// ClassPositions covers per-user open positions.
	ClassPositions = "positions"

	// ClassMarketData covers tickers, depth, and funding rates.
	ClassMarketData = "market_data"
)

// Policy maps endpoint classes to cache TTLs. It is built once at startup
// and never mutated afterwards.
type Policy struct {
	ttls       map[string]time.Duration
	defaultTTL time.Duration
}

// DefaultPolicy returns the standard TTL policy:
// contract info 60s, positions 30s, market data 10s, everything else 5m.
func DefaultPolicy() Policy {
	return NewPolicy(5*time.Minute, map[string]time.Duration{
		ClassContractInfo: 60 * time.Second,
		ClassPositions:    30 * time.Second,
		ClassMarketData:   10 * time.Second,
	})
}

// NewPolicy builds a policy from explicit per-class TTLs and a default for
// unlisted classes. The ttls map is copied.
func NewPolicy(defaultTTL time.Duration, ttls map[string]time.Duration) Policy {
	owned := make(map[string]time.Duration, len(ttls))
	for class, ttl := range ttls {
		owned[class] = ttl
	}
	return Policy{ttls: owned, defaultTTL: defaultTTL}
}

// TTL returns the TTL for an endpoint class.
func (p Policy) TTL(class string) time.Duration {
	if ttl, ok := p.ttls[class]; ok {
		return ttl
	}
	return p.defaultTTL
}
