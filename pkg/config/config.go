// Package config loads service configuration from the environment.
//
// A .env file in the working directory is honored when present. Invalid
// values are configuration errors and fatal at startup; an unreachable
// Redis backend is not (the cache falls back to memory).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full service configuration.
type Config struct {
	// Server
	Host string
	Port int

	// Upstream exchange API
	UpstreamBaseURL string

	// Connection pool
	MaxConnections          int
	MaxKeepaliveConnections int
	KeepaliveExpiry         time.Duration
	ConnectTimeout          time.Duration
	RequestTimeout          time.Duration

	// Cache
	RedisAddr       string
	DefaultTTL      time.Duration
	ContractInfoTTL time.Duration
	PositionsTTL    time.Duration
	MarketDataTTL   time.Duration

	// Rate limiting (per client IP)
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// HTTP surface
	EnableCORS  bool
	CORSOrigins []string
	EnableGzip  bool
	GzipMinSize int

	// Logging
	LogLevel  string
	LogPretty bool
}

// Load reads configuration from the environment, applying defaults.
// It returns an error for values that cannot be parsed or are out of range.
func Load() (*Config, error) {
	// Optional .env file; absence is not an error.
	_ = godotenv.Load()

	r := &envReader{}
	cfg := &Config{
		Host:                    r.str("HOST", "127.0.0.1"),
		Port:                    r.intVal("PORT", 8000),
		UpstreamBaseURL:         r.str("MEXC_BASE_URL", "https://futures.mexc.com"),
		MaxConnections:          r.intVal("MAX_CONNECTIONS", 100),
		MaxKeepaliveConnections: r.intVal("MAX_KEEPALIVE_CONNECTIONS", 20),
		KeepaliveExpiry:         r.duration("KEEPALIVE_EXPIRY", 30*time.Second),
		ConnectTimeout:          r.duration("CONNECT_TIMEOUT", 5*time.Second),
		RequestTimeout:          r.duration("REQUEST_TIMEOUT", 10*time.Second),
		RedisAddr:               r.str("REDIS_ADDR", "localhost:6379"),
		DefaultTTL:              r.duration("CACHE_DEFAULT_TTL", 5*time.Minute),
		ContractInfoTTL:         r.duration("CACHE_CONTRACT_INFO_TTL", 60*time.Second),
		PositionsTTL:            r.duration("CACHE_USER_POSITIONS_TTL", 30*time.Second),
		MarketDataTTL:           r.duration("CACHE_MARKET_DATA_TTL", 10*time.Second),
		RateLimitRequests:       r.intVal("RATE_LIMIT_REQUESTS", 1000),
		RateLimitWindow:         r.duration("RATE_LIMIT_WINDOW", time.Minute),
		EnableCORS:              r.boolVal("ENABLE_CORS", true),
		CORSOrigins:             splitOrigins(r.str("CORS_ORIGINS", "*")),
		EnableGzip:              r.boolVal("ENABLE_GZIP", true),
		GzipMinSize:             r.intVal("GZIP_MINIMUM_SIZE", 1000),
		LogLevel:                r.str("LOG_LEVEL", "info"),
		LogPretty:               r.boolVal("LOG_PRETTY", false),
	}

	if err := r.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("upstream base URL is required")
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive (got %d)", c.MaxConnections)
	}
	if c.MaxKeepaliveConnections < 0 {
		return fmt.Errorf("max_keepalive_connections must be non-negative (got %d)", c.MaxKeepaliveConnections)
	}
	if c.MaxKeepaliveConnections > c.MaxConnections {
		return fmt.Errorf("max_keepalive_connections (%d) exceeds max_connections (%d)",
			c.MaxKeepaliveConnections, c.MaxConnections)
	}
	for _, ttl := range []time.Duration{c.DefaultTTL, c.ContractInfoTTL, c.PositionsTTL, c.MarketDataTTL} {
		if ttl <= 0 {
			return fmt.Errorf("cache TTLs must be positive")
		}
	}
	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("rate_limit_requests must be positive (got %d)", c.RateLimitRequests)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate_limit_window must be positive")
	}
	if c.EnableCORS && len(c.CORSOrigins) == 0 {
		return fmt.Errorf("cors_origins must not be empty when CORS is enabled")
	}
	if c.GzipMinSize < 0 {
		return fmt.Errorf("gzip_minimum_size must be non-negative (got %d)", c.GzipMinSize)
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// envReader reads typed environment values and collects parse failures so
// Load can report all of them at once.
type envReader struct {
	errs []error
}

// Err returns the combined parse errors, or nil.
func (r *envReader) Err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) fail(key, value string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (r *envReader) str(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (r *envReader) intVal(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return intValue
}

func (r *envReader) boolVal(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return boolValue
}

// duration parses a Go duration string. Bare numbers are accepted as
// seconds for compatibility with older deployment env files.
func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(key, value, errors.New("not a duration or number of seconds"))
		return defaultValue
	}
	return time.Duration(secs * float64(time.Second))
}

// splitOrigins parses a comma-separated origin list.
func splitOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
