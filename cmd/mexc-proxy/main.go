// Command mexc-proxy runs the MEXC futures trading proxy: a thin HTTP
// layer that forwards orders to the exchange and serves market data
// through a Redis-backed tiered cache.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tradekit/mexc-trading-proxy/internal/handlers"
	"github.com/tradekit/mexc-trading-proxy/pkg/cache"
	"github.com/tradekit/mexc-trading-proxy/pkg/config"
	"github.com/tradekit/mexc-trading-proxy/pkg/logging"
	"github.com/tradekit/mexc-trading-proxy/pkg/metrics"
	"github.com/tradekit/mexc-trading-proxy/pkg/upstream"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.Setup(logging.DefaultConfig())
		fallback.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	server := buildServer(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Starting MEXC trading proxy")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown incomplete")
	}
	logger.Info().Msg("Stopped")
}

// buildServer wires the cache, upstream client, and HTTP surface.
func buildServer(cfg *config.Config, logger zerolog.Logger) *http.Server {
	manager := newCacheManager(cfg, logger)

	client, err := upstream.New(upstream.Config{
		BaseURL:                 cfg.UpstreamBaseURL,
		UserAgent:               "mexc-trading-proxy/" + handlers.Version,
		MaxConnections:          cfg.MaxConnections,
		MaxKeepaliveConnections: cfg.MaxKeepaliveConnections,
		KeepaliveExpiry:         cfg.KeepaliveExpiry,
		ConnectTimeout:          cfg.ConnectTimeout,
		RequestTimeout:          cfg.RequestTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid upstream configuration")
	}

	router := handlers.NewRouter(
		handlers.New(manager, client, metrics.NewCollector()),
		handlers.RouterConfig{
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
			EnableCORS:        cfg.EnableCORS,
			CORSOrigins:       cfg.CORSOrigins,
			EnableGzip:        cfg.EnableGzip,
			GzipMinSize:       cfg.GzipMinSize,
			AccessLogger:      logging.NewLogger("http"),
		},
	)

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.RequestTimeout + cfg.ConnectTimeout,
		WriteTimeout: 2 * cfg.RequestTimeout,
		IdleTimeout:  cfg.KeepaliveExpiry,
	}
}

// newCacheManager builds the tiered cache. An unreachable Redis is a
// warning, not a startup failure: the memory layer carries the load and
// Redis is picked up again once it answers pings.
func newCacheManager(cfg *config.Config, logger zerolog.Logger) *cache.Manager {
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).
			Msg("Redis unreachable, serving from memory cache until it recovers")
	} else {
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	store := cache.NewTieredStore(
		cache.NewRedisStore(redisClient),
		cache.NewMemoryStore(),
		logging.NewLogger("cache"),
	)

	policy := cache.NewPolicy(cfg.DefaultTTL, map[string]time.Duration{
		cache.ClassContractInfo: cfg.ContractInfoTTL,
		cache.ClassPositions:    cfg.PositionsTTL,
		cache.ClassMarketData:   cfg.MarketDataTTL,
	})

	return cache.NewManager(store, policy,
		cache.WithSingleFlight(),
		cache.WithLogger(logging.NewLogger("cache")),
	)
}
