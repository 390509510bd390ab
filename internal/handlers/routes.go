package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tradekit/mexc-trading-proxy/pkg/metrics"
)

// RouterConfig holds the middleware knobs for the router.
type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	EnableCORS        bool
	CORSOrigins       []string
	EnableGzip        bool
	GzipMinSize       int
	AccessLogger      zerolog.Logger
}

// NewRouter builds the proxy's route table with timing, CORS, gzip, and
// rate-limit middleware applied to every endpoint.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	r.Use(TimingMiddleware(h.collector, cfg.AccessLogger))
	if cfg.EnableCORS {
		r.Use(CORSMiddleware(cfg.CORSOrigins))
	}
	if cfg.EnableGzip {
		r.Use(GzipMiddleware(cfg.GzipMinSize))
	}
	if cfg.RateLimitRequests > 0 {
		r.Use(NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow).Middleware)
	}

	// Trading
	r.HandleFunc("/trade", h.Trade).Methods(http.MethodPost)
	r.HandleFunc("/cancel", h.Cancel).Methods(http.MethodPost)

	// Cached read passthroughs
	r.HandleFunc("/contract/detail", h.ContractDetail).Methods(http.MethodGet)
	r.HandleFunc("/contract/ticker", h.Ticker).Methods(http.MethodGet)
	r.HandleFunc("/contract/depth/{symbol}", h.Depth).Methods(http.MethodGet)
	r.HandleFunc("/contract/funding_rate/{symbol}", h.FundingRate).Methods(http.MethodGet)
	r.HandleFunc("/position/open_positions", h.OpenPositions).Methods(http.MethodGet)

	// Operations
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.Metrics).Methods(http.MethodGet)
	r.Handle("/metrics/prometheus",
		promhttp.HandlerFor(metrics.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/cache/clear", h.CacheClear).Methods(http.MethodPost)

	if cfg.EnableCORS {
		// Preflight requests must match a route for the middleware chain
		// to run; the CORS middleware answers them before this handler.
		r.PathPrefix("/").Methods(http.MethodOptions).
			HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
	}

	return r
}
