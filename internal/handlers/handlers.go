// Package handlers wires the proxy's HTTP surface: trade forwarding,
// cached market-data reads, and the health/metrics/cache-management
// endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/tradekit/mexc-trading-proxy/pkg/cache"
	"github.com/tradekit/mexc-trading-proxy/pkg/logging"
	"github.com/tradekit/mexc-trading-proxy/pkg/metrics"
	"github.com/tradekit/mexc-trading-proxy/pkg/upstream"
)

// Version is reported by /health.
const Version = "2.0.0"

// Handler carries the dependencies shared by all endpoints.
type Handler struct {
	cache     *cache.Manager
	client    *upstream.Client
	collector *metrics.Collector
	logger    zerolog.Logger
}

// New creates the handler set.
func New(cacheManager *cache.Manager, client *upstream.Client, collector *metrics.Collector) *Handler {
	return &Handler{
		cache:     cacheManager,
		client:    client,
		collector: collector,
		logger:    logging.NewLogger("handlers"),
	}
}

// TradeRequest is the order placement payload accepted by POST /trade.
type TradeRequest struct {
	UID        string   `json:"uid"`
	MToken     string   `json:"mtoken"`
	HToken     string   `json:"htoken"`
	Symbol     string   `json:"symbol"`
	Action     string   `json:"action"`
	OrderType  int      `json:"order_type"`
	Vol        float64  `json:"vol"`
	Leverage   int      `json:"leverage"`
	Price      float64  `json:"price"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
}

// CancelRequest is the payload accepted by POST /cancel.
type CancelRequest struct {
	UID    string `json:"uid"`
	MToken string `json:"mtoken"`
	HToken string `json:"htoken"`
	Symbol string `json:"symbol,omitempty"`
}

// successResponse wraps a forwarded exchange result.
type successResponse struct {
	Status        string          `json:"status"`
	Result        json.RawMessage `json:"result"`
	ExecutionTime float64         `json:"execution_time"`
	Timestamp     float64         `json:"timestamp"`
}

func (h *Handler) credentials(uid, mtoken, htoken string) *upstream.Credentials {
	return &upstream.Credentials{Auth: uid, Token: mtoken, Hash: htoken}
}

// Trade forwards an order to the exchange. Never cached.
func (h *Handler) Trade(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	side, ok := upstream.TradeSide(strings.ToLower(req.Action))
	if !ok {
		writeError(w, http.StatusBadRequest,
			"invalid trade action: "+req.Action+" (use 'buy', 'sell', 'broughtsell', or 'soldbuy')")
		return
	}

	h.logger.Info().
		Str("symbol", req.Symbol).
		Str("action", req.Action).
		Msg("Processing order")

	order := upstream.OrderRequest{
		Symbol:          strings.ToUpper(req.Symbol),
		Price:           req.Price,
		Vol:             req.Vol,
		Leverage:        req.Leverage,
		Side:            side,
		Type:            req.OrderType,
		OpenType:        upstream.MarginIsolated,
		PositionMode:    upstream.MarginIsolated,
		StopLossPrice:   req.StopLoss,
		TakeProfitPrice: req.TakeProfit,
	}

	result, err := h.client.PlaceOrder(r.Context(), h.credentials(req.UID, req.MToken, req.HToken), order)
	if err != nil {
		h.logger.Error().Err(err).Str("symbol", req.Symbol).Msg("Order failed")
		writeUpstreamError(w, err, "order/submit")
		return
	}

	h.logger.Info().
		Str("symbol", req.Symbol).
		Dur("duration", time.Since(start)).
		Msg("Order completed")

	writeJSON(w, http.StatusOK, successResponse{
		Status:        "success",
		Result:        result,
		ExecutionTime: time.Since(start).Seconds(),
		Timestamp:     unixNow(),
	})
}

// Cancel cancels all open orders for the caller.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.client.CancelAllOrders(r.Context(), h.credentials(req.UID, req.MToken, req.HToken), req.Symbol)
	if err != nil {
		h.logger.Error().Err(err).Msg("Cancel all orders failed")
		writeUpstreamError(w, err, "order/cancel_all")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{
		Status:        "success",
		Result:        result,
		ExecutionTime: time.Since(start).Seconds(),
		Timestamp:     unixNow(),
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   Version,
		"timestamp": unixNow(),
	})
}

// Metrics reports request aggregates and cache state.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"requests":  h.collector.Snapshot(),
		"cache":     h.cache.Stats(r.Context()),
		"timestamp": unixNow(),
	})
}

// CacheClear wipes both cache backends. An optional pattern query param
// restricts the clear to matching keys; the default clears everything.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}

	cleared, err := h.cache.Clear(r.Context(), pattern)
	if err != nil {
		h.logger.Error().Err(err).Str("pattern", pattern).Msg("Cache clear failed")
		writeError(w, http.StatusInternalServerError, "cache clear failed: "+err.Error())
		return
	}

	h.logger.Info().Int("cleared", cleared).Str("pattern", pattern).Msg("Cache cleared")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"cleared_entries": cleared,
		"pattern":         pattern,
		"timestamp":       unixNow(),
	})
}

// ContractDetail serves contract specifications through the cache.
func (h *Handler) ContractDetail(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	body, err := h.cache.FetchOrCompute(r.Context(), cache.ClassContractInfo,
		map[string]string{"symbol": symbol},
		func(ctx context.Context) ([]byte, error) {
			return h.client.ContractDetail(ctx, symbol)
		})
	if err != nil {
		writeUpstreamError(w, err, "contract/detail")
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// Ticker serves the latest ticker through the cache.
func (h *Handler) Ticker(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	body, err := h.cache.FetchOrCompute(r.Context(), cache.ClassMarketData,
		map[string]string{"endpoint": "ticker", "symbol": symbol},
		func(ctx context.Context) ([]byte, error) {
			return h.client.Ticker(ctx, symbol)
		})
	if err != nil {
		writeUpstreamError(w, err, "contract/ticker")
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// Depth serves the order book through the cache.
func (h *Handler) Depth(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = parsed
	}

	body, err := h.cache.FetchOrCompute(r.Context(), cache.ClassMarketData,
		map[string]string{"endpoint": "depth", "symbol": symbol, "limit": strconv.Itoa(limit)},
		func(ctx context.Context) ([]byte, error) {
			return h.client.Depth(ctx, symbol, limit)
		})
	if err != nil {
		writeUpstreamError(w, err, "contract/depth")
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// FundingRate serves the funding rate through the cache.
func (h *Handler) FundingRate(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	body, err := h.cache.FetchOrCompute(r.Context(), cache.ClassMarketData,
		map[string]string{"endpoint": "funding_rate", "symbol": symbol},
		func(ctx context.Context) ([]byte, error) {
			return h.client.FundingRate(ctx, symbol)
		})
	if err != nil {
		writeUpstreamError(w, err, "contract/funding_rate")
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// OpenPositions serves the caller's open positions through the cache.
// Credentials arrive as headers; the cache key carries the uid so users
// never see each other's positions.
func (h *Handler) OpenPositions(w http.ResponseWriter, r *http.Request) {
	uid := r.Header.Get("Authorization")
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing Authorization header")
		return
	}
	creds := &upstream.Credentials{
		Auth:  uid,
		Token: r.Header.Get("x-mxc-token"),
		Hash:  r.Header.Get("x-mxc-hash"),
	}
	symbol := r.URL.Query().Get("symbol")

	body, err := h.cache.FetchOrCompute(r.Context(), cache.ClassPositions,
		map[string]string{"uid": uid, "symbol": symbol},
		func(ctx context.Context) ([]byte, error) {
			return h.client.OpenPositions(ctx, creds, symbol)
		})
	if err != nil {
		writeUpstreamError(w, err, "position/open_positions")
		return
	}
	writeRaw(w, http.StatusOK, body)
}
