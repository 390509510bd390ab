// Package upstream provides the pooled HTTP client for the MEXC futures
// API: persistent keep-alive connections, per-call timeouts, and an error
// taxonomy that separates exchange rejections from transport failures.
//
// The client performs no caching and no retries. Caching belongs to
// pkg/cache; retries, if any, are the caller's responsibility.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/tradekit/mexc-trading-proxy/pkg/logging"
)

// Prometheus metrics for upstream operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mexc_upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mexc_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mexc_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Config holds the client configuration. Pool limits map directly onto
// http.Transport: MaxConnections bounds total connections per host,
// MaxKeepaliveConnections bounds the idle pool, and KeepaliveExpiry closes
// idle connections after that duration.
type Config struct {
	BaseURL                 string
	UserAgent               string
	MaxConnections          int
	MaxKeepaliveConnections int
	KeepaliveExpiry         time.Duration
	ConnectTimeout          time.Duration
	RequestTimeout          time.Duration
}

// DefaultConfig returns a safe default configuration for the given base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:                 baseURL,
		UserAgent:               "mexc-trading-proxy/1.0",
		MaxConnections:          100,
		MaxKeepaliveConnections: 20,
		KeepaliveExpiry:         30 * time.Second,
		ConnectTimeout:          5 * time.Second,
		RequestTimeout:          10 * time.Second,
	}
}

// Credentials are forwarded verbatim as headers; the proxy performs no
// signing.
type Credentials struct {
	Auth  string // session authorization token (Authorization header)
	Token string // exchange mtoken (x-mxc-token header)
	Hash  string // exchange browser hash (x-mxc-hash header)
}

// Client is the pooled MEXC API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     zerolog.Logger
}

// New creates a client with a tuned connection pool.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.MaxConnections <= 0 {
		return nil, fmt.Errorf("max connections must be positive (got %d)", cfg.MaxConnections)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxConnsPerHost:     cfg.MaxConnections,
		MaxIdleConns:        cfg.MaxKeepaliveConnections,
		MaxIdleConnsPerHost: cfg.MaxKeepaliveConnections,
		IdleConnTimeout:     cfg.KeepaliveExpiry,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		logger:    logging.NewLogger("upstream"),
	}, nil
}

// do performs a request against the exchange and returns the raw response
// body. Non-2xx statuses and transport failures both surface as *Error.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any, creds *Credentials) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	reqURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds != nil {
		req.Header.Set("Authorization", creds.Auth)
		req.Header.Set("x-mxc-token", creds.Token)
		req.Header.Set("x-mxc-hash", creds.Hash)
	}

	c.logger.Debug().Str("endpoint", endpoint).Str("method", method).Msg("Executing upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		upstreamRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Upstream request failed")
		return nil, &Error{
			Class:    ErrorClassNetwork,
			Endpoint: endpoint,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &Error{
			Class:    ErrorClassNetwork,
			Endpoint: endpoint,
			Message:  "read response body",
			Err:      err,
		}
	}

	upstreamRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		upstreamErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Upstream rejected request")
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Class:      class,
			Endpoint:   endpoint,
			Message:    truncate(string(data), 256),
		}
	}

	return data, nil
}

// Get performs a GET request and returns the raw response body.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, creds *Credentials) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, query, nil, creds)
}

// Post performs a POST request with a JSON body and returns the raw
// response body.
func (c *Client) Post(ctx context.Context, endpoint string, body any, creds *Credentials) ([]byte, error) {
	return c.do(ctx, http.MethodPost, endpoint, nil, body, creds)
}

// CloseIdleConnections drains the keep-alive pool.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
