package handlers

import (
	"compress/gzip"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tradekit/mexc-trading-proxy/pkg/metrics"
)

// timingResponseWriter injects the X-Process-Time header just before the
// response status is committed, which is the last moment headers can
// still be set.
type timingResponseWriter struct {
	http.ResponseWriter
	start       time.Time
	statusCode  int
	wroteHeader bool
}

func (t *timingResponseWriter) WriteHeader(code int) {
	if !t.wroteHeader {
		t.Header().Set("X-Process-Time",
			strconv.FormatFloat(time.Since(t.start).Seconds(), 'f', 6, 64))
		t.statusCode = code
		t.wroteHeader = true
	}
	t.ResponseWriter.WriteHeader(code)
}

func (t *timingResponseWriter) Write(b []byte) (int, error) {
	if !t.wroteHeader {
		t.WriteHeader(http.StatusOK)
	}
	return t.ResponseWriter.Write(b)
}

// TimingMiddleware measures handler wall-clock time, records it into the
// collector, stamps X-Process-Time and X-Request-Count on every response,
// and writes an access log line.
func TimingMiddleware(collector *metrics.Collector, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			tw := &timingResponseWriter{ResponseWriter: w, start: start, statusCode: http.StatusOK}
			tw.Header().Set("X-Request-Count",
				strconv.FormatInt(collector.Snapshot().TotalCount+1, 10))

			next.ServeHTTP(tw, r)

			duration := time.Since(start)
			collector.Record(duration)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status_code", tw.statusCode).
				Dur("duration", duration).
				Str("client_ip", clientIP(r)).
				Msg("Request processed")
		})
	}
}

// CORSMiddleware answers cross-origin requests for the listed origins.
// A single "*" origin allows everyone. Preflight OPTIONS requests are
// answered directly with 204.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	allowed := func(origin string) bool {
		if allowAll {
			return true
		}
		for _, o := range allowedOrigins {
			if o == origin {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed(origin) {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Expose-Headers", "X-Process-Time, X-Request-Count")

				if r.Method == http.MethodOptions {
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers",
						"Content-Type, Authorization, x-mxc-token, x-mxc-hash")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// gzipResponseWriter buffers the response until it either exceeds the
// minimum size, at which point the body is compressed, or the handler
// finishes, at which point a small body goes out uncompressed. Responses
// that already carry a Content-Encoding pass through untouched.
type gzipResponseWriter struct {
	http.ResponseWriter
	minSize     int
	status      int
	buf         []byte
	gz          *gzip.Writer
	passthrough bool
	decided     bool
}

func (g *gzipResponseWriter) WriteHeader(code int) {
	if g.status == 0 {
		g.status = code
	}
	// The header commit is deferred until the encoding is decided.
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	if !g.decided {
		if g.Header().Get("Content-Encoding") != "" {
			g.setPassthrough()
		}
	}
	if g.passthrough {
		return g.ResponseWriter.Write(b)
	}
	if g.gz != nil {
		return g.gz.Write(b)
	}

	g.buf = append(g.buf, b...)
	if len(g.buf) >= g.minSize {
		g.startCompressing()
	}
	return len(b), nil
}

func (g *gzipResponseWriter) setPassthrough() {
	g.decided = true
	g.passthrough = true
	g.commitHeader()
}

func (g *gzipResponseWriter) startCompressing() {
	g.decided = true
	g.Header().Del("Content-Length")
	g.Header().Set("Content-Encoding", "gzip")
	g.Header().Add("Vary", "Accept-Encoding")
	g.commitHeader()
	g.gz = gzip.NewWriter(g.ResponseWriter)
	_, _ = g.gz.Write(g.buf)
	g.buf = nil
}

func (g *gzipResponseWriter) commitHeader() {
	if g.status == 0 {
		g.status = http.StatusOK
	}
	g.ResponseWriter.WriteHeader(g.status)
}

// finish flushes whatever path the response took.
func (g *gzipResponseWriter) finish() {
	if g.gz != nil {
		_ = g.gz.Close()
		return
	}
	if g.passthrough {
		return
	}
	g.commitHeader()
	if len(g.buf) > 0 {
		_, _ = g.ResponseWriter.Write(g.buf)
	}
}

// GzipMiddleware compresses response bodies of at least minSize bytes for
// clients that accept gzip.
func GzipMiddleware(minSize int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			gw := &gzipResponseWriter{ResponseWriter: w, minSize: minSize}
			next.ServeHTTP(gw, r)
			gw.finish()
		})
	}
}

// clientLimiter couples a token bucket with its last activity time so
// idle clients can be pruned.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-client-IP request budget.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	requests int
	window   time.Duration
}

// NewRateLimiter allows requests per window for each client IP.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		requests: requests,
		window:   window,
	}
}

// Middleware rejects clients over budget with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[ip]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(
				rate.Limit(float64(rl.requests)/rl.window.Seconds()),
				rl.requests,
			),
			lastSeen: time.Now(),
		}
		rl.clients[ip] = cl

		if len(rl.clients) > 1024 {
			rl.pruneLocked()
		}
	}
	cl.lastSeen = time.Now()

	return cl.limiter.Allow()
}

// pruneLocked drops clients idle for more than three windows. Caller
// holds rl.mu.
func (rl *RateLimiter) pruneLocked() {
	cutoff := time.Now().Add(-3 * rl.window)
	for ip, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// clientIP resolves the originating client address, honoring forwarding
// headers set by upstream load balancers.
func clientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		var err error
		ip, _, err = net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
	}
	if strings.Contains(ip, ",") {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	return ip
}
