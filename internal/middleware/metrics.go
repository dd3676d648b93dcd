// Package middleware provides HTTP middleware for the Minka API server.
package middleware

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/blake2b"

	"github.com/minka-latam/minka-sub002/internal/pkg/ulid"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minka_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minka_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	visitorsUnique = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minka_visitors_unique_total",
			Help: "Total number of unique visitors (by fingerprint)",
		},
	)

	pageViewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minka_page_views_total",
			Help: "Total page views by path",
		},
		[]string{"path"},
	)

	authFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minka_auth_failures_total",
			Help: "Requests rejected with 401 or 403",
		},
		[]string{"status"},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minka_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)
)

// VisitorTracker remembers visitor fingerprints for a day. It is safe for concurrent use.
type VisitorTracker struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	maxSize int
	now     func() time.Time
}

// NewVisitorTracker creates a new visitor tracker.
func NewVisitorTracker(maxSize int) *VisitorTracker {
	if maxSize <= 0 {
		maxSize = 100000
	}
	return &VisitorTracker{
		seen:    make(map[string]time.Time),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Track records a visitor and returns true if they're new.
func (vt *VisitorTracker) Track(fingerprint string) bool {
	vt.mu.Lock()
	defer vt.mu.Unlock()

	now := vt.now()
	if len(vt.seen) > vt.maxSize/2 {
		cutoff := now.Add(-24 * time.Hour)
		for k, v := range vt.seen {
			if v.Before(cutoff) {
				delete(vt.seen, k)
			}
		}
	}

	if _, exists := vt.seen[fingerprint]; exists {
		return false
	}
	vt.seen[fingerprint] = now
	return true
}

// ActiveCount returns the number of visitors first seen within d.
func (vt *VisitorTracker) ActiveCount(d time.Duration) int {
	vt.mu.Lock()
	defer vt.mu.Unlock()

	cutoff := vt.now().Add(-d)
	count := 0
	for _, t := range vt.seen {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}

var (
	visitorTracker = NewVisitorTracker(100000)

	_ = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "minka_visitors_active",
			Help: "Number of new visitors in the last 5 minutes",
		},
		func() float64 { return float64(visitorTracker.ActiveCount(5 * time.Minute)) },
	)
)

// Metrics returns a middleware that records Prometheus metrics.
func Metrics() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			if visitorTracker.Track(visitorFingerprint(r)) {
				visitorsUnique.Inc()
			}

			next.ServeHTTP(wrapped, r)

			// The route pattern is only known after routing.
			path := normalizePath(r)
			if isWebPage(r.URL.Path) {
				pageViewsTotal.WithLabelValues(path).Inc()
			}

			status := strconv.Itoa(wrapped.status)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())

			switch {
			case wrapped.status == http.StatusUnauthorized || wrapped.status == http.StatusForbidden:
				authFailuresTotal.WithLabelValues(status).Inc()
				errorsTotal.WithLabelValues("client_error").Inc()
			case wrapped.status >= http.StatusInternalServerError:
				errorsTotal.WithLabelValues("server_error").Inc()
			case wrapped.status >= http.StatusBadRequest:
				errorsTotal.WithLabelValues("client_error").Inc()
			}
		})
	}
}

// visitorFingerprint hashes IP and User-Agent; no tracking cookies.
func visitorFingerprint(r *http.Request) string {
	sum := blake2b.Sum256([]byte(clientIP(r) + "|" + r.UserAgent()))
	return hex.EncodeToString(sum[:8])
}

// normalizePath normalizes URL paths to prevent cardinality explosion.
func normalizePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}

	// Unmatched routes: collapse profile and notification ids.
	segments := strings.Split(r.URL.Path, "/")
	for i, seg := range segments {
		if isID(seg) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func isID(seg string) bool {
	switch len(seg) {
	case 26:
		return ulid.IsValid(seg)
	case 36:
		return uuid.Validate(seg) == nil
	}
	return false
}

// isWebPage returns true if the path is a rendered page (not API, static or probes).
func isWebPage(path string) bool {
	switch {
	case strings.HasPrefix(path, "/api/"), strings.HasPrefix(path, "/static/"):
		return false
	case path == "/health" || path == "/ready" || path == "/metrics":
		return false
	}
	return true
}
