package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minka-latam/minka-sub002/internal/identity"
	apierrors "github.com/minka-latam/minka-sub002/internal/pkg/errors"
	"github.com/minka-latam/minka-sub002/internal/pkg/response"
)

// Counter is a fixed-window counter store. *database.Redis implements it.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error)
}

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         10,
	}
}

// RateLimit returns a rate limiting middleware keyed by credential or client IP.
// Counter failures let the request through.
func RateLimit(counter Counter, cfg RateLimitConfig, creds CredentialSource, logger *slog.Logger) func(next http.Handler) http.Handler {
	keyFunc := func(r *http.Request) string {
		if creds != nil {
			if cred := creds.Credential(r); !cred.Empty() {
				return "cred:" + identity.Fingerprint(cred.Token)
			}
		}
		return ""
	}
	return RateLimitByKey(counter, cfg, keyFunc, logger)
}

// RateLimitByKey returns a rate limiter that uses a custom key extractor,
// falling back to the client IP when keyFunc returns "".
func RateLimitByKey(counter Counter, cfg RateLimitConfig, keyFunc func(*http.Request) string, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	const window = time.Minute

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := keyFunc(r)
			if clientID == "" {
				clientID = "ip:" + clientIP(r)
			}
			key := fmt.Sprintf("ratelimit:%s", clientID)

			count, err := counter.IncrWithExpire(r.Context(), key, window)
			if err != nil {
				logger.Warn("rate limit counter unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			limit := cfg.RequestsPerMinute
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window).Unix(), 10))

			if int(count) > limit+cfg.BurstSize {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				response.Error(w, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP, preferring the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
