package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/ratelimit"
)

// RateLimiter wraps KeyedRateLimiter for API use.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a limiter allowing rps requests per second per key.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return ratelimit.New(rps, burst)
}

// WriteRateLimitMiddleware rate limits mutating requests by client IP.
// Reads are never limited. Returns 429 Too Many Requests when the limit is
// exceeded.
func WriteRateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := getClientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"method", r.Method,
					"path", r.URL.Path,
				)
				retry := int(math.Ceil(limiter.RetryAfter().Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				writeError(w, logger, &domainerrors.Error{
					Code:    domainerrors.CodeRateLimited,
					Message: "Too many requests. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeError renders err in the error envelope outside of huma.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	apiErr := newAPIError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.GetStatus())
	envelope, _ := EnvelopeTransformer(nil, strconv.Itoa(apiErr.GetStatus()), apiErr) //nolint:errcheck // never fails
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.Debug("failed to write error response", "error", err)
	}
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For (may contain multiple IPs, first is client).
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port).
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
