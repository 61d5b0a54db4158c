package main

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"time"

	"mailprobe/internal/limiter"
	"mailprobe/internal/metrics"
)

// Request caps per client IP. The global pair is shared by every API
// endpoint; the per-endpoint limiters stack on top of it.
var (
	globalLimiter = limiter.New(
		limiter.Rule{Limit: 200, Window: time.Hour},
		limiter.Rule{Limit: 50, Window: time.Minute},
	)
	verifyLimiter = limiter.New(limiter.Rule{Limit: 30, Window: time.Minute})
	bulkLimiter   = limiter.New(limiter.Rule{Limit: 10, Window: time.Minute})
)

// apiKey guards the verification endpoints when set. Empty means open access.
var apiKey string

// enableCORS middleware sets CORS headers for frontend access.
// Note: Access-Control-Allow-Origin is set to "*" which is permissive.
// Restrict this to your specific frontend origin in production.
func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// rateLimit rejects over-budget clients with 429 before any pipeline work
// happens. Limiters are consulted in order and all of them must admit.
func rateLimit(endpoint string, next http.HandlerFunc, limiters ...*limiter.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		for _, l := range limiters {
			if !l.Allow(ip) {
				metrics.RateLimited.WithLabelValues(endpoint).Inc()
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
		}
		next(w, r)
	}
}

// clientIP keys the rate limiter. RemoteAddr is the client when the service
// runs directly on the egress host; X-Forwarded-For is spoofable and ignored.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requireAPIKey validates the Bearer token in the Authorization header
// before allowing a request through to the handler. With no API_SECRET_KEY
// configured the check is disabled and the endpoints are open.
func requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apiKey == "" {
			next(w, r)
			return
		}

		// Extract the token from the "Authorization: Bearer <token>" header.
		authHeader := r.Header.Get("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)

		// ConstantTimeCompare always examines every byte of both inputs before
		// returning, so response latency carries no information about how many
		// leading characters of the guess were correct.
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "Unauthorized: Invalid or missing API Key")
			return
		}

		next(w, r)
	}
}
