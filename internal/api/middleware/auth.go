package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/avolkov/scholarchat/internal/api/response"
	"github.com/avolkov/scholarchat/internal/repository/redis"
	"github.com/avolkov/scholarchat/internal/security"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

// SessionAuth validates externally issued session tokens and puts the
// client-session id on the request context. Everything state-scoped
// downstream is keyed by that id.
type SessionAuth struct {
	tokens *security.TokenManager
}

// NewSessionAuth creates a new session auth middleware
func NewSessionAuth(tokens *security.TokenManager) *SessionAuth {
	return &SessionAuth{tokens: tokens}
}

// Authenticate validates the bearer session token
func (m *SessionAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		sessionID, err := m.tokens.Verify(parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID gets the client-session id from context
func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	return sessionID, ok
}

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	rateLimiter *redis.RateLimiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(rateLimiter *redis.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter}
}

// Limit applies rate limiting keyed by client-session id
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := GetSessionID(r.Context())
		if !ok {
			response.Unauthorized(w, "unauthorized")
			return
		}

		allowed, _, resetTime, err := m.rateLimiter.Allow(r.Context(), sessionID)
		if err != nil {
			// If the rate limiter fails, allow the request
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Reset", resetTime.Format("2006-01-02T15:04:05Z"))

		if !allowed {
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
