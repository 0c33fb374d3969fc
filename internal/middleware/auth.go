package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const APIKeyKey contextKey = "api_key"

// publicPaths bypass authentication.
var publicPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// APIKeyAuth validates the API key from the Authorization header. With no
// keys configured every request passes.
func APIKeyAuth(validKeys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			// constant-time comparison
			valid := false
			for _, key := range validKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					valid = true
				}
			}
			if !valid {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), APIKeyKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyFromContext returns the key that authenticated the request.
func APIKeyFromContext(ctx context.Context) string {
	if k, ok := ctx.Value(APIKeyKey).(string); ok {
		return k
	}
	return ""
}
