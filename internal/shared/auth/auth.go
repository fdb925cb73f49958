// Package auth provides API key authentication for the HTTP API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "prayer-tracker/internal/shared/errors"
)

// APIKeyHeader is the request header carrying the API key.
const APIKeyHeader = "X-API-Key"

// VerifyAPIKey performs constant-time comparison of API keys to prevent timing attacks.
// Returns true if the provided key matches the expected key.
func VerifyAPIKey(provided, expected string) bool {
	if len(provided) == 0 || len(expected) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// ExtractAPIKey returns the key from X-API-Key, falling back to a Bearer
// token in the Authorization header.
func ExtractAPIKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, prefix))
	}
	return ""
}

// APIKeyMiddleware creates an HTTP middleware that rejects requests without a
// matching API key.
func APIKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !VerifyAPIKey(ExtractAPIKey(r), expectedKey) {
				apperrors.WriteError(w, apperrors.UnauthorizedError("Invalid or missing API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
