package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/werewolf/internal/api/apierr"
)

// RequireAdmin creates middleware that checks the bearer token against a
// bcrypt hash of the admin token. A nil hash leaves the routes open.
func RequireAdmin(tokenHash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == nil {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			if err := bcrypt.CompareHashAndPassword(tokenHash, []byte(token)); err != nil {
				apierr.WriteError(w, apierr.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HashToken hashes an admin token for RequireAdmin. An empty token yields a nil hash.
func HashToken(token string) ([]byte, error) {
	if token == "" {
		return nil, nil
	}
	return bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	// EventSource cannot set headers
	return r.URL.Query().Get("token")
}
