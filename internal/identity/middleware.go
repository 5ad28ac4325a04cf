package identity

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alakara/harvest/internal/server"
)

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Middleware rejects requests without a valid token with 401 before the
// handler runs.
func Middleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				server.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "No token provided")
				return
			}
			caller, err := auth.Authenticate(token)
			if err != nil {
				slog.Debug("Authentication failed", "error", err, "path", r.URL.Path)
				server.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// MiddlewareOptional attaches a caller when a valid token is present and
// passes every request through.
func MiddlewareOptional(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := BearerToken(r); token != "" {
				if caller, err := auth.Authenticate(token); err == nil {
					r = r.WithContext(WithCaller(r.Context(), caller))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly must run after Middleware. Callers failing the policy get 403.
func AdminOnly(p *Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				server.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated")
				return
			}
			allowed, err := p.Allow(caller)
			if err != nil {
				slog.Error("Admin rule evaluation failed", "error", err, "rule", p.String())
				server.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}
			if !allowed {
				server.WriteError(w, http.StatusForbidden, "FORBIDDEN", "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
