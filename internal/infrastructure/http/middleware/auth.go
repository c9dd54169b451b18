package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rezkam/taskflow/internal/infrastructure/http/response"
	"github.com/rezkam/taskflow/pkg/jwt"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user id stored by the Auth middleware,
// or "" when the request was not authenticated.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID injects a user id into the context, bypassing token
// validation. Used by handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Auth is HTTP middleware for bearer token authentication. The token's
// subject claim is the only source of the caller's identity.
type Auth struct {
	tokens *jwt.Manager
}

// NewAuth creates a new auth middleware.
func NewAuth(tokens *jwt.Manager) *Auth {
	return &Auth{tokens: tokens}
}

// Validate is a chi middleware that validates JWTs from the Authorization
// header. Expects format: "Authorization: Bearer <token>".
func (a *Auth) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			slog.WarnContext(r.Context(), "authentication failed: missing Authorization header",
				"path", r.URL.Path,
				"method", r.Method)
			response.Unauthorized(w, "missing Authorization header")
			return
		}

		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			slog.WarnContext(r.Context(), "authentication failed: invalid Authorization header format",
				"path", r.URL.Path,
				"method", r.Method)
			response.Unauthorized(w, "invalid Authorization header format, expected: Bearer <token>")
			return
		}

		userID, err := a.tokens.Subject(token)
		if err != nil {
			slog.WarnContext(r.Context(), "authentication failed: invalid or expired token",
				"path", r.URL.Path,
				"method", r.Method,
				"error", err)
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
