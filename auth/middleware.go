package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// TokenFromHeader extracts the token of an "Authorization: Bearer <token>" header.
func TokenFromHeader(r *http.Request) string {
	value := r.Header.Get("Authorization")
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(value, "Bearer "))
	}
	return strings.TrimSpace(value)
}

// WithClaims injects the user identity into ctx for downstream handlers.
func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(ctx, RolesKey, claims.Roles)
}

// UserIDFromContext returns the authenticated user, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// Middleware rejects requests without a valid bearer token.
// onError writes the rejection so the caller keeps its own response format.
func Middleware(issuer *TokenIssuer, onError func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromHeader(r)
			if token == "" {
				onError(w, r)
				return
			}
			claims, err := issuer.ValidateToken(token)
			if err != nil {
				onError(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
