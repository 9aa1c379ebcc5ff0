package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the values we store.
type contextKey string

const userIDKey contextKey = "userID"

// errNoToken is returned by extractUserID when the request carries no token.
var errNoToken = errors.New("auth: no token")

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// The token is read from the Authorization header ("Bearer <jwt>") first and
// from the "token" cookie second. A missing or invalid token gets
// 401 Unauthorized and stops the request chain.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="signal-registry"`)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user's ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
// Returns ("", false) if the request was not authenticated.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SubjectAttr returns the authenticated user as a "subject" log attribute.
// Unauthenticated requests get the zero Attr, which slog handlers drop.
func SubjectAttr(ctx context.Context) slog.Attr {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return slog.Attr{}
	}
	return slog.String("subject", id)
}

// extractUserID finds the JWT on the request and validates it.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", errNoToken
		}
		return tokens.Validate(strings.TrimSpace(token))
	}

	cookie, err := r.Cookie("token")
	if err != nil {
		return "", errNoToken
	}
	return tokens.Validate(cookie.Value)
}
