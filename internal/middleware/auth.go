package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

const accountKeyCtx contextKey = "account_key"

// SessionValidator resolves a session token to an account key.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionToken string) (string, bool, error)
}

// RequireSession rejects requests without a valid bearer token and stores the
// account key in the request context.
func RequireSession(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "Please log in.")
				return
			}

			accountKey, ok, err := sessions.ValidateSession(r.Context(), token)
			if err != nil {
				log.Error().Err(err).Msg("validating session")
				writeJSONError(w, http.StatusServiceUnavailable, "Service unavailable. Please check your connection or try again later.")
				return
			}
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Session expired. Please log in again.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountKey(r.Context(), accountKey)))
		})
	}
}

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func WithAccountKey(ctx context.Context, accountKey string) context.Context {
	return context.WithValue(ctx, accountKeyCtx, accountKey)
}

// AccountKeyFromContext returns the key placed by RequireSession.
func AccountKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(accountKeyCtx).(string)
	return key, ok && key != ""
}
