package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/service"
)

type contextKey string

const userKey contextKey = "user"

// Verifier resolves a bearer token to a user.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.User, error)
}

// Authenticate returns middleware that requires a valid Bearer token in the Authorization header.
// All token rejections get the same 401 response.
func Authenticate(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "Not authenticated")
				return
			}

			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || token == "" {
				writeUnauthorized(w, "Not authenticated")
				return
			}

			user, err := verifier.Verify(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrUnauthorized):
					logger.Debug("bearer token rejected", "reason", err.Error())
					writeUnauthorized(w, service.ErrUnauthorized.Error())
				case errors.Is(err, service.ErrUpstreamUnavailable):
					logger.Warn("token verification unavailable", "error", err)
					writeJSONError(w, http.StatusServiceUnavailable, service.ErrUpstreamUnavailable.Error())
				default:
					logger.Error("token verification failed", "error", err)
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			setLoggedUser(r.Context(), user.Email)
			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, http.StatusUnauthorized, msg)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
