package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mcoot/cfratings/internal/message"
	"github.com/mcoot/cfratings/internal/model"
)

type contextKey string

const (
	authStateContextKey contextKey = "auth_state"
)

// GetAuthState retrieves the auth snapshot loaded for this request
func GetAuthState(ctx context.Context) model.AuthSnapshot {
	state, _ := ctx.Value(authStateContextKey).(model.AuthSnapshot)
	return state
}

// AuthState returns middleware that reads the auth snapshot once per request.
// A failed read is treated as logged out.
func AuthState(proxy message.Proxy, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, err := proxy.GetAuthState(r.Context())
			if err != nil {
				logger.Warn("read auth state failed", slog.String("error", err.Error()))
				state = model.AuthSnapshot{}
			}
			ctx := context.WithValue(r.Context(), authStateContextKey, state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth returns middleware that sends logged-out requests back to the popup
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetAuthState(r.Context()).IsAuthenticated {
				SetFlash(w, FlashError, model.ErrNotAuthenticated.Error())
				http.Redirect(w, r, "/popup", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
