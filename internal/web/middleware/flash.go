package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/cfratings/internal/web/templates/layout"
)

// Flash kinds, used as the CSS suffix of the rendered message
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

const (
	flashCookieName = "cfr_flash"
	flashContextKey = contextKey("flash")
)

// GetFlash returns the flash message read for this request, or nil
func GetFlash(ctx context.Context) *layout.FlashMessage {
	flash, _ := ctx.Value(flashContextKey).(*layout.FlashMessage)
	return flash
}

// SetFlash queues a message for the next popup render. The message is
// query-escaped since proxy errors and usernames may hold cookie-unsafe bytes.
func SetFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    kind + ":" + url.QueryEscape(message),
		Path:     "/popup",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Flash returns middleware that reads the queued message once and clears it
func Flash() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var flash *layout.FlashMessage

			if cookie, err := r.Cookie(flashCookieName); err == nil && cookie.Value != "" {
				flash = parseFlash(cookie.Value)
				http.SetCookie(w, &http.Cookie{
					Name:     flashCookieName,
					Value:    "",
					Path:     "/popup",
					MaxAge:   -1,
					Expires:  time.Unix(0, 0),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), flashContextKey, flash)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseFlash decodes kind:message. Unknown kinds become info; undecodable
// messages are dropped.
func parseFlash(value string) *layout.FlashMessage {
	kind, encoded, found := strings.Cut(value, ":")
	if !found {
		kind, encoded = FlashInfo, value
	}
	switch kind {
	case FlashSuccess, FlashError, FlashInfo:
	default:
		kind = FlashInfo
	}

	message, err := url.QueryUnescape(encoded)
	if err != nil || message == "" {
		return nil
	}
	return &layout.FlashMessage{Type: kind, Message: message}
}
