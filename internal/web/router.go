package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/cfratings/internal/message"
	"github.com/mcoot/cfratings/internal/services/overlay"
	"github.com/mcoot/cfratings/internal/storage"
	"github.com/mcoot/cfratings/internal/web/handler"
	"github.com/mcoot/cfratings/internal/web/middleware"
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger        *slog.Logger
	Proxy         message.Proxy
	Storage       storage.Storage
	OverlayEngine *overlay.Engine
	PageFetcher   *overlay.Fetcher
}

// NewRouter creates a new web router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	flashMiddleware := middleware.Flash()
	authStateMiddleware := middleware.AuthState(cfg.Proxy, cfg.Logger)
	requireAuthMiddleware := middleware.RequireAuth()

	// Apply global middleware to all routes
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// Create handlers
	popupHandler := handler.NewPopupHandler(cfg.Proxy, cfg.Storage, cfg.Logger)

	r.Handle("/", http.RedirectHandler("/popup", http.StatusSeeOther)).Methods(http.MethodGet)

	// Popup view and session actions
	popup := r.PathPrefix("/popup").Subrouter()
	popup.Use(flashMiddleware)
	popup.Use(authStateMiddleware)
	popup.HandleFunc("", popupHandler.View).Methods(http.MethodGet)
	popup.HandleFunc("/login", popupHandler.Login).Methods(http.MethodPost)
	popup.HandleFunc("/logout", popupHandler.Logout).Methods(http.MethodPost)

	// Settings (require auth)
	settings := popup.NewRoute().Subrouter()
	settings.Use(requireAuthMiddleware)
	settings.HandleFunc("/group", popupHandler.SelectGroup).Methods(http.MethodPost)
	settings.HandleFunc("/preference", popupHandler.SetPreference).Methods(http.MethodPost)

	// Page proxy
	if cfg.OverlayEngine != nil {
		fetcher := cfg.PageFetcher
		if fetcher == nil {
			fetcher = overlay.NewFetcher(nil)
		}
		overlayHandler := handler.NewOverlayHandler(cfg.OverlayEngine, fetcher, cfg.Logger)
		r.HandleFunc("/overlay", overlayHandler.Page).Methods(http.MethodGet)
	}

	return r
}
