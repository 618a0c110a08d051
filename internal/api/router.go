package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/cfratings/internal/api/handler"
	"github.com/mcoot/cfratings/internal/api/middleware"
	"github.com/mcoot/cfratings/internal/message"
	"github.com/mcoot/cfratings/internal/metrics"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Dispatcher *message.Dispatcher
	Metrics    *metrics.Manager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	messageHandler := handler.NewMessageHandler(cfg.Dispatcher)
	healthHandler := handler.NewHealthHandler(cfg.Dispatcher)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Session proxy messages
	api.HandleFunc("/messages", messageHandler.Handle).Methods(http.MethodPost)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)

	// Metrics sit outside /api/v1 and skip request logging
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}
