package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/cfratings/internal/community"
	"github.com/mcoot/cfratings/internal/dependencies/clock"
	"github.com/mcoot/cfratings/internal/message"
	"github.com/mcoot/cfratings/internal/metrics"
	"github.com/mcoot/cfratings/internal/services/overlay"
	"github.com/mcoot/cfratings/internal/services/session"
	"github.com/mcoot/cfratings/internal/storage"
	"github.com/mcoot/cfratings/internal/storage/memory"
	redisstorage "github.com/mcoot/cfratings/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	Community *community.Client
	Metrics   *metrics.Manager

	// Services
	SessionService *session.Service
	Dispatcher     *message.Dispatcher
	OverlayEngine  *overlay.Engine
	PageFetcher    *overlay.Fetcher

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// APIBaseURL is the community REST API root
	APIBaseURL string
	// HTTPTimeout bounds community API and host page requests (optional)
	HTTPTimeout time.Duration
	// TargetHost is the site the overlay rewrites (optional)
	TargetHost string
	// Metrics is the metrics manager (optional)
	// If nil, a manager with a fresh registry is created
	Metrics *metrics.Manager
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("APIBaseURL required")
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	// Create external dependencies
	clk := clock.New()
	api := community.NewClient(community.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.HTTPTimeout,
	})

	app := newWithDependencies(store, clk, api, m, cfg, logger)
	app.Community = api
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, api session.API, m *metrics.Manager, cfg Config, logger *slog.Logger) *App {
	sessionService := session.New(store, api, clk, logger, m)
	dispatcher := message.NewDispatcher(sessionService, logger)
	engine := overlay.New(dispatcher, store, clk, logger, m, overlay.Config{TargetHost: cfg.TargetHost})

	var pageClient *http.Client
	if cfg.HTTPTimeout > 0 {
		pageClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &App{
		Storage:        store,
		Clock:          clk,
		Metrics:        m,
		SessionService: sessionService,
		Dispatcher:     dispatcher,
		OverlayEngine:  engine,
		PageFetcher:    overlay.NewFetcher(pageClient),
		logger:         logger,
	}
}

// Start rehydrates the session from storage
func (a *App) Start(ctx context.Context) error {
	return a.SessionService.Init(ctx)
}

// Stop tears down the session and releases storage connections
func (a *App) Stop(ctx context.Context) error {
	err := a.SessionService.Teardown(ctx)
	if closer, ok := a.Storage.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			a.logger.Warn("close storage failed", slog.String("error", cerr.Error()))
		}
	}
	return err
}
