// Package metrics exposes Prometheus counters for the session proxy and overlay engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"

	CacheFresh = "fresh"
	CacheStale = "stale"

	OutcomeRated     = "rated"
	OutcomeNonMember = "non_member"
	OutcomeUntouched = "untouched"

	RunApplied     = "applied"
	RunForeignHost = "foreign_host"
	RunNoSession   = "no_session"
	RunFetchFailed = "fetch_failed"
)

// Option applies a configuration option to the Manager
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on r instead of a fresh registry
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// Manager owns the metric collectors and their registry.
// A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	logins           *prometheus.CounterVec
	ratingFetches    *prometheus.CounterVec
	ratingsRequested prometheus.Counter
	cacheLookups     *prometheus.CounterVec
	overlayElements  *prometheus.CounterVec
	overlayRuns      *prometheus.CounterVec
}

// New creates a Manager with its collectors registered
func New(opts ...Option) *Manager {
	m := &Manager{
		namespace: "cfratings",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "session",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})
	m.ratingFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "session",
		Name:      "rating_fetches_total",
		Help:      "Batch rating fetches against the community API by result.",
	}, []string{"result"})
	m.ratingsRequested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "session",
		Name:      "ratings_requested_total",
		Help:      "Usernames sent in batch rating fetches.",
	})
	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Rating cache lookups by freshness.",
	}, []string{"state"})
	m.overlayElements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "overlay",
		Name:      "elements_total",
		Help:      "Rated-user elements processed by outcome.",
	}, []string{"outcome"})
	m.overlayRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "overlay",
		Name:      "runs_total",
		Help:      "Overlay passes by result.",
	}, []string{"result"})

	m.registry.MustRegister(
		m.logins,
		m.ratingFetches,
		m.ratingsRequested,
		m.cacheLookups,
		m.overlayElements,
		m.overlayRuns,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Login records a login attempt
func (m *Manager) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// RatingFetch records a batch fetch of n usernames
func (m *Manager) RatingFetch(result string, n int) {
	if m == nil {
		return
	}
	m.ratingFetches.WithLabelValues(result).Inc()
	m.ratingsRequested.Add(float64(n))
}

// CacheLookups records fresh and stale counts from one partition
func (m *Manager) CacheLookups(fresh, stale int) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(CacheFresh).Add(float64(fresh))
	m.cacheLookups.WithLabelValues(CacheStale).Add(float64(stale))
}

// OverlayElement records the outcome for one element
func (m *Manager) OverlayElement(outcome string) {
	if m == nil {
		return
	}
	m.overlayElements.WithLabelValues(outcome).Inc()
}

// OverlayRun records the result of one overlay pass
func (m *Manager) OverlayRun(result string) {
	if m == nil {
		return
	}
	m.overlayRuns.WithLabelValues(result).Inc()
}
