// Package ratingcache keeps per-username rating lookups between page loads
// so recently seen users are not fetched again.
package ratingcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/cfratings/internal/metrics"
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/storage"
)

// TTLMillis is how long an entry stays fresh
const TTLMillis int64 = 5 * 60 * 1000

// Fresh reports whether e is younger than the TTL at now (unix ms).
// An entry exactly TTLMillis old is stale.
func Fresh(e model.CacheEntry, now int64) bool {
	return now-e.Timestamp < TTLMillis
}

// Cache is an in-memory view of the persisted rating cache.
// Entries are only ever overwritten, never removed.
type Cache struct {
	storage storage.Storage
	logger  *slog.Logger
	metrics *metrics.Manager

	mu      sync.RWMutex
	entries map[string]model.CacheEntry
	dirty   map[string]struct{}
}

// New creates an empty cache backed by store
func New(store storage.Storage, logger *slog.Logger, m *metrics.Manager) *Cache {
	return &Cache{
		storage: store,
		logger:  logger,
		metrics: m,
		entries: make(map[string]model.CacheEntry),
		dirty:   make(map[string]struct{}),
	}
}

// Load replaces the in-memory entries with the persisted cache
func (c *Cache) Load(ctx context.Context) error {
	entries, err := c.storage.GetRatingCache(ctx)
	if err != nil {
		return fmt.Errorf("load rating cache: %w", err)
	}
	if entries == nil {
		entries = make(map[string]model.CacheEntry)
	}

	c.mu.Lock()
	c.entries = entries
	c.dirty = make(map[string]struct{})
	c.mu.Unlock()

	c.logger.Debug("rating cache loaded", slog.Int("entries", len(entries)))
	return nil
}

// Persist writes entries merged since the last Load or Persist
func (c *Cache) Persist(ctx context.Context) error {
	c.mu.Lock()
	if len(c.dirty) == 0 {
		c.mu.Unlock()
		return nil
	}
	changed := make(map[string]model.CacheEntry, len(c.dirty))
	for username := range c.dirty {
		changed[username] = c.entries[username]
	}
	c.dirty = make(map[string]struct{})
	c.mu.Unlock()

	if err := c.storage.PutRatingEntries(ctx, changed); err != nil {
		return fmt.Errorf("persist rating cache: %w", err)
	}
	return nil
}

// Get returns the entry for username
func (c *Cache) Get(username string) (model.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[username]
	return e, ok
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Partition splits usernames into those with a fresh entry and those that
// are missing or stale. Duplicates are dropped; order is preserved.
func (c *Cache) Partition(usernames []string, now int64) (fresh, stale []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{}, len(usernames))
	for _, username := range usernames {
		if _, ok := seen[username]; ok {
			continue
		}
		seen[username] = struct{}{}

		if e, ok := c.entries[username]; ok && Fresh(e, now) {
			fresh = append(fresh, username)
		} else {
			stale = append(stale, username)
		}
	}

	c.metrics.CacheLookups(len(fresh), len(stale))
	return fresh, stale
}

// Merge overwrites the entries for the given ratings
func (c *Cache) Merge(ratings []model.UserRating) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range ratings {
		var rating *int
		if r.Rating != nil {
			v := *r.Rating
			rating = &v
		}
		c.entries[r.Username] = model.CacheEntry{Rating: rating, Timestamp: r.Timestamp}
		c.dirty[r.Username] = struct{}{}
	}
}
