package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	token            *string
	user             *model.User
	selectedGroup    *model.Group
	nonMemberDisplay *model.NonMemberDisplay
	ratingCache      map[string]model.CacheEntry
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		ratingCache: make(map[string]model.CacheEntry),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Auth state

func (s *Storage) SaveToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &token
	return nil
}

func (s *Storage) GetToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return "", model.ErrNotFound
	}
	return *s.token, nil
}

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.user = &u
	return nil
}

func (s *Storage) GetUser(ctx context.Context) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, model.ErrNotFound
	}
	u := *s.user
	return &u, nil
}

func (s *Storage) SaveSelectedGroup(ctx context.Context, group *model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := *group
	s.selectedGroup = &g
	return nil
}

func (s *Storage) GetSelectedGroup(ctx context.Context) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedGroup == nil {
		return nil, model.ErrNotFound
	}
	g := *s.selectedGroup
	return &g, nil
}

func (s *Storage) DeleteSelectedGroup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedGroup = nil
	return nil
}

func (s *Storage) ClearAuth(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	s.user = nil
	s.selectedGroup = nil
	return nil
}

// Preferences

func (s *Storage) SaveNonMemberDisplay(ctx context.Context, mode model.NonMemberDisplay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonMemberDisplay = &mode
	return nil
}

func (s *Storage) GetNonMemberDisplay(ctx context.Context) (model.NonMemberDisplay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.nonMemberDisplay == nil {
		return "", model.ErrNotFound
	}
	return *s.nonMemberDisplay, nil
}

// Rating cache

func (s *Storage) PutRatingEntries(ctx context.Context, entries map[string]model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.ratingCache, entries)
	return nil
}

func (s *Storage) GetRatingCache(ctx context.Context) (map[string]model.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.ratingCache), nil
}
