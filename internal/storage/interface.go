package storage

import (
	"context"

	"github.com/mcoot/cfratings/internal/model"
)

// Persisted keys, named after the browser extension's local storage keys
const (
	KeyToken            = "token"
	KeyUser             = "user"
	KeySelectedGroup    = "selectedGroup"
	KeyNonMemberDisplay = "nonMemberDisplay"
	KeyRatingCache      = "ratingCache"
)

// Storage is the durable key-value state of one user profile.
// Writes are last-write-wins. Missing keys return model.ErrNotFound.
type Storage interface {
	// Auth state
	SaveToken(ctx context.Context, token string) error
	GetToken(ctx context.Context) (string, error)
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context) (*model.User, error)
	SaveSelectedGroup(ctx context.Context, group *model.Group) error
	GetSelectedGroup(ctx context.Context) (*model.Group, error)
	DeleteSelectedGroup(ctx context.Context) error

	// ClearAuth removes token, user and selected group together
	ClearAuth(ctx context.Context) error

	// Preferences
	SaveNonMemberDisplay(ctx context.Context, mode model.NonMemberDisplay) error
	GetNonMemberDisplay(ctx context.Context) (model.NonMemberDisplay, error)

	// Rating cache. PutRatingEntries overwrites the given usernames and
	// leaves every other entry in place.
	PutRatingEntries(ctx context.Context, entries map[string]model.CacheEntry) error
	GetRatingCache(ctx context.Context) (map[string]model.CacheEntry, error)
}
