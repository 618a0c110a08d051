package redis

import (
	"context"
	"errors"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client  *redis.Client
	profile string
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	profile := cfg.Profile
	if profile == "" {
		profile = DefaultConfig().Profile
	}
	return &Storage{
		client:  client,
		profile: profile,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Auth state

func (s *Storage) SaveToken(ctx context.Context, token string) error {
	return s.client.Set(ctx, tokenKey(s.profile), token, 0).Err()
}

func (s *Storage) GetToken(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey(s.profile)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrNotFound
		}
		return "", err
	}
	return token, nil
}

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	return s.setJSON(ctx, userKey(s.profile), user)
}

func (s *Storage) GetUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := s.getJSON(ctx, userKey(s.profile), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) SaveSelectedGroup(ctx context.Context, group *model.Group) error {
	return s.setJSON(ctx, selectedGroupKey(s.profile), group)
}

func (s *Storage) GetSelectedGroup(ctx context.Context) (*model.Group, error) {
	var group model.Group
	if err := s.getJSON(ctx, selectedGroupKey(s.profile), &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *Storage) DeleteSelectedGroup(ctx context.Context) error {
	return s.client.Del(ctx, selectedGroupKey(s.profile)).Err()
}

func (s *Storage) ClearAuth(ctx context.Context) error {
	// Single DEL so no partial auth state survives
	return s.client.Del(ctx,
		tokenKey(s.profile),
		userKey(s.profile),
		selectedGroupKey(s.profile),
	).Err()
}

// Preferences

func (s *Storage) SaveNonMemberDisplay(ctx context.Context, mode model.NonMemberDisplay) error {
	return s.client.Set(ctx, nonMemberDisplayKey(s.profile), string(mode), 0).Err()
}

func (s *Storage) GetNonMemberDisplay(ctx context.Context) (model.NonMemberDisplay, error) {
	mode, err := s.client.Get(ctx, nonMemberDisplayKey(s.profile)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrNotFound
		}
		return "", err
	}
	return model.NonMemberDisplay(mode), nil
}

// Rating cache

func (s *Storage) PutRatingEntries(ctx context.Context, entries map[string]model.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]any, 0, len(entries)*2)
	for username, entry := range entries {
		data, err := go_json.Marshal(entry)
		if err != nil {
			return err
		}
		values = append(values, username, string(data))
	}

	return s.client.HSet(ctx, ratingCacheKey(s.profile), values...).Err()
}

func (s *Storage) GetRatingCache(ctx context.Context) (map[string]model.CacheEntry, error) {
	raw, err := s.client.HGetAll(ctx, ratingCacheKey(s.profile)).Result()
	if err != nil {
		return nil, err
	}

	cache := make(map[string]model.CacheEntry, len(raw))
	for username, data := range raw {
		var entry model.CacheEntry
		if err := go_json.Unmarshal([]byte(data), &entry); err != nil {
			continue // Skip invalid data
		}
		cache[username] = entry
	}
	return cache, nil
}

func (s *Storage) setJSON(ctx context.Context, key string, v any) error {
	data, err := go_json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *Storage) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.ErrNotFound
		}
		return err
	}
	return go_json.Unmarshal(data, v)
}
