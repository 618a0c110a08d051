// Package session is the background session proxy: the only owner of the
// community API token and the selected group.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mcoot/cfratings/internal/community"
	"github.com/mcoot/cfratings/internal/dependencies/clock"
	"github.com/mcoot/cfratings/internal/metrics"
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/storage"
)

// API is the part of the community REST API the session proxy uses
type API interface {
	Login(ctx context.Context, username, password string) (*community.LoginResponse, error)
	GetUser(ctx context.Context, token string, id model.UserID) (*model.User, error)
	ListGroups(ctx context.Context, token string) ([]model.Group, error)
	GroupMembers(ctx context.Context, token string, groupID model.GroupID) ([]model.GroupMember, error)
}

// Service holds the authentication state in memory and mirrors every
// mutation to storage
type Service struct {
	storage storage.Storage
	api     API
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Manager

	mu    sync.RWMutex
	state model.AuthState

	memberFetches singleflight.Group
}

// New creates a session service. Call Init before use.
func New(store storage.Storage, api API, clk clock.Clock, logger *slog.Logger, m *metrics.Manager) *Service {
	return &Service{
		storage: store,
		api:     api,
		clock:   clk,
		logger:  logger,
		metrics: m,
	}
}

// Init rehydrates the in-memory state from storage
func (s *Service) Init(ctx context.Context) error {
	token, err := s.storage.GetToken(ctx)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("load token: %w", err)
	}
	user, err := s.storage.GetUser(ctx)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("load user: %w", err)
	}
	group, err := s.storage.GetSelectedGroup(ctx)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("load selected group: %w", err)
	}

	s.mu.Lock()
	s.state = model.AuthState{
		Token:           token,
		User:            user,
		IsAuthenticated: token != "",
		SelectedGroup:   group,
	}
	s.mu.Unlock()

	s.logger.Info("session initialized",
		slog.Bool("authenticated", token != ""),
		slog.Bool("group_selected", group != nil),
	)
	return nil
}

// Teardown drops the in-memory state. Persisted state is kept so the next
// Init picks it up again.
func (s *Service) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.state = model.AuthState{}
	s.mu.Unlock()

	s.logger.Info("session torn down")
	return nil
}

// Login authenticates against the community API and loads the user's
// profile. Either both token and profile are stored, or all auth state is
// cleared.
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, error) {
	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.failLogin(ctx, "login request failed", err)
		if errors.Is(err, community.ErrUnauthorized) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	// The token is published only together with IsAuthenticated
	user, err := s.api.GetUser(ctx, resp.AccessToken, resp.UserID)
	if err != nil {
		s.failLogin(ctx, "profile fetch failed", err)
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	if err := s.storage.SaveToken(ctx, resp.AccessToken); err != nil {
		s.failLogin(ctx, "persist token failed", err)
		return nil, fmt.Errorf("persist token: %w", err)
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		s.failLogin(ctx, "persist user failed", err)
		return nil, fmt.Errorf("persist user: %w", err)
	}

	s.mu.Lock()
	s.state.Token = resp.AccessToken
	s.state.User = user
	s.state.IsAuthenticated = true
	s.mu.Unlock()

	s.metrics.Login(metrics.ResultSuccess)
	s.logger.Info("login succeeded", slog.Int64("user_id", int64(user.ID)))

	u := *user
	return &u, nil
}

// Logout clears all auth state. It always succeeds.
func (s *Service) Logout(ctx context.Context) {
	s.clear(ctx)
	s.logger.Info("logged out")
}

// AuthState returns a snapshot of the auth state without the token
func (s *Service) AuthState() model.AuthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Snapshot()
}

// SetSelectedGroup replaces the selected group. A nil group clears it.
// The group is not validated against the API.
func (s *Service) SetSelectedGroup(ctx context.Context, group *model.Group) error {
	var stored *model.Group
	if group != nil {
		g := *group
		stored = &g
	}

	s.mu.Lock()
	s.state.SelectedGroup = stored
	s.mu.Unlock()

	if stored == nil {
		return s.storage.DeleteSelectedGroup(ctx)
	}
	return s.storage.SaveSelectedGroup(ctx, stored)
}

// ListGroups returns the groups the logged-in user can select
func (s *Service) ListGroups(ctx context.Context) ([]model.Group, error) {
	token := s.token()
	if token == "" {
		return nil, model.ErrNotAuthenticated
	}

	groups, err := s.api.ListGroups(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FetchUserRatings looks up the group ratings of usernames. Users that are
// not members of the group get a nil rating. Preconditions are checked
// before any network call.
func (s *Service) FetchUserRatings(ctx context.Context, usernames []string, groupID model.GroupID) ([]model.UserRating, error) {
	token := s.token()
	if token == "" {
		return nil, model.ErrNotAuthenticated
	}
	if groupID == 0 {
		return nil, model.ErrNoGroupSelected
	}
	if len(usernames) == 0 {
		return []model.UserRating{}, nil
	}

	members, err := s.groupMembers(ctx, token, groupID)
	if err != nil {
		s.metrics.RatingFetch(metrics.ResultFailure, len(usernames))
		s.logger.Warn("rating fetch failed",
			slog.Int64("group_id", int64(groupID)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("fetch ratings: %w", err)
	}
	s.metrics.RatingFetch(metrics.ResultSuccess, len(usernames))

	// Host handles are case-insensitive
	byHandle := make(map[string]*int, len(members))
	for _, m := range members {
		byHandle[strings.ToLower(m.CFHandle)] = m.Rating
	}

	now := clock.NowMillis(s.clock)
	seen := make(map[string]struct{}, len(usernames))
	results := make([]model.UserRating, 0, len(usernames))
	for _, username := range usernames {
		if _, ok := seen[username]; ok {
			continue
		}
		seen[username] = struct{}{}

		var r *int
		if rating, ok := byHandle[strings.ToLower(username)]; ok && rating != nil {
			v := *rating
			r = &v
		}
		results = append(results, model.UserRating{
			Username:  username,
			Rating:    r,
			Timestamp: now,
		})
	}
	return results, nil
}

// groupMembers shares one API call between concurrent lookups for the same
// group and token. The shared call outlives any single caller's cancellation;
// each caller stops waiting when its own ctx is done.
func (s *Service) groupMembers(ctx context.Context, token string, groupID model.GroupID) ([]model.GroupMember, error) {
	key := strconv.FormatInt(int64(groupID), 10) + ":" + token
	ch := s.memberFetches.DoChan(key, func() (any, error) {
		return s.api.GroupMembers(context.WithoutCancel(ctx), token, groupID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.GroupMember), nil
	}
}

func (s *Service) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

func (s *Service) failLogin(ctx context.Context, msg string, err error) {
	s.metrics.Login(metrics.ResultFailure)
	s.logger.Warn(msg, slog.String("error", err.Error()))
	s.clear(ctx)
}

// clear resets memory and storage to the logged-out state
func (s *Service) clear(ctx context.Context) {
	s.mu.Lock()
	s.state = model.AuthState{}
	s.mu.Unlock()

	if err := s.storage.ClearAuth(ctx); err != nil {
		s.logger.Error("clear persisted auth failed", slog.String("error", err.Error()))
	}
}
