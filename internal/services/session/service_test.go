package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cfratings/internal/community"
	"github.com/mcoot/cfratings/internal/dependencies/mocks"
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/services/session"
	"github.com/mcoot/cfratings/internal/storage/memory"
	"github.com/mcoot/cfratings/internal/testutil"
	"github.com/mcoot/cfratings/internal/testutil/fakeapi"
)

type ServiceSuite struct {
	suite.Suite
	api     *fakeapi.Server
	storage *memory.Storage
	clock   *mocks.MockClock
	service *session.Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.api = fakeapi.New(s.T())
	s.api.AddUser(model.User{ID: 1, Username: "alice", CFHandle: "alice"}, "secret123")
	s.api.AddGroup(model.Group{ID: 10, Name: "Club"},
		model.GroupMember{UserID: 1, CFHandle: "alice", Rating: model.IntPtr(1550)},
		model.GroupMember{UserID: 3, CFHandle: "Carol", Rating: model.IntPtr(2450)},
		model.GroupMember{UserID: 4, CFHandle: "dave", Rating: nil},
	)

	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ctx = context.Background()
	s.service = s.newService()
	s.Require().NoError(s.service.Init(s.ctx))
}

func (s *ServiceSuite) newService() *session.Service {
	client := community.NewClient(community.Config{BaseURL: s.api.URL})
	return session.New(s.storage, client, s.clock, testutil.NopLogger(), nil)
}

func (s *ServiceSuite) login() {
	_, err := s.service.Login(s.ctx, "alice", "secret123")
	s.Require().NoError(err)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	user, err := s.service.Login(s.ctx, "alice", "secret123")
	s.Require().NoError(err)
	s.Equal("alice", user.Username)

	state := s.service.AuthState()
	s.True(state.IsAuthenticated)
	s.Equal(model.UserID(1), state.User.ID)
}

func (s *ServiceSuite) TestLoginPersistsTokenAndUser() {
	s.login()

	token, err := s.storage.GetToken(s.ctx)
	s.Require().NoError(err)
	s.NotEmpty(token)

	user, err := s.storage.GetUser(s.ctx)
	s.Require().NoError(err)
	s.Equal("alice", user.Username)
}

func (s *ServiceSuite) TestLoginFetchesProfileWithToken() {
	s.login()
	s.Equal(1, s.api.Requests(community.PathLogin))
	s.Equal(1, s.api.Requests(community.PathUser))
}

func (s *ServiceSuite) TestLoginWrongPasswordClearsState() {
	s.login()
	_ = s.service.SetSelectedGroup(s.ctx, &model.Group{ID: 10, Name: "Club"})

	_, err := s.service.Login(s.ctx, "alice", "wrong")
	s.ErrorIs(err, model.ErrInvalidCredentials)

	s.False(s.service.AuthState().IsAuthenticated)
	_, err = s.storage.GetToken(s.ctx)
	s.ErrorIs(err, model.ErrNotFound)
	_, err = s.storage.GetUser(s.ctx)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *ServiceSuite) TestLoginProfileFailureLeavesNoPartialState() {
	s.api.Fail(community.PathUser, http.StatusInternalServerError)

	_, err := s.service.Login(s.ctx, "alice", "secret123")
	s.Require().Error(err)

	state := s.service.AuthState()
	s.False(state.IsAuthenticated)
	s.Nil(state.User)
	_, err = s.storage.GetToken(s.ctx)
	s.ErrorIs(err, model.ErrNotFound)
	_, err = s.storage.GetUser(s.ctx)
	s.ErrorIs(err, model.ErrNotFound)

	// The in-memory token is gone too
	_, err = s.service.FetchUserRatings(s.ctx, []string{"alice"}, 10)
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *ServiceSuite) TestLoginNetworkFailureClearsState() {
	s.api.Close()

	_, err := s.service.Login(s.ctx, "alice", "secret123")
	s.Require().Error(err)
	s.NotErrorIs(err, model.ErrInvalidCredentials)
	s.False(s.service.AuthState().IsAuthenticated)
}

// Logout tests

func (s *ServiceSuite) TestLogoutClearsMemoryAndStorage() {
	s.login()
	_ = s.service.SetSelectedGroup(s.ctx, &model.Group{ID: 10})

	s.service.Logout(s.ctx)

	state := s.service.AuthState()
	s.False(state.IsAuthenticated)
	s.Nil(state.User)
	s.Nil(state.SelectedGroup)
	_, err := s.storage.GetToken(s.ctx)
	s.ErrorIs(err, model.ErrNotFound)
	_, err = s.storage.GetSelectedGroup(s.ctx)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *ServiceSuite) TestLogoutIsIdempotent() {
	s.service.Logout(s.ctx)
	s.service.Logout(s.ctx)
	s.False(s.service.AuthState().IsAuthenticated)
}

// AuthState tests

func (s *ServiceSuite) TestAuthStateDoesNotTouchNetwork() {
	s.login()
	before := s.api.TotalRequests()

	_ = s.service.AuthState()

	s.Equal(before, s.api.TotalRequests())
}

// Init / Teardown tests

func (s *ServiceSuite) TestInitRehydratesPersistedState() {
	s.login()
	_ = s.service.SetSelectedGroup(s.ctx, &model.Group{ID: 10, Name: "Club"})

	restarted := s.newService()
	s.Require().NoError(restarted.Init(s.ctx))

	state := restarted.AuthState()
	s.True(state.IsAuthenticated)
	s.Equal("alice", state.User.Username)
	s.Equal(model.GroupID(10), state.SelectedGroup.ID)

	ratings, err := restarted.FetchUserRatings(s.ctx, []string{"alice"}, 10)
	s.Require().NoError(err)
	s.Equal(1550, *ratings[0].Rating)
}

func (s *ServiceSuite) TestTeardownKeepsPersistedState() {
	s.login()

	s.Require().NoError(s.service.Teardown(s.ctx))
	s.False(s.service.AuthState().IsAuthenticated)

	_, err := s.storage.GetToken(s.ctx)
	s.NoError(err)
}

// SetSelectedGroup tests

func (s *ServiceSuite) TestSetSelectedGroupPersists() {
	err := s.service.SetSelectedGroup(s.ctx, &model.Group{ID: 99, Name: "Unknown"})
	s.Require().NoError(err)

	s.Equal(model.GroupID(99), s.service.AuthState().SelectedGroup.ID)
	stored, err := s.storage.GetSelectedGroup(s.ctx)
	s.Require().NoError(err)
	s.Equal("Unknown", stored.Name)
}

func (s *ServiceSuite) TestSetSelectedGroupNilClears() {
	_ = s.service.SetSelectedGroup(s.ctx, &model.Group{ID: 1})

	s.Require().NoError(s.service.SetSelectedGroup(s.ctx, nil))

	s.Nil(s.service.AuthState().SelectedGroup)
	_, err := s.storage.GetSelectedGroup(s.ctx)
	s.ErrorIs(err, model.ErrNotFound)
}

// ListGroups tests

func (s *ServiceSuite) TestListGroupsRequiresAuth() {
	_, err := s.service.ListGroups(s.ctx)
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *ServiceSuite) TestListGroups() {
	s.login()
	groups, err := s.service.ListGroups(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.Group{{ID: 10, Name: "Club"}}, groups)
}

// FetchUserRatings tests

func (s *ServiceSuite) TestFetchUserRatingsRequiresAuth() {
	_, err := s.service.FetchUserRatings(s.ctx, []string{"alice"}, 10)
	s.ErrorIs(err, model.ErrNotAuthenticated)
	s.EqualError(err, "Not authenticated")
	s.Equal(0, s.api.TotalRequests())
}

func (s *ServiceSuite) TestFetchUserRatingsRequiresGroup() {
	s.login()
	before := s.api.TotalRequests()

	_, err := s.service.FetchUserRatings(s.ctx, []string{"alice"}, 0)
	s.ErrorIs(err, model.ErrNoGroupSelected)
	s.EqualError(err, "No group selected")
	s.Equal(before, s.api.TotalRequests())
}

func (s *ServiceSuite) TestFetchUserRatingsEmptyMakesNoCall() {
	s.login()
	before := s.api.TotalRequests()

	ratings, err := s.service.FetchUserRatings(s.ctx, nil, 10)
	s.Require().NoError(err)
	s.NotNil(ratings)
	s.Empty(ratings)
	s.Equal(before, s.api.TotalRequests())
}

func (s *ServiceSuite) TestFetchUserRatingsMapsMembers() {
	s.login()

	ratings, err := s.service.FetchUserRatings(s.ctx, []string{"alice", "bob", "carol", "dave", "alice"}, 10)
	s.Require().NoError(err)
	s.Require().Len(ratings, 4)

	s.Equal("alice", ratings[0].Username)
	s.Equal(1550, *ratings[0].Rating)
	s.Equal("bob", ratings[1].Username)
	s.Nil(ratings[1].Rating)
	s.Equal("carol", ratings[2].Username)
	s.Equal(2450, *ratings[2].Rating)
	s.Nil(ratings[3].Rating)

	for _, r := range ratings {
		s.Equal(s.clock.Now().UnixMilli(), r.Timestamp)
	}
}

func (s *ServiceSuite) TestFetchUserRatingsExpiredTokenSurfacesError() {
	s.login()
	s.api.RevokeTokens()

	_, err := s.service.FetchUserRatings(s.ctx, []string{"alice"}, 10)
	s.ErrorIs(err, community.ErrUnauthorized)
	// Expiry is not detected locally
	s.True(s.service.AuthState().IsAuthenticated)
}

type ratingsResult struct {
	ratings []model.UserRating
	err     error
}

func (s *ServiceSuite) fetchAsync(ctx context.Context) <-chan ratingsResult {
	out := make(chan ratingsResult, 1)
	go func() {
		ratings, err := s.service.FetchUserRatings(ctx, []string{"alice"}, 10)
		out <- ratingsResult{ratings: ratings, err: err}
	}()
	return out
}

func (s *ServiceSuite) waitForMemberRequests(n int) {
	s.Require().Eventually(func() bool {
		return s.api.Requests(community.PathGroupMembers) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func (s *ServiceSuite) TestFetchUserRatingsCollapsesConcurrentCallers() {
	s.login()
	release := s.api.Hold(community.PathGroupMembers)
	defer release()

	const callers = 8
	results := make([]<-chan ratingsResult, 0, callers)
	results = append(results, s.fetchAsync(s.ctx))
	s.waitForMemberRequests(1)
	for i := 1; i < callers; i++ {
		results = append(results, s.fetchAsync(s.ctx))
	}
	// Let the later callers reach the in-flight lookup
	time.Sleep(50 * time.Millisecond)
	release()

	for _, ch := range results {
		res := <-ch
		s.Require().NoError(res.err)
		s.Require().Len(res.ratings, 1)
		s.Equal(1550, *res.ratings[0].Rating)
	}
	s.Equal(1, s.api.Requests(community.PathGroupMembers))
}

func (s *ServiceSuite) TestFetchUserRatingsCancelledCallerDoesNotFailOthers() {
	s.login()
	release := s.api.Hold(community.PathGroupMembers)
	defer release()

	firstCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	first := s.fetchAsync(firstCtx)
	s.waitForMemberRequests(1)

	second := s.fetchAsync(s.ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()

	s.ErrorIs((<-first).err, context.Canceled)

	release()
	res := <-second
	s.Require().NoError(res.err)
	s.Require().Len(res.ratings, 1)
	s.Equal(1550, *res.ratings[0].Rating)
	s.Equal(1, s.api.Requests(community.PathGroupMembers))
}

func (s *ServiceSuite) TestFetchUserRatingsAfterReloginDoesNotShareOldLookup() {
	s.login()
	release := s.api.Hold(community.PathGroupMembers)
	defer release()

	first := s.fetchAsync(s.ctx)
	s.waitForMemberRequests(1)

	s.service.Logout(s.ctx)
	s.login()
	second := s.fetchAsync(s.ctx)
	s.waitForMemberRequests(2)

	release()
	s.NoError((<-first).err)
	s.NoError((<-second).err)
}

func (s *ServiceSuite) TestLoginHidesTokenUntilProfileLoaded() {
	release := s.api.Hold(community.PathUser)
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := s.service.Login(s.ctx, "alice", "secret123")
		done <- err
	}()
	s.Require().Eventually(func() bool {
		return s.api.Requests(community.PathUser) == 1
	}, 2*time.Second, 5*time.Millisecond)

	s.False(s.service.AuthState().IsAuthenticated)
	_, err := s.service.FetchUserRatings(s.ctx, []string{"alice"}, 10)
	s.ErrorIs(err, model.ErrNotAuthenticated)
	_, err = s.service.ListGroups(s.ctx)
	s.ErrorIs(err, model.ErrNotAuthenticated)
	s.Equal(0, s.api.Requests(community.PathGroupMembers))

	release()
	s.Require().NoError(<-done)
	s.True(s.service.AuthState().IsAuthenticated)
}
