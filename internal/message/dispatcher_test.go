package message_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/cfratings/internal/community"
	"github.com/mcoot/cfratings/internal/dependencies/mocks"
	"github.com/mcoot/cfratings/internal/message"
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/services/session"
	"github.com/mcoot/cfratings/internal/storage/memory"
	"github.com/mcoot/cfratings/internal/testutil"
	"github.com/mcoot/cfratings/internal/testutil/fakeapi"
)

type DispatcherSuite struct {
	suite.Suite
	api        *fakeapi.Server
	dispatcher *message.Dispatcher
	ctx        context.Context
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.api = fakeapi.New(s.T())
	s.api.AddUser(model.User{ID: 1, Username: "alice"}, "pw")
	s.api.AddGroup(model.Group{ID: 3, Name: "Club"},
		model.GroupMember{UserID: 1, CFHandle: "alice", Rating: model.IntPtr(1550)})

	svc := session.New(
		memory.New(),
		community.NewClient(community.Config{BaseURL: s.api.URL}),
		mocks.NewMockClock(time.Unix(1000, 0)),
		testutil.NopLogger(),
		nil,
	)
	s.ctx = context.Background()
	s.Require().NoError(svc.Init(s.ctx))
	s.dispatcher = message.NewDispatcher(svc, testutil.NopLogger())
}

func (s *DispatcherSuite) TestLoginSuccess() {
	out, err := s.dispatcher.Handle(s.ctx, message.Request{Action: message.ActionLogin, Username: "alice", Password: "pw"})
	s.Require().NoError(err)

	res := out.(message.Result[*model.User])
	s.True(res.OK)
	s.Equal("alice", res.Value.Username)
}

func (s *DispatcherSuite) TestLoginFailureIsResultNotError() {
	out, err := s.dispatcher.Handle(s.ctx, message.Request{Action: message.ActionLogin, Username: "alice", Password: "nope"})
	s.Require().NoError(err)

	res := out.(message.Result[*model.User])
	s.False(res.OK)
	s.ErrorIs(res.Err(), model.ErrInvalidCredentials)
}

func (s *DispatcherSuite) TestLogoutAlwaysSucceeds() {
	out, err := s.dispatcher.Handle(s.ctx, message.Request{Action: message.ActionLogout})
	s.Require().NoError(err)
	s.True(out.(message.Result[bool]).OK)
}

func (s *DispatcherSuite) TestGetAuthState() {
	out, err := s.dispatcher.Handle(s.ctx, message.Request{Action: message.ActionGetAuthState})
	s.Require().NoError(err)

	res := out.(message.Result[model.AuthSnapshot])
	s.True(res.OK)
	s.False(res.Value.IsAuthenticated)
}

func (s *DispatcherSuite) TestSelectGroupThenFetch() {
	_, err := s.dispatcher.Login(s.ctx, "alice", "pw")
	s.Require().NoError(err)

	out, err := s.dispatcher.Handle(s.ctx, message.Request{
		Action: message.ActionSetSelectedGroup,
		Group:  &model.Group{ID: 3, Name: "Club"},
	})
	s.Require().NoError(err)
	s.True(out.(message.Result[bool]).OK)

	state, err := s.dispatcher.GetAuthState(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.GroupID(3), state.SelectedGroup.ID)

	out, err = s.dispatcher.Handle(s.ctx, message.Request{
		Action:    message.ActionFetchUserRatings,
		Usernames: []string{"alice", "bob"},
		GroupID:   3,
	})
	s.Require().NoError(err)
	res := out.(message.Result[[]model.UserRating])
	s.Require().True(res.OK)
	s.Equal(1550, *res.Value[0].Rating)
	s.Nil(res.Value[1].Rating)
}

func (s *DispatcherSuite) TestFetchWithoutGroupCarriesMessage() {
	_, err := s.dispatcher.Login(s.ctx, "alice", "pw")
	s.Require().NoError(err)

	out, err := s.dispatcher.Handle(s.ctx, message.Request{Action: message.ActionFetchUserRatings, Usernames: []string{"alice"}})
	s.Require().NoError(err)

	res := out.(message.Result[[]model.UserRating])
	s.False(res.OK)
	s.Equal("No group selected", res.Error)
}

func (s *DispatcherSuite) TestListGroups() {
	_, err := s.dispatcher.Login(s.ctx, "alice", "pw")
	s.Require().NoError(err)

	groups, err := s.dispatcher.ListGroups(s.ctx)
	s.Require().NoError(err)
	s.Len(groups, 1)
}

func (s *DispatcherSuite) TestUnknownAction() {
	_, err := s.dispatcher.Handle(s.ctx, message.Request{Action: "explode"})
	s.ErrorIs(err, message.ErrUnknownAction)
}
