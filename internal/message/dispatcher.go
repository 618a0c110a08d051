package message

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/cfratings/internal/model"
)

// Session is the session proxy operations the dispatcher routes to
type Session interface {
	Login(ctx context.Context, username, password string) (*model.User, error)
	Logout(ctx context.Context)
	AuthState() model.AuthSnapshot
	SetSelectedGroup(ctx context.Context, group *model.Group) error
	ListGroups(ctx context.Context) ([]model.Group, error)
	FetchUserRatings(ctx context.Context, usernames []string, groupID model.GroupID) ([]model.UserRating, error)
}

// Dispatcher routes requests to the session proxy
type Dispatcher struct {
	session Session
	logger  *slog.Logger
}

var _ Proxy = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher over session
func NewDispatcher(session Session, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		session: session,
		logger:  logger,
	}
}

// Handle runs req and returns its Result. Operation failures are carried in
// the Result; the error is only set for an unknown action.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (any, error) {
	d.logger.Debug("message received", slog.String("action", string(req.Action)))

	switch req.Action {
	case ActionLogin:
		user, err := d.session.Login(ctx, req.Username, req.Password)
		return result(user, err), nil
	case ActionLogout:
		d.session.Logout(ctx)
		return OK(true), nil
	case ActionGetAuthState:
		return OK(d.session.AuthState()), nil
	case ActionSetSelectedGroup:
		return result(true, d.session.SetSelectedGroup(ctx, req.Group)), nil
	case ActionListGroups:
		groups, err := d.session.ListGroups(ctx)
		return result(groups, err), nil
	case ActionFetchUserRatings:
		ratings, err := d.session.FetchUserRatings(ctx, req.Usernames, req.GroupID)
		return result(ratings, err), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func result[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return OK(v)
}

// Login logs in through the session proxy
func (d *Dispatcher) Login(ctx context.Context, username, password string) (*model.User, error) {
	return d.session.Login(ctx, username, password)
}

// Logout always succeeds
func (d *Dispatcher) Logout(ctx context.Context) error {
	d.session.Logout(ctx)
	return nil
}

// GetAuthState returns the current auth snapshot
func (d *Dispatcher) GetAuthState(_ context.Context) (model.AuthSnapshot, error) {
	return d.session.AuthState(), nil
}

// SetSelectedGroup replaces the selected group
func (d *Dispatcher) SetSelectedGroup(ctx context.Context, group *model.Group) error {
	return d.session.SetSelectedGroup(ctx, group)
}

// ListGroups returns the selectable groups
func (d *Dispatcher) ListGroups(ctx context.Context) ([]model.Group, error) {
	return d.session.ListGroups(ctx)
}

// FetchUserRatings looks up group ratings for usernames
func (d *Dispatcher) FetchUserRatings(ctx context.Context, usernames []string, groupID model.GroupID) ([]model.UserRating, error) {
	return d.session.FetchUserRatings(ctx, usernames, groupID)
}
