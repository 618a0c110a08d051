// Package message is the request/response protocol between the overlay,
// the popup and the session proxy.
package message

import (
	"context"
	"errors"

	go_json "github.com/goccy/go-json"

	"github.com/mcoot/cfratings/internal/model"
)

// Action names a session proxy operation
type Action string

const (
	ActionLogin            Action = "login"
	ActionLogout           Action = "logout"
	ActionGetAuthState     Action = "getAuthState"
	ActionSetSelectedGroup Action = "setSelectedGroup"
	ActionFetchUserRatings Action = "fetchUserRatings"
	ActionListGroups       Action = "listGroups"
)

// Path is where the message endpoint is mounted
const Path = "/api/v1/messages"

// ErrUnknownAction is returned for an action the proxy does not handle
var ErrUnknownAction = errors.New("unknown action")

// Request is the envelope sent to the session proxy. Only the fields of
// the named action are read.
type Request struct {
	Action    Action        `json:"action"`
	Username  string        `json:"username,omitempty"`
	Password  string        `json:"password,omitempty"`
	Group     *model.Group  `json:"group,omitempty"`
	Usernames []string      `json:"usernames,omitempty"`
	GroupID   model.GroupID `json:"groupId,omitempty"`
}

// Result is either {ok: true, value} or {ok: false, error}
type Result[T any] struct {
	OK    bool
	Value T
	Error string
}

// OK wraps a successful value
func OK[T any](v T) Result[T] {
	return Result[T]{OK: true, Value: v}
}

// Fail wraps an error
func Fail[T any](err error) Result[T] {
	return Result[T]{Error: err.Error()}
}

type okEnvelope[T any] struct {
	OK    bool `json:"ok"`
	Value T    `json:"value"`
}

type errEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// MarshalJSON emits only the fields of the active variant
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.OK {
		return go_json.Marshal(okEnvelope[T]{OK: true, Value: r.Value})
	}
	return go_json.Marshal(errEnvelope{Error: r.Error})
}

// UnmarshalJSON decodes either variant
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		OK    bool               `json:"ok"`
		Value go_json.RawMessage `json:"value"`
		Error string             `json:"error"`
	}
	if err := go_json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Result[T]{OK: raw.OK, Error: raw.Error}
	if raw.OK && len(raw.Value) > 0 {
		return go_json.Unmarshal(raw.Value, &r.Value)
	}
	return nil
}

// Err returns nil for a success, otherwise the error. Known precondition
// and auth messages come back as their model sentinels.
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	for _, sentinel := range []error{
		model.ErrNotAuthenticated,
		model.ErrNoGroupSelected,
		model.ErrInvalidCredentials,
	} {
		if r.Error == sentinel.Error() {
			return sentinel
		}
	}
	return errors.New(r.Error)
}

// Proxy is the session proxy as seen by its callers. Dispatcher serves it
// in-process and Client over HTTP.
type Proxy interface {
	Login(ctx context.Context, username, password string) (*model.User, error)
	Logout(ctx context.Context) error
	GetAuthState(ctx context.Context) (model.AuthSnapshot, error)
	SetSelectedGroup(ctx context.Context, group *model.Group) error
	ListGroups(ctx context.Context) ([]model.Group, error)
	FetchUserRatings(ctx context.Context, usernames []string, groupID model.GroupID) ([]model.UserRating, error)
}
