package message

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	go_json "github.com/goccy/go-json"

	"github.com/mcoot/cfratings/internal/model"
)

// Client sends requests to a remote session proxy. It sets no timeout of
// its own; callers bound the wait through ctx.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Proxy = (*Client)(nil)

// NewClient creates a client for the proxy at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// send posts req and decodes the result envelope into out
func send[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T

	body, err := go_json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+Path, bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return zero, fmt.Errorf("send %s: %w", req.Action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if go_json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return zero, fmt.Errorf("%s: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return zero, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var res Result[T]
	if err := go_json.Unmarshal(respBody, &res); err != nil {
		return zero, fmt.Errorf("decode result: %w", err)
	}
	if err := res.Err(); err != nil {
		return zero, err
	}
	return res.Value, nil
}

// Login logs in through the proxy
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	return send[*model.User](ctx, c, Request{Action: ActionLogin, Username: username, Password: password})
}

// Logout logs out through the proxy
func (c *Client) Logout(ctx context.Context) error {
	_, err := send[bool](ctx, c, Request{Action: ActionLogout})
	return err
}

// GetAuthState returns the proxy's auth snapshot
func (c *Client) GetAuthState(ctx context.Context) (model.AuthSnapshot, error) {
	return send[model.AuthSnapshot](ctx, c, Request{Action: ActionGetAuthState})
}

// SetSelectedGroup replaces the selected group. A nil group clears it.
func (c *Client) SetSelectedGroup(ctx context.Context, group *model.Group) error {
	_, err := send[bool](ctx, c, Request{Action: ActionSetSelectedGroup, Group: group})
	return err
}

// ListGroups returns the selectable groups
func (c *Client) ListGroups(ctx context.Context) ([]model.Group, error) {
	return send[[]model.Group](ctx, c, Request{Action: ActionListGroups})
}

// FetchUserRatings looks up group ratings for usernames
func (c *Client) FetchUserRatings(ctx context.Context, usernames []string, groupID model.GroupID) ([]model.UserRating, error) {
	return send[[]model.UserRating](ctx, c, Request{
		Action:    ActionFetchUserRatings,
		Usernames: usernames,
		GroupID:   groupID,
	})
}
