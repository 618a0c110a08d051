// Package community is the HTTP client for the community platform's REST API.
package community

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/mcoot/cfratings/internal/model"
)

// Endpoint paths
const (
	PathLogin        = "/api/user/login"
	PathUser         = "/api/user"
	PathGroups       = "/api/groups"
	PathGroupMembers = "/api/groups/members"
)

// Errors
var (
	// ErrUnauthorized is returned for 401 responses (bad credentials or expired token)
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError is returned for non-2xx responses other than 401
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Config holds configuration for the API client
type Config struct {
	BaseURL string
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
}

// Client talks to the community REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// LoginResponse is the token payload returned by the login endpoint
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	UserID      model.UserID `json:"user_id"`
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathLogin, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var result LoginResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, errors.New("login response has no access token")
	}
	return &result, nil
}

// GetUser fetches a user profile
func (c *Client) GetUser(ctx context.Context, token string, id model.UserID) (*model.User, error) {
	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(int64(id), 10))

	var user model.User
	if err := c.get(ctx, token, PathUser+"?"+query.Encode(), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListGroups returns the groups visible to the token's user
func (c *Client) ListGroups(ctx context.Context, token string) ([]model.Group, error) {
	var groups []model.Group
	if err := c.get(ctx, token, PathGroups, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupMembers returns every member of a group with their group rating
func (c *Client) GroupMembers(ctx context.Context, token string, groupID model.GroupID) ([]model.GroupMember, error) {
	query := url.Values{}
	query.Set("group_id", strconv.FormatInt(int64(groupID), 10))

	var members []model.GroupMember
	if err := c.get(ctx, token, PathGroupMembers+"?"+query.Encode(), &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Client) get(ctx context.Context, token, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if result != nil && len(body) > 0 {
		if err := go_json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
