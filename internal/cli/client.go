package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/mcoot/cfratings/internal/api/apierr"
	"github.com/mcoot/cfratings/internal/api/response"
	"github.com/mcoot/cfratings/internal/message"
)

// Report headers set by the server's overlay page proxy
const (
	headerOverlayApplied = "X-Overlay-Applied"
	headerOverlaySkipped = "X-Overlay-Skipped"
	headerOverlayRated   = "X-Overlay-Rated"
)

// Client talks to a cfratings server. Session operations go through the
// embedded message client; health and overlay use plain HTTP endpoints.
type Client struct {
	*message.Client
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		Client:  message.NewClient(baseURL),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Health calls the health endpoint
func (c *Client) Health(ctx context.Context) (response.Health, error) {
	var result response.Health

	body, _, err := c.get(ctx, "/api/v1/health")
	if err != nil {
		return result, err
	}
	if err := go_json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}

// Overlay fetches pageURL through the server's overlay proxy
func (c *Client) Overlay(ctx context.Context, pageURL string) (OverlayResult, error) {
	result := OverlayResult{URL: pageURL}

	body, header, err := c.get(ctx, "/overlay?url="+url.QueryEscape(pageURL))
	if err != nil {
		return result, err
	}

	result.Applied, _ = strconv.ParseBool(header.Get(headerOverlayApplied))
	result.Rated, _ = strconv.Atoi(header.Get(headerOverlayRated))
	result.Skipped = header.Get(headerOverlaySkipped)
	result.Bytes = len(body)
	result.html = body
	return result, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp apierr.ErrorResponse
		if err := go_json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code != "" {
			return nil, nil, fmt.Errorf("%s (%s)", errResp.Error.Message, errResp.Error.Code)
		}
		return nil, nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return body, resp.Header, nil
}
