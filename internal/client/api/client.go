// Package api is the HTTP client for the Barre auth endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/barre-app/barre/internal/wire"
)

// defaultHTTPTimeout is the per-request timeout used by the client.
const defaultHTTPTimeout = 15 * time.Second

// Client talks to the Barre server's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client for the given server URL.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (wire.TokenResponse, error) {
	return c.postToken(ctx, "/v1/auth/login", wire.LoginRequest{
		Email:    email,
		Password: password,
	})
}

// Refresh re-mints an access token for the given user id. The expired token
// is not sent; the server re-derives the token from its own user state.
//
// On failure nothing is mutated; the caller decides whether the failure is
// terminal.
func (c *Client) Refresh(ctx context.Context, userID string) (wire.TokenResponse, error) {
	return c.postToken(ctx, "/v1/auth/refresh", wire.RefreshRequest{UserID: userID})
}

func (c *Client) postToken(ctx context.Context, path string, body any) (wire.TokenResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return wire.TokenResponse{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return wire.TokenResponse{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wire.TokenResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return wire.TokenResponse{}, fmt.Errorf("%s: %s (status %d)", path, apiErr.Error, resp.StatusCode)
		}
		return wire.TokenResponse{}, fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	var token wire.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return wire.TokenResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return token, nil
}
