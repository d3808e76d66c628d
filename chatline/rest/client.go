// Package rest provides the request/response side of the chat server:
// the roster pull and the room backlog. Live traffic goes over the
// event channel instead.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client provides REST API access to the chat server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST client. baseURL is the server root, e.g.
// "http://localhost:3030".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// OnlineUsers returns the full roster of connected users across all
// rooms.
func (c *Client) OnlineUsers(ctx context.Context) ([]User, error) {
	var resp OnlineUsersResponse
	if err := c.get(ctx, "/online-users", &resp); err != nil {
		return nil, err
	}
	return resp.OnlineUsers, nil
}

// History returns the persisted backlog for one room, oldest first.
func (c *Client) History(ctx context.Context, room string) ([]Message, error) {
	var resp []Message
	if err := c.get(ctx, "/chat/"+url.PathEscape(room), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
