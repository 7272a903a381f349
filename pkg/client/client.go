// Package client is a Go consumer of the schooladmin authentication API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	LoginPath          = "/login"
	ChangePasswordPath = "/change-password"

	DefaultTimeout = 10 * time.Second
)

// User is the sanitized user record returned by a successful login.
type User struct {
	ID         string                 `json:"id"`
	Username   string                 `json:"username"`
	Email      string                 `json:"email,omitempty"`
	FullName   string                 `json:"full_name,omitempty"`
	Role       string                 `json:"role,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
	// Token is read if the server ever supplies one; the current API does not.
	Token string `json:"token,omitempty"`
}

// Error is returned for any non-2xx status or a body with success=false.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Client calls the authentication API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenStore selects where the bearer token lives.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: defaultHTTPClient(),
		tokens:     NewMemoryTokenStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func defaultHTTPClient() *http.Client {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = DefaultTimeout
	return hc
}

// Login verifies credentials and returns the user record. A token in the
// response, if any, is kept in the token store.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	payload := map[string]string{"username": username, "password": password}

	env, err := c.do(ctx, http.MethodPost, LoginPath, payload)
	if err != nil {
		return nil, err
	}
	if env.Token != "" {
		if err := c.tokens.SetToken(env.Token); err != nil {
			return nil, err
		}
	}
	return env.User, nil
}

// ChangePassword replaces the password of username.
func (c *Client) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	payload := map[string]string{
		"username":        username,
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}
	_, err := c.do(ctx, http.MethodPost, ChangePasswordPath, payload)
	return err
}

// Logout forgets the stored token.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*Envelope, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	env := &Envelope{}
	decodeErr := json.NewDecoder(resp.Body).Decode(env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, decodeErr)
	}
	if !env.Success {
		return nil, &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return env, nil
}
