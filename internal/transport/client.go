package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/auth"
)

const (
	bearerPrefix   = "Bearer "
	maxErrorBody   = 64 << 10
	defaultTimeout = 30 * time.Second
)

// TokenSource yields the bearer token to attach, or "" for anonymous calls
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client represents an HTTP client for the fleet backend API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.tokens = src }
}

// New creates a new API client. baseURL is the API root, e.g.
// http://localhost:3000/api
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource binds the token source after construction. The session
// store is built on top of the client and then becomes its token source.
func (c *Client) SetTokenSource(src TokenSource) {
	c.tokens = src
}

// BaseURL returns the API root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*auth.LoginResponse, error) {
	var resp auth.LoginResponse
	err := c.Do(ctx, http.MethodPost, "auth/login", nil, auth.LoginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &apperr.APIError{Status: http.StatusOK, Message: "login response is missing the user"}
	}
	return &resp, nil
}

// Register creates an account. It does not authenticate.
func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) error {
	return c.Do(ctx, http.MethodPost, "auth/register", nil, req, nil)
}

// Logout invalidates the current credential server-side
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "auth/logout", nil, nil, nil)
}

// Me returns the identity behind the current credential
func (c *Client) Me(ctx context.Context) (*auth.User, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, "auth/me", nil, nil, &raw); err != nil {
		return nil, err
	}

	// Accept both a bare user and a {"user": ...} envelope
	var envelope struct {
		User *auth.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.User != nil {
		return envelope.User, nil
	}

	var user auth.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, &apperr.APIError{Status: http.StatusOK, Message: fmt.Sprintf("failed to decode user: %v", err)}
	}
	if user.ID == "" {
		return nil, &apperr.AuthenticationError{Status: http.StatusOK, Message: "no authenticated user"}
	}
	return &user, nil
}

// RefreshToken exchanges the current credential for a fresh one
func (c *Client) RefreshToken(ctx context.Context) (*auth.LoginResponse, error) {
	var resp auth.LoginResponse
	if err := c.Do(ctx, http.MethodPost, "auth/refresh-token", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Do sends one JSON request. body and out may be nil. Errors are always one of
// *apperr.NetworkError, *apperr.AuthenticationError or *apperr.APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := fmt.Sprintf("%s %s", method, path)

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", bearerPrefix+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &apperr.APIError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// decodeError turns a non-2xx response into a typed error carrying the
// backend's message
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(data, &payload); err == nil {
		message = payload.Message
		if message == "" {
			message = payload.Error
		}
	} else {
		message = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &apperr.AuthenticationError{Status: resp.StatusCode, Message: message}
	default:
		return &apperr.APIError{Status: resp.StatusCode, Message: message}
	}
}
