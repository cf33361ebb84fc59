package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APIPrefix is the path prefix of every API route. The server root is the base
// URL with this prefix removed.
const APIPrefix = "/api/v1"

// RequestTimeout bounds a single request/response exchange.
const RequestTimeout = 10 * time.Second

// ErrUnreachable is returned by Ping when no connection to the server could be made.
var ErrUnreachable = errors.New("server not reachable")

// Client is an HTTP session against the API under test. The zero-token client is
// unauthenticated; WithToken derives an authenticated copy sharing the session.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a session for baseURL (e.g. http://localhost:5000/api/v1).
func NewClient(baseURL string, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: RequestTimeout,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// WithToken returns a copy of the client that sends "Authorization: Bearer <token>"
// on every request. The receiver is left unchanged.
func (c *Client) WithToken(token string) *Client {
	authed := *c
	authed.token = token
	return &authed
}

// Token returns the bearer token, empty for an unauthenticated client.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the API base URL including APIPrefix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RootURL returns the server root: the base URL without APIPrefix.
func (c *Client) RootURL() string {
	return strings.Replace(c.baseURL, APIPrefix, "", 1)
}

// Ping issues one unauthenticated GET to the server root. Only a transport
// failure is an error; any HTTP status means the server is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RootURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to build preflight request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %w", ErrUnreachable, c.baseURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.logger.Debug("Preflight response",
		zap.String("url", c.RootURL()),
		zap.Int("status", resp.StatusCode))
	return nil
}

// Get issues a GET to path relative to the base URL.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE to path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do sends one request and reads the whole response body. A nil body sends no
// payload; anything else is encoded as JSON.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("authenticated", c.token != ""))

	return &Response{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
