// Package httpapi implements the entity and upload transports against the
// user management REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/transport"
)

const maxErrorBody = 4 << 10

// Client talks to the REST API rooted at BaseURL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

var (
	_ transport.Entities = (*Client)(nil)
	_ transport.Uploader = (*Client)(nil)
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.http = c
		}
	}
}

// WithTimeout bounds each entity request. Uploads are only bounded by their
// context since their duration grows with file size. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.timeout = d
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpapi: base url is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpapi: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("httpapi: base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// List returns every user.
func (c *Client) List(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	if err := c.doJSON(ctx, "list users", http.MethodGet, "/user/all", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Get fetches a user by id. A 404 matches transport.ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (entity.User, error) {
	var user entity.User
	err := c.doJSON(ctx, "get user", http.MethodGet, "/user/"+url.PathEscape(id), nil, &user)
	return user, err
}

// Create stores a new user.
func (c *Client) Create(ctx context.Context, user entity.User) (entity.User, error) {
	var created entity.User
	err := c.doJSON(ctx, "create user", http.MethodPost, "/user/add", user, &created)
	return created, err
}

// Update replaces the user stored under id.
func (c *Client) Update(ctx context.Context, id string, user entity.User) (entity.User, error) {
	var updated entity.User
	err := c.doJSON(ctx, "update user", http.MethodPut, "/user/"+url.PathEscape(id), user, &updated)
	return updated, err
}

// Delete removes the user stored under id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete user", http.MethodDelete, "/user/"+url.PathEscape(id), nil, nil)
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &transport.Error{Op: op, Err: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return &transport.Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &transport.Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// send executes req and converts transport failures and non-2xx responses
// into *transport.Error. The caller closes the body on success.
func (c *Client) send(op string, req *http.Request) (*http.Response, error) {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("op", op),
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return nil, &transport.Error{Op: op, Err: err}
	}
	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, &transport.Error{Op: op, StatusCode: resp.StatusCode, Err: errorMessage(resp)}
}

func errorMessage(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Message != "" {
			return errors.New(payload.Message)
		}
		if payload.Error != "" {
			return errors.New(payload.Error)
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return errors.New(msg)
	}
	return errors.New(http.StatusText(resp.StatusCode))
}
