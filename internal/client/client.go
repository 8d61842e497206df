// Package client is a typed Go client for the ProDevHub API.
//
// A Client owns three pieces of shared state, all as fields rather than
// package globals:
//
//   - a weighted semaphore that caps concurrent requests (default 5); extra
//     callers wait in FIFO order
//   - a singleflight group, so when several requests hit 401 at once only
//     one /api/auth/refresh call is made and every waiter gets its result
//   - the injected TokenStore holding the current token pair
//
// Network errors and 5xx responses are retried with exponential backoff.
// 4xx responses are never retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultConcurrency = 5
	DefaultAttempts    = 3
	DefaultBackoff     = time.Second
)

// ErrSessionExpired is returned when the refresh token is missing or was
// rejected. The store has been cleared; the user must log in again.
var ErrSessionExpired = errors.New("client: session expired, please log in again")

// APIError is a non-2xx response decoded from the API's error body.
type APIError struct {
	StatusCode int
	Type       string `json:"error"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("client: HTTP %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type Client struct {
	baseURL  string
	http     *http.Client
	store    TokenStore
	logger   *slog.Logger
	queue    *semaphore.Weighted
	refresh  singleflight.Group
	attempts uint64
	backoff  time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithConcurrency sets how many requests may be in flight at once.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.queue = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithRetry sets the total number of attempts and the first backoff delay.
func WithRetry(attempts int, base time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = uint64(attempts)
		}
		if base > 0 {
			c.backoff = base
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for the API at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 60 * time.Second},
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue:    semaphore.NewWeighted(DefaultConcurrency),
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do runs one API call through the queue. Authenticated calls that get a 401
// refresh the token pair once and are replayed with the new access token.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authenticated bool) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
	}

	if err := c.queue.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.queue.Release(1)

	var token string
	if authenticated {
		tokens, err := c.store.Load()
		if err != nil {
			return err
		}
		token = tokens.AccessToken
	}

	err := c.send(ctx, method, path, payload, token, out)
	if !authenticated || !IsStatus(err, http.StatusUnauthorized) {
		return err
	}

	fresh, err := c.refreshTokens(ctx, token)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, payload, fresh, out)
}

// send performs the request with retries. Only transport errors and 5xx
// responses are retried, and never once ctx is done.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string, out any) error {
	b := retry.WithMaxRetries(c.attempts-1, retry.NewExponential(c.backoff))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.sendOnce(ctx, method, path, payload, token, out)
		if err == nil || ctx.Err() != nil {
			return err
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode >= http.StatusInternalServerError {
				c.logger.Warn("retrying after server error",
					slog.String("path", path),
					slog.Int("status", apiErr.StatusCode),
				)
				return retry.RetryableError(err)
			}
			return err
		}
		var decodeErr *decodeError
		if errors.As(err, &decodeErr) {
			return err
		}

		c.logger.Warn("retrying after network error",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return retry.RetryableError(err)
	})
}

// decodeError marks a 2xx response whose body could not be decoded. It is
// not retried: sending the request again would repeat its side effects.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return "client: decoding response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func (c *Client) sendOnce(ctx context.Context, method, path string, payload []byte, token string, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

// refreshTokens returns a usable access token after stale was rejected.
//
// Concurrent callers share one refresh call. The shared call runs detached
// from any one caller's cancellation, so a caller giving up does not fail
// the others. If another caller already replaced stale, the stored token is
// used without refreshing again.
func (c *Client) refreshTokens(ctx context.Context, stale string) (string, error) {
	ch := c.refresh.DoChan("refresh", func() (any, error) {
		tokens, err := c.store.Load()
		if err != nil {
			return "", err
		}
		if tokens.AccessToken != "" && tokens.AccessToken != stale {
			return tokens.AccessToken, nil
		}
		if tokens.RefreshToken == "" {
			return "", ErrSessionExpired
		}

		var res authResponse
		err = c.send(context.WithoutCancel(ctx), http.MethodPost, "/api/auth/refresh", mustJSON(map[string]string{
			"refreshToken": tokens.RefreshToken,
		}), "", &res)
		if err != nil {
			if clearErr := c.store.Clear(); clearErr != nil {
				c.logger.Warn("clearing token store failed", slog.String("error", clearErr.Error()))
			}
			if IsStatus(err, http.StatusUnauthorized) {
				return "", ErrSessionExpired
			}
			return "", fmt.Errorf("client: refreshing session: %w", err)
		}

		if err := c.store.Save(Tokens{AccessToken: res.Token, RefreshToken: res.RefreshToken}); err != nil {
			return "", err
		}
		return res.Token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func mustJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
