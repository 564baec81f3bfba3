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
	"sync"
	"time"

	"github.com/tessro/startify/internal/auth"
	"github.com/tessro/startify/internal/logging"
)

const (
	// DefaultBaseURL is where the controller backend listens by default.
	DefaultBaseURL = "http://127.0.0.1:5000"

	defaultTimeout = 5 * time.Second
	defaultRetries = 2
	baseRetryWait  = 500 * time.Millisecond
)

// Client talks to the controller backend over HTTP/JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
	storage    *auth.Storage
	credential *auth.Credential
	retries    int
	logger     *slog.Logger
	mu         sync.RWMutex
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries sets how many times commands are retried on transient failure.
// Queries are never retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a backend client. storage may be nil, in which case the
// credential only lives in memory.
func New(baseURL string, storage *auth.Storage, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		storage:    storage,
		retries:    defaultRetries,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoadCredential loads the credential from storage.
func (c *Client) LoadCredential() error {
	if c.storage == nil {
		return nil
	}
	cred, err := c.storage.Load()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.credential = cred
	c.mu.Unlock()
	return nil
}

// SetCredential sets and persists the current credential.
func (c *Client) SetCredential(cred *auth.Credential) error {
	c.mu.Lock()
	c.credential = cred
	c.mu.Unlock()
	if c.storage == nil {
		return nil
	}
	return c.storage.Save(cred)
}

// ClearCredential forgets the credential in memory and on disk.
func (c *Client) ClearCredential() error {
	c.mu.Lock()
	c.credential = nil
	c.mu.Unlock()
	if c.storage == nil {
		return nil
	}
	return c.storage.Delete()
}

// HasCredential returns true if a credential is loaded.
func (c *Client) HasCredential() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credential != nil
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.credential == nil {
		return ""
	}
	return c.credential.Token
}

// Get performs a single GET request. Polls call this; the next tick is the retry.
// result is left untouched when the body is empty.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.request(ctx, http.MethodGet, path, nil, result, 0)
}

// Post performs a POST request, retrying transient failures with
// exponential backoff.
func (c *Client) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.request(ctx, http.MethodPost, path, body, result, c.retries)
}

func (c *Client) request(ctx context.Context, method, path string, body interface{}, result interface{}, retries int) error {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	fullURL := c.baseURL + path
	log := c.logger.With(slog.String("method", method), slog.String("url", fullURL))
	if jsonBody != nil {
		log.Debug("backend request", slog.String("body", string(jsonBody)))
	} else {
		log.Debug("backend request")
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := baseRetryWait * time.Duration(1<<(attempt-1))
			log.Debug("retrying backend request",
				slog.Int("attempt", attempt),
				slog.Int("max_retries", retries),
				slog.Duration("wait", wait),
				logging.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			log.Debug("backend network error", logging.Error(err))
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		log.Debug("backend response", slog.Int("status", resp.StatusCode))

		if resp.StatusCode >= 500 {
			lastErr = newAPIError(resp.StatusCode, respBody)
			continue
		}

		if resp.StatusCode >= 400 {
			return newAPIError(resp.StatusCode, respBody)
		}

		if result != nil && !isEmptyBody(respBody) {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
		}

		return nil
	}

	if retries == 0 {
		return lastErr
	}
	return fmt.Errorf("request failed after %d retries: %w", retries, lastErr)
}

// isEmptyBody treats a missing body and a bare JSON null the same way.
func isEmptyBody(b []byte) bool {
	trimmed := bytes.TrimSpace(b)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: body}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Message = payload.Error
		if e.Message == "" {
			e.Message = payload.Message
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized checks if an error is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound checks if an error is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
