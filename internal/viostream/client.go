// Package viostream is a thin client for the Viostream v3 REST API.
package viostream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the Viostream v3 API root.
	DefaultBaseURL = "https://api.app.viostream.com/v3/api"
	// DefaultTimeout bounds every API call.
	DefaultTimeout = 30 * time.Second
)

// ErrNotConfigured is returned when the access key or API key is missing. No request is sent.
var ErrNotConfigured = errors.New("viostream: api credentials not configured")

// RequestError describes a failed API call. Status is 0 when the request never got a response.
type RequestError struct {
	Method   string
	Endpoint string
	Status   int
	Message  string
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("viostream: %s %s: %s", e.Method, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("viostream: %s %s: status %d: %s", e.Method, e.Endpoint, e.Status, e.Message)
}

// IsAuth reports whether the provider rejected the credentials (401 or 403).
func (e *RequestError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsNotFound reports a 404 from the provider.
func (e *RequestError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsAuthFailure reports whether err is a RequestError carrying 401 or 403.
func IsAuthFailure(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.IsAuth()
}

// IsNotFound reports whether err is a RequestError carrying 404.
func IsNotFound(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.IsNotFound()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithBaseURL overrides the API root (tests, staging).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client calls the Viostream API with HTTP basic auth.
//
// A Client tracks whether its most recent GET failed with 401/403 (see IsAuthError).
// That flag is per instance; share one Client across concurrent requests only if
// callers do not rely on IsAuthError.
type Client struct {
	creds   CredentialsSource
	httpc   *http.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger

	lastAuthError atomic.Bool
}

// New creates a client that reads credentials from src on every call.
func New(src CredentialsSource, opts ...Option) *Client {
	c := &Client{
		creds:   src,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: c.timeout}
	}
	return c
}

// IsConfigured reports whether both credentials are currently set.
func (c *Client) IsConfigured(ctx context.Context) bool {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		c.logger.Warn("viostream credentials unavailable", zap.Error(err))
		return false
	}
	return creds.Configured()
}

// IsAuthError reports whether the most recent GET was rejected with 401 or 403.
func (c *Client) IsAuthError() bool {
	return c.lastAuthError.Load()
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	c.lastAuthError.Store(false)
	raw, err := c.do(ctx, http.MethodGet, endpoint, query, nil)
	if IsAuthFailure(err) {
		c.lastAuthError.Store(true)
	}
	return raw, err
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, endpoint, nil, body)
}

func (c *Client) put(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, endpoint, nil, body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any) (json.RawMessage, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		c.logger.Error("viostream credentials unavailable", zap.String("method", method), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("viostream: load credentials: %w", err)
	}
	if !creds.Configured() {
		c.logger.Warn("viostream api not configured", zap.String("method", method), zap.String("endpoint", endpoint))
		return nil, ErrNotConfigured
	}

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if method != http.MethodGet {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("viostream: marshal %s %s body: %w", method, endpoint, err)
		}
		reader = bytes.NewReader(buf)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("viostream: create request: %w", err)
	}
	req.SetBasicAuth(creds.AccessKey, creds.APIKey)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Error("viostream api request failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return nil, &RequestError{Method: method, Endpoint: endpoint, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Warn("viostream api returned non-200 status",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &RequestError{Method: method, Endpoint: endpoint, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("viostream api response read failed", zap.String("method", method), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, &RequestError{Method: method, Endpoint: endpoint, Status: resp.StatusCode, Message: err.Error()}
	}
	if !json.Valid(payload) {
		c.logger.Error("viostream api returned invalid json", zap.String("method", method), zap.String("endpoint", endpoint))
		return nil, &RequestError{Method: method, Endpoint: endpoint, Status: resp.StatusCode, Message: "invalid JSON body"}
	}
	return json.RawMessage(payload), nil
}
