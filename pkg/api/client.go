// Package api is a typed HTTP client for the Nimba SMS REST API.
//
// A Client sends one logical call at a time. Each call gets one deadline
// covering all of its attempts; network failures and 5xx responses are
// retried with exponential backoff, everything else is returned at once.
// Response bodies are checked against a schema before they are decoded.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 250 * time.Millisecond
	DefaultMaxDelay    = 4 * time.Second
)

// RequestIDHeader carries the per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// SchemaValidator checks a decoded JSON value against a named schema.
type SchemaValidator interface {
	ValidateResponse(schema string, value any) error
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	APIKey    string
	ServiceID string

	// Timeout bounds a whole call, retries and backoff included.
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// RateLimit caps requests per second; zero disables the limiter.
	RateLimit float64

	UserAgent  string
	HTTPClient *http.Client
	Schemas    SchemaValidator
	Logger     *slog.Logger

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client performs authenticated requests against one API base URL.
type Client struct {
	baseURL     *url.URL
	apiKey      string
	serviceID   string
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	userAgent   string
	httpClient  *http.Client
	schemas     SchemaValidator
	limiter     *rate.Limiter
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client from opts.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &Client{
		baseURL:     base,
		apiKey:      opts.APIKey,
		serviceID:   opts.ServiceID,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		maxDelay:    opts.MaxDelay,
		userAgent:   opts.UserAgent,
		httpClient:  opts.HTTPClient,
		schemas:     opts.Schemas,
		logger:      opts.Logger,
		sleep:       opts.Sleep,
	}

	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.baseDelay <= 0 {
		c.baseDelay = DefaultBaseDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = DefaultMaxDelay
	}
	if c.userAgent == "" {
		c.userAgent = "nimbasms"
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return c, nil
}

// Request is a single API call before it is sent.
type Request struct {
	Method string
	// Path is appended to the base URL. Ignored when URL is set.
	Path string
	// URL is an absolute URL, used for pagination cursors.
	URL   string
	Query url.Values
	// Body is encoded as JSON unless RawBody is set.
	Body        any
	RawBody     []byte
	ContentType string
	Header      http.Header
}

// Response is a successful (2xx) reply.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
	// URL is the address the request was sent to.
	URL string
}

// Do sends req, retrying transient failures, and returns the 2xx response.
// Any other outcome is an *Error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	target, err := c.resolveURL(req)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.NewString()
	logger := c.logger.With("method", req.Method, "url", target, "request_id", requestID)

	var lastErr *Error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, contextError(ctx, err, attempt-1, lastErr)
			}
		}

		start := time.Now()
		resp, apiErr := c.attempt(ctx, req, target, body, contentType, requestID)
		if apiErr == nil {
			logger.Debug("api response", "attempt", attempt, "status", resp.Status, "duration", time.Since(start))
			return resp, nil
		}

		apiErr.Attempts = attempt
		logger.Debug("api attempt failed", "attempt", attempt, "status", apiErr.Status, "error", apiErr, "duration", time.Since(start))

		if ctx.Err() != nil {
			return nil, contextError(ctx, ctx.Err(), attempt, apiErr)
		}
		if !apiErr.Retryable {
			return nil, apiErr
		}
		lastErr = apiErr

		if attempt == c.maxAttempts {
			break
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, contextError(ctx, err, attempt, lastErr)
		}
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, req *Request, target string, body []byte, contentType, requestID string) (*Response, *Error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, &Error{Kind: Unknown, Message: "failed to create request", Cause: err}
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(RequestIDHeader, requestID)
	c.applyAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: Network, Retryable: true, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: Network, Status: resp.StatusCode, Retryable: true, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromStatus(resp.StatusCode, data)
	}

	return &Response{Status: resp.StatusCode, Body: data, Header: resp.Header, URL: target}, nil
}

// applyAuth sets basic auth (service id + secret) or a bearer token.
func (c *Client) applyAuth(req *http.Request) {
	if c.serviceID != "" {
		req.SetBasicAuth(c.serviceID, c.apiKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// sameOrigin reports whether u shares the scheme and host of the base URL.
func (c *Client) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.baseURL.Scheme) && strings.EqualFold(u.Host, c.baseURL.Host)
}

func (c *Client) resolveURL(req *Request) (string, error) {
	if req.URL != "" {
		u, err := url.Parse(req.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", &Error{Kind: Unknown, Message: fmt.Sprintf("invalid request URL %q", req.URL), Cause: err}
		}
		if len(req.Query) > 0 {
			q := u.Query()
			for key, values := range req.Query {
				q[key] = values
			}
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	}

	// req.Path is already escaped by the resource templates.
	joined, err := url.Parse(strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimLeft(req.Path, "/"))
	if err != nil {
		return "", &Error{Kind: Unknown, Message: fmt.Sprintf("invalid request path %q", req.Path), Cause: err}
	}
	u := *c.baseURL
	u.Path = joined.Path
	u.RawPath = joined.RawPath
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String(), nil
}

func encodeBody(req *Request) ([]byte, string, error) {
	if req.RawBody != nil {
		return req.RawBody, req.ContentType, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", &Error{Kind: Unknown, Message: "failed to encode request body", Cause: err}
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	return data, contentType, nil
}

// backoff returns the wait after the given failed attempt: base * 2^(attempt-1), capped.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.maxDelay {
			return c.maxDelay
		}
	}
	if d > c.maxDelay {
		return c.maxDelay
	}
	return d
}

// contextError reports a call that ran out of time as Timeout. A caller
// cancellation becomes a non-retryable Network error wrapping context.Canceled.
func contextError(ctx context.Context, err error, attempts int, last *Error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return &Error{Kind: Network, Attempts: attempts, Message: "request canceled", Cause: context.Canceled}
	}
	e := &Error{Kind: Timeout, Attempts: attempts, Message: "deadline exceeded", Cause: context.DeadlineExceeded}
	if last != nil {
		e.Status = last.Status
		e.Body = last.Body
	}
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
