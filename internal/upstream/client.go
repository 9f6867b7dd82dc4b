// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/models"
)

// DefaultTimeout bounds every outbound request unless overridden.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept in UpstreamError.
const maxErrorBody = 512

// Client is a JSON-over-HTTP client for one external service. It applies
// static auth headers and query parameters, an optional rate limit, a
// circuit breaker, and maps HTTP failures onto models.UpstreamError.
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	query      url.Values
	limiter    *rate.Limiter
	breaker    *Breaker

	maxRetries int           // HTTP 429 retries
	retryDelay time.Duration // base delay, doubled per attempt
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

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithQueryParam adds a query parameter sent on every request (e.g. api_key).
func WithQueryParam(key, value string) Option {
	return func(c *Client) { c.query.Set(key, value) }
}

// WithRateLimit limits requests to rps per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker enables or disables the circuit breaker.
func WithBreaker(enabled bool) Option {
	return func(c *Client) {
		if !enabled {
			c.breaker = nil
		} else if c.breaker == nil {
			c.breaker = NewBreaker(c.service)
		}
	}
}

// WithRetry configures retries of HTTP 429 responses.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = baseDelay
	}
}

// New creates a client for service rooted at baseURL. The circuit breaker
// is enabled by default.
func New(service, baseURL string, opts ...Option) *Client {
	c := &Client{
		service:    service,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		headers:    make(http.Header),
		query:      make(url.Values),
		maxRetries: 3,
		retryDelay: time.Second,
	}
	c.breaker = NewBreaker(service)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the service name used in errors and metrics.
func (c *Client) Service() string {
	return c.service
}

// Breaker returns the client's circuit breaker, or nil when disabled.
func (c *Client) Breaker() *Breaker {
	return c.breaker
}

// Request describes one call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// GetJSON performs a GET and decodes the JSON response into result.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, result)
}

// PostJSON performs a POST with a JSON body and decodes the response into result.
// result may be nil.
func (c *Client) PostJSON(ctx context.Context, path string, body, result interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, result)
}

// Do executes req and decodes a JSON response into result when result is
// non-nil. Non-2xx responses and transport failures are returned as
// *models.UpstreamError.
func (c *Client) Do(ctx context.Context, req Request, result interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &models.UpstreamError{Service: c.service, Err: err}
		}
	}

	_, err := Execute(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, req, result)
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, r Request, result interface{}) error {
	var payload []byte
	if r.Body != nil {
		var err error
		if payload, err = json.Marshal(r.Body); err != nil {
			return fmt.Errorf("encode %s request: %w", c.service, err)
		}
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	resp, err := c.send(ctx, method, c.buildURL(r), payload, r.Headers)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &models.UpstreamError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &models.UpstreamError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

func (c *Client) buildURL(r Request) string {
	q := make(url.Values, len(c.query)+len(r.Query))
	for k, v := range c.query {
		q[k] = v
	}
	for k, v := range r.Query {
		q[k] = v
	}

	u := c.baseURL + r.Path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// send issues the request, retrying HTTP 429 with exponential backoff or
// the server's Retry-After.
func (c *Client) send(ctx context.Context, method, reqURL string, payload []byte, extra map[string]string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		var body io.Reader = http.NoBody
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return nil, fmt.Errorf("create %s request: %w", c.service, err)
		}
		for k, v := range c.headers {
			req.Header[k] = v
		}
		for k, v := range extra {
			req.Header.Set(k, v)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordUpstreamRequest(c.service, 0, time.Since(start))
			return nil, &models.UpstreamError{Service: c.service, Err: err}
		}
		metrics.RecordUpstreamRequest(c.service, resp.StatusCode, time.Since(start))

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.maxRetries {
			return resp, nil
		}

		retryDelay := c.retryDelay * (1 << attempt)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				retryDelay = time.Duration(seconds) * time.Second
			}
		}
		_ = resp.Body.Close()

		logging.Ctx(ctx).Warn().
			Str("service", c.service).
			Dur("retry_delay", retryDelay).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Upstream rate limited (HTTP 429), retrying")

		timer := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &models.UpstreamError{Service: c.service, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ue *models.UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
