// Package httpclient is the JSON transport shared by every API package. It
// applies the default headers, resolves relative paths against the API base URL
// and turns non-2xx responses into a TransportError.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/robinhood-client/robinhood-client-go/internal/build"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/telemetry"
)

const (
	DefaultBaseURL    = "https://api.robinhood.com"
	DefaultAPIVersion = "1.431.4"
	DefaultTimeout    = 16 * time.Second

	apiVersionHeader = "X-Robinhood-API-Version"
	requestIDHeader  = "X-Request-Id"
)

// Client issues requests against the brokerage API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	apiVersion string
	userAgent  string
	logger     logger.Logger
	client     *retryablehttp.Client

	mu            sync.RWMutex
	authorization string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL    string
	apiVersion string
	userAgent  string
	timeout    time.Duration
	retryMax   int
	logger     logger.Logger
	transport  http.RoundTripper
}

// WithBaseURL sets the URL relative paths are resolved against.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithAPIVersion sets the value of the API version header.
func WithAPIVersion(version string) Option {
	return func(o *options) {
		o.apiVersion = version
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		o.userAgent = userAgent
	}
}

// WithTimeout sets the timeout of a single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithRetryMax sets how many times a failed request is retried. Zero disables retries.
func WithRetryMax(retryMax int) Option {
	return func(o *options) {
		o.retryMax = retryMax
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// New returns a Client.
func New(opts ...Option) (*Client, error) {
	o := options{
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
		userAgent:  build.UserAgent,
		timeout:    DefaultTimeout,
		logger:     logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url '%s': %w", o.baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url '%s': scheme and host are required", o.baseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = o.retryMax
	rc.Logger = &leveledLogger{logger: o.logger}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = o.timeout

	transport := rc.HTTPClient.Transport
	if o.transport != nil {
		transport = o.transport
	}
	rc.HTTPClient.Transport = otelhttp.NewTransport(transport)

	return &Client{
		baseURL:    base,
		apiVersion: o.apiVersion,
		userAgent:  o.userAgent,
		logger:     o.logger,
		client:     rc,
	}, nil
}

// SetAuthorization sets the value of the Authorization header sent with every request.
func (c *Client) SetAuthorization(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authorization = value
}

// ClearAuthorization stops sending the Authorization header.
func (c *Client) ClearAuthorization() {
	c.SetAuthorization("")
}

// Authorized reports whether an Authorization header is set.
func (c *Client) Authorized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorization != ""
}

// ResolveURL returns ref resolved against the base URL. Absolute URLs, such as
// the pagination links returned by the API, are returned unchanged.
func (c *Client) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url '%s': %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}

	base := *c.baseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	u.Path = strings.TrimPrefix(u.Path, "/")
	return base.ResolveReference(u).String(), nil
}

// Get issues a GET for ref with params merged into its query and returns the response body.
func (c *Client) Get(ctx context.Context, ref string, params url.Values) ([]byte, error) {
	target, err := c.ResolveURL(ref)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		u, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		query := u.Query()
		for key, values := range params {
			for _, v := range values {
				query.Add(key, v)
			}
		}
		u.RawQuery = query.Encode()
		target = u.String()
	}

	return c.do(ctx, http.MethodGet, target, "", nil)
}

// GetJSON is Get followed by decoding the body into out.
func (c *Client) GetJSON(ctx context.Context, ref string, params url.Values, out any) error {
	body, err := c.Get(ctx, ref, params)
	if err != nil {
		return err
	}
	return decode(http.MethodGet, ref, body, out)
}

// PostForm posts form as application/x-www-form-urlencoded and decodes the response into out, if out is not nil.
func (c *Client) PostForm(ctx context.Context, ref string, form url.Values, out any) error {
	target, err := c.ResolveURL(ref)
	if err != nil {
		return err
	}

	body, err := c.do(ctx, http.MethodPost, target, "application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return err
	}
	return decode(http.MethodPost, ref, body, out)
}

// PostJSON posts payload encoded as JSON and decodes the response into out, if out is not nil.
func (c *Client) PostJSON(ctx context.Context, ref string, payload any, out any) error {
	target, err := c.ResolveURL(ref)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, target, "application/json", encoded)
	if err != nil {
		return err
	}
	return decode(http.MethodPost, ref, body, out)
}

func decode(method, ref string, body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrInvalidResponse, method, ref, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target, contentType string, payload []byte) ([]byte, error) {
	requestID := ulid.Make().String()
	ctx = logger.ContextWithRequestID(ctx, requestID)

	ctx, span := tracer.Start(ctx, "httpclient."+method)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", target),
		attribute.String("request_id", requestID),
	)

	var reqBody any
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(apiVersionHeader, c.apiVersion)
	req.Header.Set(requestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.mu.RLock()
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}
	c.mu.RUnlock()

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		requestCounter.WithLabelValues(method, "error").Inc()
		telemetry.TraceError(span, err)
		c.logger.WarnWithContext(ctx, "request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Error(err))
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	requestCounter.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	requestDurationHistogram.WithLabelValues(method).Observe(float64(elapsed.Milliseconds()))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		c.logger.WarnWithContext(ctx, "unexpected response status",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status_code", resp.StatusCode))
		return nil, &TransportError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	c.logger.DebugWithContext(ctx, "request completed",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("elapsed", elapsed))

	return body, nil
}
