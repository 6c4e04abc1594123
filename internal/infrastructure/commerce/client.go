// Package commerce is the HTTP client for the external commerce backend.
package commerce

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

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// Outbound header names
const (
	HeaderCartToken    = "X-Cart-Token"
	HeaderRequestID    = "X-Request-ID"
	HeaderCacheControl = "Cache-Control"
)

// Messages used when no backend response is available
const (
	msgUnreachable = "commerce backend unreachable"
	msgUnavailable = "commerce backend unavailable"
	msgBadResponse = "invalid response from commerce backend"
)

// Client talks to the commerce backend. It implements checkout.CommerceAPI,
// checkout.EvidenceAPI and checkout.CartAPI. Calls are never retried.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	breaker         *gobreaker.CircuitBreaker[*response]
	breakerCfg      *config.BreakerConfig
	maxResponseSize int64
	userAgent       string
	logger          *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithBreaker guards every call with a circuit breaker when cfg.Enabled is set
func WithBreaker(cfg config.BreakerConfig) Option {
	return func(c *Client) {
		c.breakerCfg = &cfg
	}
}

// NewClient creates a commerce backend client
func NewClient(cfg config.CommerceConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("commerce: invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("commerce: base url must be absolute, got %q", cfg.BaseURL)
	}

	maxSize := cfg.MaxResponseSize
	if maxSize <= 0 {
		maxSize = 5 << 20
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxResponseSize: maxSize,
		userAgent:       cfg.UserAgent,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breakerCfg != nil && c.breakerCfg.Enabled {
		c.breaker = newBreaker(*c.breakerCfg, c.logger)
	}
	return c, nil
}

// response is a fully read backend response
type response struct {
	status int
	body   []byte
}

// request describes one outbound call
type request struct {
	method      string
	path        string
	query       url.Values
	session     *checkout.CartSession
	accessToken string
	body        any
	mutating    bool
}

// do executes the request and decodes the (optionally data-wrapped) JSON body into out
func (c *Client) do(ctx context.Context, r request, out any) error {
	resp, err := c.execute(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapData(resp.body), out); err != nil {
		logger.WithTraceContext(ctx, c.logger).Warn("Undecodable commerce response",
			zap.String("path", r.path),
			zap.Int("status", resp.status),
			zap.Error(err),
		)
		return shared.NewUpstreamError(http.StatusBadGateway, msgBadResponse)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, r request) (*response, error) {
	if c.breaker == nil {
		return c.roundTrip(ctx, r)
	}
	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.roundTrip(ctx, r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, shared.NewUpstreamError(http.StatusServiceUnavailable, msgUnavailable)
	}
	return resp, err
}

// roundTrip performs a single HTTP exchange. Status >= 400 becomes an Upstream error
// carrying the backend's status and message.
func (c *Client) roundTrip(ctx context.Context, r request) (*response, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	log := logger.WithTraceContext(ctx, c.logger).With(
		zap.String("method", r.method),
		zap.String("path", r.path),
	)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("Commerce backend request failed", zap.Error(err))
		return nil, shared.NewUpstreamError(http.StatusBadGateway, msgUnreachable)
	}
	defer httpResp.Body.Close()

	// Limit response size to prevent memory exhaustion
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxResponseSize))
	if err != nil {
		log.Warn("Failed to read commerce response", zap.Error(err))
		return nil, shared.NewUpstreamError(http.StatusBadGateway, msgUnreachable)
	}

	resp := &response{status: httpResp.StatusCode, body: body}
	if httpResp.StatusCode >= http.StatusBadRequest {
		message := extractMessage(body)
		log.Info("Commerce backend returned error",
			zap.Int("status", httpResp.StatusCode),
			zap.String("message", message),
		)
		return resp, shared.NewUpstreamError(httpResp.StatusCode, message)
	}
	log.Debug("Commerce backend call succeeded", zap.Int("status", httpResp.StatusCode))
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("commerce: failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("commerce: failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if r.session != nil && r.session.CartToken != "" {
		req.Header.Set(HeaderCartToken, r.session.CartToken)
	}
	if r.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.accessToken)
	}
	if r.mutating {
		req.Header.Set(HeaderCacheControl, "no-store")
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}
	return req, nil
}

// unwrapData returns the contents of a top-level {"data": ...} envelope,
// or the body unchanged when there is none.
func unwrapData(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return body
	}
	data, ok := envelope["data"]
	if !ok {
		return body
	}
	d := bytes.TrimSpace(data)
	if len(d) == 0 || (d[0] != '{' && d[0] != '[') {
		return body
	}
	return d
}

// extractMessage pulls a human-readable message from a backend error body.
// Recognized shapes: {message}, {error: "..."}, {error: {message}}, {detail}.
func extractMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	if msg := stringField(fields["message"]); msg != "" {
		return msg
	}
	if raw, ok := fields["error"]; ok {
		if msg := stringField(raw); msg != "" {
			return msg
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return stringField(fields["detail"])
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
