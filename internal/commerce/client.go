package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
)

const (
	callLimitHeader   = "X-Shopify-Shop-Api-Call-Limit"
	defaultRetryAfter = 5 * time.Second
	maxRetryAfter     = time.Minute
)

// RetryObserver is notified of every rate-limit backoff.
type RetryObserver interface {
	ObserveRateLimit(wait time.Duration)
}

// Client talks to the Shopify Admin GraphQL API.
type Client struct {
	endpoint   string
	apiKey     string
	pageSize   int
	lookback   time.Duration
	maxRetries int

	http     *http.Client
	logger   *zap.Logger
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
	observer RetryObserver
}

type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint derived from the store domain.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithSleeper replaces the rate-limit backoff sleep.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithClock replaces the clock used for the created_at window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithRetryObserver(o RetryObserver) Option {
	return func(c *Client) { c.observer = o }
}

func New(cfg config.ShopifyConfig, httpClient *http.Client, logger *zap.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	c := &Client{
		endpoint:   cfg.Endpoint(),
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		lookback:   cfg.Lookback,
		maxRetries: cfg.MaxRateLimitRetries,
		http:       httpClient,
		logger:     logger.Named("shopify"),
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pageSize <= 0 {
		c.pageSize = 50
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 1
	}
	return c
}

type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// fetch posts a GraphQL document and retries while Shopify answers 429,
// waiting for the Retry-After interval between attempts. Any other status is
// returned untouched.
func (c *Client) fetch(ctx context.Context, op string, req graphQLRequest) (*response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	for attempt := 1; ; attempt++ {
		c.logger.Debug("calling shopify", zap.String("op", op), zap.Int("attempt", attempt))
		resp, err := c.post(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("shopify %s: %w", op, err)
		}
		if limit := resp.Header.Get(callLimitHeader); limit != "" {
			c.logger.Info("shopify api call limit", zap.String("op", op), zap.String("limit", limit))
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		if attempt > c.maxRetries {
			return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Err: ErrRateLimited}
		}

		wait := retryAfter(resp.Header)
		c.logger.Warn("rate limit exceeded, backing off",
			zap.String("op", op),
			zap.Duration("retry_after", wait),
			zap.Int("attempt", attempt),
		)
		if c.observer != nil {
			c.observer.ObserveRateLimit(wait)
		}
		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("shopify %s backoff: %w", op, err)
		}
	}
}

func (c *Client) post(ctx context.Context, payload []byte) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// classifyStatus logs non-success statuses and reports whether the response
// can be decoded.
func (c *Client) classifyStatus(op string, resp *response) bool {
	switch resp.StatusCode {
	case http.StatusOK:
		c.logger.Debug("shopify request succeeded", zap.String("op", op))
		return true
	case http.StatusUnauthorized:
		c.logger.Error("unauthorized access, check the shopify api key", zap.String("op", op))
	case http.StatusNotFound:
		c.logger.Error("shopify resource not found", zap.String("op", op))
	case http.StatusInternalServerError:
		c.logger.Error("shopify internal server error", zap.String("op", op))
	default:
		c.logger.Error("unexpected shopify status", zap.String("op", op), zap.Int("status", resp.StatusCode))
	}
	return false
}

func retryAfter(h http.Header) time.Duration {
	raw := h.Get("Retry-After")
	if raw == "" {
		return defaultRetryAfter
	}
	// Shopify sends fractional seconds ("2.0").
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return defaultRetryAfter
	}
	if secs >= maxRetryAfter.Seconds() {
		return maxRetryAfter
	}
	return time.Duration(secs * float64(time.Second))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
