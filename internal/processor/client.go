package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
)

var scopes = []string{
	"https://uri.paypal.com/services/payments/payment/authcapture",
	"https://uri.paypal.com/services/payments/refund",
}

// Client calls the PayPal payments API with a client-credentials token. The
// token is fetched once and reused; a 401 drops it and the request is retried
// once with a fresh token.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	oauth    clientcredentials.Config
	oauthCtx context.Context

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

func New(cfg config.PayPalConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		baseURL: base,
		http:    httpClient,
		logger:  logger.Named("paypal"),
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     base + "/v1/oauth2/token",
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		oauthCtx: context.WithValue(context.Background(), oauth2.HTTPClient, httpClient),
	}
}

// Authenticate obtains the access token. Callers run it once at startup so a
// bad credential fails the process before any order is touched.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.token(); err != nil {
		return err
	}
	c.logger.Info("obtained paypal access token")
	return nil
}

// GetCapture fetches the captured payment referenced by a platform
// transaction's authorization code.
func (c *Client) GetCapture(ctx context.Context, captureID string) (*Capture, error) {
	c.logger.Info("fetching transaction details", zap.String("capture_id", captureID))
	body, err := c.do(ctx, "get capture", http.MethodGet, "/v2/payments/captures/"+url.PathEscape(captureID), nil)
	if err != nil {
		return nil, err
	}
	var w captureWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode capture %s: %w", captureID, err)
	}
	return &Capture{ID: w.ID, Status: ParseCaptureStatus(w.Status), RawStatus: w.Status, Amount: w.Amount}, nil
}

// GetRefund fetches the refund details stored under id.
func (c *Client) GetRefund(ctx context.Context, id string) (*Refund, error) {
	c.logger.Info("fetching refund details", zap.String("id", id))
	body, err := c.do(ctx, "get refund", http.MethodGet, "/v2/payments/refunds/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeRefund(id, body)
}

// RefundCapture refunds the full captured amount.
func (c *Client) RefundCapture(ctx context.Context, captureID string) (*Refund, error) {
	c.logger.Info("processing refund for captured payment", zap.String("capture_id", captureID))
	body, err := c.do(ctx, "refund capture", http.MethodPost, "/v2/payments/captures/"+url.PathEscape(captureID)+"/refund", []byte("{}"))
	if err != nil {
		return nil, err
	}
	return decodeRefund(captureID, body)
}

func decodeRefund(id string, body []byte) (*Refund, error) {
	var w refundWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode refund %s: %w", id, err)
	}
	return &Refund{ID: w.ID, Status: ParseRefundStatus(w.Status), RawStatus: w.Status}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		tok, err := c.token()
		if err != nil {
			return nil, err
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("paypal %s: %w", op, err)
		}
		req.Header.Set("Content-Type", "application/json")
		tok.SetAuthHeader(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("paypal %s: %w", op, err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("paypal %s: read body: %w", op, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 1 {
			c.logger.Warn("access token rejected, refreshing", zap.String("op", op))
			c.resetToken()
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
		}
		return respBody, nil
	}
}

func (c *Client) token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens == nil {
		c.tokens = c.oauth.TokenSource(c.oauthCtx)
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return tok, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.tokens = nil
	c.mu.Unlock()
}
