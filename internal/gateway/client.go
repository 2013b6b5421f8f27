package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ErrTimeout marks a gateway call that never completed. Callers may
// safely retry; a rejected request must not be retried blindly.
var ErrTimeout = errors.New("gateway request timed out")

type OrderParams struct {
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
}

func (p *OrderParams) Validate() error {
	if p.AmountMinor <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if p.Currency == "" {
		return errors.New("currency is required")
	}
	if p.Receipt == "" {
		return errors.New("receipt is required")
	}
	return nil
}

// OrderDescriptor carries the gateway's order record. Raw holds the
// response body verbatim so the handler can relay it unchanged; the
// typed fields are decoded from the same bytes for local bookkeeping.
type OrderDescriptor struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`

	Raw json.RawMessage `json:"-"`
}

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Client talks to the payment gateway's order API. It is constructed
// once at startup and injected into the payment service; nothing in this
// package holds global state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		timeout:    timeout,
		logger:     logger,
	}
}

// KeySecret exposes the shared secret for signature verification. The
// gateway signs completed transactions with the same key_secret used to
// authenticate order creation.
func (c *Client) KeySecret() string {
	return c.keySecret
}

// CreateOrder registers an intended charge with the gateway and returns
// its order descriptor. Error messages never contain the key secret.
func (c *Client) CreateOrder(ctx context.Context, params OrderParams) (*OrderDescriptor, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order params: %w", err)
	}

	reqBody, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/orders", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	c.logger.Info("creating gateway order",
		"url", url,
		"receipt", params.Receipt,
		"amount_minor", params.AmountMinor,
		"currency", params.Currency)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			c.logger.Error("gateway order request timed out", "receipt", params.Receipt)
			return nil, fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		c.logger.Error("gateway order request failed", "receipt", params.Receipt, "error", err)
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("gateway rejected order request",
			"status", resp.StatusCode,
			"receipt", params.Receipt)
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, gatewayErrorDetail(respBody))
	}

	var descriptor OrderDescriptor
	if err := json.Unmarshal(respBody, &descriptor); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if descriptor.ID == "" {
		return nil, errors.New("gateway returned no order")
	}
	descriptor.Raw = respBody

	c.logger.Info("gateway order created",
		"gateway_order_id", descriptor.ID,
		"receipt", descriptor.Receipt,
		"status", descriptor.Status)

	return &descriptor, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// gatewayErrorDetail extracts the gateway's error description, falling
// back to a truncated body for non-JSON responses.
func gatewayErrorDetail(body []byte) string {
	var parsed struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Description != "" {
		return parsed.Error.Description
	}
	const maxDetail = 256
	if len(body) > maxDetail {
		body = body[:maxDetail]
	}
	return string(body)
}
