package gateway

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
	"time"

	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/gateway"
)

// maxResponseBody bounds how much of a gateway response is read
const maxResponseBody = 1 << 20

// Config holds the gateway endpoint and credentials
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// HTTPGateway talks to an orders API over HTTPS with basic auth
type HTTPGateway struct {
	config Config
	client *http.Client
	logger core.Logger
}

// Ensure HTTPGateway implements the PaymentGateway port
var _ gateway.PaymentGateway = (*HTTPGateway)(nil)

// NewHTTPGateway creates a gateway client. A nil client gets one bounded by config.Timeout.
func NewHTTPGateway(config Config, client *http.Client, logger core.Logger) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &HTTPGateway{config: config, client: client, logger: logger}
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderBody struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type paymentBody struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type paymentList struct {
	Items []paymentBody `json:"items"`
}

type errorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens a gateway order for the transaction
func (g *HTTPGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	payload := createOrderBody{
		Amount:   req.AmountMinor,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}

	var order orderBody
	if err := g.do(ctx, http.MethodPost, "/orders", payload, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order response without id", errs.ErrTransientGateway)
	}

	g.logger.Info("Gateway order created", map[string]any{
		"receipt":   req.Receipt,
		"order_ref": order.ID,
		"status":    order.Status,
	})

	return &gateway.Order{OrderRef: order.ID, Status: order.Status}, nil
}

// QueryOrder returns the authoritative status of an order.
// A paid order is resolved to its captured payment so the payment reference is known.
func (g *HTTPGateway) QueryOrder(ctx context.Context, orderRef string) (*gateway.OrderStatus, error) {
	var order orderBody
	if err := g.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderRef), nil, &order); err != nil {
		return nil, err
	}

	status := &gateway.OrderStatus{
		OrderRef:    orderRef,
		AmountMinor: order.Amount,
		Currency:    strings.ToUpper(order.Currency),
		Status:      order.Status,
	}
	if !strings.EqualFold(order.Status, "paid") {
		return status, nil
	}

	var payments paymentList
	if err := g.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderRef)+"/payments", nil, &payments); err != nil {
		return nil, err
	}
	for _, payment := range payments.Items {
		if strings.EqualFold(payment.Status, "captured") {
			status.PaymentRef = payment.ID
			status.AmountMinor = payment.Amount
			status.Currency = strings.ToUpper(payment.Currency)
			status.Status = payment.Status
			break
		}
	}

	return status, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.SetBasicAuth(g.config.KeyID, g.config.KeySecret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("Gateway request failed", map[string]any{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", errs.ErrTransientGateway, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Debug("Failed to close gateway response body", map[string]any{"error": err.Error()})
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", errs.ErrTransientGateway, err)
	}

	g.logger.Debug("Gateway response received", map[string]any{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", errs.ErrTransientGateway, err)
	}
	return nil
}

// statusError classifies a non-2xx answer. 5xx and 429 are retryable, anything else is permanent.
func statusError(code int, raw []byte) error {
	message := http.StatusText(code)
	var parsed errorBody
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Description != "" {
		message = parsed.Error.Description
	}

	if code >= 500 || code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: gateway returned %d: %s", errs.ErrTransientGateway, code, message)
	}
	return &RejectedError{StatusCode: code, Message: message}
}

// RejectedError is a permanent gateway refusal (4xx other than rate limiting)
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request with status %d: %s", e.StatusCode, e.Message)
}
