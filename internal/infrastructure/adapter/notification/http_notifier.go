package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/collaborator"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
)

// HTTPNotifier hands confirmation messages to a mail/SMS relay over HTTP
type HTTPNotifier struct {
	url    string
	client *http.Client
	logger core.Logger
}

var _ collaborator.Notifier = (*HTTPNotifier)(nil)

// NewHTTPNotifier creates a notifier posting to url. A nil client gets one bounded by timeout.
func NewHTTPNotifier(url string, timeout time.Duration, client *http.Client, logger core.Logger) *HTTPNotifier {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPNotifier{url: url, client: client, logger: logger}
}

// Send posts the notification and succeeds only on a 2xx answer
func (n *HTTPNotifier) Send(ctx context.Context, notification collaborator.Notification) error {
	err := postJSON(ctx, n.client, n.url, notification, map[string]string{
		"Idempotency-Key": notification.TransactionID + ":" + notification.Template,
	})
	if err != nil {
		n.logger.Warn("Notification delivery failed", map[string]any{
			"transaction_id": notification.TransactionID,
			"template":       notification.Template,
			"error":          err.Error(),
		})
		return err
	}

	n.logger.Info("Notification delivered", map[string]any{
		"transaction_id": notification.TransactionID,
		"template":       notification.Template,
	})
	return nil
}

// LogNotifier only logs notifications; used when no relay is configured
type LogNotifier struct {
	logger core.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, notification collaborator.Notification) error {
	n.logger.Info("Notification (log only)", map[string]any{
		"transaction_id": notification.TransactionID,
		"template":       notification.Template,
		"recipient":      notification.Recipient,
	})
	return nil
}

// postJSON performs a single delivery attempt. Retries belong to the caller.
func postJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", errs.ErrTransientCollaborator, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: relay returned %d", errs.ErrTransientCollaborator, resp.StatusCode)
	default:
		return fmt.Errorf("relay rejected request with status %d", resp.StatusCode)
	}
}
