package notification

import (
	"context"
	"net/http"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
)

type alertPayload struct {
	Kind          string         `json:"kind"`
	Severity      string         `json:"severity"`
	TransactionID string         `json:"transactionId,omitempty"`
	Message       string         `json:"message"`
	Fields        map[string]any `json:"fields,omitempty"`
	RaisedAt      time.Time      `json:"raisedAt"`
}

// WebhookAlerter forwards alerts to an operator webhook after handing them to
// the local alerter. Delivery failures are logged and dropped.
type WebhookAlerter struct {
	local        core.Alerter
	url          string
	client       *http.Client
	timeout      time.Duration
	timeProvider core.TimeProvider
	logger       core.Logger
}

var _ core.Alerter = (*WebhookAlerter)(nil)

// NewWebhookAlerter wraps local so every alert is also posted to url
func NewWebhookAlerter(local core.Alerter, url string, timeout time.Duration, client *http.Client, timeProvider core.TimeProvider, logger core.Logger) *WebhookAlerter {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &WebhookAlerter{
		local:        local,
		url:          url,
		client:       client,
		timeout:      timeout,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Raise records the alert locally then posts it. The caller's cancellation does not abort delivery.
func (a *WebhookAlerter) Raise(ctx context.Context, alert core.Alert) {
	a.local.Raise(ctx, alert)

	sendCtx := context.WithoutCancel(ctx)
	if a.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, a.timeout)
		defer cancel()
	}

	payload := alertPayload{
		Kind:          alert.Kind,
		Severity:      string(alert.Severity),
		TransactionID: alert.TransactionID,
		Message:       alert.Message,
		Fields:        alert.Fields,
		RaisedAt:      a.timeProvider.Now(),
	}
	if err := postJSON(sendCtx, a.client, a.url, payload, nil); err != nil {
		a.logger.Warn("Alert delivery failed", map[string]any{
			"alert_kind": alert.Kind,
			"error":      err.Error(),
		})
	}
}
