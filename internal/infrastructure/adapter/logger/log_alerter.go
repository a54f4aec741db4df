package logger

import (
	"context"
	"sync"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
)

// LogAlerter records alerts as ERROR log lines tagged alert=true and keeps the
// most recent ones in memory for the operational endpoints
type LogAlerter struct {
	logger core.Logger

	mu     sync.Mutex
	recent []core.Alert
	limit  int
}

// NewLogAlerter creates an alerter that keeps up to limit recent alerts
func NewLogAlerter(logger core.Logger, limit int) *LogAlerter {
	if limit <= 0 {
		limit = 100
	}
	return &LogAlerter{logger: logger, limit: limit}
}

// Raise logs the alert
func (a *LogAlerter) Raise(_ context.Context, alert core.Alert) {
	fields := make(map[string]any, len(alert.Fields)+5)
	for k, v := range alert.Fields {
		fields[k] = v
	}
	fields["alert"] = true
	fields["alert_kind"] = alert.Kind
	fields["severity"] = string(alert.Severity)
	if alert.TransactionID != "" {
		fields["transaction_id"] = alert.TransactionID
	}
	a.logger.Error(alert.Message, fields)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.recent = append(a.recent, alert)
	if len(a.recent) > a.limit {
		a.recent = a.recent[len(a.recent)-a.limit:]
	}
}

// Recent returns a copy of the retained alerts, oldest first
func (a *LogAlerter) Recent() []core.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Alert, len(a.recent))
	copy(out, a.recent)
	return out
}
