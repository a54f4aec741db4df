package core

import "context"

// AlertSeverity classifies how urgently an operator must react
type AlertSeverity string

// Alert severities
const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Alert is an operator-facing signal raised for conditions that are never auto-corrected
type Alert struct {
	Kind          string
	Severity      AlertSeverity
	TransactionID string
	Message       string
	Fields        map[string]any
}

// Alerter raises observability alerts. A failed delivery is logged by the implementation, never returned.
type Alerter interface {
	Raise(ctx context.Context, alert Alert)
}
