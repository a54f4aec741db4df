package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus is the ingestion state of a webhook event
type ProcessingStatus string

// ProcessingStatus constants
const (
	EventReceived  ProcessingStatus = "RECEIVED"
	EventProcessed ProcessingStatus = "PROCESSED"
	EventIgnored   ProcessingStatus = "IGNORED"
	EventFailed    ProcessingStatus = "FAILED"
)

// EventSource tells where a normalized event came from
type EventSource string

// Event sources
const (
	SourceWebhook EventSource = "webhook"
	SourcePoll    EventSource = "poll"
	SourceReplay  EventSource = "replay"
)

// PollerProvider is the provider name recorded for gateway-query derived events
const PollerProvider = "poller"

// NormalizedEvent is the single internal event shape consumed by reconciliation
type NormalizedEvent struct {
	Provider          string
	ProviderEventID   string
	EventType         string
	GatewayOrderRef   string
	GatewayPaymentRef string
	AmountMinor       int64
	Currency          string
	Status            string
	Source            EventSource
}

// LogFields returns the event identity for structured logging
func (e NormalizedEvent) LogFields() map[string]any {
	return map[string]any{
		"provider":          e.Provider,
		"provider_event_id": e.ProviderEventID,
		"event_type":        e.EventType,
		"gateway_order_ref": e.GatewayOrderRef,
		"gateway_status":    e.Status,
		"source":            string(e.Source),
	}
}

// WebhookEvent is the durable record of one gateway notification
type WebhookEvent struct {
	ID                string
	Provider          string
	ProviderEventID   string // unique together with Provider
	EventType         string
	RawPayload        []byte
	Status            ProcessingStatus
	Reason            string
	TransactionID     string // resolved transaction, empty when unknown
	GatewayOrderRef   string
	GatewayPaymentRef string
	AmountMinor       int64
	Currency          string
	GatewayStatus     string
	ReceivedAt        time.Time
	ProcessedAt       *time.Time
}

// NewWebhookEvent builds a RECEIVED record for a normalized event
func NewWebhookEvent(event NormalizedEvent, raw []byte, now time.Time) *WebhookEvent {
	return &WebhookEvent{
		ID:                uuid.NewString(),
		Provider:          event.Provider,
		ProviderEventID:   event.ProviderEventID,
		EventType:         event.EventType,
		RawPayload:        raw,
		Status:            EventReceived,
		GatewayOrderRef:   event.GatewayOrderRef,
		GatewayPaymentRef: event.GatewayPaymentRef,
		AmountMinor:       event.AmountMinor,
		Currency:          event.Currency,
		GatewayStatus:     event.Status,
		ReceivedAt:        now,
	}
}

// Normalized rebuilds the normalized event from the stored columns
func (e *WebhookEvent) Normalized(source EventSource) NormalizedEvent {
	return NormalizedEvent{
		Provider:          e.Provider,
		ProviderEventID:   e.ProviderEventID,
		EventType:         e.EventType,
		GatewayOrderRef:   e.GatewayOrderRef,
		GatewayPaymentRef: e.GatewayPaymentRef,
		AmountMinor:       e.AmountMinor,
		Currency:          e.Currency,
		Status:            e.GatewayStatus,
		Source:            source,
	}
}

// PollEventID is the deterministic event id recorded for a gateway-query result
func PollEventID(orderRef, status string) string {
	return "poll:" + orderRef + ":" + strings.ToLower(status)
}

var (
	successStatuses = map[string]bool{"success": true, "succeeded": true, "captured": true, "paid": true, "completed": true}
	failureStatuses = map[string]bool{"failed": true, "failure": true, "cancelled": true, "canceled": true, "declined": true, "expired": true}
	pendingStatuses = map[string]bool{"pending": true, "created": true, "authorized": true, "attempted": true, "processing": true}
)

// TargetStatus maps a gateway event to the transaction status it asks for.
// A refund is only recognised from an explicit refund event type or refunded status.
// ok is false when the event does not move the transaction.
func TargetStatus(eventType, status string) (target TransactionStatus, ok bool) {
	eventType = strings.ToLower(strings.TrimSpace(eventType))
	status = strings.ToLower(strings.TrimSpace(status))

	if strings.Contains(eventType, "refund") || status == "refunded" {
		return StatusRefunded, true
	}
	switch {
	case successStatuses[status]:
		return StatusCompleted, true
	case failureStatuses[status]:
		return StatusFailed, true
	}
	return "", false
}

// IsPendingGatewayStatus reports whether the gateway still considers the order open
func IsPendingGatewayStatus(status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	return status == "" || pendingStatuses[status]
}
