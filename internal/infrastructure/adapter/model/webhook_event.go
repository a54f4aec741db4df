package model

import (
	"time"
)

// WebhookEvent is every gateway notification ever received, unique per provider event id
type WebhookEvent struct {
	ID                string `gorm:"primaryKey;size:36"`
	Provider          string `gorm:"not null;size:32;uniqueIndex:idx_webhook_events_provider_event,priority:1"`
	ProviderEventID   string `gorm:"not null;size:255;uniqueIndex:idx_webhook_events_provider_event,priority:2"`
	EventType         string `gorm:"size:64"`
	RawPayload        []byte `gorm:"type:bytea"`
	Status            string `gorm:"not null;size:20;index:idx_webhook_events_status_received,priority:1"`
	Reason            string `gorm:"type:text"`
	TransactionID     string `gorm:"size:36;index"`
	GatewayOrderRef   string `gorm:"size:128;index"`
	GatewayPaymentRef string `gorm:"size:128"`
	AmountMinor       int64
	Currency          string    `gorm:"size:3"`
	GatewayStatus     string    `gorm:"size:32"`
	ReceivedAt        time.Time `gorm:"not null;index:idx_webhook_events_status_received,priority:2"`
	ProcessedAt       *time.Time
}

// TableName specifies the table name for WebhookEvent
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
