package dto

import (
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
)

// WebhookAckResponse acknowledges a recorded webhook delivery
type WebhookAckResponse struct {
	EventID   string `json:"eventId"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	Outcome   string `json:"outcome,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// WebhookEventResponse is a stored webhook event without its raw payload
type WebhookEventResponse struct {
	ID              string     `json:"id"`
	Provider        string     `json:"provider"`
	ProviderEventID string     `json:"providerEventId"`
	EventType       string     `json:"eventType"`
	Status          string     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	TransactionID   string     `json:"transactionId,omitempty"`
	GatewayOrderRef string     `json:"gatewayOrderRef,omitempty"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	GatewayStatus   string     `json:"gatewayStatus"`
	ReceivedAt      time.Time  `json:"receivedAt"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
}

// NewWebhookAckResponse maps an ingestion result
func NewWebhookAckResponse(result *usecase.IngestResult) WebhookAckResponse {
	return WebhookAckResponse{
		EventID:   result.Event.ID,
		Status:    string(result.Event.Status),
		Duplicate: result.Duplicate,
		Outcome:   result.Outcome,
		Reason:    result.Reason,
	}
}

// NewWebhookEventResponses maps stored events
func NewWebhookEventResponses(events []*entity.WebhookEvent) []WebhookEventResponse {
	out := make([]WebhookEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, WebhookEventResponse{
			ID:              e.ID,
			Provider:        e.Provider,
			ProviderEventID: e.ProviderEventID,
			EventType:       e.EventType,
			Status:          string(e.Status),
			Reason:          e.Reason,
			TransactionID:   e.TransactionID,
			GatewayOrderRef: e.GatewayOrderRef,
			Amount:          entity.FormatMinorUnits(e.AmountMinor),
			Currency:        e.Currency,
			GatewayStatus:   e.GatewayStatus,
			ReceivedAt:      e.ReceivedAt,
			ProcessedAt:     e.ProcessedAt,
		})
	}
	return out
}
