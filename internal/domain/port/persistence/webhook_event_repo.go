package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// WebhookEventRepository stores ingested gateway notifications
type WebhookEventRepository interface {
	// InsertIfAbsent atomically records the event unless (provider, providerEventId) exists.
	// Returns false for a duplicate.
	InsertIfAbsent(ctx context.Context, event *entity.WebhookEvent) (bool, error)

	// GetByID retrieves an event by its internal id
	//
	// Possible errors:
	// - ErrWebhookEventNotFound: If no event has the given id
	GetByID(ctx context.Context, id string) (*entity.WebhookEvent, error)

	// GetByProviderEventID retrieves an event by its deduplication key
	GetByProviderEventID(ctx context.Context, provider, providerEventID string) (*entity.WebhookEvent, error)

	// Resolve moves a RECEIVED event to its final processing status.
	// Returns false if the event was already resolved.
	Resolve(ctx context.Context, id string, status entity.ProcessingStatus, transactionID, reason string, at time.Time) (bool, error)

	// ListByStatus lists events in the given processing status, newest first
	ListByStatus(ctx context.Context, status entity.ProcessingStatus, limit int) ([]*entity.WebhookEvent, error)

	// FindStuckReceived lists events still RECEIVED that arrived before cutoff, oldest first
	FindStuckReceived(ctx context.Context, receivedBefore time.Time, limit int) ([]*entity.WebhookEvent, error)
}
