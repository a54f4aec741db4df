package usecase

import (
	"context"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// WebhookDelivery is one raw notification as received over HTTP
type WebhookDelivery struct {
	Provider string
	Body     []byte
	Headers  map[string]string // canonical header names
}

// IngestResult reports what ingestion decided.
// Duplicate deliveries carry the previously recorded event.
type IngestResult struct {
	Event     *entity.WebhookEvent
	Duplicate bool
	Outcome   string // reconciliation outcome, empty when reconciliation was deferred
	Reason    string
}

// WebhookUseCase verifies, deduplicates, records and reconciles gateway notifications
type WebhookUseCase interface {
	// Ingest returns ErrSignatureInvalid, ErrUnknownProvider or ErrInvalidPayload when the
	// delivery must be rejected; any other return means the event is durably recorded.
	Ingest(ctx context.Context, delivery WebhookDelivery) (*IngestResult, error)
}
