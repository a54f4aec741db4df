package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/reconciliation"
)

// Applier is the reconciliation entry point
type Applier interface {
	Apply(ctx context.Context, eventID string, event entity.NormalizedEvent) (*reconciliation.Result, error)
}

// Ingestor verifies, deduplicates and records gateway notifications, then hands them to reconciliation
type Ingestor struct {
	providers Registry
	uow       persistence.UnitOfWork
	applier   Applier
	clock     coreport.TimeProvider
	logger    coreport.Logger
}

// NewIngestor creates a webhook ingestor
func NewIngestor(providers Registry, uow persistence.UnitOfWork, applier Applier, clock coreport.TimeProvider, logger coreport.Logger) *Ingestor {
	return &Ingestor{
		providers: providers,
		uow:       uow,
		applier:   applier,
		clock:     clock,
		logger:    logger,
	}
}

var _ usecase.WebhookUseCase = (*Ingestor)(nil)

// Ingest handles one HTTP delivery
func (i *Ingestor) Ingest(ctx context.Context, delivery usecase.WebhookDelivery) (*usecase.IngestResult, error) {
	provider, err := i.providers.Lookup(delivery.Provider)
	if err != nil {
		i.logger.Warn("Webhook for unknown provider rejected", map[string]any{"provider": delivery.Provider})
		return nil, err
	}

	if err := provider.Verify(delivery.Body, delivery.Headers); err != nil {
		i.logger.Warn("Webhook signature verification failed", map[string]any{
			"security_event": true,
			"provider":       provider.Name(),
			"body_bytes":     len(delivery.Body),
		})
		return nil, err
	}

	event, err := provider.Normalize(delivery.Body, delivery.Headers)
	if err != nil {
		i.logger.Warn("Webhook payload rejected", map[string]any{
			"provider": provider.Name(),
			"error":    err.Error(),
		})
		return nil, err
	}
	if err := ValidateEvent(event); err != nil {
		i.logger.Warn("Webhook payload rejected", map[string]any{
			"provider": provider.Name(),
			"error":    err.Error(),
		})
		return nil, err
	}

	return i.Submit(ctx, event, delivery.Body)
}

// Submit records an already trusted normalized event (webhook or poll derived) once per
// (provider, providerEventId) and reconciles it. Reconciliation failures that leave the
// event undecided are logged and left for replay; the event is durable either way.
func (i *Ingestor) Submit(ctx context.Context, event entity.NormalizedEvent, raw []byte) (*usecase.IngestResult, error) {
	repo := i.uow.GetWebhookEventRepository(ctx)
	record := entity.NewWebhookEvent(event, raw, i.clock.Now())

	inserted, err := repo.InsertIfAbsent(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to record webhook event: %w", err)
	}
	if !inserted {
		existing, err := repo.GetByProviderEventID(ctx, event.Provider, event.ProviderEventID)
		if err != nil {
			return nil, fmt.Errorf("failed to load duplicate webhook event: %w", err)
		}
		fields := event.LogFields()
		fields["event_status"] = string(existing.Status)
		i.logger.Info("Duplicate webhook event acknowledged", fields)
		return &usecase.IngestResult{Event: existing, Duplicate: true}, nil
	}

	i.logger.Debug("Webhook event recorded", event.LogFields())

	result, err := i.applier.Apply(ctx, record.ID, event)
	if err != nil {
		fields := event.LogFields()
		fields["event_id"] = record.ID
		fields["error"] = err.Error()
		i.logger.Warn("Reconciliation deferred, event left for replay", fields)
		return &usecase.IngestResult{Event: record}, nil
	}

	stored, err := repo.GetByID(ctx, record.ID)
	if err != nil && !errors.Is(err, errs.ErrWebhookEventNotFound) {
		return nil, err
	}
	if stored == nil {
		stored = record
	}
	return &usecase.IngestResult{
		Event:   stored,
		Outcome: string(result.Outcome),
		Reason:  result.Reason,
	}, nil
}
