package memory

import (
	"context"
	"sort"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
)

type webhookEventRepository struct {
	store *Store
}

func cloneEvent(e *entity.WebhookEvent) *entity.WebhookEvent {
	cp := *e
	return &cp
}

func eventKey(provider, providerEventID string) string {
	return provider + "|" + providerEventID
}

func (r *webhookEventRepository) InsertIfAbsent(ctx context.Context, event *entity.WebhookEvent) (bool, error) {
	inserted := false
	err := r.store.run(ctx, func(tx *memTx) error {
		s := r.store
		key := eventKey(event.Provider, event.ProviderEventID)
		if _, exists := s.eventKeys[key]; exists {
			return nil
		}
		s.events[event.ID] = cloneEvent(event)
		s.eventKeys[key] = event.ID
		tx.record(func() {
			delete(s.events, event.ID)
			delete(s.eventKeys, key)
		})
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *webhookEventRepository) GetByID(ctx context.Context, id string) (*entity.WebhookEvent, error) {
	var out *entity.WebhookEvent
	err := r.store.run(ctx, func(*memTx) error {
		e, ok := r.store.events[id]
		if !ok {
			return errs.ErrWebhookEventNotFound
		}
		out = cloneEvent(e)
		return nil
	})
	return out, err
}

func (r *webhookEventRepository) GetByProviderEventID(ctx context.Context, provider, providerEventID string) (*entity.WebhookEvent, error) {
	var out *entity.WebhookEvent
	err := r.store.run(ctx, func(*memTx) error {
		id, ok := r.store.eventKeys[eventKey(provider, providerEventID)]
		if !ok {
			return errs.ErrWebhookEventNotFound
		}
		out = cloneEvent(r.store.events[id])
		return nil
	})
	return out, err
}

func (r *webhookEventRepository) Resolve(ctx context.Context, id string, status entity.ProcessingStatus, transactionID, reason string, at time.Time) (bool, error) {
	resolved := false
	err := r.store.run(ctx, func(tx *memTx) error {
		s := r.store
		e, ok := s.events[id]
		if !ok {
			return errs.ErrWebhookEventNotFound
		}
		if e.Status != entity.EventReceived {
			return nil
		}
		updated := cloneEvent(e)
		updated.Status = status
		updated.Reason = reason
		updated.TransactionID = transactionID
		processedAt := at
		updated.ProcessedAt = &processedAt
		s.events[id] = updated
		tx.record(func() { s.events[id] = e })
		resolved = true
		return nil
	})
	return resolved, err
}

func (r *webhookEventRepository) ListByStatus(ctx context.Context, status entity.ProcessingStatus, limit int) ([]*entity.WebhookEvent, error) {
	out, err := r.filter(ctx, func(e *entity.WebhookEvent) bool { return e.Status == status })
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	return truncateEvents(out, limit), err
}

func (r *webhookEventRepository) FindStuckReceived(ctx context.Context, receivedBefore time.Time, limit int) ([]*entity.WebhookEvent, error) {
	out, err := r.filter(ctx, func(e *entity.WebhookEvent) bool {
		return e.Status == entity.EventReceived && e.ReceivedAt.Before(receivedBefore)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return truncateEvents(out, limit), err
}

func (r *webhookEventRepository) filter(ctx context.Context, keep func(*entity.WebhookEvent) bool) ([]*entity.WebhookEvent, error) {
	var out []*entity.WebhookEvent
	err := r.store.run(ctx, func(*memTx) error {
		for _, e := range r.store.events {
			if keep(e) {
				out = append(out, cloneEvent(e))
			}
		}
		return nil
	})
	return out, err
}

func truncateEvents(events []*entity.WebhookEvent, limit int) []*entity.WebhookEvent {
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}
