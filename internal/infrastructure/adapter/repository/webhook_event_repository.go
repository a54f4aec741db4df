package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEventRepository stores gateway notifications. The unique index on
// (provider, provider_event_id) is the deduplication point.
type WebhookEventRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewWebhookEventRepository creates a new WebhookEventRepository instance
func NewWebhookEventRepository(db *gorm.DB, logger coreport.Logger) *WebhookEventRepository {
	return &WebhookEventRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func webhookEventToModel(e *entity.WebhookEvent) model.WebhookEvent {
	return model.WebhookEvent{
		ID:                e.ID,
		Provider:          e.Provider,
		ProviderEventID:   e.ProviderEventID,
		EventType:         e.EventType,
		RawPayload:        e.RawPayload,
		Status:            string(e.Status),
		Reason:            e.Reason,
		TransactionID:     e.TransactionID,
		GatewayOrderRef:   e.GatewayOrderRef,
		GatewayPaymentRef: e.GatewayPaymentRef,
		AmountMinor:       e.AmountMinor,
		Currency:          e.Currency,
		GatewayStatus:     e.GatewayStatus,
		ReceivedAt:        e.ReceivedAt,
		ProcessedAt:       e.ProcessedAt,
	}
}

func webhookEventToEntity(m *model.WebhookEvent) *entity.WebhookEvent {
	return &entity.WebhookEvent{
		ID:                m.ID,
		Provider:          m.Provider,
		ProviderEventID:   m.ProviderEventID,
		EventType:         m.EventType,
		RawPayload:        m.RawPayload,
		Status:            entity.ProcessingStatus(m.Status),
		Reason:            m.Reason,
		TransactionID:     m.TransactionID,
		GatewayOrderRef:   m.GatewayOrderRef,
		GatewayPaymentRef: m.GatewayPaymentRef,
		AmountMinor:       m.AmountMinor,
		Currency:          m.Currency,
		GatewayStatus:     m.GatewayStatus,
		ReceivedAt:        m.ReceivedAt,
		ProcessedAt:       m.ProcessedAt,
	}
}

// InsertIfAbsent records the event unless its provider event id was seen before
func (r *WebhookEventRepository) InsertIfAbsent(ctx context.Context, event *entity.WebhookEvent) (bool, error) {
	m := webhookEventToModel(event)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(&m)
	if result.Error != nil {
		r.logger.Error("Failed to record webhook event", map[string]any{
			"provider":          event.Provider,
			"provider_event_id": event.ProviderEventID,
			"error":             result.Error.Error(),
		})
		return false, r.errorClassifier.Wrap(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *WebhookEventRepository) first(ctx context.Context, query string, args ...any) (*entity.WebhookEvent, error) {
	var m model.WebhookEvent
	if err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrWebhookEventNotFound
		}
		return nil, r.errorClassifier.Wrap(err)
	}
	return webhookEventToEntity(&m), nil
}

// GetByID retrieves an event by id
func (r *WebhookEventRepository) GetByID(ctx context.Context, id string) (*entity.WebhookEvent, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByProviderEventID retrieves an event by its deduplication key
func (r *WebhookEventRepository) GetByProviderEventID(ctx context.Context, provider, providerEventID string) (*entity.WebhookEvent, error) {
	return r.first(ctx, "provider = ? AND provider_event_id = ?", provider, providerEventID)
}

// Resolve moves a RECEIVED event to its final status
func (r *WebhookEventRepository) Resolve(ctx context.Context, id string, status entity.ProcessingStatus, transactionID, reason string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ? AND status = ?", id, string(entity.EventReceived)).
		Updates(map[string]any{
			"status":         string(status),
			"transaction_id": transactionID,
			"reason":         reason,
			"processed_at":   at,
		})
	if result.Error != nil {
		return false, r.errorClassifier.Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// ListByStatus lists events in a processing status, newest first
func (r *WebhookEventRepository) ListByStatus(ctx context.Context, status entity.ProcessingStatus, limit int) ([]*entity.WebhookEvent, error) {
	return r.find(r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("received_at DESC").
		Limit(limit))
}

// FindStuckReceived lists RECEIVED events older than the cutoff, oldest first
func (r *WebhookEventRepository) FindStuckReceived(ctx context.Context, receivedBefore time.Time, limit int) ([]*entity.WebhookEvent, error) {
	return r.find(r.db.WithContext(ctx).
		Where("status = ? AND received_at < ?", string(entity.EventReceived), receivedBefore).
		Order("received_at ASC").
		Limit(limit))
}

func (r *WebhookEventRepository) find(query *gorm.DB) ([]*entity.WebhookEvent, error) {
	var rows []model.WebhookEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.errorClassifier.Wrap(err)
	}
	out := make([]*entity.WebhookEvent, 0, len(rows))
	for i := range rows {
		out = append(out, webhookEventToEntity(&rows[i]))
	}
	return out, nil
}
