package repository

import (
	"context"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
)

// AuditRepository is the append-only audit table
type AuditRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewAuditRepository creates a new AuditRepository instance
func NewAuditRepository(db *gorm.DB, logger coreport.Logger) *AuditRepository {
	return &AuditRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// Append stores one audit record
func (r *AuditRepository) Append(ctx context.Context, record *entity.AuditRecord) error {
	m := model.AuditRecord{
		ID:            record.ID,
		TransactionID: record.TransactionID,
		Kind:          string(record.Kind),
		Action:        record.Action,
		Outcome:       record.Outcome,
		Reason:        record.Reason,
		Details:       record.Details,
		CreatedAt:     record.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		r.logger.Error("Failed to append audit record", map[string]any{
			"transaction_id": record.TransactionID,
			"kind":           string(record.Kind),
			"error":          err.Error(),
		})
		return r.errorClassifier.Wrap(err)
	}
	return nil
}

// ListByTransaction returns the records of a transaction in write order
func (r *AuditRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.AuditRecord, error) {
	var rows []model.AuditRecord
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.errorClassifier.Wrap(err)
	}

	out := make([]*entity.AuditRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, &entity.AuditRecord{
			ID:            m.ID,
			TransactionID: m.TransactionID,
			Kind:          entity.AuditKind(m.Kind),
			Action:        m.Action,
			Outcome:       m.Outcome,
			Reason:        m.Reason,
			Details:       m.Details,
			CreatedAt:     m.CreatedAt,
		})
	}
	return out, nil
}
