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
)

// TransactionRepository implements TransactionRepository interface using GORM.
// Status writes are conditional updates; the affected row count decides who won.
type TransactionRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewTransactionRepository creates a new TransactionRepository instance
func NewTransactionRepository(db *gorm.DB, logger coreport.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// entityToModel converts a transaction entity to a database model
func (r *TransactionRepository) entityToModel(t *entity.PaymentTransaction) model.Transaction {
	var orderRef *string
	if t.GatewayOrderRef != "" {
		ref := t.GatewayOrderRef
		orderRef = &ref
	}
	return model.Transaction{
		ID:                t.ID,
		TransactionNumber: t.TransactionNumber,
		IdempotencyKey:    t.IdempotencyKey,
		AmountMinor:       t.AmountMinor,
		Currency:          t.Currency,
		Status:            string(t.Status),
		GatewayOrderRef:   orderRef,
		GatewayPaymentRef: t.GatewayPaymentRef,
		ReferenceType:     string(t.ReferenceType),
		ReferenceID:       t.ReferenceID,
		PayerEmail:        t.PayerEmail,
		InitiatedAt:       t.InitiatedAt,
		CompletedAt:       t.CompletedAt,
		UpdatedAt:         t.UpdatedAt,
		PollAttempts:      t.PollAttempts,
		NextPollAt:        t.NextPollAt,
		ManualReview:      t.ManualReview,
	}
}

// modelToEntity converts a transaction model to an entity
func (r *TransactionRepository) modelToEntity(m *model.Transaction) *entity.PaymentTransaction {
	t := &entity.PaymentTransaction{
		ID:                m.ID,
		TransactionNumber: m.TransactionNumber,
		IdempotencyKey:    m.IdempotencyKey,
		AmountMinor:       m.AmountMinor,
		Currency:          m.Currency,
		Status:            entity.TransactionStatus(m.Status),
		GatewayPaymentRef: m.GatewayPaymentRef,
		ReferenceType:     entity.ReferenceType(m.ReferenceType),
		ReferenceID:       m.ReferenceID,
		PayerEmail:        m.PayerEmail,
		InitiatedAt:       m.InitiatedAt,
		CompletedAt:       m.CompletedAt,
		UpdatedAt:         m.UpdatedAt,
		PollAttempts:      m.PollAttempts,
		NextPollAt:        m.NextPollAt,
		ManualReview:      m.ManualReview,
	}
	if m.GatewayOrderRef != nil {
		t.GatewayOrderRef = *m.GatewayOrderRef
	}
	return t
}

// Create saves a new transaction
func (r *TransactionRepository) Create(ctx context.Context, transaction *entity.PaymentTransaction) error {
	m := r.entityToModel(transaction)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if r.errorClassifier.IsDuplicateKeyError(err) {
			r.logger.Warn("Duplicate transaction detected", map[string]any{
				"transaction_id":  transaction.ID,
				"idempotency_key": transaction.IdempotencyKey,
			})
			return errs.ErrDuplicateTransaction
		}
		r.logger.Error("Failed to create transaction", map[string]any{
			"transaction_id": transaction.ID,
			"error":          err.Error(),
		})
		return r.errorClassifier.Wrap(err)
	}
	return nil
}

func (r *TransactionRepository) first(ctx context.Context, query string, args ...any) (*entity.PaymentTransaction, error) {
	var m model.Transaction
	err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		return nil, r.errorClassifier.Wrap(err)
	}
	return r.modelToEntity(&m), nil
}

// GetByID retrieves a transaction by id
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*entity.PaymentTransaction, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByIdempotencyKey retrieves the transaction opened under key
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entity.PaymentTransaction, error) {
	return r.first(ctx, "idempotency_key = ?", key)
}

// GetByGatewayOrderRef resolves a gateway order reference
func (r *TransactionRepository) GetByGatewayOrderRef(ctx context.Context, orderRef string) (*entity.PaymentTransaction, error) {
	if orderRef == "" {
		return nil, errs.ErrTransactionNotFound
	}
	return r.first(ctx, "gateway_order_ref = ?", orderRef)
}

// AttachGatewayOrder sets the order reference only while none is set
func (r *TransactionRepository) AttachGatewayOrder(ctx context.Context, id, orderRef string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND gateway_order_ref IS NULL", id).
		Updates(map[string]any{
			"gateway_order_ref": orderRef,
			"updated_at":        at,
		})
	if result.Error != nil {
		return false, r.errorClassifier.Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
	}
	return result.RowsAffected == 1, nil
}

// CompareAndSetStatus moves the transaction to `to` only while its status is still `from`
func (r *TransactionRepository) CompareAndSetStatus(ctx context.Context, id string, from, to entity.TransactionStatus, paymentRef string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     string(to),
		"updated_at": at,
	}
	if paymentRef != "" {
		updates["gateway_payment_ref"] = paymentRef
	}
	if to == entity.StatusCompleted {
		updates["completed_at"] = at
	}

	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		r.logger.Error("Failed to update transaction status", map[string]any{
			"transaction_id": id,
			"from":           string(from),
			"to":             string(to),
			"error":          result.Error.Error(),
		})
		return false, r.errorClassifier.Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		r.logger.Debug("Status compare-and-set lost", map[string]any{
			"transaction_id": id,
			"expected":       string(from),
		})
		return false, nil
	}
	return true, nil
}

// FindDueForPolling lists PENDING transactions past the grace window whose next poll is due
func (r *TransactionRepository) FindDueForPolling(ctx context.Context, initiatedBefore, now time.Time, limit int) ([]*entity.PaymentTransaction, error) {
	var rows []model.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND manual_review = ? AND initiated_at < ?", string(entity.StatusPending), false, initiatedBefore).
		Where("next_poll_at IS NULL OR next_poll_at <= ?", now).
		Order("initiated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, r.errorClassifier.Wrap(err)
	}

	out := make([]*entity.PaymentTransaction, 0, len(rows))
	for i := range rows {
		out = append(out, r.modelToEntity(&rows[i]))
	}
	return out, nil
}

// SchedulePoll stores the poll attempt count and the next due time
func (r *TransactionRepository) SchedulePoll(ctx context.Context, id string, attempts int, nextPollAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"poll_attempts": attempts,
			"next_poll_at":  nextPollAt,
		})
	if result.Error != nil {
		return r.errorClassifier.Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.ErrTransactionNotFound
	}
	return nil
}

// FlagManualReview marks a still PENDING transaction for manual intervention
func (r *TransactionRepository) FlagManualReview(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND status = ? AND manual_review = ?", id, string(entity.StatusPending), false).
		Updates(map[string]any{
			"manual_review": true,
			"updated_at":    at,
		})
	if result.Error != nil {
		return false, r.errorClassifier.Wrap(result.Error)
	}
	return result.RowsAffected == 1, nil
}
