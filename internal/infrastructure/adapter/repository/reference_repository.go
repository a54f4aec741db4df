package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
)

// ReferenceRepository reads and updates the payment columns of registrations and donations
type ReferenceRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewReferenceRepository creates a new ReferenceRepository instance
func NewReferenceRepository(db *gorm.DB, logger coreport.Logger) *ReferenceRepository {
	return &ReferenceRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func referenceModel(referenceType entity.ReferenceType) (any, error) {
	switch referenceType {
	case entity.ReferenceRegistration:
		return &model.Registration{}, nil
	case entity.ReferenceDonation:
		return &model.Donation{}, nil
	}
	return nil, fmt.Errorf("%w: unsupported reference type %q", errs.ErrInvalidReference, referenceType)
}

// Get retrieves the referenced registration or donation
func (r *ReferenceRepository) Get(ctx context.Context, referenceType entity.ReferenceType, id string) (*entity.PaymentReference, error) {
	dest, err := referenceModel(referenceType)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrReferenceNotFound
		}
		return nil, r.errorClassifier.Wrap(err)
	}

	switch m := dest.(type) {
	case *model.Registration:
		return &entity.PaymentReference{
			Type:                 entity.ReferenceRegistration,
			ID:                   m.ID,
			PayerName:            m.AttendeeName,
			PayerEmail:           m.AttendeeEmail,
			Description:          m.EventName,
			PaymentStatus:        entity.TransactionStatus(m.PaymentStatus),
			PaymentTransactionID: m.PaymentTransactionID,
			UpdatedAt:            m.UpdatedAt,
		}, nil
	case *model.Donation:
		return &entity.PaymentReference{
			Type:                 entity.ReferenceDonation,
			ID:                   m.ID,
			PayerName:            m.DonorName,
			PayerEmail:           m.DonorEmail,
			Description:          m.Campaign,
			PaymentStatus:        entity.TransactionStatus(m.PaymentStatus),
			PaymentTransactionID: m.PaymentTransactionID,
			UpdatedAt:            m.UpdatedAt,
		}, nil
	}
	return nil, errs.ErrInternalServer
}

// update applies updates to the reference row when it also matches cond.
// It reports whether a row changed and returns ErrReferenceNotFound when the row is missing.
func (r *ReferenceRepository) update(ctx context.Context, referenceType entity.ReferenceType, id string, updates map[string]any, cond string, args ...any) (bool, error) {
	target, err := referenceModel(referenceType)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Model(target).Where("id = ?", id).Where(cond, args...).Updates(updates)
	if result.Error != nil {
		r.logger.Error("Failed to update payment reference", map[string]any{
			"reference_type": string(referenceType),
			"reference_id":   id,
			"error":          result.Error.Error(),
		})
		return false, r.errorClassifier.Wrap(result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	if _, err := r.Get(ctx, referenceType, id); err != nil {
		return false, err
	}
	return false, nil
}

// AttachTransaction links a new transaction and marks the payment PENDING unless it is already paid
func (r *ReferenceRepository) AttachTransaction(ctx context.Context, referenceType entity.ReferenceType, id, transactionID string, at time.Time) error {
	attached, err := r.update(ctx, referenceType, id, map[string]any{
		"payment_transaction_id": transactionID,
		"payment_status":         string(entity.StatusPending),
		"updated_at":             at,
	}, "(payment_status IS NULL OR payment_status <> ?)", string(entity.StatusCompleted))
	if err != nil {
		return err
	}
	if !attached {
		return errs.ErrReferenceAlreadyPaid
	}
	return nil
}

// UpdatePaymentStatus records the reconciled outcome of transactionID while the reference
// is unattached or attached to it. A completion also claims a reference that is not paid.
func (r *ReferenceRepository) UpdatePaymentStatus(ctx context.Context, referenceType entity.ReferenceType, id, transactionID string, status entity.TransactionStatus, at time.Time) (bool, error) {
	cond := "payment_transaction_id IS NULL OR payment_transaction_id = '' OR payment_transaction_id = ?"
	args := []any{transactionID}
	if status == entity.StatusCompleted {
		cond += " OR payment_status IS NULL OR payment_status <> ?"
		args = append(args, string(entity.StatusCompleted))
	}
	cond = "(" + cond + ")"
	return r.update(ctx, referenceType, id, map[string]any{
		"payment_transaction_id": transactionID,
		"payment_status":         string(status),
		"updated_at":             at,
	}, cond, args...)
}
