package memory

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
)

type referenceRepository struct {
	store *Store
}

func (r *referenceRepository) Get(ctx context.Context, referenceType entity.ReferenceType, id string) (*entity.PaymentReference, error) {
	var out *entity.PaymentReference
	err := r.store.run(ctx, func(*memTx) error {
		ref, ok := r.store.references[referenceKey(referenceType, id)]
		if !ok {
			return errs.ErrReferenceNotFound
		}
		cp := *ref
		out = &cp
		return nil
	})
	return out, err
}

// update applies fn to a copy of the reference and stores it when fn reports a change
func (r *referenceRepository) update(ctx context.Context, referenceType entity.ReferenceType, id string, fn func(*entity.PaymentReference) (bool, error)) (bool, error) {
	var changed bool
	err := r.store.run(ctx, func(tx *memTx) error {
		s := r.store
		key := referenceKey(referenceType, id)
		ref, ok := s.references[key]
		if !ok {
			return errs.ErrReferenceNotFound
		}
		cp := *ref
		apply, err := fn(&cp)
		if err != nil || !apply {
			return err
		}
		s.references[key] = &cp
		tx.record(func() { s.references[key] = ref })
		changed = true
		return nil
	})
	return changed, err
}

func (r *referenceRepository) AttachTransaction(ctx context.Context, referenceType entity.ReferenceType, id, transactionID string, at time.Time) error {
	_, err := r.update(ctx, referenceType, id, func(ref *entity.PaymentReference) (bool, error) {
		if ref.IsPaid() {
			return false, errs.ErrReferenceAlreadyPaid
		}
		ref.PaymentTransactionID = transactionID
		ref.PaymentStatus = entity.StatusPending
		ref.UpdatedAt = at
		return true, nil
	})
	return err
}

func (r *referenceRepository) UpdatePaymentStatus(ctx context.Context, referenceType entity.ReferenceType, id, transactionID string, status entity.TransactionStatus, at time.Time) (bool, error) {
	return r.update(ctx, referenceType, id, func(ref *entity.PaymentReference) (bool, error) {
		if !ref.AcceptsOutcome(transactionID, status) {
			return false, nil
		}
		ref.PaymentTransactionID = transactionID
		ref.PaymentStatus = status
		ref.UpdatedAt = at
		return true, nil
	})
}
