package memory

import (
	"context"
	"sort"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
)

type transactionRepository struct {
	store *Store
}

func cloneTransaction(t *entity.PaymentTransaction) *entity.PaymentTransaction {
	cp := *t
	return &cp
}

// replace swaps in an updated copy and registers the undo
func (r *transactionRepository) replace(tx *memTx, updated *entity.PaymentTransaction) {
	s := r.store
	old := s.transactions[updated.ID]
	oldRef := ""
	if old != nil {
		oldRef = old.GatewayOrderRef
	}
	s.transactions[updated.ID] = updated
	if updated.GatewayOrderRef != "" && updated.GatewayOrderRef != oldRef {
		s.orderRefs[updated.GatewayOrderRef] = updated.ID
	}
	tx.record(func() {
		s.transactions[updated.ID] = old
		if updated.GatewayOrderRef != oldRef {
			delete(s.orderRefs, updated.GatewayOrderRef)
		}
	})
}

func (r *transactionRepository) Create(ctx context.Context, transaction *entity.PaymentTransaction) error {
	return r.store.run(ctx, func(tx *memTx) error {
		s := r.store
		if _, exists := s.transactions[transaction.ID]; exists {
			return errs.ErrDuplicateTransaction
		}
		if _, exists := s.idemKeys[transaction.IdempotencyKey]; exists {
			return errs.ErrDuplicateTransaction
		}
		for _, existing := range s.transactions {
			if existing.TransactionNumber == transaction.TransactionNumber {
				return errs.ErrDuplicateTransaction
			}
		}

		s.transactions[transaction.ID] = cloneTransaction(transaction)
		s.idemKeys[transaction.IdempotencyKey] = transaction.ID
		if transaction.GatewayOrderRef != "" {
			s.orderRefs[transaction.GatewayOrderRef] = transaction.ID
		}
		tx.record(func() {
			delete(s.transactions, transaction.ID)
			delete(s.idemKeys, transaction.IdempotencyKey)
			delete(s.orderRefs, transaction.GatewayOrderRef)
		})
		return nil
	})
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*entity.PaymentTransaction, error) {
	var out *entity.PaymentTransaction
	err := r.store.run(ctx, func(*memTx) error {
		t, ok := r.store.transactions[id]
		if !ok {
			return errs.ErrTransactionNotFound
		}
		out = cloneTransaction(t)
		return nil
	})
	return out, err
}

func (r *transactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entity.PaymentTransaction, error) {
	var out *entity.PaymentTransaction
	err := r.store.run(ctx, func(*memTx) error {
		id, ok := r.store.idemKeys[key]
		if !ok {
			return errs.ErrTransactionNotFound
		}
		out = cloneTransaction(r.store.transactions[id])
		return nil
	})
	return out, err
}

func (r *transactionRepository) GetByGatewayOrderRef(ctx context.Context, orderRef string) (*entity.PaymentTransaction, error) {
	var out *entity.PaymentTransaction
	err := r.store.run(ctx, func(*memTx) error {
		id, ok := r.store.orderRefs[orderRef]
		if !ok || orderRef == "" {
			return errs.ErrTransactionNotFound
		}
		out = cloneTransaction(r.store.transactions[id])
		return nil
	})
	return out, err
}

func (r *transactionRepository) AttachGatewayOrder(ctx context.Context, id string, orderRef string, at time.Time) (bool, error) {
	attached := false
	err := r.store.run(ctx, func(tx *memTx) error {
		t, ok := r.store.transactions[id]
		if !ok {
			return errs.ErrTransactionNotFound
		}
		if t.GatewayOrderRef != "" {
			return nil
		}
		if _, taken := r.store.orderRefs[orderRef]; taken {
			return errs.ErrConstraintViolation
		}
		updated := cloneTransaction(t)
		updated.GatewayOrderRef = orderRef
		updated.UpdatedAt = at
		r.replace(tx, updated)
		attached = true
		return nil
	})
	return attached, err
}

func (r *transactionRepository) CompareAndSetStatus(ctx context.Context, id string, from, to entity.TransactionStatus, paymentRef string, at time.Time) (bool, error) {
	swapped := false
	err := r.store.run(ctx, func(tx *memTx) error {
		t, ok := r.store.transactions[id]
		if !ok {
			return errs.ErrTransactionNotFound
		}
		if t.Status != from {
			return nil
		}
		updated := cloneTransaction(t)
		updated.Status = to
		updated.UpdatedAt = at
		if paymentRef != "" {
			updated.GatewayPaymentRef = paymentRef
		}
		if to == entity.StatusCompleted {
			completedAt := at
			updated.CompletedAt = &completedAt
		}
		r.replace(tx, updated)
		swapped = true
		return nil
	})
	return swapped, err
}

func (r *transactionRepository) FindDueForPolling(ctx context.Context, initiatedBefore, now time.Time, limit int) ([]*entity.PaymentTransaction, error) {
	var out []*entity.PaymentTransaction
	err := r.store.run(ctx, func(*memTx) error {
		for _, t := range r.store.transactions {
			if t.Status != entity.StatusPending || t.ManualReview {
				continue
			}
			if !t.InitiatedAt.Before(initiatedBefore) {
				continue
			}
			if t.NextPollAt != nil && t.NextPollAt.After(now) {
				continue
			}
			out = append(out, cloneTransaction(t))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *transactionRepository) SchedulePoll(ctx context.Context, id string, attempts int, nextPollAt time.Time) error {
	return r.store.run(ctx, func(tx *memTx) error {
		t, ok := r.store.transactions[id]
		if !ok {
			return errs.ErrTransactionNotFound
		}
		updated := cloneTransaction(t)
		updated.PollAttempts = attempts
		next := nextPollAt
		updated.NextPollAt = &next
		r.replace(tx, updated)
		return nil
	})
}

func (r *transactionRepository) FlagManualReview(ctx context.Context, id string, at time.Time) (bool, error) {
	flagged := false
	err := r.store.run(ctx, func(tx *memTx) error {
		t, ok := r.store.transactions[id]
		if !ok {
			return errs.ErrTransactionNotFound
		}
		if t.ManualReview || t.Status != entity.StatusPending {
			return nil
		}
		updated := cloneTransaction(t)
		updated.ManualReview = true
		updated.UpdatedAt = at
		r.replace(tx, updated)
		flagged = true
		return nil
	})
	return flagged, err
}
