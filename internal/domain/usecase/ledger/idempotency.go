package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
)

// IdempotencyHandler resolves initiating actions that already opened a transaction
type IdempotencyHandler struct {
	uow persistence.UnitOfWork
}

// NewIdempotencyHandler creates a new IdempotencyHandler
func NewIdempotencyHandler(uow persistence.UnitOfWork) *IdempotencyHandler {
	return &IdempotencyHandler{uow: uow}
}

// CheckIdempotency looks up the transaction opened under the given key
// Returns the transaction, a boolean indicating if it was found, and any error
func (h *IdempotencyHandler) CheckIdempotency(ctx context.Context, key string) (*entity.PaymentTransaction, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	txn, err := h.uow.GetTransactionRepository(ctx).GetByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, errs.ErrTransactionNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return txn, true, nil
}

// MatchRequest rejects a replayed key whose amount, currency or reference differ from
// the transaction opened under it
func (h *IdempotencyHandler) MatchRequest(txn *entity.PaymentTransaction, req CreateRequest) error {
	amount, err := entity.ParseAmount(req.Amount)
	if err != nil {
		return err
	}
	currency, err := entity.NormalizeCurrency(req.Currency)
	if err != nil {
		return err
	}
	if !txn.Matches(amount, currency) ||
		string(txn.ReferenceType) != req.ReferenceType ||
		txn.ReferenceID != req.ReferenceID {
		return fmt.Errorf("%w: key %s belongs to transaction %s", errs.ErrIdempotencyKeyReused, req.IdempotencyKey, txn.ID)
	}
	return nil
}
