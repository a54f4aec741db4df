package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/audit"
)

// CreateRequest carries the validated input of a transaction creation
type CreateRequest struct {
	IdempotencyKey string
	Amount         string
	Currency       string
	ReferenceType  string
	ReferenceID    string
}

// Ledger is the sole writer of payment transaction state.
// Every operation runs against the unit of work carried by ctx when there is one.
type Ledger struct {
	uow         persistence.UnitOfWork
	recorder    *audit.Recorder
	idempotency *IdempotencyHandler
	clock       coreport.TimeProvider
	logger      coreport.Logger
}

// NewLedger creates a new transaction ledger
func NewLedger(uow persistence.UnitOfWork, recorder *audit.Recorder, clock coreport.TimeProvider, logger coreport.Logger) *Ledger {
	return &Ledger{
		uow:         uow,
		recorder:    recorder,
		idempotency: NewIdempotencyHandler(uow),
		clock:       clock,
		logger:      logger,
	}
}

// Create opens a PENDING transaction for an initiating action and links it to the referenced
// registration or donation. Exactly one transaction exists per idempotency key: a repeated key
// with the same parameters returns the existing transaction with replayed set. A reference that
// is already paid accepts no new transaction.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (txn *entity.PaymentTransaction, replayed bool, err error) {
	existing, found, err := l.idempotency.CheckIdempotency(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if found {
		return l.replay(existing, req)
	}

	var payerEmail string
	ref, err := l.uow.GetReferenceRepository(ctx).Get(ctx, entity.ReferenceType(req.ReferenceType), req.ReferenceID)
	if err != nil {
		return nil, false, err
	}
	if ref.IsPaid() {
		return nil, false, fmt.Errorf("%w: %s %s settled by transaction %s",
			errs.ErrReferenceAlreadyPaid, ref.Type, ref.ID, ref.PaymentTransactionID)
	}
	payerEmail = ref.PayerEmail

	txn, err = entity.NewPaymentTransaction(req.IdempotencyKey, req.Amount, req.Currency, req.ReferenceType, req.ReferenceID, payerEmail, l.clock.Now())
	if err != nil {
		return nil, false, err
	}

	txCtx, err := l.uow.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err != nil {
			_ = l.uow.Rollback(txCtx)
		}
	}()

	if err = l.uow.GetTransactionRepository(txCtx).Create(txCtx, txn); err != nil {
		if errors.Is(err, errs.ErrDuplicateTransaction) {
			// Lost a race against the same initiating action
			_ = l.uow.Rollback(txCtx)
			existing, found, checkErr := l.idempotency.CheckIdempotency(ctx, req.IdempotencyKey)
			if checkErr == nil && found {
				txn, replayed, err = l.replay(existing, req)
				return txn, replayed, err
			}
		}
		return nil, false, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err = l.uow.GetReferenceRepository(txCtx).AttachTransaction(txCtx, txn.ReferenceType, txn.ReferenceID, txn.ID, txn.InitiatedAt); err != nil {
		return nil, false, fmt.Errorf("failed to attach transaction to reference: %w", err)
	}
	if err = l.recorder.Record(txCtx, audit.Entry{
		TransactionID: txn.ID,
		Kind:          entity.AuditTransition,
		Action:        "create",
		Outcome:       string(entity.StatusPending),
		Details: map[string]string{
			"amount":         txn.Amount(),
			"currency":       txn.Currency,
			"reference_type": string(txn.ReferenceType),
			"reference_id":   txn.ReferenceID,
		},
	}); err != nil {
		return nil, false, err
	}
	if err = l.uow.Commit(txCtx); err != nil {
		return nil, false, err
	}

	l.logger.Info("Payment transaction created", txn.LogFields())
	return txn, false, nil
}

func (l *Ledger) replay(existing *entity.PaymentTransaction, req CreateRequest) (*entity.PaymentTransaction, bool, error) {
	if err := l.idempotency.MatchRequest(existing, req); err != nil {
		l.logger.Warn("Idempotency key replayed with different parameters", map[string]any{
			"transaction_id":  existing.ID,
			"idempotency_key": req.IdempotencyKey,
			"amount":          req.Amount,
			"currency":        req.Currency,
			"reference_type":  req.ReferenceType,
			"reference_id":    req.ReferenceID,
		})
		return nil, false, err
	}
	return existing, true, nil
}

// AttachGatewayOrder records the gateway order reference once. Re-attaching the same
// reference is a no-op; a different reference is rejected since amount and currency
// are frozen by the first order.
func (l *Ledger) AttachGatewayOrder(ctx context.Context, transactionID, orderRef string) error {
	repo := l.uow.GetTransactionRepository(ctx)
	attached, err := repo.AttachGatewayOrder(ctx, transactionID, orderRef, l.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to attach gateway order: %w", err)
	}
	if attached {
		l.logger.Info("Gateway order attached", map[string]any{
			"transaction_id":    transactionID,
			"gateway_order_ref": orderRef,
		})
		return l.recorder.Record(ctx, audit.Entry{
			TransactionID: transactionID,
			Kind:          entity.AuditTransition,
			Action:        "attach_gateway_order",
			Outcome:       "attached",
			Details:       map[string]string{"gateway_order_ref": orderRef},
		})
	}

	current, err := repo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if current.GatewayOrderRef == orderRef {
		return nil
	}
	return fmt.Errorf("%w: transaction %s already has order %s", errs.ErrGatewayOrderAlreadyAttached, transactionID, current.GatewayOrderRef)
}

// Transition moves the transaction from `from` to `to` with a conditional update.
// It returns ErrInvalidTransition when `to` is not reachable from `from`, ErrTransactionNotFound
// when the transaction is absent, and ErrTransitionConflict when the stored status is no longer
// `from`; on conflict the caller must re-read.
func (l *Ledger) Transition(ctx context.Context, transactionID string, from, to entity.TransactionStatus, paymentRef string) error {
	if !entity.CanTransition(from, to) {
		return errs.NewTransitionError(transactionID, string(from), string(to), string(from), errs.ErrInvalidTransition)
	}

	repo := l.uow.GetTransactionRepository(ctx)
	swapped, err := repo.CompareAndSetStatus(ctx, transactionID, from, to, paymentRef, l.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to transition transaction: %w", err)
	}
	if !swapped {
		current, err := repo.GetByID(ctx, transactionID)
		if err != nil {
			return err
		}
		return errs.NewTransitionError(transactionID, string(from), string(to), string(current.Status), errs.ErrTransitionConflict)
	}

	return l.recorder.Record(ctx, audit.Entry{
		TransactionID: transactionID,
		Kind:          entity.AuditTransition,
		Action:        "transition",
		Outcome:       string(to),
		Details: map[string]string{
			"from":                string(from),
			"to":                  string(to),
			"gateway_payment_ref": paymentRef,
		},
	})
}

// Get reads a transaction
func (l *Ledger) Get(ctx context.Context, transactionID string) (*entity.PaymentTransaction, error) {
	return l.uow.GetTransactionRepository(ctx).GetByID(ctx, transactionID)
}

// FindByGatewayOrder resolves a gateway order reference
func (l *Ledger) FindByGatewayOrder(ctx context.Context, orderRef string) (*entity.PaymentTransaction, error) {
	return l.uow.GetTransactionRepository(ctx).GetByGatewayOrderRef(ctx, orderRef)
}
