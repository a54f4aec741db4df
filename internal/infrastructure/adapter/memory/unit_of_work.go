package memory

import (
	"context"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
)

// UnitOfWork serializes units of work on the store lock
type UnitOfWork struct {
	store *Store
}

// NewUnitOfWork creates a unit of work over the store
func NewUnitOfWork(store *Store) persistence.UnitOfWork {
	return &UnitOfWork{store: store}
}

// Begin takes the store lock and returns a context carrying the unit of work
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if err := ctx.Err(); err != nil {
		return ctx, err
	}
	if u.store.txFromContext(ctx) != nil {
		return ctx, fmt.Errorf("nested unit of work is not supported")
	}
	u.store.mu.Lock()
	return context.WithValue(ctx, txKey, &memTx{store: u.store, active: true}), nil
}

// Commit keeps the changes and releases the lock
func (u *UnitOfWork) Commit(ctx context.Context) error {
	tx := u.store.txFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("no transaction found in context")
	}
	tx.active = false
	tx.undo = nil
	u.store.mu.Unlock()
	return nil
}

// Rollback undoes the changes and releases the lock.
// Rolling back an already finished unit of work is a no-op.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	tx, ok := ctx.Value(txKey).(*memTx)
	if !ok || tx == nil {
		return fmt.Errorf("no transaction found in context")
	}
	if !tx.active {
		return nil
	}
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.active = false
	tx.undo = nil
	u.store.mu.Unlock()
	return nil
}

func (u *UnitOfWork) GetTransactionRepository(ctx context.Context) persistence.TransactionRepository {
	return &transactionRepository{store: u.store}
}

func (u *UnitOfWork) GetWebhookEventRepository(ctx context.Context) persistence.WebhookEventRepository {
	return &webhookEventRepository{store: u.store}
}

func (u *UnitOfWork) GetSideEffectRepository(ctx context.Context) persistence.SideEffectRepository {
	return &sideEffectRepository{store: u.store}
}

func (u *UnitOfWork) GetReferenceRepository(ctx context.Context) persistence.ReferenceRepository {
	return &referenceRepository{store: u.store}
}

func (u *UnitOfWork) GetAuditRepository(ctx context.Context) persistence.AuditRepository {
	return &auditRepository{store: u.store}
}

func (u *UnitOfWork) GetTicketRepository(ctx context.Context) persistence.TicketRepository {
	return &ticketRepository{store: u.store}
}

func (u *UnitOfWork) GetInvoiceRepository(ctx context.Context) persistence.InvoiceRepository {
	return &invoiceRepository{store: u.store}
}
