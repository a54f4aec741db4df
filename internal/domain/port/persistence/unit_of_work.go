package persistence

import (
	"context"
)

// UnitOfWork defines an interface for coordinating transaction operations
// across multiple repositories to maintain data consistency
type UnitOfWork interface {
	// Begin starts a new transaction and returns a transactional context
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the transaction in the given context
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction in the given context
	Rollback(ctx context.Context) error

	// Repositories below are bound to the transaction carried by ctx, if any

	GetTransactionRepository(ctx context.Context) TransactionRepository
	GetWebhookEventRepository(ctx context.Context) WebhookEventRepository
	GetSideEffectRepository(ctx context.Context) SideEffectRepository
	GetReferenceRepository(ctx context.Context) ReferenceRepository
	GetAuditRepository(ctx context.Context) AuditRepository
	GetTicketRepository(ctx context.Context) TicketRepository
	GetInvoiceRepository(ctx context.Context) InvoiceRepository
}
