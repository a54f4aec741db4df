package persistence

import (
	"context"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// TicketRepository stores issued tickets, at most one per registration
type TicketRepository interface {
	// GetByRegistration returns the live ticket, or ErrNotFound
	GetByRegistration(ctx context.Context, registrationID string) (*entity.Ticket, error)

	// CreateIfAbsent stores the ticket unless the registration already has one
	CreateIfAbsent(ctx context.Context, ticket *entity.Ticket) (bool, error)
}

// InvoiceRepository stores invoices, at most one per transaction
type InvoiceRepository interface {
	// GetByTransaction returns the invoice, or ErrNotFound
	GetByTransaction(ctx context.Context, transactionID string) (*entity.Invoice, error)

	// CreateIfAbsent stores the invoice unless the transaction already has one
	CreateIfAbsent(ctx context.Context, invoice *entity.Invoice) (bool, error)
}
