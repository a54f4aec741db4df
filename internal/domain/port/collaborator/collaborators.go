package collaborator

import (
	"context"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// TicketIssuer issues the QR ticket of a registration.
// Issuing twice returns the existing code, never a second live one.
type TicketIssuer interface {
	Issue(ctx context.Context, registrationID, transactionID string) (*entity.Ticket, error)
}

// InvoiceGenerator produces the invoice of a completed transaction.
// Regeneration returns the existing invoice.
type InvoiceGenerator interface {
	Generate(ctx context.Context, transactionID string) (*entity.InvoiceRecord, error)
}

// Notification is a confirmation message request
type Notification struct {
	TransactionID string            `json:"transactionId"`
	Template      string            `json:"template"`
	Recipient     string            `json:"recipient"`
	Data          map[string]string `json:"data,omitempty"`
}

// Notifier sends a notification and confirms delivery; errors feed the retry policy
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}
