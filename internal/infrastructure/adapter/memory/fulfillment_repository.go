package memory

import (
	"context"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
)

type ticketRepository struct {
	store *Store
}

func (r *ticketRepository) GetByRegistration(ctx context.Context, registrationID string) (*entity.Ticket, error) {
	var out *entity.Ticket
	err := r.store.run(ctx, func(*memTx) error {
		t, ok := r.store.tickets[registrationID]
		if !ok {
			return errs.ErrNotFound
		}
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *ticketRepository) CreateIfAbsent(ctx context.Context, ticket *entity.Ticket) (bool, error) {
	created := false
	err := r.store.run(ctx, func(tx *memTx) error {
		s := r.store
		if _, exists := s.tickets[ticket.RegistrationID]; exists {
			return nil
		}
		cp := *ticket
		s.tickets[ticket.RegistrationID] = &cp
		tx.record(func() { delete(s.tickets, ticket.RegistrationID) })
		created = true
		return nil
	})
	return created, err
}

type invoiceRepository struct {
	store *Store
}

func (r *invoiceRepository) GetByTransaction(ctx context.Context, transactionID string) (*entity.Invoice, error) {
	var out *entity.Invoice
	err := r.store.run(ctx, func(*memTx) error {
		inv, ok := r.store.invoices[transactionID]
		if !ok {
			return errs.ErrNotFound
		}
		cp := *inv
		out = &cp
		return nil
	})
	return out, err
}

func (r *invoiceRepository) CreateIfAbsent(ctx context.Context, invoice *entity.Invoice) (bool, error) {
	created := false
	err := r.store.run(ctx, func(tx *memTx) error {
		s := r.store
		if _, exists := s.invoices[invoice.TransactionID]; exists {
			return nil
		}
		cp := *invoice
		s.invoices[invoice.TransactionID] = &cp
		tx.record(func() { delete(s.invoices, invoice.TransactionID) })
		created = true
		return nil
	})
	return created, err
}

// InvoiceCount reports how many invoices exist
func (s *Store) InvoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}
