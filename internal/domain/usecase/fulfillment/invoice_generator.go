package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/google/uuid"
)

// Organization identifies the invoicing party
type Organization struct {
	Name         string
	TaxID        string
	NumberPrefix string
}

// InvoiceGenerator creates one invoice per completed transaction
type InvoiceGenerator struct {
	uow          persistence.UnitOfWork
	clock        coreport.TimeProvider
	organization Organization
}

// NewInvoiceGenerator creates an invoice generator
func NewInvoiceGenerator(uow persistence.UnitOfWork, clock coreport.TimeProvider, organization Organization) *InvoiceGenerator {
	if organization.NumberPrefix == "" {
		organization.NumberPrefix = "INV"
	}
	return &InvoiceGenerator{uow: uow, clock: clock, organization: organization}
}

// Generate returns the transaction's invoice record, creating the invoice on first call
func (g *InvoiceGenerator) Generate(ctx context.Context, transactionID string) (*entity.InvoiceRecord, error) {
	txn, err := g.uow.GetTransactionRepository(ctx).GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != entity.StatusCompleted && txn.Status != entity.StatusRefunded {
		return nil, fmt.Errorf("cannot invoice transaction %s in status %s", txn.ID, txn.Status)
	}

	ref, err := g.uow.GetReferenceRepository(ctx).Get(ctx, txn.ReferenceType, txn.ReferenceID)
	if err != nil {
		return nil, err
	}

	repo := g.uow.GetInvoiceRepository(ctx)
	invoice, err := repo.GetByTransaction(ctx, txn.ID)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up invoice: %w", err)
		}
		invoice, err = g.create(ctx, repo, txn, ref)
		if err != nil {
			return nil, err
		}
	}

	return g.record(invoice, txn, ref), nil
}

func (g *InvoiceGenerator) create(ctx context.Context, repo persistence.InvoiceRepository, txn *entity.PaymentTransaction, ref *entity.PaymentReference) (*entity.Invoice, error) {
	now := g.clock.Now()
	invoice := &entity.Invoice{
		ID:               uuid.NewString(),
		InvoiceNumber:    invoiceNumber(g.organization.NumberPrefix, txn),
		TransactionID:    txn.ID,
		ReferenceType:    txn.ReferenceType,
		ReferenceID:      txn.ReferenceID,
		AmountMinor:      txn.AmountMinor,
		Currency:         txn.Currency,
		PayerName:        ref.PayerName,
		PayerEmail:       ref.PayerEmail,
		OrganizationName: g.organization.Name,
		OrganizationTax:  g.organization.TaxID,
		IssuedAt:         now,
	}
	created, err := repo.CreateIfAbsent(ctx, invoice)
	if err != nil {
		return nil, fmt.Errorf("failed to store invoice: %w", err)
	}
	if !created {
		return repo.GetByTransaction(ctx, txn.ID)
	}
	return invoice, nil
}

// invoiceNumber is derived from the transaction number so regeneration cannot mint a second number
func invoiceNumber(prefix string, txn *entity.PaymentTransaction) string {
	return fmt.Sprintf("%s-%s", prefix, txn.TransactionNumber)
}

func (g *InvoiceGenerator) record(invoice *entity.Invoice, txn *entity.PaymentTransaction, ref *entity.PaymentReference) *entity.InvoiceRecord {
	rec := &entity.InvoiceRecord{
		Invoice: entity.InvoiceSummary{Number: invoice.InvoiceNumber, IssuedAt: invoice.IssuedAt},
		Transaction: entity.TransactionSummary{
			ID:                txn.ID,
			TransactionNumber: txn.TransactionNumber,
			Amount:            entity.FormatMinorUnits(invoice.AmountMinor),
			Currency:          invoice.Currency,
			GatewayPaymentRef: txn.GatewayPaymentRef,
		},
		User:         entity.PayerSummary{Name: invoice.PayerName, Email: invoice.PayerEmail},
		Organization: entity.OrganizationSummary{Name: invoice.OrganizationName, TaxID: invoice.OrganizationTax},
	}
	if txn.ReferenceType == entity.ReferenceRegistration {
		rec.Registration = &entity.RegistrationRecord{ID: ref.ID, Description: ref.Description}
	}
	return rec
}
