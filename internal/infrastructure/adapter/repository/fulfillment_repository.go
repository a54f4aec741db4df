package repository

import (
	"context"
	"errors"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketRepository stores issued tickets
type TicketRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewTicketRepository creates a new TicketRepository instance
func NewTicketRepository(db *gorm.DB, logger coreport.Logger) *TicketRepository {
	return &TicketRepository{db: db, logger: logger, errorClassifier: NewErrorClassifier()}
}

// GetByRegistration returns the ticket of a registration
func (r *TicketRepository) GetByRegistration(ctx context.Context, registrationID string) (*entity.Ticket, error) {
	var m model.Ticket
	if err := r.db.WithContext(ctx).Where("registration_id = ?", registrationID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, r.errorClassifier.Wrap(err)
	}
	return &entity.Ticket{
		ID:             m.ID,
		RegistrationID: m.RegistrationID,
		TransactionID:  m.TransactionID,
		Code:           m.Code,
		ImageRef:       m.ImageRef,
		IssuedAt:       m.IssuedAt,
	}, nil
}

// CreateIfAbsent stores the ticket unless the registration already has one
func (r *TicketRepository) CreateIfAbsent(ctx context.Context, ticket *entity.Ticket) (bool, error) {
	m := model.Ticket{
		ID:             ticket.ID,
		RegistrationID: ticket.RegistrationID,
		TransactionID:  ticket.TransactionID,
		Code:           ticket.Code,
		ImageRef:       ticket.ImageRef,
		IssuedAt:       ticket.IssuedAt,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "registration_id"}}, DoNothing: true}).
		Create(&m)
	if result.Error != nil {
		return false, r.errorClassifier.Wrap(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// InvoiceRepository stores invoices
type InvoiceRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewInvoiceRepository creates a new InvoiceRepository instance
func NewInvoiceRepository(db *gorm.DB, logger coreport.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger, errorClassifier: NewErrorClassifier()}
}

// GetByTransaction returns the invoice of a transaction
func (r *InvoiceRepository) GetByTransaction(ctx context.Context, transactionID string) (*entity.Invoice, error) {
	var m model.Invoice
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, r.errorClassifier.Wrap(err)
	}
	return &entity.Invoice{
		ID:               m.ID,
		InvoiceNumber:    m.InvoiceNumber,
		TransactionID:    m.TransactionID,
		ReferenceType:    entity.ReferenceType(m.ReferenceType),
		ReferenceID:      m.ReferenceID,
		AmountMinor:      m.AmountMinor,
		Currency:         m.Currency,
		PayerName:        m.PayerName,
		PayerEmail:       m.PayerEmail,
		OrganizationName: m.OrganizationName,
		OrganizationTax:  m.OrganizationTax,
		IssuedAt:         m.IssuedAt,
	}, nil
}

// CreateIfAbsent stores the invoice unless the transaction already has one
func (r *InvoiceRepository) CreateIfAbsent(ctx context.Context, invoice *entity.Invoice) (bool, error) {
	m := model.Invoice{
		ID:               invoice.ID,
		InvoiceNumber:    invoice.InvoiceNumber,
		TransactionID:    invoice.TransactionID,
		ReferenceType:    string(invoice.ReferenceType),
		ReferenceID:      invoice.ReferenceID,
		AmountMinor:      invoice.AmountMinor,
		Currency:         invoice.Currency,
		PayerName:        invoice.PayerName,
		PayerEmail:       invoice.PayerEmail,
		OrganizationName: invoice.OrganizationName,
		OrganizationTax:  invoice.OrganizationTax,
		IssuedAt:         invoice.IssuedAt,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "transaction_id"}}, DoNothing: true}).
		Create(&m)
	if result.Error != nil {
		return false, r.errorClassifier.Wrap(result.Error)
	}
	return result.RowsAffected == 1, nil
}
