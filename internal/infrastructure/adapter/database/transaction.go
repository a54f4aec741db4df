package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/repository"
	"gorm.io/gorm"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// Context keys
const txKey contextKey = "tx"

// ErrNestedTransaction is returned by Begin when ctx already carries a transaction
var ErrNestedTransaction = errors.New("transaction already in progress")

// UnitOfWork implements the unit of work pattern for database transactions.
// Isolation stays at the default READ COMMITTED; contended rows are written with conditional updates.
type UnitOfWork struct {
	db          *gorm.DB
	logger      coreport.Logger
	errorMapper *ErrorMapper
}

// NewUnitOfWork creates a new UnitOfWork instance
func NewUnitOfWork(db *gorm.DB, logger coreport.Logger) persistence.UnitOfWork {
	return &UnitOfWork{
		db:          db,
		logger:      logger,
		errorMapper: NewErrorMapper(),
	}
}

// Begin starts a new database transaction
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok && tx != nil {
		return ctx, ErrNestedTransaction
	}

	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		u.logger.Error("Failed to begin transaction", map[string]any{"error": tx.Error.Error()})
		return ctx, fmt.Errorf("failed to begin transaction: %w", u.errorMapper.MapError(tx.Error, "begin"))
	}

	return context.WithValue(ctx, txKey, tx), nil
}

// Commit commits the current transaction
func (u *UnitOfWork) Commit(ctx context.Context) error {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if !ok || tx == nil {
		return fmt.Errorf("no transaction found in context")
	}

	if err := tx.Commit().Error; err != nil {
		u.logger.Error("Failed to commit transaction", map[string]any{"error": err.Error()})
		return fmt.Errorf("failed to commit transaction: %w", u.errorMapper.MapError(err, "commit"))
	}

	return nil
}

// Rollback rolls back the current transaction. Rolling back a finished transaction is a no-op.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if !ok || tx == nil {
		return fmt.Errorf("no transaction found in context")
	}

	err := tx.Rollback().Error
	if err != nil && strings.Contains(err.Error(), "already been committed or rolled back") {
		return nil
	}
	if err != nil {
		u.logger.Error("Failed to rollback transaction", map[string]any{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// GetTransactionRepository returns a transaction repository in the current transaction
func (u *UnitOfWork) GetTransactionRepository(ctx context.Context) persistence.TransactionRepository {
	return repository.NewTransactionRepository(u.getDbFromContext(ctx), u.logger)
}

// GetWebhookEventRepository returns a webhook event repository in the current transaction
func (u *UnitOfWork) GetWebhookEventRepository(ctx context.Context) persistence.WebhookEventRepository {
	return repository.NewWebhookEventRepository(u.getDbFromContext(ctx), u.logger)
}

// GetSideEffectRepository returns a side effect repository in the current transaction
func (u *UnitOfWork) GetSideEffectRepository(ctx context.Context) persistence.SideEffectRepository {
	return repository.NewSideEffectRepository(u.getDbFromContext(ctx), u.logger)
}

// GetReferenceRepository returns a reference repository in the current transaction
func (u *UnitOfWork) GetReferenceRepository(ctx context.Context) persistence.ReferenceRepository {
	return repository.NewReferenceRepository(u.getDbFromContext(ctx), u.logger)
}

// GetAuditRepository returns an audit repository in the current transaction
func (u *UnitOfWork) GetAuditRepository(ctx context.Context) persistence.AuditRepository {
	return repository.NewAuditRepository(u.getDbFromContext(ctx), u.logger)
}

// GetTicketRepository returns a ticket repository in the current transaction
func (u *UnitOfWork) GetTicketRepository(ctx context.Context) persistence.TicketRepository {
	return repository.NewTicketRepository(u.getDbFromContext(ctx), u.logger)
}

// GetInvoiceRepository returns an invoice repository in the current transaction
func (u *UnitOfWork) GetInvoiceRepository(ctx context.Context) persistence.InvoiceRepository {
	return repository.NewInvoiceRepository(u.getDbFromContext(ctx), u.logger)
}

// getDbFromContext retrieves the database instance from context
func (u *UnitOfWork) getDbFromContext(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok && tx != nil {
		return tx
	}
	return u.db.WithContext(ctx)
}
