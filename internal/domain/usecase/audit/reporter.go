package audit

import (
	"context"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
)

const maxListLimit = 500

// Reporter is the read-only reporting surface over the ledger, the event log and the audit sink.
// It never mutates state; repairs go through the reconciliation path.
type Reporter struct {
	uow persistence.UnitOfWork
}

// NewReporter creates a new reporter
func NewReporter(uow persistence.UnitOfWork) *Reporter {
	return &Reporter{uow: uow}
}

var _ usecase.ReportUseCase = (*Reporter)(nil)

// GetTransaction returns the transaction with its side effect tasks
func (r *Reporter) GetTransaction(ctx context.Context, transactionID string) (*usecase.TransactionReport, error) {
	txn, err := r.uow.GetTransactionRepository(ctx).GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	tasks, err := r.uow.GetSideEffectRepository(ctx).ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list side effects: %w", err)
	}
	return &usecase.TransactionReport{Transaction: txn, SideEffects: tasks}, nil
}

// AuditTrail returns every audit record of the transaction in time order
func (r *Reporter) AuditTrail(ctx context.Context, transactionID string) ([]*entity.AuditRecord, error) {
	if _, err := r.uow.GetTransactionRepository(ctx).GetByID(ctx, transactionID); err != nil {
		return nil, err
	}
	return r.uow.GetAuditRepository(ctx).ListByTransaction(ctx, transactionID)
}

// ListEvents lists webhook events in a processing status; FAILED is the quarantine queue
func (r *Reporter) ListEvents(ctx context.Context, status entity.ProcessingStatus, limit int) ([]*entity.WebhookEvent, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return r.uow.GetWebhookEventRepository(ctx).ListByStatus(ctx, status, limit)
}
