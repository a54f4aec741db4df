package usecase

import (
	"context"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// TransactionReport is the read-only view of a transaction with its side effects
type TransactionReport struct {
	Transaction *entity.PaymentTransaction
	SideEffects []*entity.SideEffectTask
}

// ReportUseCase is the read-only reporting interface over the ledger and the audit sink
type ReportUseCase interface {
	GetTransaction(ctx context.Context, transactionID string) (*TransactionReport, error)
	AuditTrail(ctx context.Context, transactionID string) ([]*entity.AuditRecord, error)
	ListEvents(ctx context.Context, status entity.ProcessingStatus, limit int) ([]*entity.WebhookEvent, error)
}
