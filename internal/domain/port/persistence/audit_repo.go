package persistence

import (
	"context"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// AuditRepository is the append-only audit sink
type AuditRepository interface {
	Append(ctx context.Context, record *entity.AuditRecord) error

	// ListByTransaction returns the records of a transaction ordered by time
	ListByTransaction(ctx context.Context, transactionID string) ([]*entity.AuditRecord, error)
}
