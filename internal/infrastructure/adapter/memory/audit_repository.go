package memory

import (
	"context"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

type auditRepository struct {
	store *Store
}

func (r *auditRepository) Append(ctx context.Context, record *entity.AuditRecord) error {
	return r.store.run(ctx, func(tx *memTx) error {
		s := r.store
		cp := *record
		s.audit = append(s.audit, &cp)
		n := len(s.audit) - 1
		tx.record(func() { s.audit = s.audit[:n] })
		return nil
	})
}

// ListByTransaction returns records in append order, which is time order
func (r *auditRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.AuditRecord, error) {
	var out []*entity.AuditRecord
	err := r.store.run(ctx, func(*memTx) error {
		for _, rec := range r.store.audit {
			if rec.TransactionID == transactionID {
				cp := *rec
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
