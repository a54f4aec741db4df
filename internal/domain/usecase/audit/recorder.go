package audit

import (
	"context"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
)

// Entry describes one auditable decision
type Entry struct {
	TransactionID string
	Kind          entity.AuditKind
	Action        string
	Outcome       string
	Reason        string
	Details       map[string]string
}

// Recorder appends entries to the audit sink through the unit of work carried by ctx,
// so an entry commits or rolls back together with the change it describes
type Recorder struct {
	uow   persistence.UnitOfWork
	clock coreport.TimeProvider
}

// NewRecorder creates a new audit recorder
func NewRecorder(uow persistence.UnitOfWork, clock coreport.TimeProvider) *Recorder {
	return &Recorder{uow: uow, clock: clock}
}

// Record appends the entry
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	record := entity.NewAuditRecord(e.TransactionID, e.Kind, e.Action, e.Outcome, e.Reason, e.Details, r.clock.Now())
	if err := r.uow.GetAuditRepository(ctx).Append(ctx, record); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}
