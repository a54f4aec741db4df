package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// SideEffectRepository stores side effect tasks keyed by (transactionId, effectType)
type SideEffectRepository interface {
	// CreateIfAbsent inserts the task unless one exists for its (transactionId, effectType).
	// Returns false when the task already existed.
	CreateIfAbsent(ctx context.Context, task *entity.SideEffectTask) (bool, error)

	// ListByTransaction returns every task of a transaction
	ListByTransaction(ctx context.Context, transactionID string) ([]*entity.SideEffectTask, error)

	// Get retrieves the task for (transactionId, effectType)
	//
	// Possible errors:
	// - ErrTaskNotFound: If no such task exists
	Get(ctx context.Context, transactionID string, effectType entity.EffectType) (*entity.SideEffectTask, error)

	// FindClaimable lists PENDING tasks that are due and RUNNING tasks whose lease expired
	FindClaimable(ctx context.Context, now time.Time, limit int) ([]*entity.SideEffectTask, error)

	// Claim moves the task to RUNNING for owner only if its status and attempt count
	// still equal the values observed in task. The attempt count is incremented.
	Claim(ctx context.Context, task *entity.SideEffectTask, owner string, now, leaseUntil time.Time) (bool, error)

	// Complete moves a RUNNING task held by owner to DONE
	Complete(ctx context.Context, id, owner string, now time.Time) (bool, error)

	// Reschedule moves a RUNNING task held by owner back to PENDING, due at next
	Reschedule(ctx context.Context, id, owner, lastError string, next, now time.Time) (bool, error)

	// Fail moves a RUNNING task held by owner to FAILED
	Fail(ctx context.Context, id, owner, lastError string, now time.Time) (bool, error)
}
