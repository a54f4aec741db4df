package memory

import (
	"context"
	"sort"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
)

type sideEffectRepository struct {
	store *Store
}

func cloneTask(t *entity.SideEffectTask) *entity.SideEffectTask {
	cp := *t
	return &cp
}

func taskKey(transactionID string, effectType entity.EffectType) string {
	return transactionID + "|" + string(effectType)
}

func (r *sideEffectRepository) CreateIfAbsent(ctx context.Context, task *entity.SideEffectTask) (bool, error) {
	created := false
	err := r.store.run(ctx, func(tx *memTx) error {
		s := r.store
		key := taskKey(task.TransactionID, task.EffectType)
		if _, exists := s.taskKeys[key]; exists {
			return nil
		}
		s.tasks[task.ID] = cloneTask(task)
		s.taskKeys[key] = task.ID
		tx.record(func() {
			delete(s.tasks, task.ID)
			delete(s.taskKeys, key)
		})
		created = true
		return nil
	})
	return created, err
}

func (r *sideEffectRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.SideEffectTask, error) {
	var out []*entity.SideEffectTask
	err := r.store.run(ctx, func(*memTx) error {
		for _, t := range r.store.tasks {
			if t.TransactionID == transactionID {
				out = append(out, cloneTask(t))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EffectType < out[j].EffectType })
	return out, err
}

func (r *sideEffectRepository) Get(ctx context.Context, transactionID string, effectType entity.EffectType) (*entity.SideEffectTask, error) {
	var out *entity.SideEffectTask
	err := r.store.run(ctx, func(*memTx) error {
		id, ok := r.store.taskKeys[taskKey(transactionID, effectType)]
		if !ok {
			return errs.ErrTaskNotFound
		}
		out = cloneTask(r.store.tasks[id])
		return nil
	})
	return out, err
}

func (r *sideEffectRepository) FindClaimable(ctx context.Context, now time.Time, limit int) ([]*entity.SideEffectTask, error) {
	var out []*entity.SideEffectTask
	err := r.store.run(ctx, func(*memTx) error {
		for _, t := range r.store.tasks {
			if t.Claimable(now) {
				out = append(out, cloneTask(t))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

// mutate applies fn to a copy of the task when guard accepts the stored version
func (r *sideEffectRepository) mutate(ctx context.Context, id string, guard func(*entity.SideEffectTask) bool, fn func(*entity.SideEffectTask)) (bool, error) {
	changed := false
	err := r.store.run(ctx, func(tx *memTx) error {
		s := r.store
		t, ok := s.tasks[id]
		if !ok {
			return errs.ErrTaskNotFound
		}
		if !guard(t) {
			return nil
		}
		updated := cloneTask(t)
		fn(updated)
		s.tasks[id] = updated
		tx.record(func() { s.tasks[id] = t })
		changed = true
		return nil
	})
	return changed, err
}

func (r *sideEffectRepository) Claim(ctx context.Context, task *entity.SideEffectTask, owner string, now, leaseUntil time.Time) (bool, error) {
	return r.mutate(ctx, task.ID,
		func(stored *entity.SideEffectTask) bool {
			return stored.Status == task.Status && stored.AttemptCount == task.AttemptCount && stored.Claimable(now)
		},
		func(t *entity.SideEffectTask) {
			attemptAt := now
			lease := leaseUntil
			t.Status = entity.TaskRunning
			t.AttemptCount++
			t.LastAttemptAt = &attemptAt
			t.LeaseOwner = owner
			t.LeaseExpiresAt = &lease
			t.UpdatedAt = now
		})
}

func heldBy(owner string) func(*entity.SideEffectTask) bool {
	return func(t *entity.SideEffectTask) bool {
		return t.Status == entity.TaskRunning && t.LeaseOwner == owner
	}
}

func (r *sideEffectRepository) Complete(ctx context.Context, id, owner string, now time.Time) (bool, error) {
	return r.mutate(ctx, id, heldBy(owner), func(t *entity.SideEffectTask) {
		completedAt := now
		t.Status = entity.TaskDone
		t.LastError = ""
		t.LeaseOwner = ""
		t.LeaseExpiresAt = nil
		t.CompletedAt = &completedAt
		t.UpdatedAt = now
	})
}

func (r *sideEffectRepository) Reschedule(ctx context.Context, id, owner, lastError string, next, now time.Time) (bool, error) {
	return r.mutate(ctx, id, heldBy(owner), func(t *entity.SideEffectTask) {
		t.Status = entity.TaskPending
		t.LastError = lastError
		t.NextAttemptAt = next
		t.LeaseOwner = ""
		t.LeaseExpiresAt = nil
		t.UpdatedAt = now
	})
}

func (r *sideEffectRepository) Fail(ctx context.Context, id, owner, lastError string, now time.Time) (bool, error) {
	return r.mutate(ctx, id, heldBy(owner), func(t *entity.SideEffectTask) {
		t.Status = entity.TaskFailed
		t.LastError = lastError
		t.LeaseOwner = ""
		t.LeaseExpiresAt = nil
		t.UpdatedAt = now
	})
}
