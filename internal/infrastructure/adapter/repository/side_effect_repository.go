package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SideEffectRepository is the durable side effect queue. Every state change is
// conditional on the row still being in the state the caller observed.
type SideEffectRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewSideEffectRepository creates a new SideEffectRepository instance
func NewSideEffectRepository(db *gorm.DB, logger coreport.Logger) *SideEffectRepository {
	return &SideEffectRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func taskToModel(t *entity.SideEffectTask) model.SideEffectTask {
	return model.SideEffectTask{
		ID:             t.ID,
		TransactionID:  t.TransactionID,
		EffectType:     string(t.EffectType),
		Status:         string(t.Status),
		AttemptCount:   t.AttemptCount,
		LastError:      t.LastError,
		LastAttemptAt:  t.LastAttemptAt,
		NextAttemptAt:  t.NextAttemptAt,
		LeaseOwner:     t.LeaseOwner,
		LeaseExpiresAt: t.LeaseExpiresAt,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		CompletedAt:    t.CompletedAt,
	}
}

func taskToEntity(m *model.SideEffectTask) *entity.SideEffectTask {
	return &entity.SideEffectTask{
		ID:             m.ID,
		TransactionID:  m.TransactionID,
		EffectType:     entity.EffectType(m.EffectType),
		Status:         entity.TaskStatus(m.Status),
		AttemptCount:   m.AttemptCount,
		LastError:      m.LastError,
		LastAttemptAt:  m.LastAttemptAt,
		NextAttemptAt:  m.NextAttemptAt,
		LeaseOwner:     m.LeaseOwner,
		LeaseExpiresAt: m.LeaseExpiresAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		CompletedAt:    m.CompletedAt,
	}
}

// CreateIfAbsent inserts the task unless (transaction_id, effect_type) exists
func (r *SideEffectRepository) CreateIfAbsent(ctx context.Context, task *entity.SideEffectTask) (bool, error) {
	m := taskToModel(task)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}, {Name: "effect_type"}},
			DoNothing: true,
		}).
		Create(&m)
	if result.Error != nil {
		return false, r.errorClassifier.Wrap(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListByTransaction returns every task of a transaction
func (r *SideEffectRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.SideEffectTask, error) {
	return r.find(r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC"))
}

// Get retrieves the task for (transactionId, effectType)
func (r *SideEffectRepository) Get(ctx context.Context, transactionID string, effectType entity.EffectType) (*entity.SideEffectTask, error) {
	var m model.SideEffectTask
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND effect_type = ?", transactionID, string(effectType)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTaskNotFound
		}
		return nil, r.errorClassifier.Wrap(err)
	}
	return taskToEntity(&m), nil
}

// FindClaimable lists due PENDING tasks and RUNNING tasks with an expired lease
func (r *SideEffectRepository) FindClaimable(ctx context.Context, now time.Time, limit int) ([]*entity.SideEffectTask, error) {
	return r.find(r.db.WithContext(ctx).
		Where("(status = ? AND next_attempt_at <= ?) OR (status = ? AND lease_expires_at <= ?)",
			string(entity.TaskPending), now, string(entity.TaskRunning), now).
		Order("next_attempt_at ASC").
		Limit(limit))
}

// Claim takes the task for owner if nobody changed it since it was read
func (r *SideEffectRepository) Claim(ctx context.Context, task *entity.SideEffectTask, owner string, now, leaseUntil time.Time) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.SideEffectTask{}).
		Where("id = ? AND status = ? AND attempt_count = ?", task.ID, string(task.Status), task.AttemptCount)
	if task.Status == entity.TaskRunning {
		query = query.Where("lease_expires_at <= ?", now)
	} else {
		query = query.Where("next_attempt_at <= ?", now)
	}

	result := query.Updates(map[string]any{
		"status":           string(entity.TaskRunning),
		"attempt_count":    gorm.Expr("attempt_count + 1"),
		"last_attempt_at":  now,
		"lease_owner":      owner,
		"lease_expires_at": leaseUntil,
		"updated_at":       now,
	})
	if result.Error != nil {
		return false, r.errorClassifier.Wrap(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *SideEffectRepository) finish(ctx context.Context, id, owner string, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.SideEffectTask{}).
		Where("id = ? AND status = ? AND lease_owner = ?", id, string(entity.TaskRunning), owner).
		Updates(updates)
	if result.Error != nil {
		return false, r.errorClassifier.Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Debug("Side effect lease no longer held", map[string]any{
			"task_id": id,
			"owner":   owner,
		})
		return false, nil
	}
	return true, nil
}

// Complete moves a RUNNING task held by owner to DONE
func (r *SideEffectRepository) Complete(ctx context.Context, id, owner string, now time.Time) (bool, error) {
	return r.finish(ctx, id, owner, map[string]any{
		"status":           string(entity.TaskDone),
		"last_error":       "",
		"lease_owner":      "",
		"lease_expires_at": nil,
		"completed_at":     now,
		"updated_at":       now,
	})
}

// Reschedule puts a RUNNING task held by owner back to PENDING
func (r *SideEffectRepository) Reschedule(ctx context.Context, id, owner, lastError string, next, now time.Time) (bool, error) {
	return r.finish(ctx, id, owner, map[string]any{
		"status":           string(entity.TaskPending),
		"last_error":       lastError,
		"next_attempt_at":  next,
		"lease_owner":      "",
		"lease_expires_at": nil,
		"updated_at":       now,
	})
}

// Fail moves a RUNNING task held by owner to FAILED
func (r *SideEffectRepository) Fail(ctx context.Context, id, owner, lastError string, now time.Time) (bool, error) {
	return r.finish(ctx, id, owner, map[string]any{
		"status":           string(entity.TaskFailed),
		"last_error":       lastError,
		"lease_owner":      "",
		"lease_expires_at": nil,
		"updated_at":       now,
	})
}

func (r *SideEffectRepository) find(query *gorm.DB) ([]*entity.SideEffectTask, error) {
	var rows []model.SideEffectTask
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.errorClassifier.Wrap(err)
	}
	out := make([]*entity.SideEffectTask, 0, len(rows))
	for i := range rows {
		out = append(out, taskToEntity(&rows[i]))
	}
	return out, nil
}
