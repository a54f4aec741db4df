package repository

import (
	"context"
	"time"

	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
)

// LeaseRepository grants scheduler leases from the scheduler_leases table.
// A single upsert either inserts the lease, renews it for its owner, or takes over an expired one.
type LeaseRepository struct {
	db              *gorm.DB
	timeProvider    coreport.TimeProvider
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewLeaseRepository creates a new LeaseRepository
func NewLeaseRepository(db *gorm.DB, timeProvider coreport.TimeProvider, logger coreport.Logger) *LeaseRepository {
	return &LeaseRepository{
		db:              db,
		timeProvider:    timeProvider,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// Acquire takes or renews the named lease for owner
func (r *LeaseRepository) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	now := r.timeProvider.Now()
	expiresAt := now.Add(ttl)

	query := `
        INSERT INTO scheduler_leases (name, owner, expires_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (name) DO UPDATE
        SET owner = EXCLUDED.owner,
            expires_at = EXCLUDED.expires_at,
            updated_at = EXCLUDED.updated_at
        WHERE scheduler_leases.expires_at <= ? OR scheduler_leases.owner = ?
    `
	result := r.db.WithContext(ctx).Exec(query, name, owner, expiresAt, now, now, owner)
	if result.Error != nil {
		if isContextError(result.Error) {
			return false, result.Error
		}
		r.logger.Error("Failed to acquire scheduler lease", map[string]any{
			"lease": name,
			"owner": owner,
			"error": result.Error.Error(),
		})
		return false, r.errorClassifier.Wrap(result.Error)
	}

	acquired := result.RowsAffected == 1
	if !acquired {
		r.logger.Debug("Scheduler lease held by another owner", map[string]any{
			"lease": name,
			"owner": owner,
		})
	}
	return acquired, nil
}

// Release deletes the lease if owner still holds it
func (r *LeaseRepository) Release(ctx context.Context, name, owner string) error {
	result := r.db.WithContext(ctx).
		Where("name = ? AND owner = ?", name, owner).
		Delete(&model.SchedulerLease{})
	if result.Error != nil {
		return r.errorClassifier.Wrap(result.Error)
	}
	return nil
}
