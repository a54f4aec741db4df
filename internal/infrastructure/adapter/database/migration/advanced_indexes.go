package migration

import (
	"context"

	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"gorm.io/gorm"
)

// AdvancedIndexManager manages PostgreSQL-specific indexes that struct tags cannot express
type AdvancedIndexManager struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewAdvancedIndexManager creates a new advanced index manager
func NewAdvancedIndexManager(db *gorm.DB, logger coreport.Logger) *AdvancedIndexManager {
	return &AdvancedIndexManager{
		db:     db,
		logger: logger,
	}
}

type indexStatement struct {
	name string
	sql  string
}

// advancedIndexes are the partial indexes behind the background sweeps
var advancedIndexes = []indexStatement{
	{
		// Poller sweep: only PENDING, unflagged rows are ever scanned
		name: "idx_payment_transactions_pollable",
		sql: `CREATE INDEX IF NOT EXISTS idx_payment_transactions_pollable
			ON payment_transactions (initiated_at, next_poll_at)
			WHERE status = 'PENDING' AND manual_review = false`,
	},
	{
		name: "idx_side_effect_tasks_expired_leases",
		sql: `CREATE INDEX IF NOT EXISTS idx_side_effect_tasks_expired_leases
			ON side_effect_tasks (lease_expires_at)
			WHERE status = 'RUNNING'`,
	},
	{
		name: "idx_webhook_events_received",
		sql: `CREATE INDEX IF NOT EXISTS idx_webhook_events_received
			ON webhook_events (received_at)
			WHERE status = 'RECEIVED'`,
	},
	{
		name: "idx_audit_records_created_at_brin",
		sql: `CREATE INDEX IF NOT EXISTS idx_audit_records_created_at_brin
			ON audit_records USING BRIN (created_at)
			WITH (pages_per_range = 32)`,
	},
}

// CreateAdvancedIndexes creates advanced PostgreSQL indexes
func (m *AdvancedIndexManager) CreateAdvancedIndexes(ctx context.Context) error {
	m.logger.Info("Creating advanced PostgreSQL indexes", nil)

	for _, idx := range advancedIndexes {
		if err := m.db.WithContext(ctx).Exec(idx.sql).Error; err != nil {
			m.logger.Error("Failed to create index", map[string]any{
				"index": idx.name,
				"error": err.Error(),
			})
			return err
		}
	}

	m.logger.Info("Advanced PostgreSQL indexes created successfully", nil)
	return nil
}

// CreatePerformanceTweaks applies PostgreSQL storage tweaks. Failures are logged and ignored.
func (m *AdvancedIndexManager) CreatePerformanceTweaks(ctx context.Context) {
	m.logger.Info("Applying PostgreSQL performance tweaks", nil)

	// Status rows are updated in place; leave room for HOT updates
	for _, table := range []string{"payment_transactions", "side_effect_tasks", "webhook_events"} {
		if err := m.db.WithContext(ctx).Exec("ALTER TABLE " + table + " SET (fillfactor = 90)").Error; err != nil {
			m.logger.Warn("Failed to set fillfactor", map[string]any{
				"table": table,
				"error": err.Error(),
			})
		}
	}
}
