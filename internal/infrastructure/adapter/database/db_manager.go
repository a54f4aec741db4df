package database

import (
	"context"
	"fmt"
	"time"

	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/database/migration"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Manager manages database connections
type Manager struct {
	config       *Config
	db           *gorm.DB
	logger       coreport.Logger
	errorMapper  *ErrorMapper
	poolWatcher  *poolWatcher
	timeProvider coreport.TimeProvider
}

const poolSampleInterval = 30 * time.Second

// NewManager creates a new database manager
func NewManager(config *Config, logger coreport.Logger, timeProvider coreport.TimeProvider) *Manager {
	return &Manager{
		config:       config,
		logger:       logger,
		errorMapper:  NewErrorMapper(),
		timeProvider: timeProvider,
	}
}

// Connect opens the connection pool, retrying transient failures
func (m *Manager) Connect(ctx context.Context) (*gorm.DB, error) {
	if err := m.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	m.logger.Info("Connecting to database", map[string]any{"target": m.config.Redacted()})

	retryConfig := RetryConfig{
		MaxRetries:    m.config.RetryAttempts,
		RetryInterval: m.config.RetryDelay,
		MaxInterval:   10 * m.config.RetryDelay,
		JitterFactor:  0.2,
	}
	if retryConfig.MaxRetries == 0 {
		retryConfig.MaxRetries = 1
	}

	var gormDB *gorm.DB
	err := RetryOnTransientError(ctx, retryConfig, func() error {
		var openErr error
		gormDB, openErr = m.open(ctx)
		if openErr != nil {
			return m.errorMapper.MapError(openErr, "connect")
		}
		return nil
	}, m.errorMapper, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", retryConfig.MaxRetries, err)
	}

	m.logger.Info("Successfully connected to database", map[string]any{
		"target":          m.config.Redacted(),
		"max_open_conns":  m.config.MaxOpenConns,
		"max_idle_conns":  m.config.MaxIdleConns,
		"query_timeout_s": m.config.QueryTimeout.Seconds(),
	})

	m.db = gormDB
	if sqlDB, err := gormDB.DB(); err == nil {
		m.poolWatcher = startPoolWatcher(sqlDB, m.logger, poolSampleInterval)
	}

	return m.db, nil
}

func (m *Manager) open(ctx context.Context) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.Open(m.config.DSN()), &gorm.Config{
		Logger: NewDatabaseLogger(m.logger, m.timeProvider, m.config.LogLevel, m.config.SlowThreshold),
		NowFunc: func() time.Time {
			return m.timeProvider.Now()
		},
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxOpenConns(m.config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(m.config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(m.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(m.config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, m.config.QueryTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return gormDB, nil
}

// DB returns the GORM database instance
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Ping checks the database is reachable
func (m *Manager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := m.WithTimeout(ctx)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// PoolStats samples the connection pool
func (m *Manager) PoolStats() (PoolStats, error) {
	sqlDB, err := m.db.DB()
	if err != nil {
		return PoolStats{}, fmt.Errorf("failed to get database connection: %w", err)
	}
	return poolStatsOf(sqlDB), nil
}

// HealthDetails adds pool statistics to the health response
func (m *Manager) HealthDetails() map[string]any {
	stats, err := m.PoolStats()
	if err != nil {
		return nil
	}
	return stats.Fields()
}

// Close closes the database connection
func (m *Manager) Close() error {
	m.logger.Info("Closing database connection", nil)

	if m.poolWatcher != nil {
		m.poolWatcher.stop()
		m.poolWatcher = nil
	}
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	return sqlDB.Close()
}

// WithTimeout returns a context with timeout for database operations
func (m *Manager) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.config.QueryTimeout)
}

// CreateUnitOfWork creates a new UnitOfWork instance
func (m *Manager) CreateUnitOfWork() persistence.UnitOfWork {
	return NewUnitOfWork(m.db, m.logger)
}

// CreateLeaseStore returns the table-backed scheduler lease store
func (m *Manager) CreateLeaseStore() persistence.LeaseStore {
	return repository.NewLeaseRepository(m.db, m.timeProvider, m.logger)
}

// MigrationManager returns a migration manager bound to the open connection
func (m *Manager) MigrationManager() *migration.MigrationManager {
	return migration.NewMigrationManager(m.db, m.logger, m.timeProvider)
}
