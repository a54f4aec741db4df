package database

import (
	"context"
	"database/sql"
	"time"

	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
)

// poolSaturation is the in-use fraction above which the pool counts as saturated
const poolSaturation = 0.8

// PoolStats is a point-in-time view of the connection pool
type PoolStats struct {
	Open         int
	Idle         int
	InUse        int
	MaxOpen      int
	WaitCount    int64
	WaitDuration time.Duration
}

func poolStatsOf(db *sql.DB) PoolStats {
	stats := db.Stats()
	return PoolStats{
		Open:         stats.OpenConnections,
		Idle:         stats.Idle,
		InUse:        stats.InUse,
		MaxOpen:      stats.MaxOpenConnections,
		WaitCount:    stats.WaitCount,
		WaitDuration: stats.WaitDuration,
	}
}

// Saturated reports whether webhook intake is likely to queue on connections
func (s PoolStats) Saturated() bool {
	return s.MaxOpen > 0 && float64(s.InUse) > float64(s.MaxOpen)*poolSaturation
}

// Fields renders the stats for logs and the health endpoint
func (s PoolStats) Fields() map[string]any {
	return map[string]any{
		"open":       s.Open,
		"idle":       s.Idle,
		"in_use":     s.InUse,
		"max_open":   s.MaxOpen,
		"wait_count": s.WaitCount,
		"wait_time":  s.WaitDuration.String(),
		"saturated":  s.Saturated(),
	}
}

// poolWatcher samples the pool and warns while it stays saturated
type poolWatcher struct {
	db     *sql.DB
	logger coreport.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func startPoolWatcher(db *sql.DB, logger coreport.Logger, interval time.Duration) *poolWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &poolWatcher{db: db, logger: logger, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sample()
			}
		}
	}()
	return w
}

func (w *poolWatcher) sample() {
	stats := poolStatsOf(w.db)
	if stats.Saturated() {
		w.logger.Warn("Database connection pool nearly exhausted", stats.Fields())
	}
}

func (w *poolWatcher) stop() {
	w.cancel()
	<-w.done
}
