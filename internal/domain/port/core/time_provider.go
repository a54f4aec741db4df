package core

import (
	"context"
	"time"
)

// TimeProvider abstracts time operations so schedules, leases and backoff can be tested deterministically
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc)
}
