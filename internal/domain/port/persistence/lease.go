package persistence

import (
	"context"
	"time"
)

// LeaseStore grants named, time-bounded leases so only one worker runs a scheduled job.
// An expired lease can be taken over by any owner.
type LeaseStore interface {
	// Acquire takes or renews the lease for owner. Returns false if another owner holds a live lease.
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)

	// Release gives the lease up if owner still holds it
	Release(ctx context.Context, name, owner string) error
}
