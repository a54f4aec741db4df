package memory

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
)

type lease struct {
	owner     string
	expiresAt time.Time
}

// LeaseStore grants scheduler leases from the store
type LeaseStore struct {
	store *Store
}

// NewLeaseStore creates a lease store backed by the memory store
func NewLeaseStore(store *Store) persistence.LeaseStore {
	return &LeaseStore{store: store}
}

func (l *LeaseStore) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	acquired := false
	err := l.store.run(ctx, func(*memTx) error {
		now := l.store.clock.Now()
		current, held := l.store.leases[name]
		if held && current.owner != owner && current.expiresAt.After(now) {
			return nil
		}
		l.store.leases[name] = lease{owner: owner, expiresAt: now.Add(ttl)}
		acquired = true
		return nil
	})
	return acquired, err
}

func (l *LeaseStore) Release(ctx context.Context, name, owner string) error {
	return l.store.run(ctx, func(*memTx) error {
		if current, held := l.store.leases[name]; held && current.owner == owner {
			delete(l.store.leases, name)
		}
		return nil
	})
}
