package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "reconciler:lease:"

const (
	renewScript   = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"
	releaseScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
)

// RedisLeaseStore keeps scheduler leases as expiring Redis keys holding the owner id
type RedisLeaseStore struct {
	client redis.UniversalClient
	logger core.Logger
}

var _ persistence.LeaseStore = (*RedisLeaseStore)(nil)

// NewRedisLeaseStore creates a lease store on client
func NewRedisLeaseStore(client redis.UniversalClient, logger core.Logger) *RedisLeaseStore {
	return &RedisLeaseStore{client: client, logger: logger}
}

// NewClient opens a Redis client for the lease store
func NewClient(addr, password string, db int) redis.UniversalClient {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func leaseKey(name string) string {
	return keyPrefix + name
}

// Acquire sets the key if absent, otherwise extends it when owner already holds it
func (s *RedisLeaseStore) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	key := leaseKey(name)

	ok, err := s.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, s.wrap("acquire", name, err)
	}
	if ok {
		return true, nil
	}

	renewed, err := s.client.Eval(ctx, renewScript, []string{key}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, s.wrap("renew", name, err)
	}
	if renewed == 0 {
		s.logger.Debug("Scheduler lease held by another owner", map[string]any{
			"lease": name,
			"owner": owner,
		})
		return false, nil
	}
	return true, nil
}

// Release deletes the key only when owner still holds it
func (s *RedisLeaseStore) Release(ctx context.Context, name, owner string) error {
	if err := s.client.Eval(ctx, releaseScript, []string{leaseKey(name)}, owner).Err(); err != nil {
		return s.wrap("release", name, err)
	}
	return nil
}

func (s *RedisLeaseStore) wrap(op, name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.logger.Error("Redis lease operation failed", map[string]any{
		"operation": op,
		"lease":     name,
		"error":     err.Error(),
	})
	return fmt.Errorf("%w: redis %s: %v", errs.ErrDatabaseConnection, op, err)
}
