package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/logger"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisLeaseStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLeaseStore(client, logger.NewNoopLogger()), mr
}

func TestRedisLeaseStore_Acquire(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	acquired, err := store.Acquire(ctx, "poller", "worker-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, "worker-1", mustGet(t, mr, leaseKey("poller")))

	acquired, err = store.Acquire(ctx, "poller", "worker-2", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, acquired)

	// The holder renews
	mr.FastForward(20 * time.Second)
	acquired, err = store.Acquire(ctx, "poller", "worker-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, 30*time.Second, mr.TTL(leaseKey("poller")))

	// An expired lease is taken over
	mr.FastForward(31 * time.Second)
	acquired, err = store.Acquire(ctx, "poller", "worker-2", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, "worker-2", mustGet(t, mr, leaseKey("poller")))
}

func TestRedisLeaseStore_Release(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	acquired, err := store.Acquire(ctx, "poller", "worker-1", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	// A non-holder cannot release
	require.NoError(t, store.Release(ctx, "poller", "worker-2"))
	assert.True(t, mr.Exists(leaseKey("poller")))

	require.NoError(t, store.Release(ctx, "poller", "worker-1"))
	assert.False(t, mr.Exists(leaseKey("poller")))

	acquired, err = store.Acquire(ctx, "poller", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestRedisLeaseStore_ConnectionFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisLeaseStore(client, logger.NewNoopLogger())

	mock.ExpectSetNX(leaseKey("poller"), "worker-1", time.Minute).SetErr(errors.New("dial tcp: connection refused"))

	acquired, err := store.Acquire(context.Background(), "poller", "worker-1", time.Minute)

	assert.False(t, acquired)
	assert.ErrorIs(t, err, errs.ErrDatabaseConnection)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	value, err := mr.Get(key)
	require.NoError(t, err)
	return value
}
