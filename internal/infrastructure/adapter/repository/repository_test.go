package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	adapterlogger "github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/logger"
	timeadapter "github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/time"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return db, mock
}

func TestErrorClassifier(t *testing.T) {
	c := NewErrorClassifier()

	testCases := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"Duplicate key", errors.New(`ERROR: duplicate key value violates unique constraint "x" (SQLSTATE 23505)`), DuplicateKeyError},
		{"Deadlock", errors.New("ERROR: deadlock detected"), LockError},
		{"Serialization", errors.New("could not serialize access due to concurrent update"), LockError},
		{"Connection reset", errors.New("read tcp: connection reset by peer"), TransientError},
		{"Dial failure", errors.New("dial tcp 10.0.0.1:5432: no route to host"), ConnectionError},
		{"Not null", errors.New(`null value in column "currency" violates not null`), ConstraintError},
		{"Unclassified", errors.New("syntax error at or near"), ""},
		{"Postgres unique violation", &pgconn.PgError{Code: "23505"}, DuplicateKeyError},
		{"Postgres check violation", &pgconn.PgError{Code: "23514"}, ConstraintError},
		{"Postgres serialization failure", fmt.Errorf("update: %w", &pgconn.PgError{Code: "40001"}), LockError},
		{"Postgres admin shutdown", &pgconn.PgError{Code: "57P01"}, ConnectionError},
		{"Postgres syntax error", &pgconn.PgError{Code: "42601", Message: "connection"}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.Classify(tc.err))
		})
	}

	assert.ErrorIs(t, c.Wrap(errors.New("duplicate key value")), errs.ErrConstraintViolation)
	assert.ErrorIs(t, c.Wrap(errors.New("connection refused")), errs.ErrDatabaseConnection)
	assert.ErrorIs(t, c.Wrap(context.Canceled), context.Canceled)
	assert.NoError(t, c.Wrap(nil))
}

func TestTransactionRepository_CompareAndSetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Swapped", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTransactionRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "payment_transactions" SET .* WHERE id = .* AND status = `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		swapped, err := repo.CompareAndSetStatus(ctx, "txn-1", entity.StatusPending, entity.StatusCompleted, "pay_1", testNow)

		require.NoError(t, err)
		assert.True(t, swapped)
	})

	t.Run("Conflict leaves the row untouched", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTransactionRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "payment_transactions" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "payment_transactions"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("txn-1", "FAILED"))

		swapped, err := repo.CompareAndSetStatus(ctx, "txn-1", entity.StatusPending, entity.StatusCompleted, "", testNow)

		require.NoError(t, err)
		assert.False(t, swapped)
	})

	t.Run("Missing transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTransactionRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "payment_transactions" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "payment_transactions"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))

		_, err := repo.CompareAndSetStatus(ctx, "missing", entity.StatusPending, entity.StatusCompleted, "", testNow)

		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
	})

	t.Run("Connection failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTransactionRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "payment_transactions" SET`).
			WillReturnError(errors.New("read: connection reset by peer"))

		_, err := repo.CompareAndSetStatus(ctx, "txn-1", entity.StatusPending, entity.StatusCompleted, "", testNow)

		assert.ErrorIs(t, err, errs.ErrDatabaseConnection)
	})
}

func TestTransactionRepository_AttachGatewayOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Attached while empty", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTransactionRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "payment_transactions" SET .* WHERE id = .* AND gateway_order_ref IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		attached, err := repo.AttachGatewayOrder(ctx, "txn-1", "order_1", testNow)

		require.NoError(t, err)
		assert.True(t, attached)
	})

	t.Run("Order reference owned by another transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTransactionRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "payment_transactions" SET`).
			WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_payment_transactions_gateway_order_ref" (SQLSTATE 23505)`))

		_, err := repo.AttachGatewayOrder(ctx, "txn-2", "order_1", testNow)

		assert.ErrorIs(t, err, errs.ErrConstraintViolation)
	})
}

func TestTransactionRepository_GetByGatewayOrderRef(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db, adapterlogger.NewNoopLogger())

	mock.ExpectQuery(`SELECT \* FROM "payment_transactions" WHERE gateway_order_ref = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount_minor", "currency", "status", "gateway_order_ref", "reference_type", "reference_id"}).
			AddRow("txn-1", 50000, "INR", "PENDING", "order_1", "REGISTRATION", "reg-1"))

	txn, err := repo.GetByGatewayOrderRef(context.Background(), "order_1")

	require.NoError(t, err)
	assert.Equal(t, "txn-1", txn.ID)
	assert.Equal(t, int64(50000), txn.AmountMinor)
	assert.Equal(t, entity.StatusPending, txn.Status)
	assert.Equal(t, "order_1", txn.GatewayOrderRef)
	assert.Equal(t, entity.ReferenceRegistration, txn.ReferenceType)

	// An empty reference never matches
	_, err = repo.GetByGatewayOrderRef(context.Background(), "")
	assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
}

func TestWebhookEventRepository_InsertIfAbsent(t *testing.T) {
	event := entity.NewWebhookEvent(entity.NormalizedEvent{
		Provider:        "generic",
		ProviderEventID: "evt_1",
		EventType:       "payment.success",
		GatewayOrderRef: "order_1",
		AmountMinor:     50000,
		Currency:        "INR",
		Status:          "success",
	}, []byte(`{}`), testNow)

	testCases := []struct {
		name         string
		rowsAffected int64
		expected     bool
	}{
		{"First delivery is recorded", 1, true},
		{"Redelivery hits the unique key", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewWebhookEventRepository(db, adapterlogger.NewNoopLogger())

			mock.ExpectExec(`INSERT INTO "webhook_events" .* ON CONFLICT \("provider","provider_event_id"\) DO NOTHING`).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))

			inserted, err := repo.InsertIfAbsent(context.Background(), event)

			require.NoError(t, err)
			assert.Equal(t, tc.expected, inserted)
		})
	}
}

func TestWebhookEventRepository_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolves a received event", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWebhookEventRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "webhook_events" SET .* WHERE id = .* AND status = `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		resolved, err := repo.Resolve(ctx, "evt-1", entity.EventProcessed, "txn-1", "", testNow)

		require.NoError(t, err)
		assert.True(t, resolved)
	})

	t.Run("Already resolved", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWebhookEventRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "webhook_events" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "webhook_events"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("evt-1", "PROCESSED"))

		resolved, err := repo.Resolve(ctx, "evt-1", entity.EventFailed, "txn-1", "late", testNow)

		require.NoError(t, err)
		assert.False(t, resolved)
	})
}

func TestSideEffectRepository_Claim(t *testing.T) {
	ctx := context.Background()
	task := &entity.SideEffectTask{ID: "task-1", Status: entity.TaskPending, AttemptCount: 2}

	t.Run("Claim increments the attempt count", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSideEffectRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "side_effect_tasks" SET .*attempt_count \+ 1.* WHERE .*attempt_count = .*next_attempt_at <=`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.Claim(ctx, task, "worker-1", testNow, testNow.Add(time.Minute))

		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("Another worker claimed first", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSideEffectRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "side_effect_tasks" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := repo.Claim(ctx, task, "worker-2", testNow, testNow.Add(time.Minute))

		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("Expired lease is matched on its expiry", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSideEffectRepository(db, adapterlogger.NewNoopLogger())
		running := &entity.SideEffectTask{ID: "task-1", Status: entity.TaskRunning, AttemptCount: 1}

		mock.ExpectExec(`UPDATE "side_effect_tasks" SET .* WHERE .*lease_expires_at <=`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.Claim(ctx, running, "worker-2", testNow, testNow.Add(time.Minute))

		require.NoError(t, err)
		assert.True(t, claimed)
	})
}

func TestSideEffectRepository_CompleteRequiresLease(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSideEffectRepository(db, adapterlogger.NewNoopLogger())

	mock.ExpectExec(`UPDATE "side_effect_tasks" SET .* WHERE id = .* AND status = .* AND lease_owner = `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	done, err := repo.Complete(context.Background(), "task-1", "worker-1", testNow)

	require.NoError(t, err)
	assert.False(t, done)
}

func TestReferenceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Donation", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReferenceRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectQuery(`SELECT \* FROM "donations"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "donor_name", "donor_email", "campaign", "payment_status"}).
				AddRow("don-1", "Ravi", "ravi@example.com", "Library Fund", "PENDING"))

		ref, err := repo.Get(ctx, entity.ReferenceDonation, "don-1")

		require.NoError(t, err)
		assert.Equal(t, entity.ReferenceDonation, ref.Type)
		assert.Equal(t, "ravi@example.com", ref.PayerEmail)
		assert.Equal(t, "Library Fund", ref.Description)
		assert.Equal(t, entity.StatusPending, ref.PaymentStatus)
	})

	t.Run("Missing registration", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReferenceRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectQuery(`SELECT \* FROM "registrations"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.Get(ctx, entity.ReferenceRegistration, "reg-404")

		assert.ErrorIs(t, err, errs.ErrReferenceNotFound)
	})

	t.Run("Status update on a missing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReferenceRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "registrations" SET .* WHERE id = \$4 AND \(+payment_transaction_id IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "registrations"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		applied, err := repo.UpdatePaymentStatus(ctx, entity.ReferenceRegistration, "reg-404", "txn-1", entity.StatusCompleted, testNow)

		assert.ErrorIs(t, err, errs.ErrReferenceNotFound)
		assert.False(t, applied)
	})

	t.Run("Status update owned by another transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReferenceRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "registrations" SET .* payment_transaction_id = \$5\)`).
			WithArgs(string(entity.StatusRefunded), "txn-1", sqlmock.AnyArg(), "reg-1", "txn-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "registrations"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "payment_status", "payment_transaction_id"}).
				AddRow("reg-1", "COMPLETED", "txn-2"))

		applied, err := repo.UpdatePaymentStatus(ctx, entity.ReferenceRegistration, "reg-1", "txn-1", entity.StatusRefunded, testNow)

		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("Completion claims an unpaid reference", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReferenceRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "registrations" SET .* OR payment_status <> \$6\)`).
			WithArgs(string(entity.StatusCompleted), "txn-1", sqlmock.AnyArg(), "reg-1", "txn-1", string(entity.StatusCompleted)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := repo.UpdatePaymentStatus(ctx, entity.ReferenceRegistration, "reg-1", "txn-1", entity.StatusCompleted, testNow)

		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("Attach to a paid reference", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReferenceRepository(db, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`UPDATE "donations" SET .* \(payment_status IS NULL OR payment_status <> \$5\)`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "donations"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "payment_status", "payment_transaction_id"}).
				AddRow("don-1", "COMPLETED", "txn-1"))

		err := repo.AttachTransaction(ctx, entity.ReferenceDonation, "don-1", "txn-2", testNow)

		assert.ErrorIs(t, err, errs.ErrReferenceAlreadyPaid)
	})

	t.Run("Unsupported type", func(t *testing.T) {
		db, _ := newMockDB(t)
		repo := NewReferenceRepository(db, adapterlogger.NewNoopLogger())

		_, err := repo.Get(ctx, entity.ReferenceType("MEMBERSHIP"), "m-1")

		assert.ErrorIs(t, err, errs.ErrInvalidReference)
	})
}

func TestLeaseRepository(t *testing.T) {
	ctx := context.Background()
	clock := timeadapter.NewManualTimeProvider(testNow)

	t.Run("Acquired", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewLeaseRepository(db, clock, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`INSERT INTO scheduler_leases .* ON CONFLICT \(name\) DO UPDATE`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		acquired, err := repo.Acquire(ctx, "polling-reconciler", "worker-1", time.Minute)

		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("Held by a live owner", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewLeaseRepository(db, clock, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`INSERT INTO scheduler_leases`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		acquired, err := repo.Acquire(ctx, "polling-reconciler", "worker-2", time.Minute)

		require.NoError(t, err)
		assert.False(t, acquired)
	})

	t.Run("Release is scoped to the owner", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewLeaseRepository(db, clock, adapterlogger.NewNoopLogger())

		mock.ExpectExec(`DELETE FROM "scheduler_leases" WHERE name = .* AND owner = `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Release(ctx, "polling-reconciler", "worker-1"))
	})
}
