package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/audit"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/memory"
	timeadapter "github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/time"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, persistence.UnitOfWork, *memory.Store) {
	t.Helper()
	clock := timeadapter.NewManualTimeProvider(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	store := memory.NewStore(clock)
	uow := memory.NewUnitOfWork(store)
	store.SeedReference(entity.PaymentReference{Type: entity.ReferenceRegistration, ID: "reg-1", PayerEmail: "a@example.com"})
	store.SeedReference(entity.PaymentReference{Type: entity.ReferenceDonation, ID: "don-1"})
	return NewLedger(uow, audit.NewRecorder(uow, clock), clock, logger.NewNoopLogger()), uow, store
}

func registration(key string) CreateRequest {
	return CreateRequest{
		IdempotencyKey: key,
		Amount:         "500",
		Currency:       "INR",
		ReferenceType:  string(entity.ReferenceRegistration),
		ReferenceID:    "reg-1",
	}
}

func TestLedger_Create(t *testing.T) {
	l, uow, _ := newTestLedger(t)
	ctx := context.Background()

	txn, replayed, err := l.Create(ctx, registration("k-1"))

	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, entity.StatusPending, txn.Status)
	assert.Equal(t, "a@example.com", txn.PayerEmail)

	ref, err := uow.GetReferenceRepository(ctx).Get(ctx, entity.ReferenceRegistration, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, ref.PaymentTransactionID)
	assert.Equal(t, entity.StatusPending, ref.PaymentStatus)

	records, err := uow.GetAuditRepository(ctx).ListByTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "create", records[0].Action)
}

func TestLedger_CreateIsIdempotent(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	first, _, err := l.Create(ctx, registration("k-1"))
	require.NoError(t, err)

	second, replayed, err := l.Create(ctx, registration("k-1"))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
}

func TestLedger_CreateReplayMustMatch(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	first, _, err := l.Create(ctx, registration("k-1"))
	require.NoError(t, err)

	testCases := []struct {
		name   string
		mutate func(*CreateRequest)
		reused bool
	}{
		{"Same values written differently", func(r *CreateRequest) { r.Amount = "500.00"; r.Currency = "inr" }, false},
		{"Different amount", func(r *CreateRequest) { r.Amount = "501" }, true},
		{"Different currency", func(r *CreateRequest) { r.Currency = "USD" }, true},
		{"Different reference", func(r *CreateRequest) {
			r.ReferenceType = string(entity.ReferenceDonation)
			r.ReferenceID = "don-1"
		}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := registration("k-1")
			tc.mutate(&req)

			txn, replayed, err := l.Create(ctx, req)

			if tc.reused {
				assert.ErrorIs(t, err, errs.ErrIdempotencyKeyReused)
				assert.Nil(t, txn)
				assert.False(t, replayed)
				return
			}
			require.NoError(t, err)
			assert.True(t, replayed)
			assert.Equal(t, first.ID, txn.ID)
		})
	}
}

func TestLedger_CreateOnPaidReference(t *testing.T) {
	l, uow, _ := newTestLedger(t)
	ctx := context.Background()
	refs := uow.GetReferenceRepository(ctx)

	first, _, err := l.Create(ctx, registration("k-1"))
	require.NoError(t, err)
	applied, err := refs.UpdatePaymentStatus(ctx, entity.ReferenceRegistration, "reg-1", first.ID, entity.StatusCompleted, first.InitiatedAt)
	require.NoError(t, err)
	require.True(t, applied)

	_, _, err = l.Create(ctx, registration("k-2"))

	assert.ErrorIs(t, err, errs.ErrReferenceAlreadyPaid)
	ref, err := refs.Get(ctx, entity.ReferenceRegistration, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, ref.PaymentStatus)
	assert.Equal(t, first.ID, ref.PaymentTransactionID)
	_, err = uow.GetTransactionRepository(ctx).GetByIdempotencyKey(ctx, "k-2")
	assert.ErrorIs(t, err, errs.ErrTransactionNotFound)

	t.Run("Replay of the paying key still succeeds", func(t *testing.T) {
		txn, replayed, err := l.Create(ctx, registration("k-1"))
		require.NoError(t, err)
		assert.True(t, replayed)
		assert.Equal(t, first.ID, txn.ID)
	})
}

func TestLedger_CreateRetriesAfterFailedPayment(t *testing.T) {
	l, uow, _ := newTestLedger(t)
	ctx := context.Background()
	refs := uow.GetReferenceRepository(ctx)

	first, _, err := l.Create(ctx, registration("k-1"))
	require.NoError(t, err)
	_, err = refs.UpdatePaymentStatus(ctx, entity.ReferenceRegistration, "reg-1", first.ID, entity.StatusFailed, first.InitiatedAt)
	require.NoError(t, err)

	second, replayed, err := l.Create(ctx, registration("k-2"))

	require.NoError(t, err)
	assert.False(t, replayed)
	ref, err := refs.Get(ctx, entity.ReferenceRegistration, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, ref.PaymentTransactionID)
	assert.Equal(t, entity.StatusPending, ref.PaymentStatus)
}

func TestLedger_ConcurrentCreateYieldsOneTransaction(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	ids := make([]string, 6)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txn, _, err := l.Create(ctx, registration("k-race"))
			if assert.NoError(t, err) {
				ids[i] = txn.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestLedger_CreateUnknownReference(t *testing.T) {
	l, _, _ := newTestLedger(t)

	req := registration("k-1")
	req.ReferenceID = "reg-404"
	_, _, err := l.Create(context.Background(), req)

	assert.ErrorIs(t, err, errs.ErrReferenceNotFound)
}

func TestLedger_AttachGatewayOrder(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	txn, _, err := l.Create(ctx, registration("k-1"))
	require.NoError(t, err)

	require.NoError(t, l.AttachGatewayOrder(ctx, txn.ID, "order_1"))
	require.NoError(t, l.AttachGatewayOrder(ctx, txn.ID, "order_1"))

	err = l.AttachGatewayOrder(ctx, txn.ID, "order_2")
	assert.ErrorIs(t, err, errs.ErrGatewayOrderAlreadyAttached)

	found, err := l.FindByGatewayOrder(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, found.ID)
}

func TestLedger_Transition(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	txn, _, err := l.Create(ctx, registration("k-1"))
	require.NoError(t, err)

	t.Run("Not allowed by the state machine", func(t *testing.T) {
		err := l.Transition(ctx, txn.ID, entity.StatusPending, entity.StatusRefunded, "")

		var transitionErr *errs.TransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		assert.Equal(t, txn.ID, transitionErr.TransactionID)
	})

	t.Run("Allowed", func(t *testing.T) {
		require.NoError(t, l.Transition(ctx, txn.ID, entity.StatusPending, entity.StatusCompleted, "pay_1"))

		current, err := l.Get(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCompleted, current.Status)
		assert.Equal(t, "pay_1", current.GatewayPaymentRef)
	})

	t.Run("Stale from status conflicts", func(t *testing.T) {
		err := l.Transition(ctx, txn.ID, entity.StatusPending, entity.StatusFailed, "")

		var transitionErr *errs.TransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.ErrorIs(t, err, errs.ErrTransitionConflict)
		assert.Equal(t, string(entity.StatusCompleted), transitionErr.Current)
	})

	t.Run("Missing transaction", func(t *testing.T) {
		err := l.Transition(ctx, "missing", entity.StatusPending, entity.StatusCompleted, "")
		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
	})
}

func TestLedger_ConcurrentTransitionsHaveOneWinner(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	txn, _, err := l.Create(ctx, registration("k-1"))
	require.NoError(t, err)

	targets := []entity.TransactionStatus{
		entity.StatusCompleted, entity.StatusFailed, entity.StatusCompleted, entity.StatusFailed,
	}
	results := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target entity.TransactionStatus) {
			defer wg.Done()
			results[i] = l.Transition(ctx, txn.ID, entity.StatusPending, target, "")
		}(i, target)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrTransitionConflict)
	}
	assert.Equal(t, 1, winners)
}
