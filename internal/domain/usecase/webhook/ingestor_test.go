package webhook

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/collaborator"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/audit"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/dispatch"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/fulfillment"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/ledger"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/reconciliation"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/schedule"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/memory"
	timeadapter "github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/time"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []collaborator.Notification
}

func (n *recordingNotifier) Send(_ context.Context, notification collaborator.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

type pipeline struct {
	store      *memory.Store
	uow        persistence.UnitOfWork
	ledger     *ledger.Ledger
	ingestor   *Ingestor
	dispatcher *dispatch.Dispatcher
	notifier   *recordingNotifier
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	clock := timeadapter.NewManualTimeProvider(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	store := memory.NewStore(clock)
	uow := memory.NewUnitOfWork(store)
	log := logger.NewNoopLogger()
	recorder := audit.NewRecorder(uow, clock)
	alerter := logger.NewLogAlerter(log, 10)
	txLedger := ledger.NewLedger(uow, recorder, clock, log)

	notifier := &recordingNotifier{}
	executor := fulfillment.NewExecutor(uow,
		fulfillment.NewTicketIssuer(uow, clock, "https://tickets.example.com"),
		fulfillment.NewInvoiceGenerator(uow, clock, fulfillment.Organization{Name: "Example Society"}),
		notifier, fulfillment.Templates{})
	dispatcher := dispatch.NewDispatcher(uow, executor, recorder, alerter, clock, log, dispatch.Config{
		Workers:       2,
		MaxAttempts:   3,
		LeaseTimeout:  time.Minute,
		EffectTimeout: 5 * time.Second,
		Backoff:       schedule.Policy{Initial: time.Second, Max: time.Minute},
	}, "worker-1")
	engine := reconciliation.NewEngine(uow, txLedger, recorder, dispatcher, alerter, clock, log, 3)

	registry := NewRegistry(NewGenericProvider(testSecret), NewRazorpayProvider(testSecret))
	return &pipeline{
		store:      store,
		uow:        uow,
		ledger:     txLedger,
		ingestor:   NewIngestor(registry, uow, engine, clock, log),
		dispatcher: dispatcher,
		notifier:   notifier,
	}
}

func (p *pipeline) open(t *testing.T, refID, amount, orderRef string) *entity.PaymentTransaction {
	t.Helper()
	ctx := context.Background()
	p.store.SeedReference(entity.PaymentReference{Type: entity.ReferenceRegistration, ID: refID, PayerEmail: refID + "@example.com"})
	txn, _, err := p.ledger.Create(ctx, ledger.CreateRequest{
		IdempotencyKey: "idem-" + refID,
		Amount:         amount,
		Currency:       "INR",
		ReferenceType:  string(entity.ReferenceRegistration),
		ReferenceID:    refID,
	})
	require.NoError(t, err)
	require.NoError(t, p.ledger.AttachGatewayOrder(ctx, txn.ID, orderRef))
	return txn
}

func genericDelivery(eventID, orderRef, amount, status string) usecase.WebhookDelivery {
	body := []byte(fmt.Sprintf(
		`{"eventId":%q,"eventType":"payment.update","payload":{"orderRef":%q,"paymentRef":"pay_%s","amount":%q,"currency":"INR","status":%q}}`,
		eventID, orderRef, eventID, amount, status))
	return usecase.WebhookDelivery{
		Provider: "generic",
		Body:     body,
		Headers:  map[string]string{GenericSignatureHeader: Sign(testSecret, body)},
	}
}

func TestIngestor_SuccessfulDelivery(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	txn := p.open(t, "reg-1", "500", "order_1")

	result, err := p.ingestor.Ingest(ctx, genericDelivery("E1", "order_1", "500", "success"))

	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, string(reconciliation.OutcomeProcessed), result.Outcome)
	assert.Equal(t, entity.EventProcessed, result.Event.Status)
	assert.Equal(t, txn.ID, result.Event.TransactionID)
	assert.NotEmpty(t, result.Event.RawPayload)

	summary, err := p.dispatcher.RunPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Done)

	current, err := p.ledger.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, current.Status)
	require.Len(t, p.notifier.sent, 1)
	assert.Equal(t, "reg-1@example.com", p.notifier.sent[0].Recipient)
}

func TestIngestor_RedeliveriesAreDuplicates(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	txn := p.open(t, "reg-1", "500", "order_1")
	delivery := genericDelivery("E1", "order_1", "500", "success")

	first, err := p.ingestor.Ingest(ctx, delivery)
	require.NoError(t, err)
	require.False(t, first.Duplicate)
	_, err = p.dispatcher.RunPending(ctx)
	require.NoError(t, err)

	before, err := p.ledger.Get(ctx, txn.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := p.ingestor.Ingest(ctx, delivery)
		require.NoError(t, err)
		assert.True(t, again.Duplicate)
		assert.Equal(t, first.Event.ID, again.Event.ID)
		assert.Equal(t, entity.EventProcessed, again.Event.Status)

		_, err = p.dispatcher.RunPending(ctx)
		require.NoError(t, err)
	}

	after, err := p.ledger.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, p.store.InvoiceCount())
	assert.Len(t, p.notifier.sent, 1)
}

func TestIngestor_ConcurrentRedeliveries(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	p.open(t, "reg-1", "500", "order_1")
	delivery := genericDelivery("E1", "order_1", "500", "success")

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		duplicates int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := p.ingestor.Ingest(ctx, delivery)
			if !assert.NoError(t, err) {
				return
			}
			if result.Duplicate {
				mu.Lock()
				duplicates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 7, duplicates)
	processed, err := p.uow.GetWebhookEventRepository(ctx).ListByStatus(ctx, entity.EventProcessed, 10)
	require.NoError(t, err)
	assert.Len(t, processed, 1)
}

func TestIngestor_AmountMismatchIsRecordedAndQuarantined(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	txn := p.open(t, "reg-1", "500", "order_1")

	result, err := p.ingestor.Ingest(ctx, genericDelivery("E2", "order_1", "450", "success"))

	require.NoError(t, err)
	assert.Equal(t, string(reconciliation.OutcomeFailed), result.Outcome)
	assert.Equal(t, entity.EventFailed, result.Event.Status)
	assert.Contains(t, result.Event.Reason, "amount")

	current, err := p.ledger.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, current.Status)
}

func TestIngestor_RejectsBeforeRecording(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	p.open(t, "reg-1", "500", "order_1")

	t.Run("Bad signature", func(t *testing.T) {
		delivery := genericDelivery("E1", "order_1", "500", "success")
		delivery.Headers[GenericSignatureHeader] = Sign("wrong", delivery.Body)

		_, err := p.ingestor.Ingest(ctx, delivery)
		assert.ErrorIs(t, err, errs.ErrSignatureInvalid)
	})

	t.Run("Unknown provider", func(t *testing.T) {
		delivery := genericDelivery("E1", "order_1", "500", "success")
		delivery.Provider = "paypal"

		_, err := p.ingestor.Ingest(ctx, delivery)
		assert.ErrorIs(t, err, errs.ErrUnknownProvider)
	})

	t.Run("Missing order reference", func(t *testing.T) {
		delivery := genericDelivery("E1", "", "500", "success")

		_, err := p.ingestor.Ingest(ctx, delivery)
		assert.ErrorIs(t, err, errs.ErrInvalidPayload)
	})

	for _, status := range []entity.ProcessingStatus{entity.EventReceived, entity.EventProcessed, entity.EventFailed, entity.EventIgnored} {
		events, err := p.uow.GetWebhookEventRepository(ctx).ListByStatus(ctx, status, 10)
		require.NoError(t, err)
		assert.Empty(t, events, status)
	}
}

func TestIngestor_RazorpayDelivery(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	txn := p.open(t, "reg-1", "500", "order_rzp")

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_rzp","order_id":"order_rzp","amount":50000,"currency":"INR","status":"captured"}}}}`)
	result, err := p.ingestor.Ingest(ctx, usecase.WebhookDelivery{
		Provider: "razorpay",
		Body:     body,
		Headers: map[string]string{
			RazorpaySignatureHeader: Sign(testSecret, body),
			RazorpayEventIDHeader:   "evt_rzp_1",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, string(reconciliation.OutcomeProcessed), result.Outcome)

	current, err := p.ledger.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, current.Status)
	assert.Equal(t, "pay_rzp", current.GatewayPaymentRef)
}
