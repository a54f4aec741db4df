package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	domainerr "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/audit"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/dispatch"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/fulfillment"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/ledger"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/reconciliation"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/schedule"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/usecase/webhook"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/memory"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/notification"
	timeadapter "github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/time"
	gatewaymocks "github.com/amirhossein-jamali/payment-reconciler/mocks/port/gateway"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "whsec_test"

type apiFixture struct {
	router  *gin.Engine
	gateway *gatewaymocks.MockPaymentGateway
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := timeadapter.NewManualTimeProvider(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	store := memory.NewStore(clock)
	uow := memory.NewUnitOfWork(store)
	log := logger.NewNoopLogger()
	recorder := audit.NewRecorder(uow, clock)
	alerter := logger.NewLogAlerter(log, 10)

	store.SeedReference(entity.PaymentReference{Type: entity.ReferenceRegistration, ID: "reg-1", PayerEmail: "asha@example.com"})

	txLedger := ledger.NewLedger(uow, recorder, clock, log)
	paymentGateway := gatewaymocks.NewMockPaymentGateway(t)
	executor := fulfillment.NewExecutor(uow,
		fulfillment.NewTicketIssuer(uow, clock, "https://tickets.example.com"),
		fulfillment.NewInvoiceGenerator(uow, clock, fulfillment.Organization{Name: "Example Society"}),
		notification.NewLogNotifier(log), fulfillment.Templates{})
	dispatcher := dispatch.NewDispatcher(uow, executor, recorder, alerter, clock, log, dispatch.Config{
		Workers:     1,
		MaxAttempts: 3,
		Backoff:     schedule.Policy{Initial: time.Second, Max: time.Minute},
	}, "api-test")
	engine := reconciliation.NewEngine(uow, txLedger, recorder, dispatcher, alerter, clock, log, 3)
	registry := webhook.NewRegistry(webhook.NewGenericProvider(secret))

	router := gin.New()
	SetupMiddlewares(router, log)
	SetupRoutes(router, Handlers{
		Payment: handler.NewPaymentHandler(ledger.NewPaymentService(txLedger, paymentGateway, clock, log, time.Second), log),
		Webhook: handler.NewWebhookHandler(webhook.NewIngestor(registry, uow, engine, clock, log), log),
		Report:  handler.NewReportHandler(audit.NewReporter(uow), log),
		Health:  handler.NewHealthHandler(nil),
	}, 2048)

	return &apiFixture{router: router, gateway: paymentGateway}
}

func (f *apiFixture) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) initiate(t *testing.T, key string) dto.TransactionResponse {
	t.Helper()
	f.gateway.EXPECT().CreateOrder(mock.Anything, mock.Anything).
		Return(&gateway.Order{OrderRef: "order_1", Status: "created"}, nil).Once()

	w := f.do(http.MethodPost, "/api/v1/payments",
		[]byte(`{"amount":"500","currency":"INR","referenceType":"REGISTRATION","referenceId":"reg-1"}`),
		map[string]string{handler.IdempotencyKeyHeader: key})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp dto.TransactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func signedWebhook(eventID, status string) ([]byte, map[string]string) {
	body := []byte(fmt.Sprintf(
		`{"eventId":%q,"eventType":"payment.update","payload":{"orderRef":"order_1","paymentRef":"pay_1","amount":"500.00","currency":"INR","status":%q}}`,
		eventID, status))
	return body, map[string]string{webhook.GenericSignatureHeader: webhook.Sign(secret, body)}
}

func TestPayments(t *testing.T) {
	f := newAPIFixture(t)

	created := f.initiate(t, "k-1")
	assert.Equal(t, "PENDING", created.Status)
	assert.Equal(t, "500.00", created.Amount)
	assert.Equal(t, "order_1", created.GatewayOrderRef)

	t.Run("Replay returns the same transaction", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/payments",
			[]byte(`{"amount":"500","currency":"INR","referenceType":"REGISTRATION","referenceId":"reg-1"}`),
			map[string]string{handler.IdempotencyKeyHeader: "k-1"})

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.TransactionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Replayed)
		assert.Equal(t, created.ID, resp.ID)
	})

	testCases := []struct {
		name     string
		body     string
		headers  map[string]string
		expected int
	}{
		{"Missing idempotency key", `{"amount":"500","currency":"INR","referenceType":"REGISTRATION","referenceId":"reg-1"}`, nil, http.StatusBadRequest},
		{"Unknown reference type", `{"amount":"500","currency":"INR","referenceType":"MEMBERSHIP","referenceId":"reg-1"}`, map[string]string{handler.IdempotencyKeyHeader: "k-2"}, http.StatusBadRequest},
		{"Invalid amount", `{"amount":"5.005","currency":"INR","referenceType":"REGISTRATION","referenceId":"reg-1"}`, map[string]string{handler.IdempotencyKeyHeader: "k-3"}, http.StatusBadRequest},
		{"Missing reference", `{"amount":"500","currency":"INR","referenceType":"REGISTRATION","referenceId":"reg-404"}`, map[string]string{handler.IdempotencyKeyHeader: "k-4"}, http.StatusUnprocessableEntity},
		{"Key reused with another amount", `{"amount":"600","currency":"INR","referenceType":"REGISTRATION","referenceId":"reg-1"}`, map[string]string{handler.IdempotencyKeyHeader: "k-1"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/v1/payments", []byte(tc.body), tc.headers)
			assert.Equal(t, tc.expected, w.Code, w.Body.String())
		})
	}
}

func TestWebhookIntake(t *testing.T) {
	f := newAPIFixture(t)
	txn := f.initiate(t, "k-1")

	body, headers := signedWebhook("evt-1", "captured")
	w := f.do(http.MethodPost, "/api/v1/webhooks/generic", body, headers)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ack dto.WebhookAckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.False(t, ack.Duplicate)
	assert.Equal(t, "PROCESSED", ack.Outcome)

	t.Run("Duplicate delivery is acknowledged", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/webhooks/generic", body, headers)

		require.Equal(t, http.StatusOK, w.Code)
		var dup dto.WebhookAckResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dup))
		assert.True(t, dup.Duplicate)
		assert.Equal(t, ack.EventID, dup.EventID)
	})

	t.Run("Transaction is completed with an audit trail", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/transactions/"+txn.ID, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var report dto.TransactionReportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, "COMPLETED", report.Transaction.Status)
		assert.Equal(t, "pay_1", report.Transaction.GatewayPaymentRef)
		assert.Len(t, report.SideEffects, len(entity.EffectsFor(entity.ReferenceRegistration)))

		w = f.do(http.MethodGet, "/api/v1/transactions/"+txn.ID+"/audit", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var trail []dto.AuditRecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trail))
		assert.NotEmpty(t, trail)
		assert.Equal(t, "create", trail[0].Action)
	})

	t.Run("Paid registration rejects a new payment", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/payments",
			[]byte(`{"amount":"500","currency":"INR","referenceType":"REGISTRATION","referenceId":"reg-1"}`),
			map[string]string{handler.IdempotencyKeyHeader: "k-2"})

		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, domainerr.CodeReferenceAlreadyPaid, resp.Code)
	})

	t.Run("Processed events are listed", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/webhook-events?status=processed", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var events []dto.WebhookEventResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
		require.Len(t, events, 1)
		assert.Equal(t, "evt-1", events[0].ProviderEventID)
		assert.Equal(t, txn.ID, events[0].TransactionID)
	})
}

func TestWebhookIntake_Rejections(t *testing.T) {
	f := newAPIFixture(t)
	body, headers := signedWebhook("evt-1", "captured")

	testCases := []struct {
		name     string
		path     string
		body     []byte
		headers  map[string]string
		expected int
	}{
		{"Bad signature", "/api/v1/webhooks/generic", body, map[string]string{webhook.GenericSignatureHeader: "deadbeef"}, http.StatusBadRequest},
		{"Missing signature", "/api/v1/webhooks/generic", body, nil, http.StatusBadRequest},
		{"Unknown provider", "/api/v1/webhooks/stripe", body, headers, http.StatusBadRequest},
		{"Body too large", "/api/v1/webhooks/generic", []byte(strings.Repeat("x", 4096)), headers, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(http.MethodPost, tc.path, tc.body, tc.headers)
			assert.Equal(t, tc.expected, w.Code, w.Body.String())
		})
	}

	// Nothing was recorded
	w := f.do(http.MethodGet, "/api/v1/webhook-events?status=RECEIVED", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestReports_Errors(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/v1/transactions/missing", nil, map[string]string{"X-Request-ID": "req-404"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-404", body.RequestID)

	w = f.do(http.MethodGet, "/api/v1/webhook-events?status=DONE", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/v1/webhook-events?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/health", nil, map[string]string{"X-Request-ID": "req-42"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPanicRecovery(t *testing.T) {
	f := newAPIFixture(t)
	f.router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := f.do(http.MethodGet, "/boom", nil, map[string]string{"X-Request-ID": "req-panic"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Message)
	assert.Equal(t, "req-panic", body.RequestID)
}

type fakeStore struct{ err error }

func (f fakeStore) Ping(context.Context) error { return f.err }

func (fakeStore) HealthDetails() map[string]any { return map[string]any{"in_use": 1} }

func TestHealthWithStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testCases := []struct {
		name     string
		store    fakeStore
		expected int
		body     string
	}{
		{"Reachable", fakeStore{}, http.StatusOK, `{"status":"ok","pool":{"in_use":1}}`},
		{"Unreachable", fakeStore{err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable, `{"status":"unavailable","database":"dial tcp: refused"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", handler.NewHealthHandler(tc.store).Health)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tc.expected, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}
