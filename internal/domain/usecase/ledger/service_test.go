package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/logger"
	timeadapter "github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/time"
	gatewaymocks "github.com/amirhossein-jamali/payment-reconciler/mocks/port/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*PaymentService, *gatewaymocks.MockPaymentGateway) {
	t.Helper()
	l, _, _ := newTestLedger(t)
	paymentGateway := gatewaymocks.NewMockPaymentGateway(t)
	clock := timeadapter.NewManualTimeProvider(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	return NewPaymentService(l, paymentGateway, clock, logger.NewNoopLogger(), 5*time.Second), paymentGateway
}

func initiateRequest(key string) usecase.InitiatePaymentRequest {
	return usecase.InitiatePaymentRequest{
		IdempotencyKey: key,
		Amount:         "500",
		Currency:       "INR",
		ReferenceType:  string(entity.ReferenceRegistration),
		ReferenceID:    "reg-1",
	}
}

func TestPaymentService_Initiate(t *testing.T) {
	svc, paymentGateway := newTestService(t)
	ctx := context.Background()

	paymentGateway.EXPECT().CreateOrder(mock.Anything, mock.MatchedBy(func(req gateway.OrderRequest) bool {
		return req.AmountMinor == 50000 && req.Currency == "INR" && req.Notes["reference_id"] == "reg-1"
	})).Return(&gateway.Order{OrderRef: "order_1", Status: "created"}, nil).Once()

	result, err := svc.Initiate(ctx, initiateRequest("k-1"))

	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, "order_1", result.Transaction.GatewayOrderRef)
	assert.Equal(t, entity.StatusPending, result.Transaction.Status)

	// Same key replays without a second gateway order
	again, err := svc.Initiate(ctx, initiateRequest("k-1"))
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, result.Transaction.ID, again.Transaction.ID)
}

func TestPaymentService_GatewayFailureIsRetriedOnReplay(t *testing.T) {
	svc, paymentGateway := newTestService(t)
	ctx := context.Background()

	paymentGateway.EXPECT().CreateOrder(mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: connection reset", errs.ErrTransientGateway)).Once()

	_, err := svc.Initiate(ctx, initiateRequest("k-1"))
	assert.ErrorIs(t, err, errs.ErrTransientGateway)

	paymentGateway.EXPECT().CreateOrder(mock.Anything, mock.Anything).
		Return(&gateway.Order{OrderRef: "order_9"}, nil).Once()

	result, err := svc.Initiate(ctx, initiateRequest("k-1"))
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, "order_9", result.Transaction.GatewayOrderRef)
}

func TestPaymentService_ValidationRejectsBeforeAnyWrite(t *testing.T) {
	svc, _ := newTestService(t)

	testCases := []struct {
		name     string
		mutate   func(*usecase.InitiatePaymentRequest)
		expected error
	}{
		{"Zero amount", func(r *usecase.InitiatePaymentRequest) { r.Amount = "0" }, errs.ErrInvalidAmount},
		{"Three decimals", func(r *usecase.InitiatePaymentRequest) { r.Amount = "1.005" }, errs.ErrInvalidAmount},
		{"Negative", func(r *usecase.InitiatePaymentRequest) { r.Amount = "-5" }, errs.ErrInvalidAmount},
		{"Missing currency", func(r *usecase.InitiatePaymentRequest) { r.Currency = "" }, errs.ErrInvalidCurrency},
		{"Bad currency", func(r *usecase.InitiatePaymentRequest) { r.Currency = "RUPEE" }, errs.ErrInvalidCurrency},
		{"Unknown reference type", func(r *usecase.InitiatePaymentRequest) { r.ReferenceType = "MEMBERSHIP" }, errs.ErrInvalidReference},
		{"Missing reference id", func(r *usecase.InitiatePaymentRequest) { r.ReferenceID = "" }, errs.ErrInvalidReference},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := initiateRequest("k-" + tc.name)
			tc.mutate(&req)

			_, err := svc.Initiate(context.Background(), req)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}
