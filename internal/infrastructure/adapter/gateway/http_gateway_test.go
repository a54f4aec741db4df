package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/logger"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://api.gateway.test/v1"

func newTestGateway(t *testing.T) (*HTTPGateway, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client := &http.Client{Transport: transport, Timeout: time.Second}
	g := NewHTTPGateway(Config{BaseURL: baseURL + "/", KeyID: "key_1", KeySecret: "secret_1"}, client, logger.NewNoopLogger())
	return g, transport
}

func TestHTTPGateway_CreateOrder(t *testing.T) {
	g, transport := newTestGateway(t)

	transport.RegisterResponder(http.MethodPost, baseURL+"/orders",
		func(req *http.Request) (*http.Response, error) {
			user, pass, ok := req.BasicAuth()
			if !ok || user != "key_1" || pass != "secret_1" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, `{}`), nil
			}
			var body createOrderBody
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, `{}`), nil
			}
			if body.Amount != 50000 || body.Currency != "INR" || body.Receipt != "TXN-1" {
				return httpmock.NewStringResponse(http.StatusBadRequest, `{}`), nil
			}
			return httpmock.NewJsonResponse(http.StatusOK, orderBody{ID: "order_1", Amount: 50000, Currency: "INR", Status: "created"})
		})

	order, err := g.CreateOrder(context.Background(), gateway.OrderRequest{
		Receipt:     "TXN-1",
		AmountMinor: 50000,
		Currency:    "inr",
		Notes:       map[string]string{"reference_id": "reg-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "order_1", order.OrderRef)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestHTTPGateway_ErrorClassification(t *testing.T) {
	testCases := []struct {
		name      string
		responder httpmock.Responder
		transient bool
	}{
		{
			name:      "Server error",
			responder: httpmock.NewStringResponder(http.StatusBadGateway, `upstream down`),
			transient: true,
		},
		{
			name:      "Rate limited",
			responder: httpmock.NewStringResponder(http.StatusTooManyRequests, `{}`),
			transient: true,
		},
		{
			name:      "Network failure",
			responder: httpmock.NewErrorResponder(errors.New("connection reset by peer")),
			transient: true,
		},
		{
			name:      "Malformed body",
			responder: httpmock.NewStringResponder(http.StatusOK, `{not json`),
			transient: true,
		},
		{
			name:      "Bad request",
			responder: httpmock.NewStringResponder(http.StatusBadRequest, `{"error":{"code":"BAD_REQUEST_ERROR","description":"amount must be at least 100"}}`),
			transient: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, transport := newTestGateway(t)
			transport.RegisterResponder(http.MethodPost, baseURL+"/orders", tc.responder)

			_, err := g.CreateOrder(context.Background(), gateway.OrderRequest{Receipt: "TXN-1", AmountMinor: 10, Currency: "INR"})

			require.Error(t, err)
			assert.Equal(t, tc.transient, errors.Is(err, errs.ErrTransientGateway))
			if !tc.transient {
				var rejected *RejectedError
				require.ErrorAs(t, err, &rejected)
				assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
				assert.Equal(t, "amount must be at least 100", rejected.Message)
			}
		})
	}
}

func TestHTTPGateway_QueryOrder(t *testing.T) {
	t.Run("Open order", func(t *testing.T) {
		g, transport := newTestGateway(t)
		transport.RegisterResponder(http.MethodGet, baseURL+"/orders/order_1",
			httpmock.NewStringResponder(http.StatusOK, `{"id":"order_1","amount":50000,"currency":"inr","status":"attempted"}`))

		status, err := g.QueryOrder(context.Background(), "order_1")

		require.NoError(t, err)
		assert.Equal(t, "attempted", status.Status)
		assert.Equal(t, "INR", status.Currency)
		assert.Empty(t, status.PaymentRef)
		assert.Equal(t, 1, transport.GetTotalCallCount())
	})

	t.Run("Paid order resolves the captured payment", func(t *testing.T) {
		g, transport := newTestGateway(t)
		transport.RegisterResponder(http.MethodGet, baseURL+"/orders/order_1",
			httpmock.NewStringResponder(http.StatusOK, `{"id":"order_1","amount":50000,"currency":"INR","status":"paid"}`))
		transport.RegisterResponder(http.MethodGet, baseURL+"/orders/order_1/payments",
			httpmock.NewStringResponder(http.StatusOK, `{"items":[
				{"id":"pay_0","order_id":"order_1","amount":50000,"currency":"INR","status":"failed"},
				{"id":"pay_1","order_id":"order_1","amount":50000,"currency":"INR","status":"captured"}
			]}`))

		status, err := g.QueryOrder(context.Background(), "order_1")

		require.NoError(t, err)
		assert.Equal(t, gateway.OrderStatus{
			OrderRef:    "order_1",
			PaymentRef:  "pay_1",
			AmountMinor: 50000,
			Currency:    "INR",
			Status:      "captured",
		}, *status)
	})

	t.Run("Unknown order is permanent", func(t *testing.T) {
		g, transport := newTestGateway(t)
		transport.RegisterResponder(http.MethodGet, baseURL+"/orders/order_404",
			httpmock.NewStringResponder(http.StatusNotFound, `{"error":{"description":"order not found"}}`))

		_, err := g.QueryOrder(context.Background(), "order_404")

		var rejected *RejectedError
		require.ErrorAs(t, err, &rejected)
		assert.NotErrorIs(t, err, errs.ErrTransientGateway)
	})
}

func TestHTTPGateway_CancelledContext(t *testing.T) {
	g, transport := newTestGateway(t)
	transport.RegisterResponder(http.MethodGet, baseURL+"/orders/order_1",
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.QueryOrder(ctx, "order_1")

	assert.ErrorIs(t, err, context.Canceled)
}
