package gateway

import (
	"context"
)

// OrderRequest asks the gateway to open an order for a transaction
type OrderRequest struct {
	Receipt     string // transaction number
	AmountMinor int64
	Currency    string
	Notes       map[string]string
}

// Order is the gateway's answer to an order creation
type Order struct {
	OrderRef string
	Status   string
}

// OrderStatus is the authoritative gateway view of an order, normalized to
// the same amount/currency/status shape carried by webhook events
type OrderStatus struct {
	OrderRef    string
	PaymentRef  string
	AmountMinor int64
	Currency    string
	Status      string
}

// PaymentGateway is the outbound port to the third-party payment gateway.
// Timeouts, network failures and 5xx responses are reported wrapped in ErrTransientGateway.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	QueryOrder(ctx context.Context, orderRef string) (*OrderStatus, error)
}
