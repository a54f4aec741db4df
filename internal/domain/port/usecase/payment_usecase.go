package usecase

import (
	"context"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
)

// InitiatePaymentRequest represents an incoming payment initiation
type InitiatePaymentRequest struct {
	IdempotencyKey string
	Amount         string
	Currency       string
	ReferenceType  string
	ReferenceID    string
}

// InitiatePaymentResult describes the transaction opened for an initiating action
type InitiatePaymentResult struct {
	Transaction *entity.PaymentTransaction
	Replayed    bool // true when the idempotency key matched an existing transaction
}

// PaymentUseCase opens transactions and their gateway orders
type PaymentUseCase interface {
	// Initiate creates the PENDING transaction, links it to the referenced entity
	// and attaches a gateway order. Repeating the same idempotency key returns the existing transaction.
	Initiate(ctx context.Context, req InitiatePaymentRequest) (*InitiatePaymentResult, error)
}
