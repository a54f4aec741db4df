package ledger

import (
	"context"
	"fmt"
	"time"

	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
)

// PaymentService opens transactions and their gateway orders
type PaymentService struct {
	ledger         *Ledger
	validator      *InitiationValidator
	gateway        gateway.PaymentGateway
	clock          coreport.TimeProvider
	logger         coreport.Logger
	gatewayTimeout time.Duration
}

// NewPaymentService creates a new payment initiation service
func NewPaymentService(
	ledger *Ledger,
	paymentGateway gateway.PaymentGateway,
	clock coreport.TimeProvider,
	logger coreport.Logger,
	gatewayTimeout time.Duration,
) *PaymentService {
	return &PaymentService{
		ledger:         ledger,
		validator:      NewInitiationValidator(),
		gateway:        paymentGateway,
		clock:          clock,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
	}
}

var _ usecase.PaymentUseCase = (*PaymentService)(nil)

// Initiate validates the request, opens or replays the transaction and makes sure it carries
// a gateway order. A gateway failure leaves the PENDING transaction in place; repeating the
// request with the same idempotency key retries the order creation.
func (s *PaymentService) Initiate(ctx context.Context, req usecase.InitiatePaymentRequest) (*usecase.InitiatePaymentResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	txn, replayed, err := s.ledger.Create(ctx, CreateRequest{
		IdempotencyKey: req.IdempotencyKey,
		Amount:         req.Amount,
		Currency:       req.Currency,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
	})
	if err != nil {
		return nil, err
	}

	if txn.GatewayOrderRef == "" {
		callCtx, cancel := s.clock.WithTimeout(ctx, s.gatewayTimeout)
		order, err := s.gateway.CreateOrder(callCtx, gateway.OrderRequest{
			Receipt:     txn.TransactionNumber,
			AmountMinor: txn.AmountMinor,
			Currency:    txn.Currency,
			Notes: map[string]string{
				"transaction_id": txn.ID,
				"reference_type": string(txn.ReferenceType),
				"reference_id":   txn.ReferenceID,
			},
		})
		cancel()
		if err != nil {
			s.logger.Warn("Gateway order creation failed", map[string]any{
				"transaction_id": txn.ID,
				"error":          err.Error(),
			})
			return nil, fmt.Errorf("failed to create gateway order for %s: %w", txn.ID, err)
		}

		if err := s.ledger.AttachGatewayOrder(ctx, txn.ID, order.OrderRef); err != nil {
			return nil, err
		}
		txn, err = s.ledger.Get(ctx, txn.ID)
		if err != nil {
			return nil, err
		}
	}

	return &usecase.InitiatePaymentResult{Transaction: txn, Replayed: replayed}, nil
}
