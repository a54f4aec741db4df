package handler

import (
	"net/http"

	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/dto"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader identifies the initiating action of a payment
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentHandler handles payment initiation requests
type PaymentHandler struct {
	payments usecase.PaymentUseCase
	logger   coreport.Logger
}

// NewPaymentHandler creates a new payment handler instance
func NewPaymentHandler(payments usecase.PaymentUseCase, logger coreport.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// Initiate handles POST /api/v1/payments
func (h *PaymentHandler) Initiate(c *gin.Context) {
	key := c.GetHeader(IdempotencyKeyHeader)
	if key == "" {
		badRequest(c, "Missing required header: "+IdempotencyKeyHeader)
		return
	}

	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid payment request format", map[string]any{
			"error": err.Error(),
		})
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	result, err := h.payments.Initiate(c.Request.Context(), usecase.InitiatePaymentRequest{
		IdempotencyKey: key,
		Amount:         req.Amount,
		Currency:       req.Currency,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
	})
	if err != nil {
		h.logger.Warn("Payment initiation failed", map[string]any{
			"idempotency_key": key,
			"reference_type":  req.ReferenceType,
			"reference_id":    req.ReferenceID,
			"error":           err.Error(),
		})
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	response := dto.NewTransactionResponse(result.Transaction)
	response.Replayed = result.Replayed
	c.JSON(status, response)
}
