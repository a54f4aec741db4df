package handler

import (
	"errors"
	"io"
	"net/http"

	domainerr "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/middleware"
	"github.com/gin-gonic/gin"
)

// WebhookHandler receives gateway notifications
type WebhookHandler struct {
	webhooks usecase.WebhookUseCase
	logger   coreport.Logger
}

// NewWebhookHandler creates a new webhook handler instance
func NewWebhookHandler(webhooks usecase.WebhookUseCase, logger coreport.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// Receive handles POST /api/v1/webhooks/:provider.
// Any delivery that was durably recorded is acknowledged with 200, including duplicates
// and events whose reconciliation was deferred or quarantined.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(
				domainerr.CodeInvalidPayload, "Request body too large", c.GetString(middleware.RequestIDKey)))
			return
		}
		badRequest(c, "Unable to read request body")
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for name, values := range c.Request.Header {
		if len(values) > 0 {
			headers[http.CanonicalHeaderKey(name)] = values[0]
		}
	}

	result, err := h.webhooks.Ingest(c.Request.Context(), usecase.WebhookDelivery{
		Provider: c.Param("provider"),
		Body:     body,
		Headers:  headers,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewWebhookAckResponse(result))
}
