package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/dto"
	"github.com/gin-gonic/gin"
)

// ReportHandler serves read-only views of transactions, audit trails and webhook events
type ReportHandler struct {
	reports usecase.ReportUseCase
	logger  coreport.Logger
}

// NewReportHandler creates a new report handler instance
func NewReportHandler(reports usecase.ReportUseCase, logger coreport.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *ReportHandler) GetTransaction(c *gin.Context) {
	report, err := h.reports.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTransactionReportResponse(report))
}

// AuditTrail handles GET /api/v1/transactions/:id/audit
func (h *ReportHandler) AuditTrail(c *gin.Context) {
	records, err := h.reports.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuditTrailResponse(records))
}

// ListEvents handles GET /api/v1/webhook-events?status=FAILED&limit=50
func (h *ReportHandler) ListEvents(c *gin.Context) {
	status := entity.ProcessingStatus(strings.ToUpper(c.DefaultQuery("status", string(entity.EventFailed))))
	switch status {
	case entity.EventReceived, entity.EventProcessed, entity.EventIgnored, entity.EventFailed:
	default:
		badRequest(c, "Invalid status. Must be one of: RECEIVED, PROCESSED, IGNORED, FAILED")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			badRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	events, err := h.reports.ListEvents(c.Request.Context(), status, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWebhookEventResponses(events))
}
