package handler

import (
	"errors"
	"net/http"

	domainerr "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/middleware"
	"github.com/gin-gonic/gin"
)

// httpStatus maps a domain error to the HTTP status of its response
func httpStatus(err error) int {
	switch {
	case errors.Is(err, domainerr.ErrSignatureInvalid),
		errors.Is(err, domainerr.ErrInvalidPayload),
		errors.Is(err, domainerr.ErrUnknownProvider),
		errors.Is(err, domainerr.ErrInvalidAmount),
		errors.Is(err, domainerr.ErrInvalidCurrency),
		errors.Is(err, domainerr.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, domainerr.ErrReferenceNotFound),
		errors.Is(err, domainerr.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity
	case domainerr.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, domainerr.ErrDuplicateTransaction),
		errors.Is(err, domainerr.ErrTransitionConflict),
		errors.Is(err, domainerr.ErrGatewayOrderAlreadyAttached),
		errors.Is(err, domainerr.ErrReferenceAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, domainerr.ErrTransientGateway):
		return http.StatusBadGateway
	case errors.Is(err, domainerr.ErrTransientCollaborator),
		errors.Is(err, domainerr.ErrDatabaseConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := httpStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	_ = c.Error(err)
	c.JSON(status, dto.NewErrorResponse(domainerr.ErrorCode(err), message, c.GetString(middleware.RequestIDKey)))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(domainerr.CodeInvalidPayload, message, c.GetString(middleware.RequestIDKey)))
}
