package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	domainerr "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/dto"
	"github.com/gin-gonic/gin"
)

// ErrorHandler turns a panic inside a handler into a logged 500 response
func ErrorHandler(logger coreport.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			requestID := c.GetString(RequestIDKey)
			logger.Error("Panic recovered in API request", map[string]any{
				"error":      fmt.Sprint(recovered),
				"route":      c.FullPath(),
				"method":     c.Request.Method,
				"request_id": requestID,
				"stack":      string(debug.Stack()),
			})

			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
				domainerr.ErrorCode(domainerr.ErrInternalServer),
				"Internal server error",
				requestID,
			))
		}()

		c.Next()
	}
}
