package routes

import (
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/adapter/api/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups the API handlers served by the router
type Handlers struct {
	Payment *handler.PaymentHandler
	Webhook *handler.WebhookHandler
	Report  *handler.ReportHandler
	Health  *handler.HealthHandler
}

// SetupRoutes configures all the routes for the API
func SetupRoutes(router *gin.Engine, handlers Handlers, maxWebhookBody int64) {
	router.GET("/health", handlers.Health.Health)

	v1 := router.Group("/api/v1")
	{
		// POST /api/v1/webhooks/:provider
		v1.POST("/webhooks/:provider", middleware.BodyLimit(maxWebhookBody), handlers.Webhook.Receive)

		// POST /api/v1/payments
		v1.POST("/payments", handlers.Payment.Initiate)

		v1.GET("/transactions/:id", handlers.Report.GetTransaction)
		v1.GET("/transactions/:id/audit", handlers.Report.AuditTrail)
		v1.GET("/webhook-events", handlers.Report.ListEvents)
	}
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
}
