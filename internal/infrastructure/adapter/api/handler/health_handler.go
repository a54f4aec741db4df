package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// detailer is implemented by stores that expose extra health fields
type detailer interface {
	HealthDetails() map[string]any
}

// HealthHandler reports liveness and store readiness
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a health handler. A nil store is always ready.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
	}
	body := gin.H{"status": "ok"}
	if d, ok := h.store.(detailer); ok {
		if details := d.HealthDetails(); details != nil {
			body["pool"] = details
		}
	}
	c.JSON(http.StatusOK, body)
}
