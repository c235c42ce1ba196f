package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"barstock/internal/infrastructure/storage/postgres"
)

// DBPinger is the part of the pool the health checks use.
type DBPinger interface {
	Ping(ctx context.Context) error
	Stats() postgres.PoolStats
}

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	db DBPinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db DBPinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{"database": "unhealthy: " + err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"checks":   map[string]string{"database": "healthy"},
		"database": h.db.Stats(),
	})
}
