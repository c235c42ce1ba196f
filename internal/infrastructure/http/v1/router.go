// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"barstock/internal/infrastructure/http/v1/handlers"
	"barstock/internal/infrastructure/http/v1/middleware"
	"barstock/pkg/logger"
)

// RouterConfig holds the services the API exposes.
type RouterConfig struct {
	Logger *logger.Logger
	// Release puts gin in release mode.
	Release bool

	DB        handlers.DBPinger
	Inventory handlers.InventoryService
	Ledger    handlers.Reconciler
	Engine    handlers.OrderGenerator
	Orders    handlers.OrderService
	// Audit is optional; without it the audit routes are not mounted.
	Audit handlers.AuditHistory
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// order matters: errors are rendered before the logger sees the status
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	health := handlers.NewHealthHandler(cfg.DB)
	hg := router.Group("/health")
	{
		hg.GET("/live", health.Live)
		hg.GET("/ready", health.Ready)
	}

	base := handlers.NewBaseHandler()
	api := router.Group("/api/v1")
	api.Use(middleware.UserContext())
	{
		handlers.NewInventoryHandler(base, cfg.Inventory, cfg.Ledger).RegisterRoutes(api.Group("/inventory"))
		handlers.NewOrdersHandler(base, cfg.Engine, cfg.Orders).RegisterRoutes(api.Group("/orders"))

		if cfg.Audit != nil {
			audit := handlers.NewAuditHandler(base, cfg.Audit)
			api.GET("/audit/:entityType/:entityId", audit.History)
		}
	}

	return router
}
