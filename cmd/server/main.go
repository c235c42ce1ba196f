// Package main is the entry point for the barstock API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"barstock/internal/config"
	"barstock/internal/domain/inventory"
	"barstock/internal/domain/orders"
	v1 "barstock/internal/infrastructure/http/v1"
	"barstock/internal/infrastructure/migration"
	"barstock/internal/infrastructure/storage/postgres"
	"barstock/internal/infrastructure/storage/postgres/catalog_repo"
	"barstock/internal/infrastructure/storage/postgres/inventory_repo"
	"barstock/internal/infrastructure/storage/postgres/order_repo"
	"barstock/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting barstock server", "env", cfg.App.Env)

	if cfg.Migrations.AutoApply {
		if err := migrateUp(cfg, log); err != nil {
			log.Fatalw("failed to apply migrations", "error", err)
		}
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	pool.LogStats(ctx)

	txm := postgres.NewTxManager(pool, cfg.Database.StatementTimeout)

	catalogRepo := catalog_repo.NewRepo(txm)
	orderRepo := order_repo.NewRepo(txm)
	orderService := orders.NewService(orderRepo, txm, catalogRepo)

	invDeps := inventory.Deps{
		Repo:    inventory_repo.NewRepo(txm),
		TxM:     txm,
		Events:  catalogRepo,
		Bottles: catalogRepo,
		Recipes: catalogRepo,
		Orders:  orderService,
	}
	engineDeps := orders.EngineDeps{
		Repo:    orderRepo,
		TxM:     txm,
		Catalog: catalogRepo,
		Cutoff:  cfg.Orders.CutoffWeekday,
	}
	routerCfg := v1.RouterConfig{
		Logger:  log,
		Release: !cfg.IsDevelopment(),
		DB:      pool,
		Orders:  orderService,
	}

	if cfg.Audit.Enabled {
		auditService, err := postgres.NewAuditService(txm, cfg.Audit.CompressThreshold)
		if err != nil {
			log.Fatalw("failed to create audit service", "error", err)
		}
		invDeps.Audit = auditService
		engineDeps.Audit = auditService
		routerCfg.Audit = auditService
	}

	inventoryService := inventory.NewService(invDeps)
	engineDeps.Stock = inventoryService

	routerCfg.Inventory = inventoryService
	routerCfg.Ledger = inventoryService.Ledger()
	routerCfg.Engine = orders.NewEngine(engineDeps)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port, "cutoff_weekday", cfg.Orders.CutoffWeekday.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}

func migrateUp(cfg *config.Config, log *logger.Logger) error {
	m, err := migration.NewFromURL(cfg.Database.URL, cfg.Migrations.Path, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
