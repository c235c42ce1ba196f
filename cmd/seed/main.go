// Package main seeds a development database with a small demo bar: one
// supplier, a gin and tonic menu, one event next week and opening stock.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"barstock/internal/config"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/inventory"
	"barstock/internal/domain/orders"
	"barstock/internal/infrastructure/storage/postgres"
	"barstock/internal/infrastructure/storage/postgres/catalog_repo"
	"barstock/internal/infrastructure/storage/postgres/inventory_repo"
	"barstock/internal/infrastructure/storage/postgres/order_repo"
	"barstock/pkg/logger"
)

const demoSupplier = "Demo Spirits"

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "seed"})
	ctx = appctx.WithTrace(ctx, appctx.NewTrace("", ""))

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.URL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool, cfg.Database.StatementTimeout)
	s := &seeder{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log:     log,
	}

	if err := txm.RunInTransaction(ctx, s.run); err != nil {
		log.Fatalw("seeding failed", "error", err)
	}
	log.Info("seeding completed successfully")
}

type seeder struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	log     *logger.Logger
}

func (s *seeder) run(ctx context.Context) error {
	var existing id.ID
	err := s.txm.GetQuerier(ctx).QueryRow(ctx, `SELECT id FROM suppliers WHERE name = $1`, demoSupplier).Scan(&existing)
	if err == nil {
		s.log.Infow("demo data already present", "supplier_id", existing)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check demo supplier: %w", err)
	}

	supplierID := id.New()
	ginID, limeID, tonicID := id.New(), id.New(), id.New()
	gin700, gin1000, tonicCan := id.New(), id.New(), id.New()

	steps := []struct {
		table string
		rows  []map[string]any
	}{
		{"suppliers", []map[string]any{{"id": supplierID, "name": demoSupplier}}},
		{"ingredients", []map[string]any{
			{"id": ginID, "name": "London Dry Gin", "default_supplier_id": supplierID},
			{"id": limeID, "name": "Lime", "default_supplier_id": supplierID},
			{"id": tonicID, "name": "Tonic Water", "default_supplier_id": supplierID},
		}},
		{"bottles", []map[string]any{
			{"id": gin700, "ingredient_id": ginID, "name": "Gin 0.7L", "volume_ml": decimal.NewFromInt(700), "is_default_cost": true},
			{"id": gin1000, "ingredient_id": ginID, "name": "Gin 1L", "volume_ml": decimal.NewFromInt(1000), "is_default_cost": false},
			{"id": tonicCan, "ingredient_id": tonicID, "name": "Tonic 200ml", "volume_ml": decimal.NewFromInt(200), "is_default_cost": true},
		}},
		{"bottle_prices", []map[string]any{
			{"id": id.New(), "bottle_id": gin700, "price_minor": 2490, "currency": "EUR", "start_date": types.Today().AddDate(0, -1, 0)},
			{"id": id.New(), "bottle_id": gin1000, "price_minor": 3290, "currency": "EUR", "start_date": types.Today().AddDate(0, -1, 0)},
		}},
	}
	for _, st := range steps {
		if err := s.insert(ctx, st.table, st.rows...); err != nil {
			return err
		}
	}

	cocktails := make([]id.ID, 4)
	for i := range cocktails {
		cocktails[i] = id.New()
		if err := s.insert(ctx, "cocktails", map[string]any{"id": cocktails[i], "name": fmt.Sprintf("Gin & Tonic #%d", i+1)}); err != nil {
			return err
		}
		if err := s.insert(ctx, "cocktail_ingredients",
			map[string]any{"id": id.New(), "cocktail_id": cocktails[i], "ingredient_id": ginID, "quantity": decimal.NewFromInt(50), "unit": "ml", "sort_order": 1},
			map[string]any{"id": id.New(), "cocktail_id": cocktails[i], "ingredient_id": tonicID, "quantity": decimal.NewFromInt(15), "unit": "cl", "sort_order": 2},
			map[string]any{"id": id.New(), "cocktail_id": cocktails[i], "ingredient_id": limeID, "quantity": decimal.NewFromInt(1), "unit": "wedge", "is_garnish": true, "sort_order": 3},
		); err != nil {
			return err
		}
	}

	eventID := id.New()
	eventDate := types.NextWeekday(types.Today().AddDate(0, 0, 1), time.Monday)
	if err := s.insert(ctx, "events", map[string]any{
		"id": eventID, "name": "Demo launch", "event_date": eventDate, "people": 50,
		"servings_per_person": decimal.RequireFromString("3.2"),
	}); err != nil {
		return err
	}
	menu := make([]map[string]any, len(cocktails))
	for i, c := range cocktails {
		menu[i] = map[string]any{"event_id": eventID, "cocktail_id": c, "position": i}
	}
	if err := s.insert(ctx, "event_cocktails", menu...); err != nil {
		return err
	}

	ginItem, limeItem := id.New(), id.New()
	if err := s.insert(ctx, "inventory_items",
		map[string]any{"id": ginItem, "item_type": string(inventory.ItemTypeBottle), "bottle_id": gin1000, "name": "Gin 1L", "unit": "bottle"},
		map[string]any{"id": limeItem, "item_type": string(inventory.ItemTypeGarnish), "ingredient_id": limeID, "name": "Lime wedge", "unit": "wedge"},
	); err != nil {
		return err
	}

	return s.openingStock(ctx, map[id.ID]int64{ginItem: 3, limeItem: 40})
}

// openingStock goes through the ledger so movements and stock agree.
func (s *seeder) openingStock(ctx context.Context, quantities map[id.ID]int64) error {
	catalog := catalog_repo.NewRepo(s.txm)
	svc := inventory.NewService(inventory.Deps{
		Repo:    inventory_repo.NewRepo(s.txm),
		TxM:     s.txm,
		Events:  catalog,
		Bottles: catalog,
		Recipes: catalog,
		Orders:  orders.NewService(order_repo.NewRepo(s.txm), s.txm, catalog),
	})
	sourceType := inventory.SourceTypeManual
	for itemID, qty := range quantities {
		applied, err := svc.CreateMovement(ctx, inventory.MovementRequest{
			ItemID:     itemID,
			Location:   inventory.LocationWarehouse,
			Change:     qty,
			Reason:     "OPENING_STOCK",
			SourceType: &sourceType,
		})
		if err != nil {
			return fmt.Errorf("opening stock for %s: %w", itemID, err)
		}
		s.log.Infow("opening stock", "inventory_item_id", itemID, "quantity", applied.Stock.Quantity)
	}
	return nil
}

func (s *seeder) insert(ctx context.Context, table string, rows ...map[string]any) error {
	for _, row := range rows {
		sql, args, err := s.builder.Insert(table).SetMap(row).ToSql()
		if err != nil {
			return fmt.Errorf("build insert into %s: %w", table, err)
		}
		if _, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	s.log.Infow("seeded", "table", table, "rows", len(rows))
	return nil
}
