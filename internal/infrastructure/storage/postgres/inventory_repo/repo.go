// Package inventory_repo implements inventory.Repository on PostgreSQL.
package inventory_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/inventory"
	"barstock/internal/infrastructure/storage/postgres"
)

const (
	itemsTable     = "inventory_items"
	stockTable     = "inventory_stock"
	movementsTable = "inventory_movements"

	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// itemRow is the persisted shape of an item: three nullable references
// plus item_type, converted to a Backing on read.
type itemRow struct {
	ID           id.ID               `db:"id"`
	ItemType     inventory.ItemType  `db:"item_type"`
	BottleID     *id.ID              `db:"bottle_id"`
	IngredientID *id.ID              `db:"ingredient_id"`
	GlassTypeID  *id.ID              `db:"glass_type_id"`
	Name         string              `db:"name"`
	Unit         string              `db:"unit"`
	IsActive     bool                `db:"is_active"`
	MinLevel     decimal.NullDecimal `db:"min_level"`
	ReorderLevel decimal.NullDecimal `db:"reorder_level"`
	PriceMinor   *int64              `db:"price_minor"`
	Currency     *string             `db:"currency"`
}

func (r itemRow) toItem() (inventory.Item, error) {
	backing, err := inventory.NewBacking(r.ItemType, r.BottleID, r.IngredientID, r.GlassTypeID)
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok {
			return inventory.Item{}, appErr.WithDetail("inventory_item_id", r.ID)
		}
		return inventory.Item{}, err
	}
	return inventory.Item{
		ID:           r.ID,
		Backing:      backing,
		Name:         r.Name,
		Unit:         r.Unit,
		IsActive:     r.IsActive,
		MinLevel:     r.MinLevel,
		ReorderLevel: r.ReorderLevel,
		PriceMinor:   r.PriceMinor,
		Currency:     r.Currency,
	}, nil
}

func fromItem(item inventory.Item) itemRow {
	row := itemRow{
		ID:           item.ID,
		ItemType:     item.Type(),
		Name:         item.Name,
		Unit:         item.Unit,
		IsActive:     item.IsActive,
		MinLevel:     item.MinLevel,
		ReorderLevel: item.ReorderLevel,
		PriceMinor:   item.PriceMinor,
		Currency:     item.Currency,
	}
	ref := item.Backing.RefID()
	switch item.Backing.(type) {
	case inventory.BottleBacking:
		row.BottleID = &ref
	case inventory.GarnishBacking:
		row.IngredientID = &ref
	case inventory.GlassBacking:
		row.GlassTypeID = &ref
	}
	return row
}

var (
	itemColumns     = postgres.ExtractDBColumns[itemRow]()
	stockColumns    = postgres.ExtractDBColumns[inventory.Stock]()
	movementColumns = postgres.ExtractDBColumns[inventory.Movement]()
)

// Repo implements inventory.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ inventory.Repository = (*Repo)(nil)

// NewRepo creates the inventory repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// --- Items ---

func (r *Repo) selectItems() squirrel.SelectBuilder {
	return r.builder.Select(itemColumns...).From(itemsTable)
}

func (r *Repo) queryItems(ctx context.Context, q squirrel.SelectBuilder) ([]inventory.Item, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []itemRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	items := make([]inventory.Item, 0, len(rows))
	for _, row := range rows {
		item, err := row.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GetItem retrieves an item by id.
func (r *Repo) GetItem(ctx context.Context, itemID id.ID) (inventory.Item, error) {
	sql, args, err := r.selectItems().Where(squirrel.Eq{"id": itemID}).ToSql()
	if err != nil {
		return inventory.Item{}, fmt.Errorf("build query: %w", err)
	}
	var row itemRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return inventory.Item{}, apperror.NewNotFound("inventory item", itemID.String())
		}
		return inventory.Item{}, fmt.Errorf("get item: %w", err)
	}
	return row.toItem()
}

func (r *Repo) listItemsQuery(f inventory.ItemFilter) squirrel.SelectBuilder {
	q := r.selectItems()
	if !f.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if f.ItemType != nil {
		q = q.Where(squirrel.Eq{"item_type": *f.ItemType})
	}
	if f.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + f.Search + "%"})
	}
	return q.OrderBy("lower(name)", "id")
}

// ListItems lists items ordered by name.
func (r *Repo) ListItems(ctx context.Context, f inventory.ItemFilter) ([]inventory.Item, error) {
	return r.queryItems(ctx, r.listItemsQuery(f))
}

// ItemsByBottle returns BOTTLE items keyed by bottle id.
func (r *Repo) ItemsByBottle(ctx context.Context, bottleIDs []id.ID) (map[id.ID]inventory.Item, error) {
	out := make(map[id.ID]inventory.Item, len(bottleIDs))
	if len(bottleIDs) == 0 {
		return out, nil
	}
	items, err := r.queryItems(ctx, r.selectItems().Where(squirrel.Eq{"bottle_id": bottleIDs}))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if bottleID, ok := item.BottleID(); ok {
			out[bottleID] = item
		}
	}
	return out, nil
}

// ItemsByIngredient returns GARNISH items keyed by ingredient id.
func (r *Repo) ItemsByIngredient(ctx context.Context, ingredientIDs []id.ID) (map[id.ID]inventory.Item, error) {
	out := make(map[id.ID]inventory.Item, len(ingredientIDs))
	if len(ingredientIDs) == 0 {
		return out, nil
	}
	items, err := r.queryItems(ctx, r.selectItems().Where(squirrel.Eq{"ingredient_id": ingredientIDs}))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if ingredientID, ok := item.IngredientID(); ok {
			out[ingredientID] = item
		}
	}
	return out, nil
}

// InsertItem stores a new item.
func (r *Repo) InsertItem(ctx context.Context, item inventory.Item) error {
	sql, args, err := r.builder.Insert(itemsTable).SetMap(postgres.StructToMap(fromItem(item))).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return apperror.NewConflict("inventory item already exists for this backing").
					WithDetail("item_type", item.Type()).
					WithDetail("ref_id", item.Backing.RefID()).
					WithCause(err)
			case pgForeignKeyViolation:
				return apperror.NewNotFound(strings.ToLower(string(item.Type())), item.Backing.RefID().String()).WithCause(err)
			}
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *Repo) saveItemQuery(item inventory.Item) squirrel.UpdateBuilder {
	return r.builder.Update(itemsTable).
		SetMap(map[string]any{
			"name":          item.Name,
			"unit":          item.Unit,
			"is_active":     item.IsActive,
			"min_level":     item.MinLevel,
			"reorder_level": item.ReorderLevel,
			"price_minor":   item.PriceMinor,
			"currency":      item.Currency,
		}).
		Where(squirrel.Eq{"id": item.ID})
}

// SaveItem overwrites the mutable columns of an item.
func (r *Repo) SaveItem(ctx context.Context, item inventory.Item) error {
	sql, args, err := r.saveItemQuery(item).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory item", item.ID.String())
	}
	return nil
}

// --- Ledger ---

// InsertMovement appends a movement row.
func (r *Repo) InsertMovement(ctx context.Context, m inventory.Movement) error {
	sql, args, err := r.builder.Insert(movementsTable).SetMap(postgres.StructToMap(m)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return mapItemFK(err, m.ItemID, "insert movement")
	}
	return nil
}

func (r *Repo) upsertStockQuery(itemID id.ID, loc inventory.Location, quantity int64, additive bool) squirrel.InsertBuilder {
	set := "quantity = EXCLUDED.quantity"
	if additive {
		set = "quantity = " + stockTable + ".quantity + EXCLUDED.quantity"
	}
	return r.builder.Insert(stockTable).
		Columns("inventory_item_id", "location", "quantity", "reserved_quantity", "updated_at").
		Values(itemID, loc, quantity, 0, squirrel.Expr("now()")).
		Suffix("ON CONFLICT (inventory_item_id, location) DO UPDATE SET " + set + ", updated_at = now() " +
			"RETURNING " + strings.Join(stockColumns, ", "))
}

func (r *Repo) upsertStock(ctx context.Context, q squirrel.InsertBuilder, itemID id.ID) (inventory.Stock, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return inventory.Stock{}, fmt.Errorf("build upsert: %w", err)
	}
	var st inventory.Stock
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &st, sql, args...); err != nil {
		return inventory.Stock{}, mapItemFK(err, itemID, "upsert stock")
	}
	return st, nil
}

// UpsertStock adds delta to the stock row in one statement. Concurrent
// writers serialize on the row lock taken by ON CONFLICT.
func (r *Repo) UpsertStock(ctx context.Context, itemID id.ID, loc inventory.Location, delta int64) (inventory.Stock, error) {
	return r.upsertStock(ctx, r.upsertStockQuery(itemID, loc, delta, true), itemID)
}

// SetStockQuantity overwrites the cached quantity.
func (r *Repo) SetStockQuantity(ctx context.Context, itemID id.ID, loc inventory.Location, quantity int64) (inventory.Stock, error) {
	return r.upsertStock(ctx, r.upsertStockQuery(itemID, loc, quantity, false), itemID)
}

// GetStock reads one stock row.
func (r *Repo) GetStock(ctx context.Context, itemID id.ID, loc inventory.Location) (inventory.Stock, bool, error) {
	sql, args, err := r.builder.Select(stockColumns...).From(stockTable).
		Where(squirrel.Eq{"inventory_item_id": itemID, "location": loc}).
		ToSql()
	if err != nil {
		return inventory.Stock{}, false, fmt.Errorf("build query: %w", err)
	}
	var st inventory.Stock
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &st, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return inventory.Stock{}, false, nil
		}
		return inventory.Stock{}, false, fmt.Errorf("get stock: %w", err)
	}
	return st, true, nil
}

func (r *Repo) listStockQuery(f inventory.StockFilter) squirrel.SelectBuilder {
	q := r.builder.Select(stockColumns...).From(stockTable)
	if f.Location != nil {
		q = q.Where(squirrel.Eq{"location": *f.Location})
	}
	if len(f.ItemIDs) > 0 {
		q = q.Where(squirrel.Eq{"inventory_item_id": f.ItemIDs})
	}
	return q
}

// ListStock lists stock rows.
func (r *Repo) ListStock(ctx context.Context, f inventory.StockFilter) ([]inventory.Stock, error) {
	sql, args, err := r.listStockQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []inventory.Stock
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	return rows, nil
}

// SumMovements totals the ledger for one pair.
func (r *Repo) SumMovements(ctx context.Context, itemID id.ID, loc inventory.Location) (int64, error) {
	sql, args, err := r.builder.Select("COALESCE(SUM(change), 0)::bigint").From(movementsTable).
		Where(squirrel.Eq{"inventory_item_id": itemID, "location": loc}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var sum int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum movements: %w", err)
	}
	return sum, nil
}

// --- Event consumption ---

func (r *Repo) activeEventMovementsQuery(eventID id.ID, sourceType string, loc *inventory.Location) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).From(movementsTable).
		Where(squirrel.Eq{"source_event_id": eventID, "source_type": sourceType, "is_reversed": false})
	if loc != nil {
		q = q.Where(squirrel.Eq{"location": *loc})
	}
	return q.OrderBy("created_at", "id")
}

// ActiveEventMovements lists non-reversed movements tagged with the event.
func (r *Repo) ActiveEventMovements(ctx context.Context, eventID id.ID, sourceType string, loc *inventory.Location) ([]inventory.Movement, error) {
	return r.selectMovements(ctx, r.activeEventMovementsQuery(eventID, sourceType, loc))
}

func (r *Repo) untaggedEventMovementsQuery(reasons []string, legacySourceType string, loc *inventory.Location) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).From(movementsTable).
		Where(squirrel.Eq{"source_event_id": nil, "is_reversed": false, "is_reversal": false}).
		Where(squirrel.Lt{"change": 0}).
		Where(squirrel.Or{squirrel.Eq{"source_type": nil}, squirrel.Eq{"source_type": legacySourceType}}).
		Where(squirrel.Eq{"reason": reasons})
	if loc != nil {
		q = q.Where(squirrel.Eq{"location": *loc})
	}
	return q.OrderBy("created_at", "id")
}

// UntaggedEventMovements finds consumption rows written before movements
// carried an event id.
func (r *Repo) UntaggedEventMovements(ctx context.Context, reasons []string, legacySourceType string, loc *inventory.Location) ([]inventory.Movement, error) {
	if len(reasons) == 0 {
		return nil, nil
	}
	return r.selectMovements(ctx, r.untaggedEventMovementsQuery(reasons, legacySourceType, loc))
}

// MarkReversed flags a movement as reversed.
func (r *Repo) MarkReversed(ctx context.Context, movementID id.ID) error {
	return r.updateMovement(ctx, movementID, map[string]any{"is_reversed": true})
}

// TagEventMovement back-fills the event reference of a legacy movement.
func (r *Repo) TagEventMovement(ctx context.Context, movementID, eventID id.ID, sourceType string) error {
	return r.updateMovement(ctx, movementID, map[string]any{
		"source_event_id": eventID,
		"source_type":     sourceType,
	})
}

func (r *Repo) updateMovement(ctx context.Context, movementID id.ID, set map[string]any) error {
	sql, args, err := r.builder.Update(movementsTable).SetMap(set).Where(squirrel.Eq{"id": movementID}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("movement", movementID.String())
	}
	return nil
}

// --- Listing ---

func (r *Repo) listMovementsQuery(f inventory.MovementFilter) squirrel.SelectBuilder {
	cols := make([]string, len(movementColumns))
	for i, c := range movementColumns {
		cols[i] = "m." + c
	}
	q := r.builder.Select(cols...).From(movementsTable + " m")
	if f.ItemType != nil {
		q = q.Join(itemsTable + " i ON i.id = m.inventory_item_id").
			Where(squirrel.Eq{"i.item_type": *f.ItemType})
	}
	if f.Location != nil {
		q = q.Where(squirrel.Eq{"m.location": *f.Location})
	}
	if f.ItemID != nil {
		q = q.Where(squirrel.Eq{"m.inventory_item_id": *f.ItemID})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"m.created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.LtOrEq{"m.created_at": *f.To})
	}
	q = q.OrderBy("m.created_at DESC", "m.id DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return q
}

// ListMovements lists movements newest first.
func (r *Repo) ListMovements(ctx context.Context, f inventory.MovementFilter) ([]inventory.Movement, error) {
	return r.selectMovements(ctx, r.listMovementsQuery(f))
}

func (r *Repo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]inventory.Movement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []inventory.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return rows, nil
}

// mapItemFK turns a foreign key violation on the item reference into NotFound.
func mapItemFK(err error, itemID id.ID, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return apperror.NewNotFound("inventory item", itemID.String()).WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
