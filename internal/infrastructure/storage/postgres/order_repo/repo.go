// Package order_repo implements orders.Repository on PostgreSQL.
package order_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/orders"
	"barstock/internal/infrastructure/storage/postgres"
)

const (
	ordersTable = "orders"
	itemsTable  = "order_items"
)

var (
	orderColumns = postgres.ExtractDBColumns[orders.Order]()
	itemColumns  = postgres.ExtractDBColumns[orders.Item]()
)

// Repo implements orders.Repository.
type Repo struct {
	txm     *postgres.TxManager
	batch   *postgres.BatchInserter
	builder squirrel.StatementBuilderType
}

var _ orders.Repository = (*Repo)(nil)

// NewRepo creates the order repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		batch:   postgres.NewBatchInserter(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *Repo) selectOrders() squirrel.SelectBuilder {
	return r.builder.Select(orderColumns...).From(ordersTable)
}

// EventOrders returns the EVENT orders of eventIDs and any EVENT order
// dated within [from, to]. Orders of a re-dated event are found by event.
func (r *Repo) EventOrders(ctx context.Context, from, to time.Time, eventIDs []id.ID) ([]orders.Order, error) {
	return r.queryOrders(ctx, r.eventOrdersQuery(from, to, eventIDs), true)
}

func (r *Repo) eventOrdersQuery(from, to time.Time, eventIDs []id.ID) squirrel.SelectBuilder {
	var match squirrel.Sqlizer = squirrel.And{
		squirrel.GtOrEq{"period_start": from},
		squirrel.LtOrEq{"period_start": to},
	}
	if len(eventIDs) > 0 {
		match = squirrel.Or{squirrel.Eq{"event_id": eventIDs}, match}
	}
	return r.selectOrders().
		Where(squirrel.Eq{"scope": orders.ScopeEvent}).
		Where(match).
		OrderBy("created_at", "id")
}

// WeeklyOrders returns WEEKLY orders covering exactly [from, to].
func (r *Repo) WeeklyOrders(ctx context.Context, from, to time.Time) ([]orders.Order, error) {
	q := r.selectOrders().
		Where(squirrel.Eq{"scope": orders.ScopeWeekly, "period_start": from, "period_end": to}).
		OrderBy("created_at", "id")
	return r.queryOrders(ctx, q, true)
}

func (r *Repo) listQuery(f orders.ListFilter) squirrel.SelectBuilder {
	q := r.selectOrders()
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.Scope != nil {
		q = q.Where(squirrel.Eq{"scope": *f.Scope})
	}
	if f.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *f.SupplierID})
	}
	if f.EventID != nil {
		q = q.Where(squirrel.Eq{"event_id": *f.EventID})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"period_start": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.LtOrEq{"period_end": *f.To})
	}
	return q.OrderBy("period_start DESC", "created_at DESC")
}

// List returns orders matching f, newest period first.
func (r *Repo) List(ctx context.Context, f orders.ListFilter) ([]orders.Order, error) {
	return r.queryOrders(ctx, r.listQuery(f), f.WithItems)
}

// Get returns one order with items.
func (r *Repo) Get(ctx context.Context, orderID id.ID) (orders.Order, error) {
	list, err := r.queryOrders(ctx, r.selectOrders().Where(squirrel.Eq{"id": orderID}), true)
	if err != nil {
		return orders.Order{}, err
	}
	if len(list) == 0 {
		return orders.Order{}, apperror.NewNotFound("order", orderID.String())
	}
	return list[0], nil
}

func (r *Repo) queryOrders(ctx context.Context, q squirrel.SelectBuilder, withItems bool) ([]orders.Order, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var list []orders.Order
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &list, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	if !withItems || len(list) == 0 {
		return list, nil
	}

	ids := make([]id.ID, len(list))
	for i, o := range list {
		ids[i] = o.ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Items = items[list[i].ID]
		if list[i].Items == nil {
			list[i].Items = []orders.Item{}
		}
	}
	return list, nil
}

func (r *Repo) itemsQuery(orderIDs []id.ID) squirrel.SelectBuilder {
	cols := make([]string, 0, len(itemColumns)+1)
	for _, c := range itemColumns {
		cols = append(cols, "oi."+c)
	}
	cols = append(cols, "COALESCE(ing.name, '') AS ingredient_name")
	return r.builder.Select(cols...).
		From(itemsTable + " oi").
		LeftJoin("ingredients ing ON ing.id = oi.ingredient_id").
		Where(squirrel.Eq{"oi.order_id": orderIDs}).
		OrderBy("oi.order_id", "ing.name", "oi.id")
}

// itemRow adds the joined ingredient name, which Item does not persist.
type itemRow struct {
	orders.Item
	Name string `db:"ingredient_name"`
}

func (r *Repo) items(ctx context.Context, orderIDs []id.ID) (map[id.ID][]orders.Item, error) {
	sql, args, err := r.itemsQuery(orderIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []itemRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	out := make(map[id.ID][]orders.Item, len(orderIDs))
	for _, row := range rows {
		item := row.Item
		item.IngredientName = row.Name
		out[item.OrderID] = append(out[item.OrderID], item)
	}
	return out, nil
}

// Create inserts an order and its items in the caller's transaction.
func (r *Repo) Create(ctx context.Context, o orders.Order) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.builder.Insert(ordersTable).SetMap(postgres.StructToMap(o)).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return r.insertItems(ctx, o.Items)
	})
}

// ReplaceItems swaps the order's items and bumps updated_at.
func (r *Repo) ReplaceItems(ctx context.Context, orderID id.ID, items []orders.Item) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.exec(ctx, r.builder.Delete(itemsTable).Where(squirrel.Eq{"order_id": orderID})); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		if err := r.touch(ctx, orderID, nil); err != nil {
			return err
		}
		return r.insertItems(ctx, items)
	})
}

func (r *Repo) insertItems(ctx context.Context, items []orders.Item) error {
	if _, err := r.batch.CopyFromSlice(ctx, itemsTable, itemColumns, postgres.Rows(itemColumns, items)); err != nil {
		return fmt.Errorf("copy order items: %w", err)
	}
	return nil
}

// SetPeriod moves an order to [start, end].
func (r *Repo) SetPeriod(ctx context.Context, orderID id.ID, start, end time.Time) error {
	return r.touch(ctx, orderID, map[string]any{"period_start": start, "period_end": end})
}

// Delete removes orders; items cascade.
func (r *Repo) Delete(ctx context.Context, ids []id.ID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.exec(ctx, r.builder.Delete(ordersTable).Where(squirrel.Eq{"id": ids})); err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}
	return nil
}

// UpdateStatus sets the status and, when given, the notes.
func (r *Repo) UpdateStatus(ctx context.Context, orderID id.ID, status orders.Status, notes *string) error {
	set := map[string]any{"status": status}
	if notes != nil {
		set["notes"] = *notes
	}
	return r.touch(ctx, orderID, set)
}

func (r *Repo) touch(ctx context.Context, orderID id.ID, set map[string]any) error {
	q := r.builder.Update(ordersTable).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": orderID})
	if len(set) > 0 {
		q = q.SetMap(set)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order", orderID.String())
	}
	return nil
}

func (r *Repo) exec(ctx context.Context, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	return err
}
