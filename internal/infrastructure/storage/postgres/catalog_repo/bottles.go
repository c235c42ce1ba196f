package catalog_repo

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/infrastructure/storage/postgres"
)

var (
	bottleColumns = postgres.ExtractDBColumns[catalog.Bottle]()
	priceColumns  = postgres.ExtractDBColumns[catalog.BottlePrice]()
)

// Bottles returns bottles by id; unknown ids are absent.
func (r *Repo) Bottles(ctx context.Context, ids []id.ID) (map[id.ID]catalog.Bottle, error) {
	out := make(map[id.ID]catalog.Bottle, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := r.builder.Select(bottleColumns...).From("bottles").Where(squirrel.Eq{"id": ids})
	list, err := selectAll[catalog.Bottle](ctx, r, q, "bottles")
	if err != nil {
		return nil, err
	}
	for _, b := range list {
		out[b.ID] = b
	}
	return out, nil
}

// BottlesForIngredients groups bottles by ingredient, default-cost bottles first.
func (r *Repo) BottlesForIngredients(ctx context.Context, ingredientIDs []id.ID) (map[id.ID][]catalog.Bottle, error) {
	out := make(map[id.ID][]catalog.Bottle, len(ingredientIDs))
	if len(ingredientIDs) == 0 {
		return out, nil
	}
	q := r.builder.
		Select(bottleColumns...).
		From("bottles").
		Where(squirrel.Eq{"ingredient_id": ingredientIDs}).
		OrderBy("ingredient_id", "is_default_cost DESC", "name", "id")
	list, err := selectAll[catalog.Bottle](ctx, r, q, "bottles")
	if err != nil {
		return nil, err
	}
	for _, b := range list {
		key := id.Key(b.IngredientID)
		out[key] = append(out[key], b)
	}
	return out, nil
}

func (r *Repo) currentPricesQuery(bottleIDs []id.ID, on time.Time) squirrel.SelectBuilder {
	return r.builder.
		Select(priceColumns...).
		Options("DISTINCT ON (bottle_id)").
		From("bottle_prices").
		Where(squirrel.Eq{"bottle_id": bottleIDs}).
		Where(squirrel.LtOrEq{"start_date": on}).
		Where(squirrel.Or{
			squirrel.Eq{"end_date": nil},
			squirrel.GtOrEq{"end_date": on},
		}).
		OrderBy("bottle_id", "start_date DESC")
}

// CurrentPrices returns the latest-starting price active on date per bottle.
func (r *Repo) CurrentPrices(ctx context.Context, bottleIDs []id.ID, on time.Time) (map[id.ID]catalog.BottlePrice, error) {
	out := make(map[id.ID]catalog.BottlePrice, len(bottleIDs))
	if len(bottleIDs) == 0 {
		return out, nil
	}
	list, err := selectAll[catalog.BottlePrice](ctx, r, r.currentPricesQuery(bottleIDs, on), "bottle prices")
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.BottleID] = p
	}
	return out, nil
}
