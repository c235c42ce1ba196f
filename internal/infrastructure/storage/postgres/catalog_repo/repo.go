// Package catalog_repo reads reference data (events, recipes, ingredients,
// bottles, suppliers) from PostgreSQL.
package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/infrastructure/storage/postgres"
)

// Repo implements catalog.Catalog.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var (
	_ catalog.Catalog       = (*Repo)(nil)
	_ catalog.CocktailStore = (*Repo)(nil)
)

// NewRepo creates the catalog reader.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func selectAll[T any](ctx context.Context, r *Repo, q squirrel.Sqlizer, what string) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []T
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", what, err)
	}
	return out, nil
}

func (r *Repo) eventsQuery() squirrel.SelectBuilder {
	return r.builder.
		Select(
			"e.id", "e.name", "e.event_date", "e.people", "e.servings_per_person",
			"COALESCE(array_agg(ec.cocktail_id ORDER BY ec.position) FILTER (WHERE ec.cocktail_id IS NOT NULL), '{}') AS cocktail_ids",
		).
		From("events e").
		LeftJoin("event_cocktails ec ON ec.event_id = e.id").
		GroupBy("e.id")
}

// Event returns one event with its menu in position order.
func (r *Repo) Event(ctx context.Context, eventID id.ID) (catalog.Event, error) {
	list, err := selectAll[catalog.Event](ctx, r, r.eventsQuery().Where(squirrel.Eq{"e.id": eventID}), "event")
	if err != nil {
		return catalog.Event{}, err
	}
	if len(list) == 0 {
		return catalog.Event{}, apperror.NewNotFound("event", eventID.String())
	}
	return list[0], nil
}

func (r *Repo) eventsBetweenQuery(from, to time.Time) squirrel.SelectBuilder {
	return r.eventsQuery().
		Where(squirrel.GtOrEq{"e.event_date": from}).
		Where(squirrel.LtOrEq{"e.event_date": to}).
		OrderBy("e.event_date", "e.id")
}

// EventsBetween returns events dated within [from, to], earliest first.
func (r *Repo) EventsBetween(ctx context.Context, from, to time.Time) ([]catalog.Event, error) {
	return selectAll[catalog.Event](ctx, r, r.eventsBetweenQuery(from, to), "events")
}

func (r *Repo) cocktailQuery(cocktailID id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(postgres.ExtractDBColumns[catalog.Cocktail]()...).
		From("cocktails").
		Where(squirrel.Eq{"id": cocktailID})
}

// Cocktail returns one cocktail by id.
func (r *Repo) Cocktail(ctx context.Context, cocktailID id.ID) (catalog.Cocktail, error) {
	list, err := selectAll[catalog.Cocktail](ctx, r, r.cocktailQuery(cocktailID), "cocktail")
	if err != nil {
		return catalog.Cocktail{}, err
	}
	if len(list) == 0 {
		return catalog.Cocktail{}, apperror.NewNotFound("cocktail", cocktailID.String())
	}
	return list[0], nil
}

// CocktailLines returns recipe lines grouped per cocktail.
func (r *Repo) CocktailLines(ctx context.Context, cocktailIDs []id.ID) (map[id.ID][]catalog.RecipeLine, error) {
	out := make(map[id.ID][]catalog.RecipeLine, len(cocktailIDs))
	if len(cocktailIDs) == 0 {
		return out, nil
	}
	q := r.builder.
		Select(postgres.ExtractDBColumns[catalog.RecipeLine]()...).
		From("cocktail_ingredients").
		Where(squirrel.Eq{"cocktail_id": cocktailIDs}).
		OrderBy("cocktail_id", "sort_order", "id")
	lines, err := selectAll[catalog.RecipeLine](ctx, r, q, "cocktail lines")
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		out[l.CocktailID] = append(out[l.CocktailID], l)
	}
	return out, nil
}

// Ingredients returns ingredients by id; unknown ids are absent.
func (r *Repo) Ingredients(ctx context.Context, ids []id.ID) (map[id.ID]catalog.Ingredient, error) {
	out := make(map[id.ID]catalog.Ingredient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := r.builder.
		Select(postgres.ExtractDBColumns[catalog.Ingredient]()...).
		From("ingredients").
		Where(squirrel.Eq{"id": ids})
	list, err := selectAll[catalog.Ingredient](ctx, r, q, "ingredients")
	if err != nil {
		return nil, err
	}
	for _, ing := range list {
		out[ing.ID] = ing
	}
	return out, nil
}

// SupplierNames resolves supplier display names.
func (r *Repo) SupplierNames(ctx context.Context, ids []id.ID) (map[id.ID]string, error) {
	out := make(map[id.ID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	type supplier struct {
		ID   id.ID  `db:"id"`
		Name string `db:"name"`
	}
	q := r.builder.Select("id", "name").From("suppliers").Where(squirrel.Eq{"id": ids})
	list, err := selectAll[supplier](ctx, r, q, "suppliers")
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		out[s.ID] = s.Name
	}
	return out, nil
}
