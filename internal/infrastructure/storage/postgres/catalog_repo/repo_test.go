package catalog_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/id"
)

func TestEventsBetweenQueryAggregatesMenu(t *testing.T) {
	from := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)

	sql, args, err := NewRepo(nil).eventsBetweenQuery(from, to).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT e.id, e.name, e.event_date, e.people, e.servings_per_person, "+
			"COALESCE(array_agg(ec.cocktail_id ORDER BY ec.position) FILTER (WHERE ec.cocktail_id IS NOT NULL), '{}') AS cocktail_ids "+
			"FROM events e LEFT JOIN event_cocktails ec ON ec.event_id = e.id "+
			"WHERE e.event_date >= $1 AND e.event_date <= $2 GROUP BY e.id ORDER BY e.event_date, e.id",
		sql)
	assert.Equal(t, []any{from, to}, args)
}

func TestCurrentPricesQueryPicksLatestActive(t *testing.T) {
	a, b := id.New(), id.New()
	on := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	sql, args, err := NewRepo(nil).currentPricesQuery([]id.ID{a, b}, on).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT DISTINCT ON (bottle_id) bottle_id, price_minor, currency, start_date, end_date FROM bottle_prices "+
			"WHERE bottle_id IN ($1,$2) AND start_date <= $3 AND (end_date IS NULL OR end_date >= $4) "+
			"ORDER BY bottle_id, start_date DESC",
		sql)
	assert.Equal(t, []any{a, b, on, on}, args)
}

func TestCocktailQuery(t *testing.T) {
	cocktailID := id.New()

	sql, args, err := NewRepo(nil).cocktailQuery(cocktailID).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name FROM cocktails WHERE id = $1", sql)
	assert.Equal(t, []any{cocktailID.String()}, args)
}
