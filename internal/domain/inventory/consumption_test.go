package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/catalog"
)

type consumeFixture struct {
	*fixture
	event      catalog.Event
	bottle     catalog.Bottle
	bottleItem Item
	limeItem   Item
}

func dec(v int64) decimal.NullDecimal { return types.Valid(decimal.NewFromInt(v)) }

func newConsumeFixture(t *testing.T) *consumeFixture {
	t.Helper()
	f := newFixture()

	ginID, limeID := id.New(), id.New()
	bottle := catalog.Bottle{ID: id.New(), IngredientID: &ginID, Name: "Gin 700", VolumeML: dec(700)}
	f.bottles.bottles[bottle.ID] = bottle

	ev := catalog.Event{ID: id.New(), Name: "Gala", EventDate: time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), People: 40}
	f.events[ev.ID] = ev

	cf := &consumeFixture{
		fixture:    f,
		event:      ev,
		bottle:     bottle,
		bottleItem: f.repo.addItem(BottleBacking{BottleID: bottle.ID}, "Gin 700", "bottle"),
		limeItem:   f.repo.addItem(GarnishBacking{IngredientID: limeID}, "Lime", "pcs"),
	}

	f.orders[ev.ID] = []EventOrderLine{
		{IngredientID: &ginID, BottleID: &bottle.ID, RequestedML: dec(1500)},
		{IngredientID: &ginID, BottleID: &bottle.ID, NeededML: dec(700)},
		{IngredientID: &limeID, RequestedQuantity: dec(12)},
	}
	return cf
}

func TestConsumeAllDrainsWarehouseFirst(t *testing.T) {
	f := newConsumeFixture(t)
	f.repo.seed(f.bottleItem.ID, LocationWarehouse, 2)
	f.repo.seed(f.bottleItem.ID, LocationBar, 5)
	f.repo.seed(f.limeItem.ID, LocationBar, 20)
	ctx := context.Background()

	res, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID, Location: LocationAll})
	require.NoError(t, err)

	// 1500/700 truncates to 2, plus the needed-ml fallback line 700/700 = 1.
	assert.Equal(t, int64(0), f.repo.qty(f.bottleItem.ID, LocationWarehouse))
	assert.Equal(t, int64(4), f.repo.qty(f.bottleItem.ID, LocationBar))
	assert.Equal(t, int64(8), f.repo.qty(f.limeItem.ID, LocationBar))
	require.Len(t, res.Movements, 3)

	for _, m := range res.Movements {
		assert.True(t, m.Movement.SourceTypeIs(SourceTypeEventConsume))
		assert.Equal(t, f.event.ID, *m.Movement.SourceEventID)
		assert.Equal(t, ConsumeReason(f.event), m.Movement.Reason)
		assert.Negative(t, m.Movement.Change)
	}
	require.Len(t, f.audit.calls, 1)
	assert.Equal(t, "consume", f.audit.calls[0].action)
}

func TestConsumeEmptyLocationSplitsLikeAll(t *testing.T) {
	f := newConsumeFixture(t)
	f.repo.seed(f.bottleItem.ID, LocationWarehouse, 1)
	f.repo.seed(f.bottleItem.ID, LocationBar, 5)
	f.repo.seed(f.limeItem.ID, LocationWarehouse, 20)

	res, err := f.svc.ConsumeEvent(context.Background(), ConsumeRequest{EventID: f.event.ID})
	require.NoError(t, err)
	assert.Equal(t, LocationAll, res.Location)
	assert.Equal(t, int64(0), f.repo.qty(f.bottleItem.ID, LocationWarehouse))
	assert.Equal(t, int64(3), f.repo.qty(f.bottleItem.ID, LocationBar))
	assert.Equal(t, int64(8), f.repo.qty(f.limeItem.ID, LocationWarehouse))
}

func TestConsumeTwiceConflicts(t *testing.T) {
	f := newConsumeFixture(t)
	ctx := context.Background()

	_, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID, Location: LocationBar})
	require.NoError(t, err)
	count := len(f.repo.movements)

	_, err = f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID, Location: LocationBar})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyConsumed))
	assert.Len(t, f.repo.movements, count)
}

func TestConsumeSingleLocationMayGoNegative(t *testing.T) {
	f := newConsumeFixture(t)
	f.repo.seed(f.bottleItem.ID, LocationBar, 1)

	_, err := f.svc.ConsumeEvent(context.Background(), ConsumeRequest{EventID: f.event.ID, Location: LocationBar})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), f.repo.qty(f.bottleItem.ID, LocationBar))
	assert.Equal(t, int64(-12), f.repo.qty(f.limeItem.ID, LocationBar))
}

func TestConsumeAllInsufficientRollsBack(t *testing.T) {
	f := newConsumeFixture(t)
	f.repo.seed(f.bottleItem.ID, LocationWarehouse, 10)
	f.repo.seed(f.limeItem.ID, LocationWarehouse, 5)
	f.repo.seed(f.limeItem.ID, LocationBar, 5)
	before := len(f.repo.movements)

	_, err := f.svc.ConsumeEvent(context.Background(), ConsumeRequest{EventID: f.event.ID, Location: LocationAll})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Len(t, f.repo.movements, before, "bottle debit written before the lime check is rolled back")
	assert.Equal(t, int64(10), f.repo.qty(f.bottleItem.ID, LocationWarehouse))
}

func TestConsumeRoundTrip(t *testing.T) {
	f := newConsumeFixture(t)
	f.repo.seed(f.bottleItem.ID, LocationWarehouse, 1)
	f.repo.seed(f.bottleItem.ID, LocationBar, 9)
	f.repo.seed(f.limeItem.ID, LocationWarehouse, 30)
	ctx := context.Background()

	status, err := f.svc.ConsumptionStatus(ctx, f.event.ID)
	require.NoError(t, err)
	assert.False(t, status.IsConsumed)

	consumed, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID})
	require.NoError(t, err)

	status, err = f.svc.ConsumptionStatus(ctx, f.event.ID)
	require.NoError(t, err)
	assert.True(t, status.IsConsumed)

	reversed, err := f.svc.UnconsumeEvent(ctx, UnconsumeRequest{EventID: f.event.ID})
	require.NoError(t, err)
	require.Len(t, reversed.Movements, len(consumed.Movements))

	assert.Equal(t, int64(1), f.repo.qty(f.bottleItem.ID, LocationWarehouse))
	assert.Equal(t, int64(9), f.repo.qty(f.bottleItem.ID, LocationBar))
	assert.Equal(t, int64(30), f.repo.qty(f.limeItem.ID, LocationWarehouse))

	for i, r := range reversed.Movements {
		orig := consumed.Movements[i].Movement
		assert.True(t, r.Movement.IsReversal)
		assert.Equal(t, orig.ID, *r.Movement.ReversalOfID)
		assert.Equal(t, -orig.Change, r.Movement.Change)
		assert.True(t, r.Movement.SourceTypeIs(SourceTypeEventUnconsume))
		assert.Equal(t, UnconsumeReason(f.event), r.Movement.Reason)
	}
	for _, m := range f.repo.movements {
		if m.SourceTypeIs(SourceTypeEventConsume) {
			assert.True(t, m.IsReversed)
		}
	}

	status, err = f.svc.ConsumptionStatus(ctx, f.event.ID)
	require.NoError(t, err)
	assert.False(t, status.IsConsumed)

	_, err = f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID})
	assert.NoError(t, err, "consume is allowed again after unconsume")
}

func TestUnconsumeByLocation(t *testing.T) {
	f := newConsumeFixture(t)
	f.repo.seed(f.bottleItem.ID, LocationWarehouse, 1)
	f.repo.seed(f.bottleItem.ID, LocationBar, 9)
	f.repo.seed(f.limeItem.ID, LocationBar, 30)
	ctx := context.Background()

	_, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID})
	require.NoError(t, err)

	res, err := f.svc.UnconsumeEvent(ctx, UnconsumeRequest{EventID: f.event.ID, Location: LocationWarehouse})
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)
	assert.Equal(t, int64(1), f.repo.qty(f.bottleItem.ID, LocationWarehouse))
	assert.Equal(t, int64(7), f.repo.qty(f.bottleItem.ID, LocationBar))

	_, err = f.svc.UnconsumeEvent(ctx, UnconsumeRequest{EventID: f.event.ID, Location: LocationWarehouse})
	assert.True(t, apperror.IsConflict(err))
}

func TestConsumePreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown event", func(t *testing.T) {
		f := newConsumeFixture(t)
		_, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: id.New(), Location: LocationBar})
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("no orders", func(t *testing.T) {
		f := newConsumeFixture(t)
		delete(f.orders, f.event.ID)
		_, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID, Location: LocationBar})
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("bottle without volume", func(t *testing.T) {
		f := newConsumeFixture(t)
		b := f.bottle
		b.VolumeML = decimal.NullDecimal{}
		f.bottles.bottles[b.ID] = b
		_, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID, Location: LocationBar})
		assert.True(t, apperror.IsDataIntegrity(err))
	})

	t.Run("bottle without inventory item", func(t *testing.T) {
		f := newConsumeFixture(t)
		delete(f.repo.items, f.bottleItem.ID)
		_, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID, Location: LocationBar})
		assert.True(t, apperror.IsDataIntegrity(err))
	})

	t.Run("garnish without inventory item", func(t *testing.T) {
		f := newConsumeFixture(t)
		delete(f.repo.items, f.limeItem.ID)
		_, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID, Location: LocationBar})
		assert.True(t, apperror.IsDataIntegrity(err))
	})

	t.Run("bottle line without ml", func(t *testing.T) {
		f := newConsumeFixture(t)
		f.orders[f.event.ID] = []EventOrderLine{{BottleID: &f.bottle.ID, RequestedQuantity: dec(3)}}
		_, err := f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID, Location: LocationBar})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("nothing to unconsume", func(t *testing.T) {
		f := newConsumeFixture(t)
		_, err := f.svc.UnconsumeEvent(ctx, UnconsumeRequest{EventID: f.event.ID})
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("unknown event status", func(t *testing.T) {
		f := newConsumeFixture(t)
		status, err := f.svc.ConsumptionStatus(ctx, id.New())
		require.NoError(t, err)
		assert.False(t, status.IsConsumed)
	})
}

func TestLegacyConsumption(t *testing.T) {
	f := newConsumeFixture(t)
	ctx := context.Background()
	f.repo.seed(f.bottleItem.ID, LocationBar, 10)

	legacy := Movement{
		ID:       id.New(),
		Location: LocationBar,
		ItemID:   f.bottleItem.ID,
		Change:   -3,
		Reason:   "Event consumed: Gala (" + f.event.ID.String() + ")",
	}
	require.NoError(t, f.repo.InsertMovement(ctx, legacy))
	_, err := f.repo.UpsertStock(ctx, f.bottleItem.ID, LocationBar, -3)
	require.NoError(t, err)

	status, err := f.svc.ConsumptionStatus(ctx, f.event.ID)
	require.NoError(t, err)
	assert.True(t, status.IsConsumed)

	_, err = f.svc.ConsumeEvent(ctx, ConsumeRequest{EventID: f.event.ID, Location: LocationBar})
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyConsumed))

	res, err := f.svc.UnconsumeEvent(ctx, UnconsumeRequest{EventID: f.event.ID})
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)
	assert.Equal(t, int64(10), f.repo.qty(f.bottleItem.ID, LocationBar))

	var backfilled Movement
	for _, m := range f.repo.movements {
		if m.ID == legacy.ID {
			backfilled = m
		}
	}
	assert.True(t, backfilled.IsReversed)
	assert.True(t, backfilled.SourceTypeIs(SourceTypeEventConsume))
	assert.Equal(t, f.event.ID, *backfilled.SourceEventID)
}

func TestLegacyConsumeReasons(t *testing.T) {
	ev := catalog.Event{ID: id.New(), Name: "Gala"}
	reasons := legacyConsumeReasons(ev)
	assert.Contains(t, reasons, ConsumeReason(ev))
	assert.Contains(t, reasons, ev.ID.String())
	assert.Contains(t, reasons, "Event consumed: Gala")

	unnamed := catalog.Event{ID: id.New()}
	assert.Contains(t, legacyConsumeReasons(unnamed), ConsumeReason(unnamed))
}

type batchFixture struct {
	*fixture
	cocktail    catalog.Cocktail
	ginItem     Item
	campariItem Item
	limeItem    Item
}

// newBatchFixture builds a recipe of 30 ml gin on a named bottle, 1 oz
// campari resolved through its default-cost bottle, a lime garnish and an
// optional count-unit bitters line.
func newBatchFixture(t *testing.T) *batchFixture {
	t.Helper()
	f := newFixture()

	ginID, campariID, limeID, bittersID := id.New(), id.New(), id.New(), id.New()
	gin := catalog.Bottle{ID: id.New(), IngredientID: &ginID, Name: "Gin 700", VolumeML: dec(700)}
	campariLitre := catalog.Bottle{ID: id.New(), IngredientID: &campariID, Name: "Campari 1L", VolumeML: dec(1000)}
	campari := catalog.Bottle{ID: id.New(), IngredientID: &campariID, Name: "Campari 750", VolumeML: dec(750), IsDefaultCost: true}
	for _, b := range []catalog.Bottle{gin, campariLitre, campari} {
		f.bottles.bottles[b.ID] = b
	}

	cocktail := catalog.Cocktail{ID: id.New(), Name: "Negroni"}
	f.recipes.cocktails[cocktail.ID] = cocktail
	f.recipes.lines[cocktail.ID] = []catalog.RecipeLine{
		{CocktailID: cocktail.ID, IngredientID: &ginID, BottleID: &gin.ID, Quantity: decimal.NewFromInt(30), Unit: "ml"},
		{CocktailID: cocktail.ID, IngredientID: &campariID, Quantity: decimal.NewFromInt(1), Unit: "oz", SortOrder: 1},
		{CocktailID: cocktail.ID, IngredientID: &limeID, Quantity: decimal.NewFromInt(1), Unit: "piece", IsGarnish: true, SortOrder: 2},
		{CocktailID: cocktail.ID, IngredientID: &bittersID, Quantity: decimal.NewFromInt(2), Unit: "dash", IsOptional: true, SortOrder: 3},
	}

	return &batchFixture{
		fixture:     f,
		cocktail:    cocktail,
		ginItem:     f.repo.addItem(BottleBacking{BottleID: gin.ID}, "Gin 700", "bottle"),
		campariItem: f.repo.addItem(BottleBacking{BottleID: campari.ID}, "Campari 750", "bottle"),
		limeItem:    f.repo.addItem(GarnishBacking{IngredientID: limeID}, "Lime", "piece"),
	}
}

func TestConsumeCocktailBatchByServings(t *testing.T) {
	f := newBatchFixture(t)
	f.repo.seed(f.ginItem.ID, LocationBar, 5)
	f.repo.seed(f.campariItem.ID, LocationBar, 4)
	f.repo.seed(f.limeItem.ID, LocationBar, 60)
	ctx := context.Background()

	req := BatchRequest{CocktailID: f.cocktail.ID, Servings: decimal.NewFromInt(50), Location: LocationBar}
	res, err := f.svc.ConsumeCocktailBatch(ctx, req)
	require.NoError(t, err)

	// 1500 ml gin is 2 bottles of 700; 50 oz campari is 1 bottle of 750.
	assert.Equal(t, int64(3), f.repo.qty(f.ginItem.ID, LocationBar))
	assert.Equal(t, int64(3), f.repo.qty(f.campariItem.ID, LocationBar))
	assert.Equal(t, int64(60), f.repo.qty(f.limeItem.ID, LocationBar))
	assert.Equal(t, "Negroni", res.CocktailName)
	assert.True(t, decimal.NewFromInt(50).Equal(res.ScaleFactor))
	require.Len(t, res.Movements, 2)
	for _, m := range res.Movements {
		assert.Equal(t, BatchReason(f.cocktail), m.Movement.Reason)
		assert.True(t, m.Movement.SourceTypeIs(SourceTypeCocktailBatch))
		assert.Nil(t, m.Movement.SourceEventID)
	}
	require.Len(t, f.audit.calls, 1)
	assert.Equal(t, "cocktail_batch", f.audit.calls[0].entityType)

	// recording the same batch again is allowed
	_, err = f.svc.ConsumeCocktailBatch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.repo.qty(f.ginItem.ID, LocationBar))
	assert.Equal(t, int64(2), f.repo.qty(f.campariItem.ID, LocationBar))
}

func TestConsumeCocktailBatchByLitersWithGarnish(t *testing.T) {
	f := newBatchFixture(t)
	f.repo.seed(f.limeItem.ID, LocationWarehouse, 60)
	ctx := context.Background()

	res, err := f.svc.ConsumeCocktailBatch(ctx, BatchRequest{
		CocktailID:     f.cocktail.ID,
		Liters:         decimal.NewFromInt(3),
		Location:       LocationWarehouse,
		IncludeGarnish: true,
		Reason:         "Prep for Friday",
	})
	require.NoError(t, err)

	// 3000 ml over a 59.5735 ml build is 50.36 builds.
	assert.Equal(t, "50.36", res.ScaleFactor.StringFixed(2))
	assert.Equal(t, int64(-2), f.repo.qty(f.ginItem.ID, LocationWarehouse))
	assert.Equal(t, int64(-1), f.repo.qty(f.campariItem.ID, LocationWarehouse))
	assert.Equal(t, int64(10), f.repo.qty(f.limeItem.ID, LocationWarehouse))
	require.Len(t, res.Movements, 3)
	assert.Equal(t, "Prep for Friday", res.Movements[0].Movement.Reason)
}

func TestConsumeCocktailBatchRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("servings and liters together", func(t *testing.T) {
		f := newBatchFixture(t)
		_, err := f.svc.ConsumeCocktailBatch(ctx, BatchRequest{
			CocktailID: f.cocktail.ID,
			Servings:   decimal.NewFromInt(10),
			Liters:     decimal.NewFromInt(1),
			Location:   LocationBar,
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("no batch size", func(t *testing.T) {
		f := newBatchFixture(t)
		_, err := f.svc.ConsumeCocktailBatch(ctx, BatchRequest{CocktailID: f.cocktail.ID, Location: LocationBar})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("scope location", func(t *testing.T) {
		f := newBatchFixture(t)
		_, err := f.svc.ConsumeCocktailBatch(ctx, BatchRequest{
			CocktailID: f.cocktail.ID,
			Servings:   decimal.NewFromInt(10),
			Location:   LocationAll,
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("unknown cocktail", func(t *testing.T) {
		f := newBatchFixture(t)
		_, err := f.svc.ConsumeCocktailBatch(ctx, BatchRequest{
			CocktailID: id.New(),
			Servings:   decimal.NewFromInt(10),
			Location:   LocationBar,
		})
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("count unit on a bottled ingredient", func(t *testing.T) {
		f := newBatchFixture(t)
		_, err := f.svc.ConsumeCocktailBatch(ctx, BatchRequest{
			CocktailID:      f.cocktail.ID,
			Servings:        decimal.NewFromInt(10),
			Location:        LocationBar,
			IncludeOptional: true,
		})
		assert.True(t, apperror.IsValidation(err))
		assert.Empty(t, f.repo.movements)
	})

	t.Run("garnish without inventory item", func(t *testing.T) {
		f := newBatchFixture(t)
		delete(f.repo.items, f.limeItem.ID)
		_, err := f.svc.ConsumeCocktailBatch(ctx, BatchRequest{
			CocktailID:     f.cocktail.ID,
			Servings:       decimal.NewFromInt(10),
			Location:       LocationBar,
			IncludeGarnish: true,
		})
		assert.True(t, apperror.IsConflict(err))
		assert.Empty(t, f.repo.movements)
	})
}
