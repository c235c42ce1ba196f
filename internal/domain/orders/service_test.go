package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

func TestListHidesStaleWeeklyDrafts(t *testing.T) {
	s := newGinScenario()
	res := s.generate(t)
	ctx := context.Background()

	scope, status := ScopeWeekly, StatusDraft
	filter := ListFilter{Scope: &scope, Status: &status}
	orders, err := s.svc.List(ctx, filter)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, res.WeeklySummary[0].OrderID, orders[0].ID)

	clear(s.cat.events)
	orders, err = s.svc.List(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, orders)

	all, err := s.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateStatus(t *testing.T) {
	s := newGinScenario()
	res := s.generate(t)
	ctx := context.Background()
	orderID := res.Events[0].Suppliers[0].OrderID

	notes := "called in"
	o, err := s.svc.UpdateStatus(ctx, orderID, StatusSent, &notes)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, o.Status)
	assert.Equal(t, "called in", *o.Notes)

	_, err = s.svc.UpdateStatus(ctx, orderID, Status("SHIPPED"), nil)
	assert.True(t, apperror.IsValidation(err))

	_, err = s.svc.UpdateStatus(ctx, id.New(), StatusSent, nil)
	assert.True(t, apperror.IsNotFound(err))

	_, err = s.svc.Get(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestEditItems(t *testing.T) {
	s := newGinScenario()
	res := s.generate(t)
	ctx := context.Background()
	group := res.Events[1].Suppliers[0]
	itemID := group.Items[0].ID
	two := int64(2)

	o, err := s.svc.EditItems(ctx, group.OrderID, []ItemEdit{{
		ItemID:             itemID,
		NeededML:           decimal.NewNullDecimal(dec("1400")),
		RecommendedBottles: &two,
	}})
	require.NoError(t, err)
	assertDec(t, "1400", o.Items[0].NeededML, "needed")
	assert.Equal(t, int64(2), *o.Items[0].RecommendedBottles)

	_, err = s.svc.EditItems(ctx, group.OrderID, []ItemEdit{{ItemID: itemID, NeededQuantity: decimal.NewNullDecimal(dec("1"))}})
	assert.True(t, apperror.IsValidation(err))

	_, err = s.svc.EditItems(ctx, group.OrderID, []ItemEdit{{ItemID: id.New()}})
	assert.True(t, apperror.IsNotFound(err))

	s.repo.setStatus(group.OrderID, StatusSent)
	_, err = s.svc.EditItems(ctx, group.OrderID, []ItemEdit{{ItemID: itemID, RecommendedBottles: &two}})
	assert.True(t, apperror.IsConflict(err))
}

func TestEventOrderLines(t *testing.T) {
	s := newGinScenario()
	res := s.generate(t)
	ctx := context.Background()

	lines, found, err := s.svc.EventOrderLines(ctx, s.eventB.ID)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, lines, 1)
	assert.Equal(t, s.gin, *lines[0].IngredientID)
	assertDec(t, "1125", lines[0].RequestedML, "requested")
	assertDec(t, "125", lines[0].NeededML, "needed")

	s.repo.setStatus(res.Events[1].Suppliers[0].OrderID, StatusCancelled)
	lines, found, err = s.svc.EventOrderLines(ctx, s.eventB.ID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, lines)

	_, found, err = s.svc.EventOrderLines(ctx, id.New())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestParseStatusAndScope(t *testing.T) {
	st, err := ParseStatus(" sent ")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, st)

	_, err = ParseStatus("lost")
	assert.True(t, apperror.IsValidation(err))

	sc, err := ParseScope("event")
	require.NoError(t, err)
	assert.Equal(t, ScopeEvent, sc)
}
