package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

func TestNewBacking(t *testing.T) {
	bottle, ingredient, glass := id.New(), id.New(), id.New()

	b, err := NewBacking(ItemTypeBottle, &bottle, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, BottleBacking{BottleID: bottle}, b)

	b, err = NewBacking(ItemTypeGarnish, nil, &ingredient, nil)
	require.NoError(t, err)
	assert.Equal(t, ItemTypeGarnish, b.ItemType())
	assert.Equal(t, ingredient, b.RefID())

	b, err = NewBacking(ItemTypeGlass, nil, nil, &glass)
	require.NoError(t, err)
	assert.Equal(t, GlassBacking{GlassTypeID: glass}, b)

	_, err = NewBacking(ItemTypeBottle, &bottle, &ingredient, nil)
	assert.True(t, apperror.IsDataIntegrity(err))

	_, err = NewBacking(ItemTypeBottle, nil, &ingredient, nil)
	assert.True(t, apperror.IsDataIntegrity(err))

	_, err = NewBacking(ItemTypeGlass, nil, nil, nil)
	assert.True(t, apperror.IsDataIntegrity(err))
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation(" bar ")
	require.NoError(t, err)
	assert.Equal(t, LocationBar, loc)

	_, err = ParseLocation("ALL")
	assert.True(t, apperror.IsValidation(err))

	scope, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, LocationAll, scope)
	assert.Equal(t, []Location{LocationWarehouse, LocationBar}, scope.Expand())

	_, err = ParseScope("cellar")
	assert.True(t, apperror.IsValidation(err))
}

func TestItemAccessors(t *testing.T) {
	bottle := id.New()
	it := Item{Backing: BottleBacking{BottleID: bottle}}

	got, ok := it.BottleID()
	assert.True(t, ok)
	assert.Equal(t, bottle, got)

	_, ok = it.IngredientID()
	assert.False(t, ok)
	assert.Equal(t, ItemTypeBottle, it.Type())
	assert.Equal(t, ItemType(""), Item{}.Type())
}
