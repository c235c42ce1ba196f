package catalog

import (
	"context"
	"time"

	"barstock/internal/core/id"
)

// EventStore reads scheduled events.
type EventStore interface {
	// Event returns apperror NotFound when the event does not exist.
	Event(ctx context.Context, eventID id.ID) (Event, error)
	// EventsBetween returns events dated within [from, to], both inclusive.
	EventsBetween(ctx context.Context, from, to time.Time) ([]Event, error)
}

// RecipeCatalog reads cocktail recipes.
type RecipeCatalog interface {
	// CocktailLines returns recipe lines per cocktail ordered by sort order.
	CocktailLines(ctx context.Context, cocktailIDs []id.ID) (map[id.ID][]RecipeLine, error)
}

// CocktailStore reads single cocktails.
type CocktailStore interface {
	// Cocktail returns apperror NotFound when the cocktail does not exist.
	Cocktail(ctx context.Context, cocktailID id.ID) (Cocktail, error)
}

// IngredientCatalog reads ingredients.
type IngredientCatalog interface {
	Ingredients(ctx context.Context, ids []id.ID) (map[id.ID]Ingredient, error)
}

// BottleCatalog reads bottles and their prices.
type BottleCatalog interface {
	Bottles(ctx context.Context, ids []id.ID) (map[id.ID]Bottle, error)
	// BottlesForIngredients groups every bottle by its ingredient.
	BottlesForIngredients(ctx context.Context, ingredientIDs []id.ID) (map[id.ID][]Bottle, error)
	// CurrentPrices returns, per bottle, the price active on date with the latest start date.
	CurrentPrices(ctx context.Context, bottleIDs []id.ID, on time.Time) (map[id.ID]BottlePrice, error)
}

// SupplierCatalog resolves supplier display names.
type SupplierCatalog interface {
	SupplierNames(ctx context.Context, ids []id.ID) (map[id.ID]string, error)
}

// Catalog bundles every reference-data port.
type Catalog interface {
	EventStore
	RecipeCatalog
	IngredientCatalog
	BottleCatalog
	SupplierCatalog
}

// DefaultCostBottle picks the bottle flagged as default cost, ignoring
// bottles without a usable volume.
func DefaultCostBottle(bottles []Bottle) (Bottle, bool) {
	for _, b := range bottles {
		if _, ok := b.Volume(); ok && b.IsDefaultCost {
			return b, true
		}
	}
	return Bottle{}, false
}
