// Package catalog describes the reference data the inventory and order
// domains read but never write: recipes, ingredients, bottles, suppliers
// and scheduled events.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/id"
)

// DefaultServingsPerPerson applies when an event does not set its own value.
var DefaultServingsPerPerson = decimal.NewFromInt(3)

// CocktailsPerEvent is the fixed size of an event menu.
const CocktailsPerEvent = 4

// Ingredient is a recipe component.
type Ingredient struct {
	ID                id.ID  `db:"id"`
	Name              string `db:"name"`
	DefaultSupplierID *id.ID `db:"default_supplier_id"`
}

// Bottle is a purchasable container of an ingredient.
type Bottle struct {
	ID            id.ID               `db:"id"`
	IngredientID  *id.ID              `db:"ingredient_id"`
	Name          string              `db:"name"`
	VolumeML      decimal.NullDecimal `db:"volume_ml"`
	IsDefaultCost bool                `db:"is_default_cost"`
}

// Volume returns the bottle volume when it is known and positive.
func (b Bottle) Volume() (decimal.Decimal, bool) {
	if !b.VolumeML.Valid || !b.VolumeML.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return b.VolumeML.Decimal, true
}

// BottlePrice is a dated price for a bottle.
type BottlePrice struct {
	BottleID   id.ID      `db:"bottle_id"`
	PriceMinor int64      `db:"price_minor"`
	Currency   string     `db:"currency"`
	StartDate  time.Time  `db:"start_date"`
	EndDate    *time.Time `db:"end_date"`
}

// ActiveOn reports whether the price applies on date.
func (p BottlePrice) ActiveOn(date time.Time) bool {
	if p.StartDate.After(date) {
		return false
	}
	return p.EndDate == nil || !p.EndDate.Before(date)
}

// Cocktail is a menu item with a recipe.
type Cocktail struct {
	ID   id.ID  `db:"id"`
	Name string `db:"name"`
}

// RecipeLine is one ingredient of a cocktail recipe.
type RecipeLine struct {
	CocktailID   id.ID           `db:"cocktail_id"`
	IngredientID *id.ID          `db:"ingredient_id"`
	Quantity     decimal.Decimal `db:"quantity"`
	Unit         string          `db:"unit"`
	BottleID     *id.ID          `db:"bottle_id"`
	IsGarnish    bool            `db:"is_garnish"`
	IsOptional   bool            `db:"is_optional"`
	SortOrder    int             `db:"sort_order"`
}

// Event is a scheduled function served from a four-cocktail menu.
type Event struct {
	ID                id.ID               `db:"id"`
	Name              string              `db:"name"`
	EventDate         time.Time           `db:"event_date"`
	People            int                 `db:"people"`
	ServingsPerPerson decimal.NullDecimal `db:"servings_per_person"`
	CocktailIDs       []id.ID             `db:"cocktail_ids"`
}

// Servings returns people × servings per person, defaulting the latter.
func (e Event) Servings() decimal.Decimal {
	spp := DefaultServingsPerPerson
	if e.ServingsPerPerson.Valid {
		spp = e.ServingsPerPerson.Decimal
	}
	return decimal.NewFromInt(int64(e.People)).Mul(spp)
}

// ServingsPerCocktail splits the event servings evenly across the menu.
func (e Event) ServingsPerCocktail() decimal.Decimal {
	return e.Servings().Div(decimal.NewFromInt(CocktailsPerEvent))
}

// DisplayName is the event name, or its id when unnamed.
func (e Event) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID.String()
}
