package orders

import (
	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/units"
)

// AmountScale is the number of decimal places order amounts are stored with.
const AmountScale = 4

// need is the demand for one ingredient in one unit within one event.
// Volume needs always use units.ML.
type need struct {
	ingredientID id.ID
	unit         string
	amount       decimal.Decimal
}

func (n need) isML() bool {
	return n.unit == units.ML
}

type needKey struct {
	ingredient id.ID
	unit       string
}

// demand is an event's aggregated needs plus the bottle chosen per
// ingredient for rounding volume shortfalls.
type demand struct {
	needs   []need
	bottles map[id.ID]catalog.Bottle
}

// bottleLookup resolves the candidate bottle for a recipe line.
type bottleLookup struct {
	byID        map[id.ID]catalog.Bottle
	defaultCost map[id.ID]catalog.Bottle
}

func (l bottleLookup) candidate(line catalog.RecipeLine) (catalog.Bottle, bool) {
	if line.BottleID != nil {
		b, ok := l.byID[*line.BottleID]
		return b, ok
	}
	b, ok := l.defaultCost[*line.IngredientID]
	return b, ok
}

// eventDemand scales every recipe line of the event menu by
// people × servings per person / 4 and aggregates per ingredient and unit in
// first-seen order, rounded to AmountScale so every amount derived from a
// need fits the stored columns exactly. The first line of an ingredient whose candidate bottle has
// a volume fixes that ingredient's bottle.
func eventDemand(ev catalog.Event, recipes map[id.ID][]catalog.RecipeLine, lookup bottleLookup) (demand, error) {
	scale := ev.ServingsPerCocktail()
	d := demand{bottles: make(map[id.ID]catalog.Bottle)}
	index := make(map[needKey]int)

	for _, cocktailID := range ev.CocktailIDs {
		for _, line := range recipes[cocktailID] {
			if line.IngredientID == nil {
				continue
			}
			ingredientID := *line.IngredientID
			amount := line.Quantity.Mul(scale)
			unit := units.Normalize(line.Unit)

			if ml, ok := units.ToML(amount, unit); ok {
				amount, unit = ml, units.ML
				if _, chosen := d.bottles[ingredientID]; !chosen {
					if b, ok := lookup.candidate(line); ok {
						if _, hasVolume := b.Volume(); hasVolume {
							d.bottles[ingredientID] = b
						}
					}
				}
			} else if unit == "" && !line.IsGarnish {
				return demand{}, apperror.NewValidation("recipe line has no unit").
					WithDetail("cocktail_id", cocktailID).
					WithDetail("ingredient_id", ingredientID)
			}

			k := needKey{ingredientID, unit}
			if i, ok := index[k]; ok {
				d.needs[i].amount = d.needs[i].amount.Add(amount)
				continue
			}
			index[k] = len(d.needs)
			d.needs = append(d.needs, need{ingredientID: ingredientID, unit: unit, amount: amount})
		}
	}
	for i := range d.needs {
		d.needs[i].amount = d.needs[i].amount.Round(AmountScale)
	}
	return d, nil
}
