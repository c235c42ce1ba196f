package orders

import (
	"github.com/shopspring/decimal"

	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/units"
)

type rawKey struct {
	ingredient id.ID
	unit       string
}

// Snapshot is the working copy of on-hand stock threaded through one
// generation run. It starts from persisted stock, is debited event by event
// in date order, and is discarded afterwards.
type Snapshot struct {
	ml  map[id.ID]decimal.Decimal
	raw map[rawKey]decimal.Decimal
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		ml:  make(map[id.ID]decimal.Decimal),
		raw: make(map[rawKey]decimal.Decimal),
	}
}

// AddML credits millilitres of an ingredient.
func (s *Snapshot) AddML(ingredientID id.ID, amount decimal.Decimal) {
	s.ml[ingredientID] = s.ml[ingredientID].Add(amount)
}

// AddRaw credits a count-style quantity of an ingredient in unit.
func (s *Snapshot) AddRaw(ingredientID id.ID, unit string, amount decimal.Decimal) {
	k := rawKey{ingredientID, units.Normalize(unit)}
	s.raw[k] = s.raw[k].Add(amount)
}

// AvailableML returns what is left of an ingredient in millilitres.
func (s *Snapshot) AvailableML(ingredientID id.ID) decimal.Decimal {
	return s.ml[ingredientID]
}

// AvailableRaw returns what is left of an ingredient in unit.
func (s *Snapshot) AvailableRaw(ingredientID id.ID, unit string) decimal.Decimal {
	return s.raw[rawKey{ingredientID, units.Normalize(unit)}]
}

// TakeML debits up to requested millilitres and returns the used amount
// and the shortfall.
func (s *Snapshot) TakeML(ingredientID id.ID, requested decimal.Decimal) (used, shortfall decimal.Decimal) {
	used = types.Min(types.NonNegative(s.ml[ingredientID]), requested)
	s.ml[ingredientID] = s.ml[ingredientID].Sub(used)
	return used, requested.Sub(used)
}

// TakeRaw debits up to requested units and returns the used amount and
// the shortfall.
func (s *Snapshot) TakeRaw(ingredientID id.ID, unit string, requested decimal.Decimal) (used, shortfall decimal.Decimal) {
	k := rawKey{ingredientID, units.Normalize(unit)}
	used = types.Min(types.NonNegative(s.raw[k]), requested)
	s.raw[k] = s.raw[k].Sub(used)
	return used, requested.Sub(used)
}
