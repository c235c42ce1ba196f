package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

// StockRow is one item's stock at one location with its resolved unit price.
type StockRow struct {
	ItemID           id.ID    `json:"inventory_item_id"`
	ItemType         ItemType `json:"item_type"`
	RefID            id.ID    `json:"ref_id"`
	Name             string   `json:"name"`
	Unit             string   `json:"unit"`
	IsActive         bool     `json:"is_active"`
	Location         Location `json:"location"`
	Quantity         int64    `json:"quantity"`
	ReservedQuantity int64    `json:"reserved_quantity"`
	Available        int64    `json:"available"`
	BelowMinLevel    bool     `json:"below_min_level"`
	PriceMinor       *int64   `json:"price_minor,omitempty"`
	Currency         *string  `json:"currency,omitempty"`
}

// StockQuery narrows stock reads.
type StockQuery struct {
	ItemType        *ItemType
	IncludeInactive bool
}

// ItemStock is one item across both locations.
type ItemStock struct {
	Item      StockRow `json:"item"`
	Bar       int64    `json:"bar"`
	Warehouse int64    `json:"warehouse"`
}

// StockLevel is an item's total quantity over a location scope.
type StockLevel struct {
	Item     Item
	Quantity int64
}

// StockAt lists every matching item at location, with zero for items that
// never had a movement there.
func (s *Service) StockAt(ctx context.Context, location Location, q StockQuery) ([]StockRow, error) {
	if !location.IsPhysical() {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid location %q", location))
	}
	all, err := s.stockRows(ctx, []Location{location}, q)
	if err != nil {
		return nil, err
	}
	return all[location], nil
}

// StockAll lists stock for both locations.
func (s *Service) StockAll(ctx context.Context, q StockQuery) (map[Location][]StockRow, error) {
	return s.stockRows(ctx, Locations, q)
}

// StockForItem returns one item's stock at BAR and WAREHOUSE.
func (s *Service) StockForItem(ctx context.Context, itemID id.ID) (ItemStock, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return ItemStock{}, err
	}
	stocks, err := s.repo.ListStock(ctx, StockFilter{ItemIDs: []id.ID{itemID}})
	if err != nil {
		return ItemStock{}, fmt.Errorf("list stock: %w", err)
	}
	prices, err := s.itemPrices(ctx, []Item{item})
	if err != nil {
		return ItemStock{}, err
	}

	result := ItemStock{Item: newStockRow(item, Stock{ItemID: itemID}, prices)}
	for _, st := range stocks {
		switch st.Location {
		case LocationBar:
			result.Bar = st.Quantity
		case LocationWarehouse:
			result.Warehouse = st.Quantity
		}
	}
	return result, nil
}

// Movements lists ledger entries newest first.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Location != nil && !filter.Location.IsPhysical() {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid location %q", *filter.Location))
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperror.NewValidation("date_to is before date_from")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultMovementLimit
	case filter.Limit > MaxMovementLimit:
		filter.Limit = MaxMovementLimit
	}
	return s.repo.ListMovements(ctx, filter)
}

// StockLevels totals active item quantities over the scope's locations.
// Items without stock rows in scope are omitted.
func (s *Service) StockLevels(ctx context.Context, scope Location) ([]StockLevel, error) {
	if scope != LocationAll && !scope.IsPhysical() {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid location scope %q", scope))
	}
	items, err := s.repo.ListItems(ctx, ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	var filter StockFilter
	if scope.IsPhysical() {
		loc := scope
		filter.Location = &loc
	}
	stocks, err := s.repo.ListStock(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}

	totals := make(map[id.ID]int64, len(stocks))
	seen := make(map[id.ID]bool, len(stocks))
	for _, st := range stocks {
		totals[st.ItemID] += st.Quantity
		seen[st.ItemID] = true
	}

	levels := make([]StockLevel, 0, len(seen))
	for _, item := range items {
		if seen[item.ID] {
			levels = append(levels, StockLevel{Item: item, Quantity: totals[item.ID]})
		}
	}
	return levels, nil
}

func (s *Service) stockRows(ctx context.Context, locations []Location, q StockQuery) (map[Location][]StockRow, error) {
	items, err := s.repo.ListItems(ctx, ItemFilter{ItemType: q.ItemType, IncludeInactive: q.IncludeInactive})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	var filter StockFilter
	if len(locations) == 1 {
		loc := locations[0]
		filter.Location = &loc
	}
	stocks, err := s.repo.ListStock(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	type key struct {
		item id.ID
		loc  Location
	}
	byKey := make(map[key]Stock, len(stocks))
	for _, st := range stocks {
		byKey[key{st.ItemID, st.Location}] = st
	}

	prices, err := s.itemPrices(ctx, items)
	if err != nil {
		return nil, err
	}

	result := make(map[Location][]StockRow, len(locations))
	for _, loc := range locations {
		rows := make([]StockRow, 0, len(items))
		for _, item := range items {
			st, ok := byKey[key{item.ID, loc}]
			if !ok {
				st = Stock{ItemID: item.ID, Location: loc}
			}
			rows = append(rows, newStockRow(item, st, prices))
		}
		result[loc] = rows
	}
	return result, nil
}

type itemPrice struct {
	minor    int64
	currency string
}

// itemPrices resolves a unit price per item: a manual item price wins,
// otherwise the bottle's current dated price.
func (s *Service) itemPrices(ctx context.Context, items []Item) (map[id.ID]itemPrice, error) {
	prices := make(map[id.ID]itemPrice, len(items))
	var bottleIDs []id.ID
	for _, item := range items {
		if item.PriceMinor != nil {
			p := itemPrice{minor: *item.PriceMinor}
			if item.Currency != nil {
				p.currency = *item.Currency
			}
			prices[item.ID] = p
			continue
		}
		if bottleID, ok := item.BottleID(); ok {
			bottleIDs = append(bottleIDs, bottleID)
		}
	}
	if len(bottleIDs) == 0 || s.bottles == nil {
		return prices, nil
	}

	current, err := s.bottles.CurrentPrices(ctx, id.Unique(bottleIDs), s.today())
	if err != nil {
		return nil, fmt.Errorf("load bottle prices: %w", err)
	}
	for _, item := range items {
		if _, ok := prices[item.ID]; ok {
			continue
		}
		bottleID, ok := item.BottleID()
		if !ok {
			continue
		}
		if bp, ok := current[bottleID]; ok {
			prices[item.ID] = itemPrice{minor: bp.PriceMinor, currency: bp.Currency}
		}
	}
	return prices, nil
}

func newStockRow(item Item, st Stock, prices map[id.ID]itemPrice) StockRow {
	row := StockRow{
		ItemID:           item.ID,
		ItemType:         item.Type(),
		Name:             item.Name,
		Unit:             item.Unit,
		IsActive:         item.IsActive,
		Location:         st.Location,
		Quantity:         st.Quantity,
		ReservedQuantity: st.ReservedQuantity,
		Available:        st.Available(),
	}
	if item.Backing != nil {
		row.RefID = item.Backing.RefID()
	}
	if item.MinLevel.Valid {
		row.BelowMinLevel = decimal.NewFromInt(st.Quantity).LessThan(item.MinLevel.Decimal)
	}
	if p, ok := prices[item.ID]; ok {
		minor := p.minor
		row.PriceMinor = &minor
		if p.currency != "" {
			cur := p.currency
			row.Currency = &cur
		}
	}
	return row
}
