package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/inventory"
)

// CreateMovementRequest is the body of POST /inventory/movements.
type CreateMovementRequest struct {
	InventoryItemID string  `json:"inventory_item_id" binding:"required,uuid"`
	Location        string  `json:"location" binding:"required"`
	Change          int64   `json:"change"`
	Reason          string  `json:"reason" binding:"required"`
	SourceType      *string `json:"source_type"`
	SourceID        *int64  `json:"source_id"`
}

// ToDomain validates the request and converts it to a service request.
func (r CreateMovementRequest) ToDomain() (inventory.MovementRequest, error) {
	itemID, err := ParseID("inventory_item_id", r.InventoryItemID)
	if err != nil {
		return inventory.MovementRequest{}, err
	}
	loc, err := inventory.ParseLocation(r.Location)
	if err != nil {
		return inventory.MovementRequest{}, err
	}
	return inventory.MovementRequest{
		ItemID:     itemID,
		Location:   loc,
		Change:     r.Change,
		Reason:     r.Reason,
		SourceType: r.SourceType,
		SourceID:   r.SourceID,
	}, nil
}

// TransferRequest is the body of POST /inventory/transfers.
type TransferRequest struct {
	InventoryItemID string `json:"inventory_item_id" binding:"required,uuid"`
	FromLocation    string `json:"from_location" binding:"required"`
	ToLocation      string `json:"to_location" binding:"required"`
	Quantity        int64  `json:"quantity" binding:"required,gt=0"`
	Reason          string `json:"reason"`
	SourceType      string `json:"source_type"`
	SourceID        *int64 `json:"source_id"`
}

// ToDomain validates the request and converts it to a service request.
func (r TransferRequest) ToDomain() (inventory.TransferRequest, error) {
	itemID, err := ParseID("inventory_item_id", r.InventoryItemID)
	if err != nil {
		return inventory.TransferRequest{}, err
	}
	from, err := inventory.ParseLocation(r.FromLocation)
	if err != nil {
		return inventory.TransferRequest{}, err
	}
	to, err := inventory.ParseLocation(r.ToLocation)
	if err != nil {
		return inventory.TransferRequest{}, err
	}
	return inventory.TransferRequest{
		ItemID:     itemID,
		From:       from,
		To:         to,
		Quantity:   r.Quantity,
		Reason:     r.Reason,
		SourceType: r.SourceType,
		SourceID:   r.SourceID,
	}, nil
}

// ConsumeEventRequest is the body of POST /inventory/consume-event.
type ConsumeEventRequest struct {
	EventID  string `json:"event_id" binding:"required,uuid"`
	Location string `json:"location"`
	Reason   string `json:"reason"`
	SourceID *int64 `json:"source_id"`
}

// ToDomain defaults the location to ALL, as ConsumeEvent does.
func (r ConsumeEventRequest) ToDomain() (inventory.ConsumeRequest, error) {
	eventID, err := ParseID("event_id", r.EventID)
	if err != nil {
		return inventory.ConsumeRequest{}, err
	}
	loc := inventory.LocationAll
	if strings.TrimSpace(r.Location) != "" {
		if loc, err = inventory.ParseScope(r.Location); err != nil {
			return inventory.ConsumeRequest{}, err
		}
	}
	return inventory.ConsumeRequest{EventID: eventID, Location: loc, Reason: r.Reason, SourceID: r.SourceID}, nil
}

// UnconsumeEventRequest is the body of POST /inventory/unconsume-event.
type UnconsumeEventRequest struct {
	EventID  string `json:"event_id" binding:"required,uuid"`
	Location string `json:"location"`
	Reason   string `json:"reason"`
}

// ToDomain leaves an empty location empty, which reverses both locations.
func (r UnconsumeEventRequest) ToDomain() (inventory.UnconsumeRequest, error) {
	eventID, err := ParseID("event_id", r.EventID)
	if err != nil {
		return inventory.UnconsumeRequest{}, err
	}
	var loc inventory.Location
	if strings.TrimSpace(r.Location) != "" {
		if loc, err = inventory.ParseScope(r.Location); err != nil {
			return inventory.UnconsumeRequest{}, err
		}
	}
	return inventory.UnconsumeRequest{EventID: eventID, Location: loc, Reason: r.Reason}, nil
}

// StockQuery holds the query parameters of the stock listings.
type StockQuery struct {
	Location        string `form:"location"`
	ItemType        string `form:"item_type"`
	IncludeInactive bool   `form:"include_inactive"`
}

// ToDomain converts the optional item type filter.
func (q StockQuery) ToDomain() (inventory.StockQuery, error) {
	var out inventory.StockQuery
	out.IncludeInactive = q.IncludeInactive
	if q.ItemType != "" {
		t, err := inventory.ParseItemType(q.ItemType)
		if err != nil {
			return out, err
		}
		out.ItemType = &t
	}
	return out, nil
}

// MovementsQuery holds the query parameters of GET /inventory/movements.
type MovementsQuery struct {
	Location        string `form:"location"`
	InventoryItemID string `form:"inventory_item_id"`
	ItemType        string `form:"item_type"`
	From            string `form:"from"`
	To              string `form:"to"`
	Limit           int    `form:"limit" binding:"omitempty,min=1"`
}

// ToDomain converts and validates every optional filter.
func (q MovementsQuery) ToDomain() (inventory.MovementFilter, error) {
	f := inventory.MovementFilter{Limit: q.Limit}
	if q.Location != "" {
		loc, err := inventory.ParseLocation(q.Location)
		if err != nil {
			return f, err
		}
		f.Location = &loc
	}
	itemID, err := ParseOptionalID("inventory_item_id", q.InventoryItemID)
	if err != nil {
		return f, err
	}
	f.ItemID = itemID
	if q.ItemType != "" {
		t, err := inventory.ParseItemType(q.ItemType)
		if err != nil {
			return f, err
		}
		f.ItemType = &t
	}
	if f.From, err = ParseOptionalDate("from", q.From); err != nil {
		return f, err
	}
	if f.To, err = ParseOptionalDate("to", q.To); err != nil {
		return f, err
	}
	if f.To != nil {
		// to is a whole day
		end := f.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &end
	}
	return f, nil
}

// ItemsQuery holds the query parameters of GET /inventory/items.
type ItemsQuery struct {
	ItemType        string `form:"item_type"`
	Q               string `form:"q"`
	IncludeInactive bool   `form:"include_inactive"`
}

// ToDomain converts the optional item type filter.
func (q ItemsQuery) ToDomain() (inventory.ItemFilter, error) {
	f := inventory.ItemFilter{Search: q.Q, IncludeInactive: q.IncludeInactive}
	if q.ItemType != "" {
		t, err := inventory.ParseItemType(q.ItemType)
		if err != nil {
			return f, err
		}
		f.ItemType = &t
	}
	return f, nil
}

// priceMinor converts a major-unit price to minor units.
func priceMinor(price decimal.NullDecimal) (*int64, error) {
	if !price.Valid {
		return nil, nil
	}
	if price.Decimal.IsNegative() {
		return nil, apperror.NewValidation("price must not be negative").WithDetail("price", price.Decimal.String())
	}
	v := price.Decimal.Shift(2).Round(0).IntPart()
	return &v, nil
}

// CreateItemRequest is the body of POST /inventory/items. Exactly the
// reference matching item_type must be set.
type CreateItemRequest struct {
	ItemType     string              `json:"item_type" binding:"required"`
	BottleID     string              `json:"bottle_id" binding:"omitempty,uuid"`
	IngredientID string              `json:"ingredient_id" binding:"omitempty,uuid"`
	GlassTypeID  string              `json:"glass_type_id" binding:"omitempty,uuid"`
	Name         string              `json:"name" binding:"required"`
	Unit         string              `json:"unit" binding:"required"`
	MinLevel     decimal.NullDecimal `json:"min_level"`
	ReorderLevel decimal.NullDecimal `json:"reorder_level"`
	Price        decimal.NullDecimal `json:"price"`
	Currency     *string             `json:"currency"`
}

// ToDomain builds the item backing from the type and its reference.
func (r CreateItemRequest) ToDomain() (inventory.ItemInput, error) {
	itemType, err := inventory.ParseItemType(r.ItemType)
	if err != nil {
		return inventory.ItemInput{}, err
	}
	var refs [3]*id.ID
	for i, ref := range []struct{ field, value string }{
		{"bottle_id", r.BottleID},
		{"ingredient_id", r.IngredientID},
		{"glass_type_id", r.GlassTypeID},
	} {
		if refs[i], err = ParseOptionalID(ref.field, ref.value); err != nil {
			return inventory.ItemInput{}, err
		}
	}
	backing, err := inventory.NewBacking(itemType, refs[0], refs[1], refs[2])
	if err != nil {
		return inventory.ItemInput{}, apperror.NewValidation(
			"BOTTLE needs bottle_id, GARNISH ingredient_id and GLASS glass_type_id, and nothing else").
			WithDetail("item_type", itemType)
	}
	price, err := priceMinor(r.Price)
	if err != nil {
		return inventory.ItemInput{}, err
	}
	return inventory.ItemInput{
		Backing:      backing,
		Name:         r.Name,
		Unit:         r.Unit,
		MinLevel:     r.MinLevel,
		ReorderLevel: r.ReorderLevel,
		PriceMinor:   price,
		Currency:     r.Currency,
	}, nil
}

// UpdateItemRequest is the body of PATCH /inventory/items/:itemId.
type UpdateItemRequest struct {
	Name         *string             `json:"name"`
	Unit         *string             `json:"unit"`
	IsActive     *bool               `json:"is_active"`
	MinLevel     decimal.NullDecimal `json:"min_level"`
	ReorderLevel decimal.NullDecimal `json:"reorder_level"`
	Price        decimal.NullDecimal `json:"price"`
	Currency     *string             `json:"currency"`
}

// ToDomain keeps absent fields unchanged.
func (r UpdateItemRequest) ToDomain() (inventory.ItemPatch, error) {
	p := inventory.ItemPatch{Name: r.Name, Unit: r.Unit, IsActive: r.IsActive, Currency: r.Currency}
	if r.MinLevel.Valid {
		p.MinLevel = &r.MinLevel.Decimal
	}
	if r.ReorderLevel.Valid {
		p.ReorderLevel = &r.ReorderLevel.Decimal
	}
	price, err := priceMinor(r.Price)
	if err != nil {
		return p, err
	}
	p.PriceMinor = price
	return p, nil
}

// ItemResponse is an inventory item as returned by the item routes.
type ItemResponse struct {
	ID           id.ID               `json:"id"`
	ItemType     inventory.ItemType  `json:"item_type"`
	BottleID     *id.ID              `json:"bottle_id"`
	IngredientID *id.ID              `json:"ingredient_id"`
	GlassTypeID  *id.ID              `json:"glass_type_id"`
	Name         string              `json:"name"`
	Unit         string              `json:"unit"`
	IsActive     bool                `json:"is_active"`
	MinLevel     decimal.NullDecimal `json:"min_level"`
	ReorderLevel decimal.NullDecimal `json:"reorder_level"`
	PriceMinor   *int64              `json:"price_minor"`
	Currency     *string             `json:"currency"`
}

// NewItemResponse flattens the item backing into its reference column.
func NewItemResponse(item inventory.Item) ItemResponse {
	resp := ItemResponse{
		ID:           item.ID,
		ItemType:     item.Type(),
		Name:         item.Name,
		Unit:         item.Unit,
		IsActive:     item.IsActive,
		MinLevel:     item.MinLevel,
		ReorderLevel: item.ReorderLevel,
		PriceMinor:   item.PriceMinor,
		Currency:     item.Currency,
	}
	switch b := item.Backing.(type) {
	case inventory.BottleBacking:
		resp.BottleID = id.Ptr(b.BottleID)
	case inventory.GarnishBacking:
		resp.IngredientID = id.Ptr(b.IngredientID)
	case inventory.GlassBacking:
		resp.GlassTypeID = id.Ptr(b.GlassTypeID)
	}
	return resp
}

// NewItemResponses converts a listing.
func NewItemResponses(items []inventory.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, NewItemResponse(it))
	}
	return out
}

// ConsumeBatchRequest is the body of POST /inventory/cocktails/:cocktailId/consume-batch.
type ConsumeBatchRequest struct {
	Servings        decimal.Decimal `json:"servings"`
	Liters          decimal.Decimal `json:"liters"`
	Location        string          `json:"location" binding:"required"`
	IncludeGarnish  bool            `json:"include_garnish"`
	IncludeOptional bool            `json:"include_optional"`
	Reason          string          `json:"reason"`
	SourceType      string          `json:"source_type"`
	SourceID        *int64          `json:"source_id"`
}

// ToDomain requires a physical location; batch size checks happen in the service.
func (r ConsumeBatchRequest) ToDomain(cocktailID id.ID) (inventory.BatchRequest, error) {
	loc, err := inventory.ParseLocation(r.Location)
	if err != nil {
		return inventory.BatchRequest{}, err
	}
	return inventory.BatchRequest{
		CocktailID:      cocktailID,
		Servings:        r.Servings,
		Liters:          r.Liters,
		Location:        loc,
		IncludeGarnish:  r.IncludeGarnish,
		IncludeOptional: r.IncludeOptional,
		Reason:          r.Reason,
		SourceType:      r.SourceType,
		SourceID:        r.SourceID,
	}, nil
}
