// Package inventory implements the stock ledger for the bar and the warehouse:
// movements, cached stock totals, transfers and event consumption.
package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
)

// Location is a physical stock location.
type Location string

const (
	LocationBar       Location = "BAR"
	LocationWarehouse Location = "WAREHOUSE"

	// LocationAll selects both locations in scoped reads and consumption.
	// It is never stored on a movement or stock row.
	LocationAll Location = "ALL"
)

// Locations lists the physical locations in deduction order for ALL-scope consumption.
var Locations = []Location{LocationWarehouse, LocationBar}

// IsPhysical reports whether l names a stock location.
func (l Location) IsPhysical() bool {
	return l == LocationBar || l == LocationWarehouse
}

// ParseLocation accepts BAR or WAREHOUSE in any case.
func ParseLocation(s string) (Location, error) {
	l := Location(strings.ToUpper(strings.TrimSpace(s)))
	if !l.IsPhysical() {
		return "", apperror.NewValidation(fmt.Sprintf("invalid location %q", s)).
			WithDetail("allowed", []Location{LocationBar, LocationWarehouse})
	}
	return l, nil
}

// ParseScope accepts BAR, WAREHOUSE or ALL; empty input means ALL.
func ParseScope(s string) (Location, error) {
	l := Location(strings.ToUpper(strings.TrimSpace(s)))
	if l == "" {
		return LocationAll, nil
	}
	if l != LocationAll && !l.IsPhysical() {
		return "", apperror.NewValidation(fmt.Sprintf("invalid location scope %q", s)).
			WithDetail("allowed", []Location{LocationAll, LocationBar, LocationWarehouse})
	}
	return l, nil
}

// Expand returns the physical locations covered by a scope.
func (l Location) Expand() []Location {
	if l == LocationAll {
		return Locations
	}
	return []Location{l}
}

// ItemType classifies inventory items by what backs them.
type ItemType string

const (
	ItemTypeBottle  ItemType = "BOTTLE"
	ItemTypeGarnish ItemType = "GARNISH"
	ItemTypeGlass   ItemType = "GLASS"
)

// ParseItemType accepts BOTTLE, GARNISH or GLASS in any case.
func ParseItemType(s string) (ItemType, error) {
	t := ItemType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ItemTypeBottle, ItemTypeGarnish, ItemTypeGlass:
		return t, nil
	}
	return "", apperror.NewValidation(fmt.Sprintf("invalid item type %q", s))
}

// Backing is the catalog entity an inventory item tracks. Exactly one
// implementation exists per item type, so an item cannot reference two
// things at once.
type Backing interface {
	ItemType() ItemType
	RefID() id.ID
	backing()
}

// BottleBacking tracks whole bottles.
type BottleBacking struct{ BottleID id.ID }

// GarnishBacking tracks a non-bottled ingredient in its own unit.
type GarnishBacking struct{ IngredientID id.ID }

// GlassBacking tracks glassware.
type GlassBacking struct{ GlassTypeID id.ID }

func (BottleBacking) ItemType() ItemType  { return ItemTypeBottle }
func (GarnishBacking) ItemType() ItemType { return ItemTypeGarnish }
func (GlassBacking) ItemType() ItemType   { return ItemTypeGlass }

func (b BottleBacking) RefID() id.ID  { return b.BottleID }
func (b GarnishBacking) RefID() id.ID { return b.IngredientID }
func (b GlassBacking) RefID() id.ID   { return b.GlassTypeID }

func (BottleBacking) backing()  {}
func (GarnishBacking) backing() {}
func (GlassBacking) backing()   {}

// NewBacking builds the variant from the persisted column triple and rejects
// rows where the reference does not match the type or more than one is set.
func NewBacking(itemType ItemType, bottleID, ingredientID, glassTypeID *id.ID) (Backing, error) {
	set := 0
	for _, ref := range []*id.ID{bottleID, ingredientID, glassTypeID} {
		if ref != nil {
			set++
		}
	}
	if set != 1 {
		return nil, apperror.NewDataIntegrity("inventory item must reference exactly one backing entity").
			WithDetail("item_type", itemType).
			WithDetail("references", set)
	}

	switch {
	case itemType == ItemTypeBottle && bottleID != nil:
		return BottleBacking{BottleID: *bottleID}, nil
	case itemType == ItemTypeGarnish && ingredientID != nil:
		return GarnishBacking{IngredientID: *ingredientID}, nil
	case itemType == ItemTypeGlass && glassTypeID != nil:
		return GlassBacking{GlassTypeID: *glassTypeID}, nil
	}
	return nil, apperror.NewDataIntegrity("inventory item reference does not match its type").
		WithDetail("item_type", itemType)
}

// Item is a tracked inventory item.
type Item struct {
	ID           id.ID
	Backing      Backing
	Name         string
	Unit         string
	IsActive     bool
	MinLevel     decimal.NullDecimal
	ReorderLevel decimal.NullDecimal
	PriceMinor   *int64
	Currency     *string
}

// Type returns the item type derived from its backing.
func (i Item) Type() ItemType {
	if i.Backing == nil {
		return ""
	}
	return i.Backing.ItemType()
}

// BottleID returns the backing bottle for BOTTLE items.
func (i Item) BottleID() (id.ID, bool) {
	if b, ok := i.Backing.(BottleBacking); ok {
		return b.BottleID, true
	}
	return id.ID{}, false
}

// IngredientID returns the backing ingredient for GARNISH items.
func (i Item) IngredientID() (id.ID, bool) {
	if b, ok := i.Backing.(GarnishBacking); ok {
		return b.IngredientID, true
	}
	return id.ID{}, false
}

// Stock is the cached running total for one item at one location.
type Stock struct {
	ItemID           id.ID     `db:"inventory_item_id" json:"inventory_item_id"`
	Location         Location  `db:"location" json:"location"`
	Quantity         int64     `db:"quantity" json:"quantity"`
	ReservedQuantity int64     `db:"reserved_quantity" json:"reserved_quantity"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Available is the quantity not held by reservations.
func (s Stock) Available() int64 {
	return s.Quantity - s.ReservedQuantity
}

// Source types recorded on movements.
const (
	SourceTypeTransfer       = "transfer"
	SourceTypeEventConsume   = "event_consume"
	SourceTypeEventUnconsume = "event_unconsume"
	SourceTypeManual         = "manual"

	// sourceTypeLegacyEvent was written by consumption before movements carried an event id.
	sourceTypeLegacyEvent = "event"
)

// Well-known movement reasons.
const (
	ReasonTransfer = "TRANSFER"
	ReasonUsage    = "USAGE"
	ReasonWaste    = "WASTE"
)

// Movement is one immutable ledger entry.
type Movement struct {
	ID            id.ID     `db:"id" json:"id"`
	Location      Location  `db:"location" json:"location"`
	ItemID        id.ID     `db:"inventory_item_id" json:"inventory_item_id"`
	Change        int64     `db:"change" json:"change"`
	Reason        string    `db:"reason" json:"reason"`
	SourceType    *string   `db:"source_type" json:"source_type,omitempty"`
	SourceID      *int64    `db:"source_id" json:"source_id,omitempty"`
	SourceEventID *id.ID    `db:"source_event_id" json:"source_event_id,omitempty"`
	IsReversal    bool      `db:"is_reversal" json:"is_reversal"`
	ReversalOfID  *id.ID    `db:"reversal_of_id" json:"reversal_of_id,omitempty"`
	IsReversed    bool      `db:"is_reversed" json:"is_reversed"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	CreatedBy     *string   `db:"created_by_user_id" json:"created_by_user_id,omitempty"`
}

// SourceTypeIs compares the optional source type.
func (m Movement) SourceTypeIs(st string) bool {
	return m.SourceType != nil && *m.SourceType == st
}
