package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
)

// Repository persists inventory items, movements and cached stock.
type Repository interface {
	// Items

	// GetItem returns apperror NotFound when the item does not exist.
	GetItem(ctx context.Context, itemID id.ID) (Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	// ItemsByBottle returns BOTTLE items keyed by bottle id.
	ItemsByBottle(ctx context.Context, bottleIDs []id.ID) (map[id.ID]Item, error)
	// ItemsByIngredient returns GARNISH items keyed by ingredient id.
	ItemsByIngredient(ctx context.Context, ingredientIDs []id.ID) (map[id.ID]Item, error)
	// InsertItem stores a new item. A second item for the same backing
	// entity yields apperror Conflict; an unknown backing entity NotFound.
	InsertItem(ctx context.Context, item Item) error
	// SaveItem overwrites the mutable fields of an existing item.
	SaveItem(ctx context.Context, item Item) error

	// Ledger

	// InsertMovement appends a movement. An unknown item yields apperror NotFound.
	InsertMovement(ctx context.Context, m Movement) error
	// UpsertStock adds delta to the (item, location) row in a single
	// conflict-safe statement, creating the row when absent.
	UpsertStock(ctx context.Context, itemID id.ID, location Location, delta int64) (Stock, error)
	// GetStock reports false when no row exists for the pair.
	GetStock(ctx context.Context, itemID id.ID, location Location) (Stock, bool, error)
	ListStock(ctx context.Context, filter StockFilter) ([]Stock, error)
	// SumMovements totals every change recorded for the pair.
	SumMovements(ctx context.Context, itemID id.ID, location Location) (int64, error)
	// SetStockQuantity overwrites the cached quantity (reconciliation only).
	SetStockQuantity(ctx context.Context, itemID id.ID, location Location, quantity int64) (Stock, error)

	// Event consumption

	// ActiveEventMovements returns non-reversed movements tagged with the
	// event and the given source type, optionally limited to one location.
	ActiveEventMovements(ctx context.Context, eventID id.ID, sourceType string, location *Location) ([]Movement, error)
	// UntaggedEventMovements returns negative, non-reversal, non-reversed
	// movements without an event id whose source type is NULL or legacySourceType
	// and whose reason is one of reasons.
	UntaggedEventMovements(ctx context.Context, reasons []string, legacySourceType string, location *Location) ([]Movement, error)
	// MarkReversed flips is_reversed on a movement.
	MarkReversed(ctx context.Context, movementID id.ID) error
	// TagEventMovement back-fills the event id and source type on a legacy movement.
	TagEventMovement(ctx context.Context, movementID, eventID id.ID, sourceType string) error

	// ListMovements returns movements newest first.
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	ItemType        *ItemType
	IncludeInactive bool
	// Search matches the item name case-insensitively.
	Search string
}

// StockFilter narrows stock listings.
type StockFilter struct {
	Location *Location
	ItemIDs  []id.ID
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	Location *Location
	ItemID   *id.ID
	ItemType *ItemType
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Movement listing limits.
const (
	DefaultMovementLimit = 200
	MaxMovementLimit     = 1000
)

// EventOrderLine is one line of an EVENT-scope purchase order, as read by
// consumption. Amounts are optional; requested falls back to needed.
type EventOrderLine struct {
	IngredientID      *id.ID
	BottleID          *id.ID
	RequestedML       decimal.NullDecimal
	RequestedQuantity decimal.NullDecimal
	NeededML          decimal.NullDecimal
	NeededQuantity    decimal.NullDecimal
}

// EventOrderSource reads the order lines generated for an event.
type EventOrderSource interface {
	// EventOrderLines returns every line of the event's EVENT orders and
	// whether any such order exists.
	EventOrderLines(ctx context.Context, eventID id.ID) ([]EventOrderLine, bool, error)
}

// RecipeSource reads a cocktail and its recipe lines.
type RecipeSource interface {
	catalog.CocktailStore
	catalog.RecipeCatalog
}

// AuditLogger records a summary of a state-changing operation.
type AuditLogger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}
