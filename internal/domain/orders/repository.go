package orders

import (
	"context"
	"time"

	"barstock/internal/core/id"
	"barstock/internal/domain/inventory"
)

// Repository persists orders and their items.
type Repository interface {
	// EventOrders returns, with items, the EVENT orders of eventIDs wherever
	// they are dated, plus any EVENT order dated within [from, to].
	EventOrders(ctx context.Context, from, to time.Time, eventIDs []id.ID) ([]Order, error)
	// WeeklyOrders returns WEEKLY orders whose period is exactly [from, to], with items.
	WeeklyOrders(ctx context.Context, from, to time.Time) ([]Order, error)
	// Create inserts the order and its items.
	Create(ctx context.Context, o Order) error
	// ReplaceItems deletes the order's items and inserts items in their place.
	ReplaceItems(ctx context.Context, orderID id.ID, items []Item) error
	// SetPeriod moves an order to a new period.
	SetPeriod(ctx context.Context, orderID id.ID, start, end time.Time) error
	// Delete removes orders and their items.
	Delete(ctx context.Context, ids []id.ID) error

	List(ctx context.Context, filter ListFilter) ([]Order, error)
	// Get returns apperror NotFound when the order does not exist.
	Get(ctx context.Context, orderID id.ID) (Order, error)
	UpdateStatus(ctx context.Context, orderID id.ID, status Status, notes *string) error
}

// ListFilter narrows order listings. Zero values match everything.
type ListFilter struct {
	Status     *Status
	Scope      *Scope
	SupplierID *id.ID
	EventID    *id.ID
	From       *time.Time
	To         *time.Time
	WithItems  bool
}

// StockSource provides on-hand quantities for the depletion snapshot.
type StockSource interface {
	StockLevels(ctx context.Context, scope inventory.Location) ([]inventory.StockLevel, error)
}

// AuditLogger records a summary of a generation run.
type AuditLogger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}
