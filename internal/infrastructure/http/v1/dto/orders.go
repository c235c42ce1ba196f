package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/types"
	"barstock/internal/domain/inventory"
	"barstock/internal/domain/orders"
)

// GenerateOrdersRequest is the body of POST /orders/weekly-by-event.
type GenerateOrdersRequest struct {
	// WindowStart is YYYY-MM-DD; empty means today.
	WindowStart   string `json:"window_start"`
	LocationScope string `json:"location_scope"`
}

// ToDomain resolves the window start and location scope.
func (r GenerateOrdersRequest) ToDomain() (orders.GenerateRequest, error) {
	start, err := ParseOptionalDate("window_start", r.WindowStart)
	if err != nil {
		return orders.GenerateRequest{}, err
	}
	if start == nil {
		today := types.Today()
		start = &today
	}
	scope, err := inventory.ParseScope(r.LocationScope)
	if err != nil {
		return orders.GenerateRequest{}, err
	}
	return orders.GenerateRequest{WindowStart: *start, LocationScope: scope}, nil
}

// OrdersQuery holds the query parameters of GET /orders.
type OrdersQuery struct {
	Status     string `form:"status"`
	Scope      string `form:"scope"`
	SupplierID string `form:"supplier_id"`
	EventID    string `form:"event_id"`
	From       string `form:"from"`
	To         string `form:"to"`
	WithItems  bool   `form:"with_items"`
}

// ToDomain converts and validates every optional filter.
func (q OrdersQuery) ToDomain() (orders.ListFilter, error) {
	f := orders.ListFilter{WithItems: q.WithItems}
	if q.Status != "" {
		s, err := orders.ParseStatus(q.Status)
		if err != nil {
			return f, err
		}
		f.Status = &s
	}
	if q.Scope != "" {
		s, err := orders.ParseScope(q.Scope)
		if err != nil {
			return f, err
		}
		f.Scope = &s
	}
	var err error
	if f.SupplierID, err = ParseOptionalID("supplier_id", q.SupplierID); err != nil {
		return f, err
	}
	if f.EventID, err = ParseOptionalID("event_id", q.EventID); err != nil {
		return f, err
	}
	if f.From, err = ParseOptionalDate("from", q.From); err != nil {
		return f, err
	}
	if f.To, err = ParseOptionalDate("to", q.To); err != nil {
		return f, err
	}
	return f, nil
}

// UpdateOrderRequest is the body of PATCH /orders/:id.
type UpdateOrderRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// OrderItemEdit overrides one line of a DRAFT order.
type OrderItemEdit struct {
	ItemID             string              `json:"item_id" binding:"required,uuid"`
	NeededML           decimal.NullDecimal `json:"needed_ml"`
	NeededQuantity     decimal.NullDecimal `json:"needed_quantity"`
	RecommendedBottles *int64              `json:"recommended_bottles"`
}

// EditOrderItemsRequest is the body of PATCH /orders/:id/items.
type EditOrderItemsRequest struct {
	Items []OrderItemEdit `json:"items" binding:"required,min=1,dive"`
}

// ToDomain parses item ids.
func (r EditOrderItemsRequest) ToDomain() ([]orders.ItemEdit, error) {
	out := make([]orders.ItemEdit, 0, len(r.Items))
	for _, it := range r.Items {
		itemID, err := ParseID("item_id", it.ItemID)
		if err != nil {
			return nil, err
		}
		out = append(out, orders.ItemEdit{
			ItemID:             itemID,
			NeededML:           it.NeededML,
			NeededQuantity:     it.NeededQuantity,
			RecommendedBottles: it.RecommendedBottles,
		})
	}
	return out, nil
}

// OrderSummary is an order without its lines.
type OrderSummary struct {
	ID          string    `json:"id"`
	Scope       string    `json:"scope"`
	EventID     *string   `json:"event_id,omitempty"`
	SupplierID  *string   `json:"supplier_id"`
	Status      string    `json:"status"`
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
	Notes       *string   `json:"notes,omitempty"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromOrder converts an order to its summary. Dates are rendered as YYYY-MM-DD.
func FromOrder(o orders.Order) OrderSummary {
	s := OrderSummary{
		ID:          o.ID.String(),
		Scope:       string(o.Scope),
		Status:      string(o.Status),
		PeriodStart: o.PeriodStart.Format(time.DateOnly),
		PeriodEnd:   o.PeriodEnd.Format(time.DateOnly),
		Notes:       o.Notes,
		ItemCount:   len(o.Items),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.EventID != nil {
		v := o.EventID.String()
		s.EventID = &v
	}
	if o.SupplierID != nil {
		v := o.SupplierID.String()
		s.SupplierID = &v
	}
	return s
}
