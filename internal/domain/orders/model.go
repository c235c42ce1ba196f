// Package orders generates and maintains supplier purchase orders derived
// from upcoming events' recipe needs.
package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/units"
)

// Scope distinguishes per-event orders from the weekly supplier summary.
type Scope string

const (
	ScopeWeekly Scope = "WEEKLY"
	ScopeEvent  Scope = "EVENT"
)

// ParseScope accepts WEEKLY or EVENT in any case.
func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.ToUpper(strings.TrimSpace(s)))
	if sc != ScopeWeekly && sc != ScopeEvent {
		return "", apperror.NewValidation(fmt.Sprintf("invalid order scope %q", s))
	}
	return sc, nil
}

// Status is the order lifecycle state. Only DRAFT orders are rewritten or
// deleted by generation.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusDraft, StatusSent, StatusReceived, StatusCancelled:
		return st, nil
	}
	return "", apperror.NewValidation(fmt.Sprintf("invalid order status %q", s)).
		WithDetail("allowed", []Status{StatusDraft, StatusSent, StatusReceived, StatusCancelled})
}

// Order is a purchase order for one supplier.
type Order struct {
	ID          id.ID     `db:"id" json:"id"`
	Scope       Scope     `db:"scope" json:"scope"`
	EventID     *id.ID    `db:"event_id" json:"event_id,omitempty"`
	SupplierID  *id.ID    `db:"supplier_id" json:"supplier_id"`
	Status      Status    `db:"status" json:"status"`
	PeriodStart time.Time `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time `db:"period_end" json:"period_end"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy   *string   `db:"created_by_user_id" json:"created_by_user_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	Items       []Item    `db:"-" json:"items"`
}

// IsDraft reports whether generation may overwrite the order.
func (o Order) IsDraft() bool {
	return o.Status == StatusDraft
}

// Item is one ingredient line of an order. Volume-convertible needs are
// expressed in ml; everything else in the recipe's own unit.
type Item struct {
	ID                    id.ID               `db:"id" json:"id"`
	OrderID               id.ID               `db:"order_id" json:"order_id"`
	IngredientID          id.ID               `db:"ingredient_id" json:"ingredient_id"`
	IngredientName        string              `db:"-" json:"ingredient_name,omitempty"`
	RequestedML           decimal.NullDecimal `db:"requested_ml" json:"requested_ml"`
	RequestedQuantity     decimal.NullDecimal `db:"requested_quantity" json:"requested_quantity"`
	RequestedUnit         string              `db:"requested_unit" json:"requested_unit"`
	UsedFromStockML       decimal.NullDecimal `db:"used_from_stock_ml" json:"used_from_stock_ml"`
	UsedFromStockQuantity decimal.NullDecimal `db:"used_from_stock_quantity" json:"used_from_stock_quantity"`
	NeededML              decimal.NullDecimal `db:"needed_ml" json:"needed_ml"`
	NeededQuantity        decimal.NullDecimal `db:"needed_quantity" json:"needed_quantity"`
	Unit                  string              `db:"unit" json:"unit"`
	BottleID              *id.ID              `db:"bottle_id" json:"bottle_id,omitempty"`
	BottleVolumeML        decimal.NullDecimal `db:"bottle_volume_ml" json:"bottle_volume_ml"`
	RecommendedBottles    *int64              `db:"recommended_bottles" json:"recommended_bottles,omitempty"`
	LeftoverML            decimal.NullDecimal `db:"leftover_ml" json:"leftover_ml"`
}

// IsML reports whether the line is expressed in millilitres.
func (i Item) IsML() bool {
	return i.Unit == units.ML
}

// Shortfall is the amount still to be bought.
func (i Item) Shortfall() decimal.Decimal {
	if i.IsML() {
		return i.NeededML.Decimal
	}
	return i.NeededQuantity.Decimal
}

// MissingIngredient names an ingredient that could not be fully resolved.
type MissingIngredient struct {
	IngredientID id.ID  `json:"ingredient_id"`
	Name         string `json:"name"`
}
