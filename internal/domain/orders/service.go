package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/inventory"
	"barstock/pkg/logger"
)

// Service reads and maintains persisted orders.
type Service struct {
	repo   Repository
	txm    tx.Manager
	events catalog.EventStore
}

// NewService creates the order maintenance service.
func NewService(repo Repository, txm tx.Manager, events catalog.EventStore) *Service {
	return &Service{repo: repo, txm: txm, events: events}
}

// List returns orders matching filter. Listing WEEKLY DRAFT orders hides
// summaries whose window no longer holds any event.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if filter.Scope == nil || *filter.Scope != ScopeWeekly || filter.Status == nil || *filter.Status != StatusDraft {
		return orders, nil
	}

	live := orders[:0]
	for _, o := range orders {
		events, err := s.events.EventsBetween(ctx, o.PeriodStart, o.PeriodEnd)
		if err != nil {
			return nil, fmt.Errorf("load events for order %s: %w", o.ID, err)
		}
		if len(events) > 0 {
			live = append(live, o)
		}
	}
	return live, nil
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, orderID id.ID) (Order, error) {
	return s.repo.Get(ctx, orderID)
}

// UpdateStatus moves an order to status and optionally replaces its notes.
func (s *Service) UpdateStatus(ctx context.Context, orderID id.ID, status Status, notes *string) (Order, error) {
	status, err := ParseStatus(string(status))
	if err != nil {
		return Order{}, err
	}

	var updated Order
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, orderID); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, orderID, status, notes); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		var err error
		updated, err = s.repo.Get(ctx, orderID)
		return err
	})
	if err != nil {
		return Order{}, err
	}

	logger.Info(ctx, "order status updated", "order_id", orderID, "status", status)
	return updated, nil
}

// ItemEdit overrides the purchase amounts of one order line.
type ItemEdit struct {
	ItemID             id.ID
	NeededML           decimal.NullDecimal
	NeededQuantity     decimal.NullDecimal
	RecommendedBottles *int64
}

// EditItems applies manual edits to a DRAFT order's lines. Edited orders
// stay DRAFT, so the next generation run overwrites them.
func (s *Service) EditItems(ctx context.Context, orderID id.ID, edits []ItemEdit) (Order, error) {
	var updated Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.IsDraft() {
			return apperror.NewConflict("only DRAFT orders can be edited").
				WithDetail("order_id", orderID).
				WithDetail("status", o.Status)
		}

		index := make(map[id.ID]int, len(o.Items))
		for i, item := range o.Items {
			index[item.ID] = i
		}
		for _, e := range edits {
			i, ok := index[e.ItemID]
			if !ok {
				return apperror.NewNotFound("order item", e.ItemID)
			}
			if err := applyEdit(&o.Items[i], e); err != nil {
				return err
			}
		}

		if err := s.repo.ReplaceItems(ctx, orderID, o.Items); err != nil {
			return fmt.Errorf("replace order items: %w", err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return updated, nil
}

func applyEdit(item *Item, e ItemEdit) error {
	for _, v := range []decimal.NullDecimal{e.NeededML, e.NeededQuantity} {
		if v.Valid && v.Decimal.IsNegative() {
			return apperror.NewValidation("needed amount must not be negative").WithDetail("item_id", e.ItemID)
		}
	}
	if e.RecommendedBottles != nil && *e.RecommendedBottles < 0 {
		return apperror.NewValidation("recommended bottles must not be negative").WithDetail("item_id", e.ItemID)
	}
	if e.NeededML.Valid {
		if !item.IsML() {
			return apperror.NewValidation("item is not measured in ml").WithDetail("item_id", e.ItemID)
		}
		item.NeededML = decimal.NewNullDecimal(e.NeededML.Decimal.Round(AmountScale))
	}
	if e.NeededQuantity.Valid {
		if item.IsML() {
			return apperror.NewValidation("item is measured in ml").WithDetail("item_id", e.ItemID)
		}
		item.NeededQuantity = decimal.NewNullDecimal(e.NeededQuantity.Decimal.Round(AmountScale))
	}
	if e.RecommendedBottles != nil {
		n := *e.RecommendedBottles
		item.RecommendedBottles = &n
	}
	return nil
}

// EventOrderLines returns the lines of every non-cancelled EVENT order of
// the event. It feeds event consumption.
func (s *Service) EventOrderLines(ctx context.Context, eventID id.ID) ([]inventory.EventOrderLine, bool, error) {
	scope := ScopeEvent
	orders, err := s.repo.List(ctx, ListFilter{Scope: &scope, EventID: &eventID, WithItems: true})
	if err != nil {
		return nil, false, fmt.Errorf("list event orders: %w", err)
	}

	var (
		lines []inventory.EventOrderLine
		found bool
	)
	for _, o := range orders {
		if o.Status == StatusCancelled {
			continue
		}
		found = true
		for _, item := range o.Items {
			ingredientID := item.IngredientID
			lines = append(lines, inventory.EventOrderLine{
				IngredientID:      &ingredientID,
				BottleID:          item.BottleID,
				RequestedML:       item.RequestedML,
				RequestedQuantity: item.RequestedQuantity,
				NeededML:          item.NeededML,
				NeededQuantity:    item.NeededQuantity,
			})
		}
	}
	return lines, found, nil
}
