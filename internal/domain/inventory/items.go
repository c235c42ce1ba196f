package inventory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/pkg/logger"
)

// ItemInput describes a new inventory item.
type ItemInput struct {
	Backing      Backing
	Name         string
	Unit         string
	MinLevel     decimal.NullDecimal
	ReorderLevel decimal.NullDecimal
	PriceMinor   *int64
	Currency     *string
}

// ItemPatch changes the mutable fields of an item. Nil fields are kept.
type ItemPatch struct {
	Name         *string
	Unit         *string
	IsActive     *bool
	MinLevel     *decimal.Decimal
	ReorderLevel *decimal.Decimal
	PriceMinor   *int64
	Currency     *string
}

func normalizeCurrency(c *string) (*string, error) {
	if c == nil {
		return nil, nil
	}
	v := strings.ToUpper(strings.TrimSpace(*c))
	if v == "" {
		return nil, nil
	}
	if len(v) != 3 {
		return nil, apperror.NewValidation("currency must be a 3-letter code").WithDetail("currency", *c)
	}
	return &v, nil
}

func requiredText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", apperror.NewValidation(field + " is required")
	}
	return v, nil
}

// Items lists inventory items ordered by name.
func (s *Service) Items(ctx context.Context, filter ItemFilter) ([]Item, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.ListItems(ctx, filter)
}

// CreateItem registers an active item for a bottle, garnish ingredient or
// glass type. A backing entity can be tracked by one item only.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	if in.Backing == nil {
		return Item{}, apperror.NewValidation("item backing is required")
	}
	name, err := requiredText("name", in.Name)
	if err != nil {
		return Item{}, err
	}
	unit, err := requiredText("unit", in.Unit)
	if err != nil {
		return Item{}, err
	}
	currency, err := normalizeCurrency(in.Currency)
	if err != nil {
		return Item{}, err
	}

	item := Item{
		ID:           id.New(),
		Backing:      in.Backing,
		Name:         name,
		Unit:         unit,
		IsActive:     true,
		MinLevel:     in.MinLevel,
		ReorderLevel: in.ReorderLevel,
		PriceMinor:   in.PriceMinor,
		Currency:     currency,
	}
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertItem(ctx, item); err != nil {
			return err
		}
		return s.logAudit(ctx, auditInventoryItem, item.ID, "create", map[string]any{
			"item_type": item.Type(),
			"ref_id":    item.Backing.RefID(),
			"name":      item.Name,
		})
	})
	if err != nil {
		return Item{}, err
	}

	logger.Info(ctx, "inventory item created", "item_id", item.ID, "item_type", item.Type())
	return item, nil
}

// UpdateItem applies patch to an item. The backing never changes.
func (s *Service) UpdateItem(ctx context.Context, itemID id.ID, patch ItemPatch) (Item, error) {
	var updated Item
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		changes := map[string]any{}
		if patch.Name != nil {
			if item.Name, err = requiredText("name", *patch.Name); err != nil {
				return err
			}
			changes["name"] = item.Name
		}
		if patch.Unit != nil {
			if item.Unit, err = requiredText("unit", *patch.Unit); err != nil {
				return err
			}
			changes["unit"] = item.Unit
		}
		if patch.IsActive != nil {
			item.IsActive = *patch.IsActive
			changes["is_active"] = item.IsActive
		}
		if patch.MinLevel != nil {
			item.MinLevel = decimal.NewNullDecimal(*patch.MinLevel)
			changes["min_level"] = patch.MinLevel.String()
		}
		if patch.ReorderLevel != nil {
			item.ReorderLevel = decimal.NewNullDecimal(*patch.ReorderLevel)
			changes["reorder_level"] = patch.ReorderLevel.String()
		}
		if patch.PriceMinor != nil {
			item.PriceMinor = patch.PriceMinor
			changes["price_minor"] = *patch.PriceMinor
		}
		if patch.Currency != nil {
			if item.Currency, err = normalizeCurrency(patch.Currency); err != nil {
				return err
			}
			changes["currency"] = item.Currency
		}
		if len(changes) == 0 {
			updated = item
			return nil
		}
		if err := s.repo.SaveItem(ctx, item); err != nil {
			return err
		}
		updated = item
		return s.logAudit(ctx, auditInventoryItem, item.ID, "update", changes)
	})
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

// DeactivateItem hides an item from stock listings. Its ledger is kept.
func (s *Service) DeactivateItem(ctx context.Context, itemID id.ID) error {
	inactive := false
	_, err := s.UpdateItem(ctx, itemID, ItemPatch{IsActive: &inactive})
	if err != nil {
		return err
	}
	logger.Info(ctx, "inventory item deactivated", "item_id", itemID)
	return nil
}
