package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/core/types"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/units"
	"barstock/pkg/logger"
)

// ConsumeRequest deducts an event's ordered amounts from stock.
type ConsumeRequest struct {
	EventID  id.ID
	Location Location // BAR, WAREHOUSE or ALL
	Reason   string
	SourceID *int64
}

// UnconsumeRequest reverses an event's consumption. An empty or ALL
// location reverses both.
type UnconsumeRequest struct {
	EventID  id.ID
	Location Location
	Reason   string
}

// ConsumeResult lists the movements written by a consume or unconsume call.
type ConsumeResult struct {
	EventID   id.ID     `json:"event_id"`
	EventName string    `json:"event_name"`
	Location  Location  `json:"location"`
	Movements []Applied `json:"movements"`
}

// ConsumptionStatus reports whether an event currently has active consumption.
type ConsumptionStatus struct {
	EventID    id.ID `json:"event_id"`
	IsConsumed bool  `json:"is_consumed"`
}

const (
	auditEventConsumption = "event_consumption"
	auditCocktailBatch    = "cocktail_batch"
	auditInventoryItem    = "inventory_item"
)

// ConsumeReason is the default reason written on consume movements.
func ConsumeReason(ev catalog.Event) string {
	if ev.Name == "" {
		return fmt.Sprintf("Event consumed: %s", ev.ID)
	}
	return fmt.Sprintf("Event consumed: %s (%s)", ev.Name, ev.ID)
}

// UnconsumeReason is the default reason written on reversal movements.
func UnconsumeReason(ev catalog.Event) string {
	if ev.Name == "" {
		return fmt.Sprintf("Event unconsumed: %s", ev.ID)
	}
	return fmt.Sprintf("Event unconsumed: %s (%s)", ev.Name, ev.ID)
}

// ConsumeEvent writes one debit per inventory item (per location for ALL)
// derived from the event's EVENT-scope order lines.
func (s *Service) ConsumeEvent(ctx context.Context, req ConsumeRequest) (ConsumeResult, error) {
	if req.Location == "" {
		req.Location = LocationAll
	}
	if req.Location != LocationAll && !req.Location.IsPhysical() {
		return ConsumeResult{}, apperror.NewValidation(fmt.Sprintf("invalid location %q", req.Location))
	}
	ctx = logger.WithFields(ctx, "event_id", req.EventID, "operation", "consume")

	var result ConsumeResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		active, err := s.repo.ActiveEventMovements(ctx, req.EventID, SourceTypeEventConsume, nil)
		if err != nil {
			return fmt.Errorf("check consumption: %w", err)
		}
		if len(active) > 0 {
			return apperror.NewAlreadyConsumed(req.EventID.String())
		}

		ev, err := s.events.Event(ctx, req.EventID)
		if err != nil {
			return err
		}

		legacy, err := s.findLegacyConsumption(ctx, ev, nil)
		if err != nil {
			return err
		}
		if len(legacy) > 0 {
			return apperror.NewAlreadyConsumed(req.EventID.String()).
				WithDetail("legacy_movements", len(legacy))
		}

		lines, found, err := s.orders.EventOrderLines(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("load event orders: %w", err)
		}
		if !found {
			return apperror.NewConflict("no orders for event; generate orders first").
				WithDetail("event_id", ev.ID)
		}

		debits, err := s.consumptionDebits(ctx, lines)
		if err != nil {
			return err
		}

		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = ConsumeReason(ev)
		}
		base := Entry{
			Reason:        reason,
			SourceType:    strPtr(SourceTypeEventConsume),
			SourceID:      req.SourceID,
			SourceEventID: id.Ptr(ev.ID),
		}

		result = ConsumeResult{EventID: ev.ID, EventName: ev.Name, Location: req.Location}
		for _, d := range debits {
			split, err := s.splitDebit(ctx, d, req.Location)
			if err != nil {
				return err
			}
			for _, part := range split {
				e := base
				e.ItemID, e.Location, e.Delta = d.itemID, part.location, -part.quantity
				applied, err := s.ledger.Apply(ctx, e)
				if err != nil {
					return err
				}
				result.Movements = append(result.Movements, applied)
			}
		}

		return s.logAudit(ctx, auditEventConsumption, ev.ID, "consume", map[string]any{
			"location":  req.Location,
			"reason":    reason,
			"movements": len(result.Movements),
		})
	})
	if err != nil {
		return ConsumeResult{}, err
	}

	logger.Info(ctx, "event consumed",
		"location", req.Location,
		"movements", len(result.Movements),
	)
	return result, nil
}

// itemDebit is the aggregated whole-unit deduction for one inventory item.
type itemDebit struct {
	itemID   id.ID
	quantity int64
}

type locationPart struct {
	location Location
	quantity int64
}

// consumptionDebits converts order lines to per-item whole-unit debits,
// preserving first-seen item order.
func (s *Service) consumptionDebits(ctx context.Context, lines []EventOrderLine) ([]itemDebit, error) {
	var bottleIDs, ingredientIDs []id.ID
	for _, l := range lines {
		if l.BottleID != nil {
			bottleIDs = append(bottleIDs, *l.BottleID)
		} else if l.IngredientID != nil {
			ingredientIDs = append(ingredientIDs, *l.IngredientID)
		}
	}
	bottleIDs, ingredientIDs = id.Unique(bottleIDs), id.Unique(ingredientIDs)

	bottles := map[id.ID]catalog.Bottle{}
	bottleItems := map[id.ID]Item{}
	garnishItems := map[id.ID]Item{}
	var err error
	if len(bottleIDs) > 0 {
		if bottles, err = s.bottles.Bottles(ctx, bottleIDs); err != nil {
			return nil, fmt.Errorf("load bottles: %w", err)
		}
		if bottleItems, err = s.repo.ItemsByBottle(ctx, bottleIDs); err != nil {
			return nil, fmt.Errorf("load bottle items: %w", err)
		}
	}
	if len(ingredientIDs) > 0 {
		if garnishItems, err = s.repo.ItemsByIngredient(ctx, ingredientIDs); err != nil {
			return nil, fmt.Errorf("load garnish items: %w", err)
		}
	}

	totals := map[id.ID]int64{}
	var order []id.ID
	add := func(itemID id.ID, delta int64) {
		if _, ok := totals[itemID]; !ok {
			order = append(order, itemID)
		}
		totals[itemID] += delta
	}

	for _, l := range lines {
		requestedML := types.Coalesce(l.RequestedML, l.NeededML)
		requestedQty := types.Coalesce(l.RequestedQuantity, l.NeededQuantity)

		switch {
		case l.BottleID != nil:
			bottle, ok := bottles[*l.BottleID]
			if !ok {
				return nil, apperror.NewDataIntegrity("order line references an unknown bottle").
					WithDetail("bottle_id", *l.BottleID)
			}
			volume, ok := bottle.Volume()
			if !ok {
				return nil, apperror.NewDataIntegrity("bottle has no volume").
					WithDetail("bottle_id", bottle.ID)
			}
			item, ok := bottleItems[bottle.ID]
			if !ok {
				return nil, apperror.NewDataIntegrity("no inventory item for bottle").
					WithDetail("bottle_id", bottle.ID)
			}
			if !requestedML.Valid {
				return nil, apperror.NewValidation("bottle order line has no requested ml").
					WithDetail("bottle_id", bottle.ID)
			}
			add(item.ID, -types.TruncInt(requestedML.Decimal.Div(volume)))

		case l.IngredientID != nil:
			item, ok := garnishItems[*l.IngredientID]
			if !ok {
				return nil, apperror.NewDataIntegrity("no garnish inventory item for ingredient").
					WithDetail("ingredient_id", *l.IngredientID)
			}
			amount := decimal.Zero
			if requestedML.Valid {
				amount = requestedML.Decimal
			} else if requestedQty.Valid {
				amount = requestedQty.Decimal
			}
			add(item.ID, -types.TruncInt(amount))
		}
	}

	debits := make([]itemDebit, 0, len(order))
	for _, itemID := range order {
		delta := totals[itemID]
		if delta == 0 {
			continue
		}
		if delta > 0 {
			return nil, apperror.NewValidation("consumption would increase stock").
				WithDetail("inventory_item_id", itemID)
		}
		debits = append(debits, itemDebit{itemID: itemID, quantity: -delta})
	}
	return debits, nil
}

// splitDebit assigns a debit to locations. A single location takes the whole
// amount unchecked; ALL drains WAREHOUSE first, then BAR, and fails when the
// two together cannot cover it.
func (s *Service) splitDebit(ctx context.Context, d itemDebit, location Location) ([]locationPart, error) {
	if location != LocationAll {
		return []locationPart{{location: location, quantity: d.quantity}}, nil
	}

	available := make(map[Location]int64, len(Locations))
	var total int64
	for _, loc := range Locations {
		st, _, err := s.repo.GetStock(ctx, d.itemID, loc)
		if err != nil {
			return nil, fmt.Errorf("get stock: %w", err)
		}
		a := st.Available()
		if a < 0 {
			a = 0
		}
		available[loc] = a
		total += a
	}
	if total < d.quantity {
		return nil, apperror.NewInsufficientStock(d.itemID.String(), string(LocationAll), d.quantity, total).
			WithDetail("available_warehouse", available[LocationWarehouse]).
			WithDetail("available_bar", available[LocationBar])
	}

	remaining := d.quantity
	var parts []locationPart
	for _, loc := range Locations {
		take := min(remaining, available[loc])
		if take > 0 {
			parts = append(parts, locationPart{location: loc, quantity: take})
			remaining -= take
		}
	}
	return parts, nil
}

// UnconsumeEvent reverses every active consume movement of the event.
func (s *Service) UnconsumeEvent(ctx context.Context, req UnconsumeRequest) (ConsumeResult, error) {
	var filter *Location
	switch {
	case req.Location == "" || req.Location == LocationAll:
		req.Location = LocationAll
	case req.Location.IsPhysical():
		loc := req.Location
		filter = &loc
	default:
		return ConsumeResult{}, apperror.NewValidation(fmt.Sprintf("invalid location %q", req.Location))
	}
	ctx = logger.WithFields(ctx, "event_id", req.EventID, "operation", "unconsume")

	var result ConsumeResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		ev, err := s.events.Event(ctx, req.EventID)
		if err != nil {
			return err
		}

		movements, err := s.repo.ActiveEventMovements(ctx, ev.ID, SourceTypeEventConsume, filter)
		if err != nil {
			return fmt.Errorf("find consumption: %w", err)
		}
		legacy := false
		if len(movements) == 0 {
			if movements, err = s.findLegacyConsumption(ctx, ev, filter); err != nil {
				return err
			}
			legacy = len(movements) > 0
		}
		if len(movements) == 0 {
			return apperror.NewConflict("nothing to unconsume").WithDetail("event_id", ev.ID)
		}

		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = UnconsumeReason(ev)
		}

		result = ConsumeResult{EventID: ev.ID, EventName: ev.Name, Location: req.Location}
		for _, m := range movements {
			if legacy {
				if err := s.repo.TagEventMovement(ctx, m.ID, ev.ID, SourceTypeEventConsume); err != nil {
					return fmt.Errorf("tag legacy movement: %w", err)
				}
			}
			if err := s.repo.MarkReversed(ctx, m.ID); err != nil {
				return fmt.Errorf("mark reversed: %w", err)
			}
			applied, err := s.ledger.Apply(ctx, Entry{
				Location:      m.Location,
				ItemID:        m.ItemID,
				Delta:         -m.Change,
				Reason:        reason,
				SourceType:    strPtr(SourceTypeEventUnconsume),
				SourceEventID: id.Ptr(ev.ID),
				IsReversal:    true,
				ReversalOfID:  id.Ptr(m.ID),
			})
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, applied)
		}

		return s.logAudit(ctx, auditEventConsumption, ev.ID, "unconsume", map[string]any{
			"location": req.Location,
			"reason":   reason,
			"reversed": len(result.Movements),
			"legacy":   legacy,
		})
	})
	if err != nil {
		return ConsumeResult{}, err
	}

	logger.Info(ctx, "event unconsumed",
		"location", req.Location,
		"movements", len(result.Movements),
	)
	return result, nil
}

// ConsumptionStatus reports whether the event has active consume movements,
// tagged or legacy. An unknown event with no tagged rows is not consumed.
func (s *Service) ConsumptionStatus(ctx context.Context, eventID id.ID) (ConsumptionStatus, error) {
	status := ConsumptionStatus{EventID: eventID}

	active, err := s.repo.ActiveEventMovements(ctx, eventID, SourceTypeEventConsume, nil)
	if err != nil {
		return status, fmt.Errorf("check consumption: %w", err)
	}
	if len(active) > 0 {
		status.IsConsumed = true
		return status, nil
	}

	ev, err := s.events.Event(ctx, eventID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return status, nil
		}
		return status, err
	}
	legacy, err := s.findLegacyConsumption(ctx, ev, nil)
	if err != nil {
		return status, err
	}
	status.IsConsumed = len(legacy) > 0
	return status, nil
}

func (s *Service) logAudit(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.LogChange(ctx, entityType, entityID, action, changes); err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

// SourceTypeCocktailBatch tags movements written by ConsumeCocktailBatch.
const SourceTypeCocktailBatch = "cocktail_batch"

// BatchRequest deducts a scaled cocktail recipe from one location. The
// batch is sized by Servings, one recipe build each, or by Liters of the
// finished mix; exactly one must be set.
type BatchRequest struct {
	CocktailID      id.ID
	Servings        decimal.Decimal
	Liters          decimal.Decimal
	Location        Location
	IncludeGarnish  bool
	IncludeOptional bool
	Reason          string
	SourceType      string
	SourceID        *int64
}

// BatchResult lists the movements written for a cocktail batch.
type BatchResult struct {
	CocktailID   id.ID           `json:"cocktail_id"`
	CocktailName string          `json:"cocktail_name"`
	Location     Location        `json:"location"`
	ScaleFactor  decimal.Decimal `json:"scale_factor"`
	Movements    []Applied       `json:"movements"`
}

// BatchReason is the default reason written on batch movements.
func BatchReason(c catalog.Cocktail) string {
	return fmt.Sprintf("Cocktail batch consumed: %s", c.Name)
}

// ConsumeCocktailBatch writes one debit per inventory item for a batch of
// one cocktail. Unlike event consumption nothing prevents the same batch
// from being recorded twice, and stock may go negative.
func (s *Service) ConsumeCocktailBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if s.recipes == nil {
		return BatchResult{}, fmt.Errorf("cocktail batch consumption is not configured")
	}
	if !req.Location.IsPhysical() {
		return BatchResult{}, apperror.NewValidation(fmt.Sprintf("invalid location %q", req.Location))
	}
	bySize, byVolume := req.Servings.IsPositive(), req.Liters.IsPositive()
	if bySize == byVolume || req.Servings.IsNegative() || req.Liters.IsNegative() {
		return BatchResult{}, apperror.NewValidation("exactly one of servings or liters must be positive")
	}
	ctx = logger.WithFields(ctx, "cocktail_id", req.CocktailID, "operation", "cocktail_batch")

	var result BatchResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		cocktail, err := s.recipes.Cocktail(ctx, req.CocktailID)
		if err != nil {
			return err
		}
		recipes, err := s.recipes.CocktailLines(ctx, []id.ID{cocktail.ID})
		if err != nil {
			return fmt.Errorf("load recipe: %w", err)
		}
		var lines []catalog.RecipeLine
		for _, l := range recipes[cocktail.ID] {
			if (l.IsGarnish && !req.IncludeGarnish) || (l.IsOptional && !req.IncludeOptional) {
				continue
			}
			lines = append(lines, l)
		}

		scale := req.Servings
		if byVolume {
			if scale, err = litersScale(lines, req.Liters); err != nil {
				return err
			}
		}

		debits, err := s.batchDebits(ctx, lines, scale)
		if err != nil {
			return err
		}

		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = BatchReason(cocktail)
		}
		sourceType := strings.TrimSpace(req.SourceType)
		if sourceType == "" {
			sourceType = SourceTypeCocktailBatch
		}

		result = BatchResult{
			CocktailID:   cocktail.ID,
			CocktailName: cocktail.Name,
			Location:     req.Location,
			ScaleFactor:  scale,
		}
		for _, d := range debits {
			applied, err := s.ledger.Apply(ctx, Entry{
				Location:   req.Location,
				ItemID:     d.itemID,
				Delta:      -d.quantity,
				Reason:     reason,
				SourceType: strPtr(sourceType),
				SourceID:   req.SourceID,
			})
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, applied)
		}

		return s.logAudit(ctx, auditCocktailBatch, cocktail.ID, "consume", map[string]any{
			"location":  req.Location,
			"scale":     scale.String(),
			"reason":    reason,
			"movements": len(result.Movements),
		})
	})
	if err != nil {
		return BatchResult{}, err
	}

	logger.Info(ctx, "cocktail batch consumed",
		"location", req.Location,
		"scale", result.ScaleFactor.String(),
		"movements", len(result.Movements),
	)
	return result, nil
}

// litersScale is the number of recipe builds in liters of finished mix.
// Count-unit lines do not add to the recipe volume.
func litersScale(lines []catalog.RecipeLine, liters decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range lines {
		if ml, ok := units.ToML(l.Quantity, l.Unit); ok {
			total = total.Add(ml)
		}
	}
	if !total.IsPositive() {
		return decimal.Zero, apperror.NewValidation("recipe has no volume ingredients to scale by")
	}
	return liters.Mul(decimal.NewFromInt(1000)).Div(total), nil
}

// batchDebits converts scaled recipe lines to per-item whole-unit debits.
// Garnish lines debit the ingredient's GARNISH item in its own unit; every
// other line debits whole bottles of the line's bottle, or of the
// ingredient's default-cost bottle when the line names none.
func (s *Service) batchDebits(ctx context.Context, lines []catalog.RecipeLine, scale decimal.Decimal) ([]itemDebit, error) {
	var bottleIDs, ingredientIDs, garnishIDs []id.ID
	for _, l := range lines {
		switch {
		case l.IsGarnish && l.IngredientID != nil:
			garnishIDs = append(garnishIDs, *l.IngredientID)
		case l.BottleID != nil:
			bottleIDs = append(bottleIDs, *l.BottleID)
		case l.IngredientID != nil:
			ingredientIDs = append(ingredientIDs, *l.IngredientID)
		}
	}

	bottles, err := s.bottles.Bottles(ctx, id.Unique(bottleIDs))
	if err != nil {
		return nil, fmt.Errorf("load bottles: %w", err)
	}
	byIngredient, err := s.bottles.BottlesForIngredients(ctx, id.Unique(ingredientIDs))
	if err != nil {
		return nil, fmt.Errorf("load ingredient bottles: %w", err)
	}
	garnishItems, err := s.repo.ItemsByIngredient(ctx, id.Unique(garnishIDs))
	if err != nil {
		return nil, fmt.Errorf("load garnish items: %w", err)
	}

	type bottleUse struct {
		bottle catalog.Bottle
		ml     decimal.Decimal
	}
	var uses []bottleUse
	totals := map[id.ID]int64{}
	var order []id.ID
	add := func(itemID id.ID, quantity int64) {
		if _, ok := totals[itemID]; !ok {
			order = append(order, itemID)
		}
		totals[itemID] += quantity
	}

	for _, l := range lines {
		if l.IsGarnish {
			if l.IngredientID == nil {
				continue
			}
			item, ok := garnishItems[*l.IngredientID]
			if !ok {
				return nil, apperror.NewConflict("no garnish inventory item for ingredient").
					WithDetail("ingredient_id", *l.IngredientID)
			}
			amount := l.Quantity
			if ml, ok := units.ToML(l.Quantity, l.Unit); ok {
				amount = ml
			}
			add(item.ID, types.TruncInt(amount.Mul(scale)))
			continue
		}

		ml, ok := units.ToML(l.Quantity, l.Unit)
		if !ok {
			return nil, apperror.NewValidation(fmt.Sprintf("unsupported unit %q on a bottled ingredient", l.Unit)).
				WithDetail("ingredient_id", l.IngredientID)
		}
		var bottle catalog.Bottle
		switch {
		case l.BottleID != nil:
			if bottle, ok = bottles[*l.BottleID]; !ok {
				return nil, apperror.NewNotFound("bottle", l.BottleID.String())
			}
		case l.IngredientID != nil:
			candidates := byIngredient[*l.IngredientID]
			if bottle, ok = catalog.DefaultCostBottle(candidates); !ok && len(candidates) > 0 {
				bottle, ok = candidates[0], true
			}
			if !ok {
				return nil, apperror.NewConflict("no bottle for ingredient").
					WithDetail("ingredient_id", *l.IngredientID)
			}
		default:
			continue
		}
		uses = append(uses, bottleUse{bottle: bottle, ml: ml.Mul(scale)})
	}

	usedBottles := make([]id.ID, 0, len(uses))
	for _, u := range uses {
		usedBottles = append(usedBottles, u.bottle.ID)
	}
	bottleItems, err := s.repo.ItemsByBottle(ctx, id.Unique(usedBottles))
	if err != nil {
		return nil, fmt.Errorf("load bottle items: %w", err)
	}
	for _, u := range uses {
		volume, ok := u.bottle.Volume()
		if !ok {
			return nil, apperror.NewConflict("bottle has no volume").WithDetail("bottle_id", u.bottle.ID)
		}
		item, ok := bottleItems[u.bottle.ID]
		if !ok {
			return nil, apperror.NewConflict("no inventory item for bottle").WithDetail("bottle_id", u.bottle.ID)
		}
		add(item.ID, types.TruncInt(u.ml.Div(volume)))
	}

	debits := make([]itemDebit, 0, len(order))
	for _, itemID := range order {
		if q := totals[itemID]; q > 0 {
			debits = append(debits, itemDebit{itemID: itemID, quantity: q})
		}
	}
	return debits, nil
}
