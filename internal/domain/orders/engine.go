package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"barstock/internal/core/apperror"
	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/internal/core/types"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/inventory"
	"barstock/pkg/logger"
)

var tracer = otel.Tracer("barstock/orders")

// Outcome reports what generation did with one supplier order.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
)

// GenerateRequest selects the window and the stock used to cover it.
type GenerateRequest struct {
	WindowStart time.Time
	// LocationScope is BAR, WAREHOUSE or ALL. Empty means ALL.
	LocationScope inventory.Location
}

// SupplierGroup is one persisted order as seen by a generation run.
type SupplierGroup struct {
	SupplierID   *id.ID  `json:"supplier_id"`
	SupplierName string  `json:"supplier_name,omitempty"`
	OrderID      id.ID   `json:"order_id"`
	Status       Status  `json:"status"`
	Outcome      Outcome `json:"outcome"`
	Items        []Item  `json:"items"`
}

// EventGroup holds an event's per-supplier orders.
type EventGroup struct {
	EventID   id.ID           `json:"event_id"`
	EventName string          `json:"event_name"`
	EventDate time.Time       `json:"event_date"`
	People    int             `json:"people"`
	Suppliers []SupplierGroup `json:"suppliers"`
}

// GenerateResult summarizes a generation run.
type GenerateResult struct {
	PeriodStart   time.Time          `json:"period_start"`
	PeriodEnd     time.Time          `json:"period_end"`
	LocationScope inventory.Location `json:"location_scope"`
	Events        []EventGroup       `json:"events"`
	WeeklySummary []SupplierGroup    `json:"weekly_summary"`

	CreatedEventOrderIDs  []id.ID `json:"created_event_order_ids"`
	UpdatedEventOrderIDs  []id.ID `json:"updated_event_order_ids"`
	SkippedEventOrderIDs  []id.ID `json:"skipped_event_order_ids"`
	CreatedWeeklyOrderIDs []id.ID `json:"created_weekly_order_ids"`
	UpdatedWeeklyOrderIDs []id.ID `json:"updated_weekly_order_ids"`
	SkippedWeeklyOrderIDs []id.ID `json:"skipped_weekly_order_ids"`
	DeletedOrderIDs       []id.ID `json:"deleted_order_ids"`

	MissingSuppliers []MissingIngredient `json:"missing_suppliers"`
	MissingBottles   []MissingIngredient `json:"missing_bottles"`
}

func newGenerateResult(start, end time.Time, scope inventory.Location) *GenerateResult {
	return &GenerateResult{
		PeriodStart:           start,
		PeriodEnd:             end,
		LocationScope:         scope,
		Events:                []EventGroup{},
		WeeklySummary:         []SupplierGroup{},
		CreatedEventOrderIDs:  []id.ID{},
		UpdatedEventOrderIDs:  []id.ID{},
		SkippedEventOrderIDs:  []id.ID{},
		CreatedWeeklyOrderIDs: []id.ID{},
		UpdatedWeeklyOrderIDs: []id.ID{},
		SkippedWeeklyOrderIDs: []id.ID{},
		DeletedOrderIDs:       []id.ID{},
		MissingSuppliers:      []MissingIngredient{},
		MissingBottles:        []MissingIngredient{},
	}
}

// Engine turns the events of a window into supplier orders.
type Engine struct {
	repo    Repository
	txm     tx.Manager
	stock   StockSource
	catalog catalog.Catalog
	audit   AuditLogger
	cutoff  time.Weekday
	now     func() time.Time
}

// EngineDeps groups Engine collaborators.
type EngineDeps struct {
	Repo    Repository
	TxM     tx.Manager
	Stock   StockSource
	Catalog catalog.Catalog
	// Audit is optional.
	Audit  AuditLogger
	Cutoff time.Weekday
}

// NewEngine creates an order generation engine.
func NewEngine(d EngineDeps) *Engine {
	return &Engine{
		repo:    d.Repo,
		txm:     d.TxM,
		stock:   d.Stock,
		catalog: d.Catalog,
		audit:   d.Audit,
		cutoff:  d.Cutoff,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Generate computes orders for every event in the window starting at
// req.WindowStart, depleting one stock snapshot event by event in date
// order, and reconciles the persisted EVENT and WEEKLY orders with the
// result. Orders that left DRAFT are reported but never touched. Re-running
// with unchanged inputs updates the same orders in place.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.WindowStart.IsZero() {
		return nil, apperror.NewValidation("window start is required")
	}
	scope := req.LocationScope
	if scope == "" {
		scope = inventory.LocationAll
	}
	if scope != inventory.LocationAll && !scope.IsPhysical() {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid location scope %q", scope))
	}
	start, end := Window(req.WindowStart, e.cutoff)

	ctx, span := tracer.Start(ctx, "orders.generate",
		trace.WithAttributes(
			attribute.String("orders.period_start", start.Format(time.DateOnly)),
			attribute.String("orders.period_end", end.Format(time.DateOnly)),
			attribute.String("orders.location_scope", string(scope)),
		))
	defer span.End()
	ctx = logger.WithFields(ctx,
		"period_start", start.Format(time.DateOnly),
		"location_scope", scope,
	)

	run := &generation{
		Engine:          e,
		res:             newGenerateResult(start, end, scope),
		now:             e.now(),
		touched:         make(map[id.ID]bool),
		missingSupplier: make(map[id.ID]bool),
		missingBottle:   make(map[id.ID]bool),
	}
	if err := e.txm.RunInTransaction(ctx, run.execute); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Info(ctx, "orders generated",
		"period_end", end.Format(time.DateOnly),
		"events", len(run.res.Events),
		"created", len(run.res.CreatedEventOrderIDs)+len(run.res.CreatedWeeklyOrderIDs),
		"updated", len(run.res.UpdatedEventOrderIDs)+len(run.res.UpdatedWeeklyOrderIDs),
		"skipped", len(run.res.SkippedEventOrderIDs)+len(run.res.SkippedWeeklyOrderIDs),
		"deleted", len(run.res.DeletedOrderIDs),
	)
	return run.res, nil
}

// generation is the state of one Generate call.
type generation struct {
	*Engine
	res *GenerateResult
	now time.Time

	ingredients   map[id.ID]catalog.Ingredient
	supplierNames map[id.ID]string

	touched         map[id.ID]bool
	missingSupplier map[id.ID]bool
	missingBottle   map[id.ID]bool
}

func (g *generation) execute(ctx context.Context) error {
	start, end := g.res.PeriodStart, g.res.PeriodEnd

	events, err := g.catalog.EventsBetween(ctx, start, end)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool {
		di, dj := types.DateOf(events[i].EventDate), types.DateOf(events[j].EventDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return events[i].ID.String() < events[j].ID.String()
	})

	eventIDs := make([]id.ID, len(events))
	for i, ev := range events {
		eventIDs[i] = ev.ID
	}
	existingEvent, err := g.repo.EventOrders(ctx, start, end, eventIDs)
	if err != nil {
		return fmt.Errorf("load event orders: %w", err)
	}
	existingWeekly, err := g.repo.WeeklyOrders(ctx, start, end)
	if err != nil {
		return fmt.Errorf("load weekly orders: %w", err)
	}

	if len(events) > 0 {
		if err := g.plan(ctx, events, existingEvent, existingWeekly); err != nil {
			return err
		}
	}
	if err := g.cleanup(ctx, existingEvent, existingWeekly); err != nil {
		return err
	}
	return g.logAudit(ctx, len(events))
}

func (g *generation) plan(ctx context.Context, events []catalog.Event, existingEvent, existingWeekly []Order) error {
	snap, err := g.snapshot(ctx)
	if err != nil {
		return err
	}

	var cocktailIDs []id.ID
	for _, ev := range events {
		cocktailIDs = append(cocktailIDs, ev.CocktailIDs...)
	}
	recipes, err := g.catalog.CocktailLines(ctx, id.Unique(cocktailIDs))
	if err != nil {
		return fmt.Errorf("load recipes: %w", err)
	}

	var ingredientIDs, bottleIDs []id.ID
	for _, lines := range recipes {
		for _, line := range lines {
			if line.IngredientID != nil {
				ingredientIDs = append(ingredientIDs, *line.IngredientID)
			}
			if line.BottleID != nil {
				bottleIDs = append(bottleIDs, *line.BottleID)
			}
		}
	}
	ingredientIDs = id.Unique(ingredientIDs)

	if g.ingredients, err = g.catalog.Ingredients(ctx, ingredientIDs); err != nil {
		return fmt.Errorf("load ingredients: %w", err)
	}
	if err := g.loadSupplierNames(ctx); err != nil {
		return err
	}
	lookup, err := g.bottleLookup(ctx, ingredientIDs, id.Unique(bottleIDs))
	if err != nil {
		return err
	}

	eventOrders := indexOrders(existingEvent)
	weekly := newWeeklyLines()

	for _, ev := range events {
		d, err := eventDemand(ev, recipes, lookup)
		if err != nil {
			return err
		}
		items := g.deplete(snap, d)

		eventID := ev.ID
		eventDate := types.DateOf(ev.EventDate)
		group := EventGroup{
			EventID:   ev.ID,
			EventName: ev.DisplayName(),
			EventDate: eventDate,
			People:    ev.People,
			Suppliers: []SupplierGroup{},
		}
		for _, batch := range g.groupBySupplier(items) {
			draft := Order{
				Scope:       ScopeEvent,
				EventID:     &eventID,
				SupplierID:  batch.supplierID,
				Status:      StatusDraft,
				PeriodStart: eventDate,
				PeriodEnd:   eventDate,
			}
			existing := eventOrders[orderKey{eventID, id.Key(batch.supplierID)}]
			sg, err := g.persist(ctx, existing, draft, batch.items)
			if err != nil {
				return err
			}
			g.recordOutcome(sg, &g.res.CreatedEventOrderIDs, &g.res.UpdatedEventOrderIDs, &g.res.SkippedEventOrderIDs)
			group.Suppliers = append(group.Suppliers, sg)
			weekly.add(batch.supplierID, batch.items)
		}
		g.res.Events = append(g.res.Events, group)
	}

	weeklyOrders := indexOrders(existingWeekly)
	for _, batch := range weekly.batches() {
		draft := Order{
			Scope:       ScopeWeekly,
			SupplierID:  batch.supplierID,
			Status:      StatusDraft,
			PeriodStart: g.res.PeriodStart,
			PeriodEnd:   g.res.PeriodEnd,
		}
		existing := weeklyOrders[orderKey{uuid.Nil, id.Key(batch.supplierID)}]
		sg, err := g.persist(ctx, existing, draft, batch.items)
		if err != nil {
			return err
		}
		g.recordOutcome(sg, &g.res.CreatedWeeklyOrderIDs, &g.res.UpdatedWeeklyOrderIDs, &g.res.SkippedWeeklyOrderIDs)
		g.res.WeeklySummary = append(g.res.WeeklySummary, sg)
	}
	return nil
}

// snapshot loads on-hand stock for the scope. Bottle items count in ml
// through their bottle volume; garnish items count in their own unit.
func (g *generation) snapshot(ctx context.Context) (*Snapshot, error) {
	levels, err := g.stock.StockLevels(ctx, g.res.LocationScope)
	if err != nil {
		return nil, fmt.Errorf("load stock levels: %w", err)
	}

	var bottleIDs []id.ID
	for _, lvl := range levels {
		if bottleID, ok := lvl.Item.BottleID(); ok {
			bottleIDs = append(bottleIDs, bottleID)
		}
	}
	bottles, err := g.catalog.Bottles(ctx, id.Unique(bottleIDs))
	if err != nil {
		return nil, fmt.Errorf("load stocked bottles: %w", err)
	}

	snap := NewSnapshot()
	for _, lvl := range levels {
		qty := decimal.NewFromInt(lvl.Quantity)
		switch b := lvl.Item.Backing.(type) {
		case inventory.BottleBacking:
			bottle, ok := bottles[b.BottleID]
			if !ok || bottle.IngredientID == nil {
				continue
			}
			if vol, ok := bottle.Volume(); ok {
				snap.AddML(*bottle.IngredientID, qty.Mul(vol))
			}
		case inventory.GarnishBacking:
			snap.AddRaw(b.IngredientID, lvl.Item.Unit, qty)
		}
	}
	return snap, nil
}

func (g *generation) bottleLookup(ctx context.Context, ingredientIDs, bottleIDs []id.ID) (bottleLookup, error) {
	byID, err := g.catalog.Bottles(ctx, bottleIDs)
	if err != nil {
		return bottleLookup{}, fmt.Errorf("load recipe bottles: %w", err)
	}
	byIngredient, err := g.catalog.BottlesForIngredients(ctx, ingredientIDs)
	if err != nil {
		return bottleLookup{}, fmt.Errorf("load ingredient bottles: %w", err)
	}
	defaults := make(map[id.ID]catalog.Bottle, len(byIngredient))
	for ingredientID, bottles := range byIngredient {
		if b, ok := catalog.DefaultCostBottle(bottles); ok {
			defaults[ingredientID] = b
		}
	}
	return bottleLookup{byID: byID, defaultCost: defaults}, nil
}

func (g *generation) loadSupplierNames(ctx context.Context) error {
	var supplierIDs []id.ID
	for _, ing := range g.ingredients {
		if ing.DefaultSupplierID != nil {
			supplierIDs = append(supplierIDs, *ing.DefaultSupplierID)
		}
	}
	names, err := g.catalog.SupplierNames(ctx, id.Unique(supplierIDs))
	if err != nil {
		return fmt.Errorf("load suppliers: %w", err)
	}
	g.supplierNames = names
	return nil
}

// deplete covers each need from the snapshot and returns the order lines.
func (g *generation) deplete(snap *Snapshot, d demand) []Item {
	items := make([]Item, 0, len(d.needs))
	for _, n := range d.needs {
		item := Item{
			IngredientID:   n.ingredientID,
			IngredientName: g.ingredients[n.ingredientID].Name,
			RequestedUnit:  n.unit,
			Unit:           n.unit,
		}
		if !n.isML() {
			used, shortfall := snap.TakeRaw(n.ingredientID, n.unit, n.amount)
			item.RequestedQuantity = types.Valid(n.amount)
			item.UsedFromStockQuantity = types.Valid(used)
			item.NeededQuantity = types.Valid(shortfall)
			items = append(items, item)
			continue
		}

		used, shortfall := snap.TakeML(n.ingredientID, n.amount)
		item.RequestedML = types.Valid(n.amount)
		item.UsedFromStockML = types.Valid(used)
		item.NeededML = types.Valid(shortfall)
		if b, ok := d.bottles[n.ingredientID]; ok {
			setBottle(&item, b)
		} else if shortfall.IsPositive() {
			g.noteMissing(g.missingBottle, &g.res.MissingBottles, n.ingredientID)
		}
		items = append(items, item)
	}
	return items
}

// setBottle attaches the bottle and, for a positive shortfall, the number of
// whole bottles to buy and what is left of the last one.
func setBottle(item *Item, b catalog.Bottle) {
	volume, _ := b.Volume()
	bottleID := b.ID
	item.BottleID = &bottleID
	item.BottleVolumeML = types.Valid(volume)
	item.RecommendedBottles = nil
	item.LeftoverML = decimal.NullDecimal{}

	shortfall := item.NeededML.Decimal
	if !shortfall.IsPositive() {
		return
	}
	n := types.CeilDiv(shortfall, volume)
	item.RecommendedBottles = &n
	item.LeftoverML = types.Valid(decimal.NewFromInt(n).Mul(volume).Sub(shortfall))
}

type supplierBatch struct {
	supplierID *id.ID
	items      []Item
}

// groupBySupplier splits items by the ingredient's default supplier in
// first-seen order. Items without a supplier form a nil group.
func (g *generation) groupBySupplier(items []Item) []supplierBatch {
	var batches []supplierBatch
	index := make(map[id.ID]int)
	for _, item := range items {
		supplierID := g.supplierOf(item.IngredientID)
		k := id.Key(supplierID)
		i, ok := index[k]
		if !ok {
			i = len(batches)
			index[k] = i
			batches = append(batches, supplierBatch{supplierID: supplierID})
		}
		batches[i].items = append(batches[i].items, item)
	}
	return batches
}

func (g *generation) supplierOf(ingredientID id.ID) *id.ID {
	ing, ok := g.ingredients[ingredientID]
	if !ok || ing.DefaultSupplierID == nil {
		g.noteMissing(g.missingSupplier, &g.res.MissingSuppliers, ingredientID)
		return nil
	}
	supplierID := *ing.DefaultSupplierID
	return &supplierID
}

func (g *generation) noteMissing(seen map[id.ID]bool, list *[]MissingIngredient, ingredientID id.ID) {
	if seen[ingredientID] {
		return
	}
	seen[ingredientID] = true
	*list = append(*list, MissingIngredient{
		IngredientID: ingredientID,
		Name:         g.ingredients[ingredientID].Name,
	})
}

// persist reconciles one supplier order with the freshly computed items.
func (g *generation) persist(ctx context.Context, existing *Order, draft Order, items []Item) (SupplierGroup, error) {
	sg := SupplierGroup{
		SupplierID:   draft.SupplierID,
		SupplierName: g.supplierName(draft.SupplierID),
	}

	if existing != nil {
		g.touched[existing.ID] = true
		sg.OrderID = existing.ID
		sg.Status = existing.Status
		if !existing.IsDraft() {
			sg.Outcome = OutcomeSkipped
			sg.Items = g.named(existing.Items)
			return sg, nil
		}
		if !existing.PeriodStart.Equal(draft.PeriodStart) || !existing.PeriodEnd.Equal(draft.PeriodEnd) {
			if err := g.repo.SetPeriod(ctx, existing.ID, draft.PeriodStart, draft.PeriodEnd); err != nil {
				return SupplierGroup{}, fmt.Errorf("move order %s: %w", existing.ID, err)
			}
		}
		stamped := stampItems(existing.ID, items)
		if err := g.repo.ReplaceItems(ctx, existing.ID, stamped); err != nil {
			return SupplierGroup{}, fmt.Errorf("replace items of order %s: %w", existing.ID, err)
		}
		sg.Outcome = OutcomeUpdated
		sg.Items = stamped
		return sg, nil
	}

	draft.ID = id.New()
	draft.CreatedBy = appctx.UserIDPtr(ctx)
	draft.CreatedAt = g.now
	draft.UpdatedAt = g.now
	draft.Items = stampItems(draft.ID, items)
	if err := g.repo.Create(ctx, draft); err != nil {
		return SupplierGroup{}, fmt.Errorf("create %s order: %w", draft.Scope, err)
	}
	g.touched[draft.ID] = true

	sg.OrderID = draft.ID
	sg.Status = draft.Status
	sg.Outcome = OutcomeCreated
	sg.Items = draft.Items
	return sg, nil
}

func (g *generation) recordOutcome(sg SupplierGroup, created, updated, skipped *[]id.ID) {
	switch sg.Outcome {
	case OutcomeCreated:
		*created = append(*created, sg.OrderID)
	case OutcomeUpdated:
		*updated = append(*updated, sg.OrderID)
	case OutcomeSkipped:
		*skipped = append(*skipped, sg.OrderID)
	}
}

func (g *generation) supplierName(supplierID *id.ID) string {
	if supplierID == nil {
		return ""
	}
	return g.supplierNames[*supplierID]
}

func (g *generation) named(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		if item.IngredientName == "" {
			item.IngredientName = g.ingredients[item.IngredientID].Name
		}
		out[i] = item
	}
	return out
}

// cleanup deletes DRAFT orders of the window this run did not produce:
// orders of events that left the window, (event, supplier) pairs that no
// longer have lines, duplicate orders of one (event, supplier) pair, and
// weekly orders of suppliers without shortfall.
func (g *generation) cleanup(ctx context.Context, existing ...[]Order) error {
	var stale []id.ID
	for _, orders := range existing {
		for _, o := range orders {
			if o.IsDraft() && !g.touched[o.ID] {
				stale = append(stale, o.ID)
			}
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := g.repo.Delete(ctx, stale); err != nil {
		return fmt.Errorf("delete stale orders: %w", err)
	}
	g.res.DeletedOrderIDs = append(g.res.DeletedOrderIDs, stale...)
	return nil
}

func (g *generation) logAudit(ctx context.Context, events int) error {
	if g.audit == nil {
		return nil
	}
	start := g.res.PeriodStart.Format(time.DateOnly)
	entityID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("barstock:orders:"+start))
	changes := map[string]any{
		"period_start":   start,
		"period_end":     g.res.PeriodEnd.Format(time.DateOnly),
		"location_scope": g.res.LocationScope,
		"events":         events,
		"created":        len(g.res.CreatedEventOrderIDs) + len(g.res.CreatedWeeklyOrderIDs),
		"updated":        len(g.res.UpdatedEventOrderIDs) + len(g.res.UpdatedWeeklyOrderIDs),
		"skipped":        len(g.res.SkippedEventOrderIDs) + len(g.res.SkippedWeeklyOrderIDs),
		"deleted":        g.res.DeletedOrderIDs,
	}
	if err := g.audit.LogChange(ctx, "order_generation", entityID, "generate", changes); err != nil {
		return fmt.Errorf("audit generation: %w", err)
	}
	return nil
}

type orderKey struct {
	event    id.ID
	supplier id.ID
}

// indexOrders keys orders by (event, supplier); weekly orders use the zero
// event. The first order of a key wins; later duplicates are left for cleanup.
func indexOrders(orders []Order) map[orderKey]*Order {
	index := make(map[orderKey]*Order, len(orders))
	for i := range orders {
		k := orderKey{id.Key(orders[i].EventID), id.Key(orders[i].SupplierID)}
		if _, ok := index[k]; !ok {
			index[k] = &orders[i]
		}
	}
	return index
}

func stampItems(orderID id.ID, items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		item.ID = id.New()
		item.OrderID = orderID
		out[i] = item
	}
	return out
}

type weeklyKey struct {
	supplier   id.ID
	ingredient id.ID
	unit       string
}

// weeklyLines sums positive shortfall lines per supplier, ingredient and
// unit across every event of the window.
type weeklyLines struct {
	keys      []weeklyKey
	lines     map[weeklyKey]*Item
	suppliers map[id.ID]*id.ID
}

func newWeeklyLines() *weeklyLines {
	return &weeklyLines{
		lines:     make(map[weeklyKey]*Item),
		suppliers: make(map[id.ID]*id.ID),
	}
}

func (w *weeklyLines) add(supplierID *id.ID, items []Item) {
	for _, item := range items {
		if !item.Shortfall().IsPositive() {
			continue
		}
		k := weeklyKey{id.Key(supplierID), item.IngredientID, item.Unit}
		w.suppliers[k.supplier] = supplierID

		line, ok := w.lines[k]
		if !ok {
			copied := item
			copied.RecommendedBottles = nil
			copied.LeftoverML = decimal.NullDecimal{}
			w.lines[k] = &copied
			w.keys = append(w.keys, k)
			continue
		}
		line.RequestedML = addNull(line.RequestedML, item.RequestedML)
		line.RequestedQuantity = addNull(line.RequestedQuantity, item.RequestedQuantity)
		line.UsedFromStockML = addNull(line.UsedFromStockML, item.UsedFromStockML)
		line.UsedFromStockQuantity = addNull(line.UsedFromStockQuantity, item.UsedFromStockQuantity)
		line.NeededML = addNull(line.NeededML, item.NeededML)
		line.NeededQuantity = addNull(line.NeededQuantity, item.NeededQuantity)
		if line.BottleID == nil && item.BottleID != nil {
			line.BottleID = item.BottleID
			line.BottleVolumeML = item.BottleVolumeML
		}
	}
}

// batches returns the aggregated lines grouped by supplier in first-seen
// order, with bottle rounding applied to the summed shortfall.
func (w *weeklyLines) batches() []supplierBatch {
	var out []supplierBatch
	index := make(map[id.ID]int)
	for _, k := range w.keys {
		line := *w.lines[k]
		if line.IsML() && line.BottleID != nil && line.BottleVolumeML.Valid {
			setBottle(&line, catalog.Bottle{ID: *line.BottleID, VolumeML: line.BottleVolumeML})
		}
		i, ok := index[k.supplier]
		if !ok {
			i = len(out)
			index[k.supplier] = i
			out = append(out, supplierBatch{supplierID: w.suppliers[k.supplier]})
		}
		out[i].items = append(out[i].items, line)
	}
	return out
}

func addNull(a, b decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case !b.Valid:
		return a
	case !a.Valid:
		return b
	}
	return types.Valid(a.Decimal.Add(b.Decimal))
}
