package inventory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
)

// memTx rolls the in-memory repository back when the outermost fn fails.
type memTx struct {
	repo  *memRepo
	depth int
}

func (m *memTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.depth > 0 {
		return fn(ctx)
	}
	snap := m.repo.clone()
	m.depth++
	err := fn(ctx)
	m.depth--
	if err != nil {
		m.repo.restore(snap)
	}
	return err
}

type stockKey struct {
	item id.ID
	loc  Location
}

type memRepo struct {
	items     map[id.ID]Item
	stock     map[stockKey]Stock
	movements []Movement
}

func newMemRepo() *memRepo {
	return &memRepo{
		items: map[id.ID]Item{},
		stock: map[stockKey]Stock{},
	}
}

func (r *memRepo) clone() *memRepo {
	c := newMemRepo()
	for k, v := range r.items {
		c.items[k] = v
	}
	for k, v := range r.stock {
		c.stock[k] = v
	}
	c.movements = slices.Clone(r.movements)
	return c
}

func (r *memRepo) restore(c *memRepo) {
	r.items, r.stock, r.movements = c.items, c.stock, c.movements
}

func (r *memRepo) addItem(b Backing, name, unit string) Item {
	it := Item{ID: id.New(), Backing: b, Name: name, Unit: unit, IsActive: true}
	r.items[it.ID] = it
	return it
}

// seed writes a movement and stock directly, as if a past ledger write happened.
func (r *memRepo) seed(itemID id.ID, loc Location, qty int64) {
	r.movements = append(r.movements, Movement{ID: id.New(), ItemID: itemID, Location: loc, Change: qty, Reason: "seed"})
	st := r.stock[stockKey{itemID, loc}]
	st.ItemID, st.Location = itemID, loc
	st.Quantity += qty
	r.stock[stockKey{itemID, loc}] = st
}

func (r *memRepo) qty(itemID id.ID, loc Location) int64 {
	return r.stock[stockKey{itemID, loc}].Quantity
}

func (r *memRepo) GetItem(_ context.Context, itemID id.ID) (Item, error) {
	it, ok := r.items[itemID]
	if !ok {
		return Item{}, apperror.NewNotFound("inventory item", itemID)
	}
	return it, nil
}

func (r *memRepo) ListItems(_ context.Context, f ItemFilter) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if !f.IncludeInactive && !it.IsActive {
			continue
		}
		if f.ItemType != nil && it.Type() != *f.ItemType {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) ItemsByBottle(_ context.Context, bottleIDs []id.ID) (map[id.ID]Item, error) {
	out := map[id.ID]Item{}
	for _, it := range r.items {
		if b, ok := it.BottleID(); ok && slices.Contains(bottleIDs, b) {
			out[b] = it
		}
	}
	return out, nil
}

func (r *memRepo) ItemsByIngredient(_ context.Context, ingredientIDs []id.ID) (map[id.ID]Item, error) {
	out := map[id.ID]Item{}
	for _, it := range r.items {
		if ing, ok := it.IngredientID(); ok && slices.Contains(ingredientIDs, ing) {
			out[ing] = it
		}
	}
	return out, nil
}

func (r *memRepo) InsertItem(_ context.Context, item Item) error {
	for _, it := range r.items {
		if it.Type() == item.Type() && it.Backing.RefID() == item.Backing.RefID() {
			return apperror.NewConflict("inventory item already exists for this backing")
		}
	}
	r.items[item.ID] = item
	return nil
}

func (r *memRepo) SaveItem(_ context.Context, item Item) error {
	if _, ok := r.items[item.ID]; !ok {
		return apperror.NewNotFound("inventory item", item.ID)
	}
	r.items[item.ID] = item
	return nil
}

func (r *memRepo) InsertMovement(_ context.Context, m Movement) error {
	if _, ok := r.items[m.ItemID]; !ok {
		return apperror.NewNotFound("inventory item", m.ItemID)
	}
	r.movements = append(r.movements, m)
	return nil
}

func (r *memRepo) UpsertStock(_ context.Context, itemID id.ID, loc Location, delta int64) (Stock, error) {
	st := r.stock[stockKey{itemID, loc}]
	st.ItemID, st.Location = itemID, loc
	st.Quantity += delta
	st.UpdatedAt = time.Now()
	r.stock[stockKey{itemID, loc}] = st
	return st, nil
}

func (r *memRepo) GetStock(_ context.Context, itemID id.ID, loc Location) (Stock, bool, error) {
	st, ok := r.stock[stockKey{itemID, loc}]
	return st, ok, nil
}

func (r *memRepo) ListStock(_ context.Context, f StockFilter) ([]Stock, error) {
	var out []Stock
	for _, st := range r.stock {
		if f.Location != nil && st.Location != *f.Location {
			continue
		}
		if len(f.ItemIDs) > 0 && !slices.Contains(f.ItemIDs, st.ItemID) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (r *memRepo) SumMovements(_ context.Context, itemID id.ID, loc Location) (int64, error) {
	var sum int64
	for _, m := range r.movements {
		if m.ItemID == itemID && m.Location == loc {
			sum += m.Change
		}
	}
	return sum, nil
}

func (r *memRepo) SetStockQuantity(_ context.Context, itemID id.ID, loc Location, qty int64) (Stock, error) {
	st := r.stock[stockKey{itemID, loc}]
	st.ItemID, st.Location, st.Quantity = itemID, loc, qty
	r.stock[stockKey{itemID, loc}] = st
	return st, nil
}

func (r *memRepo) ActiveEventMovements(_ context.Context, eventID id.ID, sourceType string, loc *Location) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.SourceEventID == nil || *m.SourceEventID != eventID || !m.SourceTypeIs(sourceType) || m.IsReversed {
			continue
		}
		if loc != nil && m.Location != *loc {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memRepo) UntaggedEventMovements(_ context.Context, reasons []string, legacyType string, loc *Location) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.SourceEventID != nil || m.IsReversed || m.IsReversal || m.Change >= 0 {
			continue
		}
		if m.SourceType != nil && *m.SourceType != legacyType {
			continue
		}
		if !slices.Contains(reasons, m.Reason) {
			continue
		}
		if loc != nil && m.Location != *loc {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memRepo) MarkReversed(_ context.Context, movementID id.ID) error {
	for i := range r.movements {
		if r.movements[i].ID == movementID {
			r.movements[i].IsReversed = true
			return nil
		}
	}
	return apperror.NewNotFound("movement", movementID)
}

func (r *memRepo) TagEventMovement(_ context.Context, movementID, eventID id.ID, sourceType string) error {
	for i := range r.movements {
		if r.movements[i].ID == movementID {
			r.movements[i].SourceEventID = id.Ptr(eventID)
			r.movements[i].SourceType = strPtr(sourceType)
			return nil
		}
	}
	return apperror.NewNotFound("movement", movementID)
}

func (r *memRepo) ListMovements(_ context.Context, f MovementFilter) ([]Movement, error) {
	var out []Movement
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if f.Location != nil && m.Location != *f.Location {
			continue
		}
		if f.ItemID != nil && m.ItemID != *f.ItemID {
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

var errStockWrite = errors.New("stock write failed")

// failingRepo fails the stock upsert at failAt, after the movement row of
// that write has been inserted.
type failingRepo struct {
	*memRepo
	failAt Location
}

func (r failingRepo) UpsertStock(ctx context.Context, itemID id.ID, loc Location, delta int64) (Stock, error) {
	if loc == r.failAt {
		return Stock{}, errStockWrite
	}
	return r.memRepo.UpsertStock(ctx, itemID, loc, delta)
}

type memEvents map[id.ID]catalog.Event

func (e memEvents) Event(_ context.Context, eventID id.ID) (catalog.Event, error) {
	ev, ok := e[eventID]
	if !ok {
		return catalog.Event{}, apperror.NewNotFound("event", eventID)
	}
	return ev, nil
}

func (e memEvents) EventsBetween(_ context.Context, from, to time.Time) ([]catalog.Event, error) {
	var out []catalog.Event
	for _, ev := range e {
		if !ev.EventDate.Before(from) && !ev.EventDate.After(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

type memBottles struct {
	bottles map[id.ID]catalog.Bottle
	prices  map[id.ID]catalog.BottlePrice
}

func (b *memBottles) Bottles(_ context.Context, ids []id.ID) (map[id.ID]catalog.Bottle, error) {
	out := map[id.ID]catalog.Bottle{}
	for _, i := range ids {
		if v, ok := b.bottles[i]; ok {
			out[i] = v
		}
	}
	return out, nil
}

func (b *memBottles) BottlesForIngredients(_ context.Context, ingredientIDs []id.ID) (map[id.ID][]catalog.Bottle, error) {
	out := map[id.ID][]catalog.Bottle{}
	for _, v := range b.bottles {
		if v.IngredientID != nil && slices.Contains(ingredientIDs, *v.IngredientID) {
			out[*v.IngredientID] = append(out[*v.IngredientID], v)
		}
	}
	return out, nil
}

func (b *memBottles) CurrentPrices(_ context.Context, ids []id.ID, on time.Time) (map[id.ID]catalog.BottlePrice, error) {
	out := map[id.ID]catalog.BottlePrice{}
	for _, i := range ids {
		if p, ok := b.prices[i]; ok && p.ActiveOn(on) {
			out[i] = p
		}
	}
	return out, nil
}

type memRecipes struct {
	cocktails map[id.ID]catalog.Cocktail
	lines     map[id.ID][]catalog.RecipeLine
}

func (m *memRecipes) Cocktail(_ context.Context, cocktailID id.ID) (catalog.Cocktail, error) {
	c, ok := m.cocktails[cocktailID]
	if !ok {
		return catalog.Cocktail{}, apperror.NewNotFound("cocktail", cocktailID)
	}
	return c, nil
}

func (m *memRecipes) CocktailLines(_ context.Context, ids []id.ID) (map[id.ID][]catalog.RecipeLine, error) {
	out := map[id.ID][]catalog.RecipeLine{}
	for _, i := range ids {
		if lines, ok := m.lines[i]; ok {
			out[i] = lines
		}
	}
	return out, nil
}

type memOrders map[id.ID][]EventOrderLine

func (o memOrders) EventOrderLines(_ context.Context, eventID id.ID) ([]EventOrderLine, bool, error) {
	lines, ok := o[eventID]
	return lines, ok, nil
}

type auditCall struct {
	entityType string
	entityID   id.ID
	action     string
}

type memAudit struct{ calls []auditCall }

func (a *memAudit) LogChange(_ context.Context, entityType string, entityID id.ID, action string, _ map[string]any) error {
	a.calls = append(a.calls, auditCall{entityType, entityID, action})
	return nil
}

type fixture struct {
	repo    *memRepo
	events  memEvents
	bottles *memBottles
	recipes *memRecipes
	orders  memOrders
	audit   *memAudit
	svc     *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMemRepo(),
		events:  memEvents{},
		bottles: &memBottles{bottles: map[id.ID]catalog.Bottle{}, prices: map[id.ID]catalog.BottlePrice{}},
		recipes: &memRecipes{cocktails: map[id.ID]catalog.Cocktail{}, lines: map[id.ID][]catalog.RecipeLine{}},
		orders:  memOrders{},
		audit:   &memAudit{},
	}
	f.svc = NewService(Deps{
		Repo:    f.repo,
		TxM:     &memTx{repo: f.repo},
		Events:  f.events,
		Bottles: f.bottles,
		Recipes: f.recipes,
		Orders:  f.orders,
		Audit:   f.audit,
	})
	return f
}
