package orders

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/inventory"
)

// memTx rolls the order repository back when the outermost fn fails.
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

type memRepo struct {
	orders []Order
}

func copyOrder(o Order) Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func (r *memRepo) clone() *memRepo {
	c := &memRepo{}
	for _, o := range r.orders {
		c.orders = append(c.orders, copyOrder(o))
	}
	return c
}

func (r *memRepo) restore(c *memRepo) {
	r.orders = c.orders
}

func (r *memRepo) find(orderID id.ID) int {
	return slices.IndexFunc(r.orders, func(o Order) bool { return o.ID == orderID })
}

func (r *memRepo) byScope(scope Scope) []Order {
	var out []Order
	for _, o := range r.orders {
		if o.Scope == scope {
			out = append(out, copyOrder(o))
		}
	}
	return out
}

func (r *memRepo) EventOrders(_ context.Context, from, to time.Time, eventIDs []id.ID) ([]Order, error) {
	var out []Order
	for _, o := range r.byScope(ScopeEvent) {
		byEvent := o.EventID != nil && slices.Contains(eventIDs, *o.EventID)
		if byEvent || (!o.PeriodStart.Before(from) && !o.PeriodStart.After(to)) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memRepo) SetPeriod(_ context.Context, orderID id.ID, start, end time.Time) error {
	i := r.find(orderID)
	if i < 0 {
		return apperror.NewNotFound("order", orderID)
	}
	r.orders[i].PeriodStart, r.orders[i].PeriodEnd = start, end
	return nil
}

// eventOrders returns the stored EVENT orders of one event.
func (r *memRepo) eventOrders(eventID id.ID) []Order {
	var out []Order
	for _, o := range r.byScope(ScopeEvent) {
		if o.EventID != nil && *o.EventID == eventID {
			out = append(out, o)
		}
	}
	return out
}

func (r *memRepo) WeeklyOrders(_ context.Context, from, to time.Time) ([]Order, error) {
	var out []Order
	for _, o := range r.byScope(ScopeWeekly) {
		if o.PeriodStart.Equal(from) && o.PeriodEnd.Equal(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memRepo) Create(_ context.Context, o Order) error {
	r.orders = append(r.orders, copyOrder(o))
	return nil
}

func (r *memRepo) ReplaceItems(_ context.Context, orderID id.ID, items []Item) error {
	i := r.find(orderID)
	if i < 0 {
		return apperror.NewNotFound("order", orderID)
	}
	r.orders[i].Items = slices.Clone(items)
	return nil
}

func (r *memRepo) Delete(_ context.Context, ids []id.ID) error {
	r.orders = slices.DeleteFunc(r.orders, func(o Order) bool { return slices.Contains(ids, o.ID) })
	return nil
}

func (r *memRepo) List(_ context.Context, f ListFilter) ([]Order, error) {
	var out []Order
	for _, o := range r.orders {
		switch {
		case f.Status != nil && o.Status != *f.Status,
			f.Scope != nil && o.Scope != *f.Scope,
			f.SupplierID != nil && id.Key(o.SupplierID) != *f.SupplierID,
			f.EventID != nil && id.Key(o.EventID) != *f.EventID:
			continue
		}
		o = copyOrder(o)
		if !f.WithItems {
			o.Items = nil
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, orderID id.ID) (Order, error) {
	i := r.find(orderID)
	if i < 0 {
		return Order{}, apperror.NewNotFound("order", orderID)
	}
	return copyOrder(r.orders[i]), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, orderID id.ID, status Status, notes *string) error {
	i := r.find(orderID)
	if i < 0 {
		return apperror.NewNotFound("order", orderID)
	}
	r.orders[i].Status = status
	if notes != nil {
		r.orders[i].Notes = notes
	}
	return nil
}

func (r *memRepo) setStatus(orderID id.ID, status Status) {
	r.orders[r.find(orderID)].Status = status
}

type memCatalog struct {
	events      map[id.ID]catalog.Event
	lines       map[id.ID][]catalog.RecipeLine
	ingredients map[id.ID]catalog.Ingredient
	bottles     map[id.ID]catalog.Bottle
	suppliers   map[id.ID]string
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		events:      map[id.ID]catalog.Event{},
		lines:       map[id.ID][]catalog.RecipeLine{},
		ingredients: map[id.ID]catalog.Ingredient{},
		bottles:     map[id.ID]catalog.Bottle{},
		suppliers:   map[id.ID]string{},
	}
}

func (c *memCatalog) Event(_ context.Context, eventID id.ID) (catalog.Event, error) {
	ev, ok := c.events[eventID]
	if !ok {
		return catalog.Event{}, apperror.NewNotFound("event", eventID)
	}
	return ev, nil
}

func (c *memCatalog) EventsBetween(_ context.Context, from, to time.Time) ([]catalog.Event, error) {
	var out []catalog.Event
	for _, ev := range c.events {
		if !ev.EventDate.Before(from) && !ev.EventDate.After(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (c *memCatalog) CocktailLines(_ context.Context, ids []id.ID) (map[id.ID][]catalog.RecipeLine, error) {
	out := map[id.ID][]catalog.RecipeLine{}
	for _, cid := range ids {
		if lines, ok := c.lines[cid]; ok {
			out[cid] = lines
		}
	}
	return out, nil
}

func (c *memCatalog) Ingredients(_ context.Context, ids []id.ID) (map[id.ID]catalog.Ingredient, error) {
	out := map[id.ID]catalog.Ingredient{}
	for _, iid := range ids {
		if ing, ok := c.ingredients[iid]; ok {
			out[iid] = ing
		}
	}
	return out, nil
}

func (c *memCatalog) Bottles(_ context.Context, ids []id.ID) (map[id.ID]catalog.Bottle, error) {
	out := map[id.ID]catalog.Bottle{}
	for _, bid := range ids {
		if b, ok := c.bottles[bid]; ok {
			out[bid] = b
		}
	}
	return out, nil
}

func (c *memCatalog) BottlesForIngredients(_ context.Context, ids []id.ID) (map[id.ID][]catalog.Bottle, error) {
	out := map[id.ID][]catalog.Bottle{}
	for _, b := range c.bottles {
		if b.IngredientID != nil && slices.Contains(ids, *b.IngredientID) {
			out[*b.IngredientID] = append(out[*b.IngredientID], b)
		}
	}
	return out, nil
}

func (c *memCatalog) CurrentPrices(context.Context, []id.ID, time.Time) (map[id.ID]catalog.BottlePrice, error) {
	return map[id.ID]catalog.BottlePrice{}, nil
}

func (c *memCatalog) SupplierNames(_ context.Context, ids []id.ID) (map[id.ID]string, error) {
	out := map[id.ID]string{}
	for _, sid := range ids {
		if name, ok := c.suppliers[sid]; ok {
			out[sid] = name
		}
	}
	return out, nil
}

func (c *memCatalog) addSupplier(name string) id.ID {
	sid := id.New()
	c.suppliers[sid] = name
	return sid
}

func (c *memCatalog) addIngredient(name string, supplierID *id.ID) id.ID {
	iid := id.New()
	c.ingredients[iid] = catalog.Ingredient{ID: iid, Name: name, DefaultSupplierID: supplierID}
	return iid
}

func (c *memCatalog) addBottle(ingredientID id.ID, name string, volume int64, defaultCost bool) catalog.Bottle {
	b := catalog.Bottle{
		ID:            id.New(),
		IngredientID:  &ingredientID,
		Name:          name,
		VolumeML:      decimal.NewNullDecimal(decimal.NewFromInt(volume)),
		IsDefaultCost: defaultCost,
	}
	c.bottles[b.ID] = b
	return b
}

// addCocktail registers a recipe with lines in sort order.
func (c *memCatalog) addCocktail(lines ...catalog.RecipeLine) id.ID {
	cid := id.New()
	for i := range lines {
		lines[i].CocktailID = cid
		lines[i].SortOrder = i
	}
	c.lines[cid] = lines
	return cid
}

func (c *memCatalog) addEvent(name string, date time.Time, people int, cocktails ...id.ID) catalog.Event {
	ev := catalog.Event{ID: id.New(), Name: name, EventDate: date, People: people, CocktailIDs: cocktails}
	c.events[ev.ID] = ev
	return ev
}

func line(ingredientID id.ID, qty string, unit string) catalog.RecipeLine {
	return catalog.RecipeLine{IngredientID: &ingredientID, Quantity: decimal.RequireFromString(qty), Unit: unit}
}

type memStock map[inventory.Location][]inventory.StockLevel

func (m memStock) StockLevels(_ context.Context, scope inventory.Location) ([]inventory.StockLevel, error) {
	var out []inventory.StockLevel
	for _, loc := range scope.Expand() {
		out = append(out, m[loc]...)
	}
	return out, nil
}

func (m memStock) addBottles(loc inventory.Location, b catalog.Bottle, qty int64) {
	item := inventory.Item{ID: id.New(), Backing: inventory.BottleBacking{BottleID: b.ID}, Name: b.Name, Unit: "bottle", IsActive: true}
	m[loc] = append(m[loc], inventory.StockLevel{Item: item, Quantity: qty})
}

func (m memStock) addGarnish(loc inventory.Location, ingredientID id.ID, unit string, qty int64) {
	item := inventory.Item{ID: id.New(), Backing: inventory.GarnishBacking{IngredientID: ingredientID}, Unit: unit, IsActive: true}
	m[loc] = append(m[loc], inventory.StockLevel{Item: item, Quantity: qty})
}

type memAudit struct{ actions []string }

func (a *memAudit) LogChange(_ context.Context, entityType string, _ id.ID, action string, _ map[string]any) error {
	a.actions = append(a.actions, entityType+"/"+action)
	return nil
}

type fixture struct {
	repo   *memRepo
	cat    *memCatalog
	stock  memStock
	audit  *memAudit
	engine *Engine
	svc    *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:  &memRepo{},
		cat:   newMemCatalog(),
		stock: memStock{},
		audit: &memAudit{},
	}
	txm := &memTx{repo: f.repo}
	f.engine = NewEngine(EngineDeps{
		Repo:    f.repo,
		TxM:     txm,
		Stock:   f.stock,
		Catalog: f.cat,
		Audit:   f.audit,
		Cutoff:  DefaultCutoff,
	})
	f.svc = NewService(f.repo, txm, f.cat)
	return f
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
