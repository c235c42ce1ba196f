package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/id"
	"barstock/internal/domain/inventory"
	"barstock/internal/infrastructure/http/v1/dto"
)

// InventoryService is the inventory surface exposed over HTTP.
type InventoryService interface {
	CreateMovement(ctx context.Context, req inventory.MovementRequest) (inventory.Applied, error)
	Transfer(ctx context.Context, req inventory.TransferRequest) (inventory.TransferResult, error)
	ConsumeEvent(ctx context.Context, req inventory.ConsumeRequest) (inventory.ConsumeResult, error)
	UnconsumeEvent(ctx context.Context, req inventory.UnconsumeRequest) (inventory.ConsumeResult, error)
	ConsumptionStatus(ctx context.Context, eventID id.ID) (inventory.ConsumptionStatus, error)
	ConsumeCocktailBatch(ctx context.Context, req inventory.BatchRequest) (inventory.BatchResult, error)
	Items(ctx context.Context, filter inventory.ItemFilter) ([]inventory.Item, error)
	CreateItem(ctx context.Context, in inventory.ItemInput) (inventory.Item, error)
	UpdateItem(ctx context.Context, itemID id.ID, patch inventory.ItemPatch) (inventory.Item, error)
	DeactivateItem(ctx context.Context, itemID id.ID) error
	StockAt(ctx context.Context, location inventory.Location, q inventory.StockQuery) ([]inventory.StockRow, error)
	StockAll(ctx context.Context, q inventory.StockQuery) (map[inventory.Location][]inventory.StockRow, error)
	StockForItem(ctx context.Context, itemID id.ID) (inventory.ItemStock, error)
	Movements(ctx context.Context, filter inventory.MovementFilter) ([]inventory.Movement, error)
}

// Reconciler compares cached stock with the movement log.
type Reconciler interface {
	Reconcile(ctx context.Context, itemID id.ID, location inventory.Location) (inventory.Reconciliation, error)
}

// InventoryHandler handles /inventory routes.
type InventoryHandler struct {
	*BaseHandler
	service InventoryService
	ledger  Reconciler
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service InventoryService, ledger Reconciler) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service, ledger: ledger}
}

// RegisterRoutes mounts the inventory routes on rg.
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/items", h.ListItems)
	rg.POST("/items", h.CreateItem)
	rg.PATCH("/items/:itemId", h.UpdateItem)
	rg.DELETE("/items/:itemId", h.DeactivateItem)
	rg.POST("/movements", h.CreateMovement)
	rg.GET("/movements", h.ListMovements)
	rg.POST("/transfers", h.Transfer)
	rg.POST("/consume-event", h.ConsumeEvent)
	rg.POST("/unconsume-event", h.UnconsumeEvent)
	rg.GET("/events/:eventId/consumption", h.ConsumptionStatus)
	rg.POST("/cocktails/:cocktailId/consume-batch", h.ConsumeBatch)
	rg.GET("/stock", h.Stock)
	rg.GET("/stock/all", h.StockAll)
	rg.GET("/stock/item/:itemId", h.StockForItem)
	rg.GET("/stock/item/:itemId/reconcile", h.Reconcile)
}

// ListItems handles GET /inventory/items.
func (h *InventoryHandler) ListItems(c *gin.Context) {
	var q dto.ItemsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	items, err := h.service.Items(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.NewItemResponses(items)))
}

// CreateItem handles POST /inventory/items.
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	item, err := h.service.CreateItem(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.NewItemResponse(item))
}

// UpdateItem handles PATCH /inventory/items/:itemId.
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	itemID, ok := h.PathID(c, "itemId")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	patch, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	item, err := h.service.UpdateItem(c.Request.Context(), itemID, patch)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemResponse(item))
}

// DeactivateItem handles DELETE /inventory/items/:itemId. The item is
// only marked inactive.
func (h *InventoryHandler) DeactivateItem(c *gin.Context) {
	itemID, ok := h.PathID(c, "itemId")
	if !ok {
		return
	}
	if err := h.service.DeactivateItem(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"ok": true})
}

// CreateMovement handles POST /inventory/movements.
func (h *InventoryHandler) CreateMovement(c *gin.Context) {
	var req dto.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	applied, err := h.service.CreateMovement(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, applied)
}

// Transfer handles POST /inventory/transfers.
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.Transfer(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// ConsumeEvent handles POST /inventory/consume-event.
func (h *InventoryHandler) ConsumeEvent(c *gin.Context) {
	var req dto.ConsumeEventRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.ConsumeEvent(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// UnconsumeEvent handles POST /inventory/unconsume-event.
func (h *InventoryHandler) UnconsumeEvent(c *gin.Context) {
	var req dto.UnconsumeEventRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.UnconsumeEvent(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ConsumptionStatus handles GET /inventory/events/:eventId/consumption.
func (h *InventoryHandler) ConsumptionStatus(c *gin.Context) {
	eventID, ok := h.PathID(c, "eventId")
	if !ok {
		return
	}
	status, err := h.service.ConsumptionStatus(c.Request.Context(), eventID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, status)
}

// ConsumeBatch handles POST /inventory/cocktails/:cocktailId/consume-batch.
func (h *InventoryHandler) ConsumeBatch(c *gin.Context) {
	cocktailID, ok := h.PathID(c, "cocktailId")
	if !ok {
		return
	}
	var req dto.ConsumeBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToDomain(cocktailID)
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.ConsumeCocktailBatch(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Stock handles GET /inventory/stock?location=BAR.
func (h *InventoryHandler) Stock(c *gin.Context) {
	var q dto.StockQuery
	if !h.BindQuery(c, &q) {
		return
	}
	loc, err := inventory.ParseLocation(q.Location)
	if err != nil {
		h.Error(c, err)
		return
	}
	sq, err := q.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	rows, err := h.service.StockAt(c.Request.Context(), loc, sq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(rows))
}

// StockAll handles GET /inventory/stock/all.
func (h *InventoryHandler) StockAll(c *gin.Context) {
	var q dto.StockQuery
	if !h.BindQuery(c, &q) {
		return
	}
	sq, err := q.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	all, err := h.service.StockAll(c.Request.Context(), sq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, all)
}

// StockForItem handles GET /inventory/stock/item/:itemId.
func (h *InventoryHandler) StockForItem(c *gin.Context) {
	itemID, ok := h.PathID(c, "itemId")
	if !ok {
		return
	}
	st, err := h.service.StockForItem(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, st)
}

// Reconcile handles GET /inventory/stock/item/:itemId/reconcile?location=BAR.
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	itemID, ok := h.PathID(c, "itemId")
	if !ok {
		return
	}
	loc, err := inventory.ParseLocation(c.Query("location"))
	if err != nil {
		h.Error(c, err)
		return
	}
	rec, err := h.ledger.Reconcile(c.Request.Context(), itemID, loc)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// ListMovements handles GET /inventory/movements.
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	var q dto.MovementsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	list, err := h.service.Movements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(list))
}
