package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"barstock/internal/core/id"
	"barstock/internal/domain/orders"
	"barstock/internal/infrastructure/http/v1/dto"
)

// OrderGenerator builds purchase orders for a window.
type OrderGenerator interface {
	Generate(ctx context.Context, req orders.GenerateRequest) (*orders.GenerateResult, error)
}

// OrderService reads and maintains persisted orders.
type OrderService interface {
	List(ctx context.Context, filter orders.ListFilter) ([]orders.Order, error)
	Get(ctx context.Context, orderID id.ID) (orders.Order, error)
	UpdateStatus(ctx context.Context, orderID id.ID, status orders.Status, notes *string) (orders.Order, error)
	EditItems(ctx context.Context, orderID id.ID, edits []orders.ItemEdit) (orders.Order, error)
}

// OrdersHandler handles /orders routes.
type OrdersHandler struct {
	*BaseHandler
	engine  OrderGenerator
	service OrderService
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(base *BaseHandler, engine OrderGenerator, service OrderService) *OrdersHandler {
	return &OrdersHandler{BaseHandler: base, engine: engine, service: service}
}

// RegisterRoutes mounts the order routes on rg.
func (h *OrdersHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/weekly-by-event", h.Generate)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.PATCH("/:id/items", h.EditItems)
}

// Generate handles POST /orders/weekly-by-event.
func (h *OrdersHandler) Generate(c *gin.Context) {
	var req dto.GenerateOrdersRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.engine.Generate(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// List handles GET /orders. Lines are included only with with_items=true.
func (h *OrdersHandler) List(c *gin.Context) {
	var q dto.OrdersQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if filter.WithItems {
		h.OK(c, dto.NewListResponse(list))
		return
	}
	summaries := make([]dto.OrderSummary, len(list))
	for i, o := range list {
		summaries[i] = dto.FromOrder(o)
	}
	h.OK(c, dto.NewListResponse(summaries))
}

// Get handles GET /orders/:id.
func (h *OrdersHandler) Get(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Update handles PATCH /orders/:id (status and notes).
func (h *OrdersHandler) Update(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.UpdateStatus(c.Request.Context(), orderID, orders.Status(req.Status), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// EditItems handles PATCH /orders/:id/items.
func (h *OrdersHandler) EditItems(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.EditOrderItemsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	edits, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}
	o, err := h.service.EditItems(c.Request.Context(), orderID, edits)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}
