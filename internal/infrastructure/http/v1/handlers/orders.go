package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"pharmadesk/internal/core/entity"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/orders"
	"pharmadesk/internal/infrastructure/http/v1/dto"
)

// OrderService is the orders.Service surface used by the handler.
type OrderService interface {
	RecordService[*orders.PurchaseOrder]
	List(ctx context.Context, filter orders.Filter) (domain.ListResult[*orders.PurchaseOrder], error)
	Approve(ctx context.Context, orderID id.ID) (*orders.PurchaseOrder, error)
	Receive(ctx context.Context, orderID id.ID) (*orders.PurchaseOrder, error)
	Cancel(ctx context.Context, orderID id.ID) (*orders.PurchaseOrder, error)
}

// OrderHandler handles /orders.
type OrderHandler struct {
	*RecordHandler[*orders.PurchaseOrder, dto.CreateOrderRequest, dto.UpdateOrderRequest]
	service OrderService
}

// NewOrderHandler creates a new purchase order handler.
func NewOrderHandler(base *BaseHandler, svc OrderService) *OrderHandler {
	return &OrderHandler{
		RecordHandler: NewRecordHandler(base, RecordHandlerConfig[*orders.PurchaseOrder, dto.CreateOrderRequest, dto.UpdateOrderRequest]{
			Service: svc,
			MapCreateDTO: func(req dto.CreateOrderRequest, today func() time.Time) (*orders.PurchaseOrder, error) {
				return req.ToEntity(today())
			},
			MapUpdateDTO: func(req dto.UpdateOrderRequest, o *orders.PurchaseOrder) (*orders.PurchaseOrder, error) {
				return req.ApplyTo(o)
			},
			MapToDTO: func(o *orders.PurchaseOrder) any { return dto.FromOrder(o) },
		}),
		service: svc,
	}
}

// List handles GET /orders. Extra query params: status, supplier, dateFrom, dateTo.
func (h *OrderHandler) List(c *gin.Context) {
	base, ok := h.ListFilter(c)
	if !ok {
		return
	}
	filter := orders.Filter{
		ListFilter: base,
		Status:     entity.Status(c.Query("status")),
		Supplier:   c.Query("supplier"),
	}
	if filter.DateFrom, ok = h.ParseDateQuery(c, "dateFrom"); !ok {
		return
	}
	if filter.DateTo, ok = h.ParseDateQuery(c, "dateTo"); !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	respondList(h.BaseHandler, c, result, h.mapToDTO)
}

// Approve handles POST /orders/:id/approve.
func (h *OrderHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// Receive handles POST /orders/:id/receive. Stock of every line is
// increased in the same transaction.
func (h *OrderHandler) Receive(c *gin.Context) {
	h.transition(c, h.service.Receive)
}

// Cancel handles POST /orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *OrderHandler) transition(c *gin.Context, fn func(context.Context, id.ID) (*orders.PurchaseOrder, error)) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	o, err := fn(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(o))
}
