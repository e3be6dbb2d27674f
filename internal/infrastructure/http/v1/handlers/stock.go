package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/domain/stock"
	"pharmadesk/internal/infrastructure/http/v1/dto"
)

// StockService is the stock.Service surface used by the handler.
type StockService interface {
	Adjust(ctx context.Context, m stock.Movement) (stock.Movement, error)
	List(ctx context.Context, filter stock.Filter) (domain.ListResult[stock.Movement], error)
}

// StockHandler handles stock adjustments and the movement journal.
type StockHandler struct {
	*BaseHandler
	service StockService
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service StockService) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Adjust returns the handler of POST /inventory/{kind}/:id/adjust.
func (h *StockHandler) Adjust(kind inventory.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := h.ParseID(c, "id")
		if !ok {
			return
		}

		var req dto.AdjustStockRequest
		if !h.BindJSON(c, &req) {
			return
		}

		m, err := h.service.Adjust(c.Request.Context(), req.ToMovement(kind, itemID))
		if err != nil {
			h.Error(c, err)
			return
		}

		h.Created(c, dto.FromMovement(m))
	}
}

// ListMovements handles GET /stock/movements.
// Query params: itemKind, itemId, reference, reason, from, to.
func (h *StockHandler) ListMovements(c *gin.Context) {
	base, ok := h.ListFilter(c)
	if !ok {
		return
	}

	filter := stock.Filter{
		ListFilter: base,
		Reference:  c.Query("reference"),
		Reason:     stock.Reason(c.Query("reason")),
	}

	if raw := c.Query("itemKind"); raw != "" {
		kind, err := inventory.ParseKind(raw)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.ItemKind = kind
	}

	if raw := c.Query("itemId"); raw != "" {
		itemID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid itemId format").WithDetail("value", raw))
			return
		}
		filter.ItemID = &itemID
	}

	if filter.From, ok = h.ParseDateQuery(c, "from"); !ok {
		return
	}
	if filter.To, ok = h.ParseDateQuery(c, "to"); !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	respondList(h.BaseHandler, c, result, func(m stock.Movement) any { return dto.FromMovement(m) })
}
