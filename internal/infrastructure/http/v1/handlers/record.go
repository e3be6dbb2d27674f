package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"pharmadesk/internal/core/id"
)

// RecordService is the part of domain.RecordService the handlers use.
type RecordService[T any] interface {
	Create(ctx context.Context, rec T) (T, error)
	GetByID(ctx context.Context, recID id.ID) (T, error)
	GetByBusinessID(ctx context.Context, businessID string) (T, error)
	Update(ctx context.Context, rec T) (T, error)
	Delete(ctx context.Context, recID id.ID) error
}

// RecordHandler provides generic HTTP handlers for records carrying a
// generated business ID.
type RecordHandler[T any, CreateDTO any, UpdateDTO any] struct {
	*BaseHandler
	service RecordService[T]

	// Mapper functions
	mapCreateDTO func(req CreateDTO, today func() time.Time) (T, error)
	mapUpdateDTO func(req UpdateDTO, existing T) (T, error)
	mapToDTO     func(rec T) any
}

// RecordHandlerConfig configures the record handler.
type RecordHandlerConfig[T any, CreateDTO any, UpdateDTO any] struct {
	Service      RecordService[T]
	MapCreateDTO func(req CreateDTO, today func() time.Time) (T, error)
	MapUpdateDTO func(req UpdateDTO, existing T) (T, error)
	MapToDTO     func(rec T) any
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler[T any, CreateDTO any, UpdateDTO any](
	base *BaseHandler,
	cfg RecordHandlerConfig[T, CreateDTO, UpdateDTO],
) *RecordHandler[T, CreateDTO, UpdateDTO] {
	return &RecordHandler[T, CreateDTO, UpdateDTO]{
		BaseHandler:  base,
		service:      cfg.Service,
		mapCreateDTO: cfg.MapCreateDTO,
		mapUpdateDTO: cfg.MapUpdateDTO,
		mapToDTO:     cfg.MapToDTO,
	}
}

// Get handles GET /{entity}/:id.
func (h *RecordHandler[T, CreateDTO, UpdateDTO]) Get(c *gin.Context) {
	recID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	rec, err := h.service.GetByID(c.Request.Context(), recID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, h.mapToDTO(rec))
}

// GetByCode handles GET /{entity}/by-code/:code.
func (h *RecordHandler[T, CreateDTO, UpdateDTO]) GetByCode(c *gin.Context) {
	rec, err := h.service.GetByBusinessID(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, h.mapToDTO(rec))
}

// Create handles POST /{entity}. The business ID is generated unless the
// request supplies one.
func (h *RecordHandler[T, CreateDTO, UpdateDTO]) Create(c *gin.Context) {
	var req CreateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.mapCreateDTO(req, h.Today)
	if err != nil {
		h.Error(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), rec)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, h.mapToDTO(created))
}

// Update handles PUT /{entity}/:id.
func (h *RecordHandler[T, CreateDTO, UpdateDTO]) Update(c *gin.Context) {
	ctx := c.Request.Context()

	recID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req UpdateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	existing, err := h.service.GetByID(ctx, recID)
	if err != nil {
		h.Error(c, err)
		return
	}

	changed, err := h.mapUpdateDTO(req, existing)
	if err != nil {
		h.Error(c, err)
		return
	}

	updated, err := h.service.Update(ctx, changed)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, h.mapToDTO(updated))
}

// Delete handles DELETE /{entity}/:id (soft delete).
func (h *RecordHandler[T, CreateDTO, UpdateDTO]) Delete(c *gin.Context) {
	recID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), recID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
