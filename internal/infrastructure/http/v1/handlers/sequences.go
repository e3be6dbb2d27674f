package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/domain/sequences"
	"pharmadesk/internal/infrastructure/http/v1/dto"
	"pharmadesk/internal/infrastructure/storage/postgres"
)

// SequenceService is the sequences.Service surface used by the handler.
type SequenceService interface {
	Patterns() []sequence.Pattern
	List(ctx context.Context) ([]sequence.Sequence, error)
	Get(ctx context.Context, name string) (sequences.Info, error)
	Set(ctx context.Context, name string, value int64) error
	Sync(ctx context.Context, patternName string, at time.Time) (sequences.SyncResult, error)
	SyncAll(ctx context.Context) ([]sequences.SyncResult, error)
}

// SequenceEventSource reads allocation and collision events of a counter.
type SequenceEventSource interface {
	SequenceEvents(ctx context.Context, key string, limit int) ([]postgres.AuditEntry, error)
}

// SequenceHandler administers ID counters.
type SequenceHandler struct {
	*BaseHandler
	service SequenceService
	events  SequenceEventSource
}

// NewSequenceHandler creates a new sequence handler. events may be nil.
func NewSequenceHandler(base *BaseHandler, service SequenceService, events SequenceEventSource) *SequenceHandler {
	return &SequenceHandler{
		BaseHandler: base,
		service:     service,
		events:      events,
	}
}

// List handles GET /sequences.
func (h *SequenceHandler) List(c *gin.Context) {
	counters, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if counters == nil {
		counters = []sequence.Sequence{}
	}

	h.OK(c, gin.H{
		"counters": counters,
		"patterns": h.service.Patterns(),
	})
}

// Get handles GET /sequences/:name.
func (h *SequenceHandler) Get(c *gin.Context) {
	info, err := h.service.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, info)
}

// Set handles PUT /sequences/:name. The next draw returns value+1.
func (h *SequenceHandler) Set(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	var req dto.SetSequenceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Set(ctx, name, *req.Value); err != nil {
		h.Error(c, err)
		return
	}

	info, err := h.service.Get(ctx, name)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, info)
}

// Sync handles POST /sequences/sync. With ?pattern= only that pattern is
// synced, for the month given by ?month=YYYY-MM (default: current month).
func (h *SequenceHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()

	pattern := c.Query("pattern")
	if pattern == "" {
		results, err := h.service.SyncAll(ctx)
		if err != nil {
			h.Error(c, err)
			return
		}
		if results == nil {
			results = []sequences.SyncResult{}
		}
		h.OK(c, gin.H{"results": results})
		return
	}

	at := h.Today()
	if raw := c.Query("month"); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("month must be YYYY-MM").WithDetail("value", raw))
			return
		}
		at = t
	}

	res, err := h.service.Sync(ctx, pattern, at)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"results": []sequences.SyncResult{res}})
}

// Events handles GET /sequences/:name/events.
func (h *SequenceHandler) Events(c *gin.Context) {
	if h.events == nil {
		h.OK(c, gin.H{"items": []postgres.AuditEntry{}})
		return
	}

	name := c.Param("name")
	if err := sequence.ValidateName(name); err != nil {
		h.Error(c, err)
		return
	}

	entries, err := h.events.SequenceEvents(c.Request.Context(), name, h.ParseIntQuery(c, "limit", 100))
	if err != nil {
		h.Error(c, err)
		return
	}
	if entries == nil {
		entries = []postgres.AuditEntry{}
	}
	h.OK(c, gin.H{"items": entries})
}
