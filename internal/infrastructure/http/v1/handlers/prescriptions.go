package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/entity"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/prescriptions"
	"pharmadesk/internal/infrastructure/http/v1/dto"
)

// PrescriptionService is the prescriptions.Service surface used by the handler.
type PrescriptionService interface {
	RecordService[*prescriptions.Prescription]
	List(ctx context.Context, filter prescriptions.Filter) (domain.ListResult[*prescriptions.Prescription], error)
	Dispense(ctx context.Context, prescriptionID id.ID) (*prescriptions.Prescription, error)
	Cancel(ctx context.Context, prescriptionID id.ID) (*prescriptions.Prescription, error)
}

// PrescriptionHandler handles /prescriptions.
type PrescriptionHandler struct {
	*RecordHandler[*prescriptions.Prescription, dto.CreatePrescriptionRequest, dto.UpdatePrescriptionRequest]
	service PrescriptionService
}

// NewPrescriptionHandler creates a new prescription handler.
func NewPrescriptionHandler(base *BaseHandler, svc PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{
		RecordHandler: NewRecordHandler(base, RecordHandlerConfig[*prescriptions.Prescription, dto.CreatePrescriptionRequest, dto.UpdatePrescriptionRequest]{
			Service: svc,
			MapCreateDTO: func(req dto.CreatePrescriptionRequest, today func() time.Time) (*prescriptions.Prescription, error) {
				return req.ToEntity(today())
			},
			MapUpdateDTO: func(req dto.UpdatePrescriptionRequest, p *prescriptions.Prescription) (*prescriptions.Prescription, error) {
				return req.ApplyTo(p)
			},
			MapToDTO: func(p *prescriptions.Prescription) any { return dto.FromPrescription(p) },
		}),
		service: svc,
	}
}

// List handles GET /prescriptions. Extra query params: patientId, status,
// dateFrom, dateTo.
func (h *PrescriptionHandler) List(c *gin.Context) {
	base, ok := h.ListFilter(c)
	if !ok {
		return
	}
	filter := prescriptions.Filter{
		ListFilter: base,
		Status:     entity.Status(c.Query("status")),
	}
	if raw := c.Query("patientId"); raw != "" {
		patientID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid patientId").WithDetail("value", raw))
			return
		}
		filter.PatientID = &patientID
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

// Dispense handles POST /prescriptions/:id/dispense.
func (h *PrescriptionHandler) Dispense(c *gin.Context) {
	h.transition(c, h.service.Dispense)
}

// Cancel handles POST /prescriptions/:id/cancel.
func (h *PrescriptionHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *PrescriptionHandler) transition(c *gin.Context, fn func(context.Context, id.ID) (*prescriptions.Prescription, error)) {
	prescriptionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := fn(c.Request.Context(), prescriptionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPrescription(p))
}
