package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/patients"
	"pharmadesk/internal/infrastructure/http/v1/dto"
)

// PatientService is the patients.Service surface used by the handler.
type PatientService interface {
	RecordService[*patients.Patient]
	List(ctx context.Context, filter patients.Filter) (domain.ListResult[*patients.Patient], error)
}

// PatientHandler handles /patients.
type PatientHandler struct {
	*RecordHandler[*patients.Patient, dto.CreatePatientRequest, dto.UpdatePatientRequest]
	service PatientService
}

// NewPatientHandler creates a new patient handler.
func NewPatientHandler(base *BaseHandler, svc PatientService) *PatientHandler {
	return &PatientHandler{
		RecordHandler: NewRecordHandler(base, RecordHandlerConfig[*patients.Patient, dto.CreatePatientRequest, dto.UpdatePatientRequest]{
			Service: svc,
			MapCreateDTO: func(req dto.CreatePatientRequest, _ func() time.Time) (*patients.Patient, error) {
				return req.ToEntity(), nil
			},
			MapUpdateDTO: func(req dto.UpdatePatientRequest, p *patients.Patient) (*patients.Patient, error) {
				return req.ApplyTo(p), nil
			},
			MapToDTO: func(p *patients.Patient) any { return dto.FromPatient(p) },
		}),
		service: svc,
	}
}

// List handles GET /patients. Extra query params: bornAfter, bornBefore.
func (h *PatientHandler) List(c *gin.Context) {
	base, ok := h.ListFilter(c)
	if !ok {
		return
	}
	filter := patients.Filter{ListFilter: base}
	if filter.BornAfter, ok = h.ParseDateQuery(c, "bornAfter"); !ok {
		return
	}
	if filter.BornBefore, ok = h.ParseDateQuery(c, "bornBefore"); !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	respondList(h.BaseHandler, c, result, h.mapToDTO)
}
