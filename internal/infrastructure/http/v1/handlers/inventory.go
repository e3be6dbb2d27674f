package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/infrastructure/http/v1/dto"
)

// InventoryService is an inventory.Service of one kind.
type InventoryService[T inventory.Stocked] interface {
	RecordService[T]
	List(ctx context.Context, filter inventory.Filter) (domain.ListResult[T], error)
}

// InventoryHandler handles one inventory kind.
type InventoryHandler[T inventory.Stocked, CreateDTO any, UpdateDTO any] struct {
	*RecordHandler[T, CreateDTO, UpdateDTO]
	service InventoryService[T]
}

// List handles GET /inventory/{kind}.
// Extra query params: category, lowStock, expiringWithinDays.
func (h *InventoryHandler[T, CreateDTO, UpdateDTO]) List(c *gin.Context) {
	base, ok := h.ListFilter(c)
	if !ok {
		return
	}

	filter := inventory.Filter{
		ListFilter: base,
		Category:   c.Query("category"),
		LowStock:   c.Query("lowStock") == "true",
	}
	if c.Query("expiringWithinDays") != "" {
		days := h.ParseIntQuery(c, "expiringWithinDays", -1)
		if days < 0 {
			h.Error(c, apperror.NewValidation("expiringWithinDays must be a non-negative integer"))
			return
		}
		filter.ExpiringWithinDays = &days
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	respondList(h.BaseHandler, c, result, h.mapToDTO)
}

// NewMedicineHandler creates the handler of /inventory/medicines.
func NewMedicineHandler(base *BaseHandler, svc InventoryService[*inventory.Medicine]) *InventoryHandler[*inventory.Medicine, dto.CreateMedicineRequest, dto.UpdateMedicineRequest] {
	return &InventoryHandler[*inventory.Medicine, dto.CreateMedicineRequest, dto.UpdateMedicineRequest]{
		RecordHandler: NewRecordHandler(base, RecordHandlerConfig[*inventory.Medicine, dto.CreateMedicineRequest, dto.UpdateMedicineRequest]{
			Service: svc,
			MapCreateDTO: func(req dto.CreateMedicineRequest, _ func() time.Time) (*inventory.Medicine, error) {
				return req.ToEntity(), nil
			},
			MapUpdateDTO: func(req dto.UpdateMedicineRequest, m *inventory.Medicine) (*inventory.Medicine, error) {
				return req.ApplyTo(m), nil
			},
			MapToDTO: func(m *inventory.Medicine) any { return dto.FromMedicine(m) },
		}),
		service: svc,
	}
}

// NewChemicalHandler creates the handler of /inventory/chemicals.
func NewChemicalHandler(base *BaseHandler, svc InventoryService[*inventory.Chemical]) *InventoryHandler[*inventory.Chemical, dto.CreateChemicalRequest, dto.UpdateChemicalRequest] {
	return &InventoryHandler[*inventory.Chemical, dto.CreateChemicalRequest, dto.UpdateChemicalRequest]{
		RecordHandler: NewRecordHandler(base, RecordHandlerConfig[*inventory.Chemical, dto.CreateChemicalRequest, dto.UpdateChemicalRequest]{
			Service: svc,
			MapCreateDTO: func(req dto.CreateChemicalRequest, _ func() time.Time) (*inventory.Chemical, error) {
				return req.ToEntity(), nil
			},
			MapUpdateDTO: func(req dto.UpdateChemicalRequest, ch *inventory.Chemical) (*inventory.Chemical, error) {
				return req.ApplyTo(ch), nil
			},
			MapToDTO: func(ch *inventory.Chemical) any { return dto.FromChemical(ch) },
		}),
		service: svc,
	}
}

// NewEquipmentHandler creates the handler of /inventory/equipment.
func NewEquipmentHandler(base *BaseHandler, svc InventoryService[*inventory.Equipment]) *InventoryHandler[*inventory.Equipment, dto.CreateEquipmentRequest, dto.UpdateEquipmentRequest] {
	return &InventoryHandler[*inventory.Equipment, dto.CreateEquipmentRequest, dto.UpdateEquipmentRequest]{
		RecordHandler: NewRecordHandler(base, RecordHandlerConfig[*inventory.Equipment, dto.CreateEquipmentRequest, dto.UpdateEquipmentRequest]{
			Service: svc,
			MapCreateDTO: func(req dto.CreateEquipmentRequest, _ func() time.Time) (*inventory.Equipment, error) {
				return req.ToEntity(), nil
			},
			MapUpdateDTO: func(req dto.UpdateEquipmentRequest, e *inventory.Equipment) (*inventory.Equipment, error) {
				return req.ApplyTo(e), nil
			},
			MapToDTO: func(e *inventory.Equipment) any { return dto.FromEquipment(e) },
		}),
		service: svc,
	}
}
