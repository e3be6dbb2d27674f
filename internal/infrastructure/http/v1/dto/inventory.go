package dto

import (
	"github.com/shopspring/decimal"

	"pharmadesk/internal/domain/inventory"
)

// --- Shared stock fields ---

// ItemRequest carries the stock fields of a create request.
type ItemRequest struct {
	Name         string          `json:"name" binding:"required,max=200"`
	Category     string          `json:"category"`
	ExpiryDate   *Date           `json:"expiryDate"`
	Quantity     int64           `json:"quantity" binding:"min=0"`
	ReorderLevel int64           `json:"reorderLevel" binding:"min=0"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Description  string          `json:"description"`
}

func (r ItemRequest) applyTo(it *inventory.Item) {
	it.Name = r.Name
	it.Category = r.Category
	it.ExpiryDate = r.ExpiryDate.TimePtr()
	it.Quantity = r.Quantity
	it.ReorderLevel = r.ReorderLevel
	if r.Unit != "" {
		it.Unit = r.Unit
	}
	it.UnitPrice = r.UnitPrice
	it.Description = r.Description
}

// ItemUpdate carries the stock fields of an update request.
// Quantity is absent: it changes only through stock adjustments.
type ItemUpdate struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	ExpiryDate   *Date            `json:"expiryDate"`
	ReorderLevel *int64           `json:"reorderLevel"`
	Unit         *string          `json:"unit"`
	UnitPrice    *decimal.Decimal `json:"unitPrice"`
	Description  *string          `json:"description"`
	Version      int              `json:"version" binding:"required,min=1"`
}

func (u ItemUpdate) applyTo(it *inventory.Item) {
	if u.Name != nil {
		it.Name = *u.Name
	}
	if u.Category != nil {
		it.Category = *u.Category
	}
	if u.ExpiryDate != nil {
		it.ExpiryDate = u.ExpiryDate.TimePtr()
	}
	if u.ReorderLevel != nil {
		it.ReorderLevel = *u.ReorderLevel
	}
	if u.Unit != nil {
		it.Unit = *u.Unit
	}
	if u.UnitPrice != nil {
		it.UnitPrice = *u.UnitPrice
	}
	if u.Description != nil {
		it.Description = *u.Description
	}
	it.Version = u.Version
}

// ItemResponse contains the stock fields.
type ItemResponse struct {
	BaseResponse
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	ExpiryDate   *Date           `json:"expiryDate,omitempty"`
	Quantity     int64           `json:"quantity"`
	ReorderLevel int64           `json:"reorderLevel"`
	LowStock     bool            `json:"lowStock"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Description  string          `json:"description,omitempty"`
}

func fromItem(it inventory.Item) ItemResponse {
	return ItemResponse{
		BaseResponse: FromBase(it.BaseEntity),
		Name:         it.Name,
		Category:     it.Category,
		ExpiryDate:   DatePtr(it.ExpiryDate),
		Quantity:     it.Quantity,
		ReorderLevel: it.ReorderLevel,
		LowStock:     it.IsLowStock(),
		Unit:         it.Unit,
		UnitPrice:    it.UnitPrice,
		Description:  it.Description,
	}
}

// --- Medicines ---

// CreateMedicineRequest creates a medicine. MedicineID is normally left
// empty and assigned from the medicine sequence.
type CreateMedicineRequest struct {
	MedicineID string `json:"medicineId"`
	ItemRequest
	GenericName  string `json:"genericName"`
	Manufacturer string `json:"manufacturer"`
	BatchNumber  string `json:"batchNumber" binding:"required"`
}

// ToEntity maps the request to a new medicine.
func (r CreateMedicineRequest) ToEntity() *inventory.Medicine {
	m := inventory.NewMedicine(r.Name, r.BatchNumber)
	r.ItemRequest.applyTo(&m.Item)
	m.MedicineID = r.MedicineID
	m.GenericName = r.GenericName
	m.Manufacturer = r.Manufacturer
	return m
}

// UpdateMedicineRequest updates a medicine. A MedicineID different from
// the stored one is rejected.
type UpdateMedicineRequest struct {
	MedicineID *string `json:"medicineId"`
	ItemUpdate
	GenericName  *string `json:"genericName"`
	Manufacturer *string `json:"manufacturer"`
	BatchNumber  *string `json:"batchNumber"`
}

// ApplyTo applies the changes to m.
func (r UpdateMedicineRequest) ApplyTo(m *inventory.Medicine) *inventory.Medicine {
	r.ItemUpdate.applyTo(&m.Item)
	if r.MedicineID != nil {
		m.MedicineID = *r.MedicineID
	}
	if r.GenericName != nil {
		m.GenericName = *r.GenericName
	}
	if r.Manufacturer != nil {
		m.Manufacturer = *r.Manufacturer
	}
	if r.BatchNumber != nil {
		m.BatchNumber = *r.BatchNumber
	}
	return m
}

// MedicineResponse is a medicine.
type MedicineResponse struct {
	ItemResponse
	MedicineID   string `json:"medicineId"`
	GenericName  string `json:"genericName,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	BatchNumber  string `json:"batchNumber"`
}

// FromMedicine maps a medicine for output.
func FromMedicine(m *inventory.Medicine) MedicineResponse {
	return MedicineResponse{
		ItemResponse: fromItem(m.Item),
		MedicineID:   m.MedicineID,
		GenericName:  m.GenericName,
		Manufacturer: m.Manufacturer,
		BatchNumber:  m.BatchNumber,
	}
}

// --- Chemicals ---

// CreateChemicalRequest creates a chemical.
type CreateChemicalRequest struct {
	ChemicalID string `json:"chemicalId"`
	ItemRequest
	CASNumber   *string `json:"casNumber"`
	Grade       string  `json:"grade"`
	HazardClass string  `json:"hazardClass"`
}

// ToEntity maps the request to a new chemical.
func (r CreateChemicalRequest) ToEntity() *inventory.Chemical {
	c := inventory.NewChemical(r.Name)
	r.ItemRequest.applyTo(&c.Item)
	c.ChemicalID = r.ChemicalID
	c.CASNumber = r.CASNumber
	c.Grade = r.Grade
	c.HazardClass = r.HazardClass
	return c
}

// UpdateChemicalRequest updates a chemical.
type UpdateChemicalRequest struct {
	ChemicalID *string `json:"chemicalId"`
	ItemUpdate
	CASNumber   *string `json:"casNumber"`
	Grade       *string `json:"grade"`
	HazardClass *string `json:"hazardClass"`
}

// ApplyTo applies the changes to c.
func (r UpdateChemicalRequest) ApplyTo(c *inventory.Chemical) *inventory.Chemical {
	r.ItemUpdate.applyTo(&c.Item)
	if r.ChemicalID != nil {
		c.ChemicalID = *r.ChemicalID
	}
	if r.CASNumber != nil {
		c.CASNumber = r.CASNumber
	}
	if r.Grade != nil {
		c.Grade = *r.Grade
	}
	if r.HazardClass != nil {
		c.HazardClass = *r.HazardClass
	}
	return c
}

// ChemicalResponse is a chemical.
type ChemicalResponse struct {
	ItemResponse
	ChemicalID  string  `json:"chemicalId"`
	CASNumber   *string `json:"casNumber,omitempty"`
	Grade       string  `json:"grade,omitempty"`
	HazardClass string  `json:"hazardClass,omitempty"`
}

// FromChemical maps a chemical for output.
func FromChemical(c *inventory.Chemical) ChemicalResponse {
	return ChemicalResponse{
		ItemResponse: fromItem(c.Item),
		ChemicalID:   c.ChemicalID,
		CASNumber:    c.CASNumber,
		Grade:        c.Grade,
		HazardClass:  c.HazardClass,
	}
}

// --- Equipment ---

// CreateEquipmentRequest creates a device. Quantity defaults to 1.
type CreateEquipmentRequest struct {
	EquipmentID string `json:"equipmentId"`
	ItemRequest
	SerialNumber        string `json:"serialNumber" binding:"required"`
	Model               string `json:"model"`
	Manufacturer        string `json:"manufacturer"`
	Status              string `json:"status"`
	Location            string `json:"location"`
	PurchaseDate        *Date  `json:"purchaseDate"`
	NextMaintenanceDate *Date  `json:"nextMaintenanceDate"`
}

// ToEntity maps the request to a new device.
func (r CreateEquipmentRequest) ToEntity() *inventory.Equipment {
	e := inventory.NewEquipment(r.Name, r.SerialNumber)
	qty := e.Quantity
	r.ItemRequest.applyTo(&e.Item)
	if r.Quantity == 0 {
		e.Quantity = qty
	}
	e.EquipmentID = r.EquipmentID
	e.Model = r.Model
	e.Manufacturer = r.Manufacturer
	if r.Status != "" {
		e.Status = inventory.EquipmentStatus(r.Status)
	}
	e.Location = r.Location
	e.PurchaseDate = r.PurchaseDate.TimePtr()
	e.NextMaintenanceDate = r.NextMaintenanceDate.TimePtr()
	return e
}

// UpdateEquipmentRequest updates a device.
type UpdateEquipmentRequest struct {
	EquipmentID *string `json:"equipmentId"`
	ItemUpdate
	SerialNumber        *string `json:"serialNumber"`
	Model               *string `json:"model"`
	Manufacturer        *string `json:"manufacturer"`
	Status              *string `json:"status"`
	Location            *string `json:"location"`
	PurchaseDate        *Date   `json:"purchaseDate"`
	NextMaintenanceDate *Date   `json:"nextMaintenanceDate"`
}

// ApplyTo applies the changes to e.
func (r UpdateEquipmentRequest) ApplyTo(e *inventory.Equipment) *inventory.Equipment {
	r.ItemUpdate.applyTo(&e.Item)
	if r.EquipmentID != nil {
		e.EquipmentID = *r.EquipmentID
	}
	if r.SerialNumber != nil {
		e.SerialNumber = *r.SerialNumber
	}
	if r.Model != nil {
		e.Model = *r.Model
	}
	if r.Manufacturer != nil {
		e.Manufacturer = *r.Manufacturer
	}
	if r.Status != nil {
		e.Status = inventory.EquipmentStatus(*r.Status)
	}
	if r.Location != nil {
		e.Location = *r.Location
	}
	if r.PurchaseDate != nil {
		e.PurchaseDate = r.PurchaseDate.TimePtr()
	}
	if r.NextMaintenanceDate != nil {
		e.NextMaintenanceDate = r.NextMaintenanceDate.TimePtr()
	}
	return e
}

// EquipmentResponse is a device.
type EquipmentResponse struct {
	ItemResponse
	EquipmentID         string `json:"equipmentId"`
	SerialNumber        string `json:"serialNumber"`
	Model               string `json:"model,omitempty"`
	Manufacturer        string `json:"manufacturer,omitempty"`
	Status              string `json:"status"`
	Location            string `json:"location,omitempty"`
	PurchaseDate        *Date  `json:"purchaseDate,omitempty"`
	NextMaintenanceDate *Date  `json:"nextMaintenanceDate,omitempty"`
}

// FromEquipment maps a device for output.
func FromEquipment(e *inventory.Equipment) EquipmentResponse {
	return EquipmentResponse{
		ItemResponse:        fromItem(e.Item),
		EquipmentID:         e.EquipmentID,
		SerialNumber:        e.SerialNumber,
		Model:               e.Model,
		Manufacturer:        e.Manufacturer,
		Status:              string(e.Status),
		Location:            e.Location,
		PurchaseDate:        DatePtr(e.PurchaseDate),
		NextMaintenanceDate: DatePtr(e.NextMaintenanceDate),
	}
}
