// Package inventory provides the stocked record types of the clinic:
// medicines, laboratory chemicals and equipment.
package inventory

import (
	"context"
	"regexp"
	"strings"
	"time"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/entity"
	"pharmadesk/internal/core/types"
)

var casNumberRE = regexp.MustCompile(`^\d{2,7}-\d{2}-\d$`)

// Kind identifies an inventory table.
type Kind string

const (
	KindMedicine  Kind = "medicine"
	KindChemical  Kind = "chemical"
	KindEquipment Kind = "equipment"
)

// Kinds lists every inventory kind.
var Kinds = []Kind{KindMedicine, KindChemical, KindEquipment}

// ParseKind accepts the singular or plural form used in URLs.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "medicine", "medicines":
		return KindMedicine, nil
	case "chemical", "chemicals":
		return KindChemical, nil
	case "equipment":
		return KindEquipment, nil
	}
	return "", apperror.NewValidation("unknown inventory kind").WithDetail("kind", s)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMedicine, KindChemical, KindEquipment:
		return true
	}
	return false
}

// Item holds the stock fields shared by every inventory kind.
type Item struct {
	entity.BaseEntity

	Name     string `db:"name" json:"name"`
	Category string `db:"category" json:"category"`

	// ExpiryDate is nil for items that do not expire
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// Quantity on hand. Changed only through stock movements.
	Quantity int64 `db:"quantity" json:"quantity"`

	// ReorderLevel marks the item as low stock when Quantity falls to it
	ReorderLevel int64 `db:"reorder_level" json:"reorderLevel"`

	Unit        string      `db:"unit" json:"unit"`
	UnitPrice   types.Money `db:"unit_price" json:"unitPrice"`
	Description string      `db:"description" json:"description,omitempty"`
}

func newItem(name, unit string) Item {
	return Item{
		BaseEntity: entity.NewBaseEntity(),
		Name:       name,
		Unit:       unit,
	}
}

// StockItem returns the shared stock fields.
func (i *Item) StockItem() *Item {
	return i
}

// IsLowStock reports whether the quantity is at or below the reorder level.
func (i *Item) IsLowStock() bool {
	return i.Quantity <= i.ReorderLevel
}

// ExpiresWithin reports whether the item expires within d of now.
func (i *Item) ExpiresWithin(now time.Time, d time.Duration) bool {
	return i.ExpiryDate != nil && !i.ExpiryDate.After(now.Add(d))
}

func (i *Item) validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if len(i.Name) > 200 {
		return apperror.NewValidation("name is too long").
			WithDetail("field", "name").
			WithDetail("max", 200)
	}
	if strings.TrimSpace(i.Unit) == "" {
		return apperror.NewValidation("unit is required").WithDetail("field", "unit")
	}
	if i.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative").WithDetail("field", "quantity")
	}
	if i.ReorderLevel < 0 {
		return apperror.NewValidation("reorder level cannot be negative").WithDetail("field", "reorderLevel")
	}
	if i.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	}
	return nil
}

// Medicine is a dispensable drug batch.
type Medicine struct {
	Item

	// MedicineID is the business ID (MED00001)
	MedicineID string `db:"medicine_id" json:"medicineId"`

	GenericName  string `db:"generic_name" json:"genericName,omitempty"`
	Manufacturer string `db:"manufacturer" json:"manufacturer,omitempty"`

	// BatchNumber is unique across all medicines
	BatchNumber string `db:"batch_number" json:"batchNumber"`
}

// NewMedicine creates a medicine with required fields.
func NewMedicine(name, batchNumber string) *Medicine {
	return &Medicine{
		Item:        newItem(name, "unit"),
		BatchNumber: batchNumber,
	}
}

func (m *Medicine) BusinessID() string      { return m.MedicineID }
func (m *Medicine) SetBusinessID(v string)  { m.MedicineID = v }
func (m *Medicine) BusinessIDField() string { return "medicine_id" }
func (m *Medicine) Kind() Kind              { return KindMedicine }

// Validate implements entity.Validatable interface.
func (m *Medicine) Validate(ctx context.Context) error {
	if err := m.Item.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(m.BatchNumber) == "" {
		return apperror.NewValidation("batch number is required").WithDetail("field", "batchNumber")
	}
	return nil
}

// Chemical is a laboratory reagent.
type Chemical struct {
	Item

	// ChemicalID is the business ID (CHM00001)
	ChemicalID string `db:"chemical_id" json:"chemicalId"`

	// CASNumber is unique when set; mixtures have none
	CASNumber   *string `db:"cas_number" json:"casNumber,omitempty"`
	Grade       string  `db:"grade" json:"grade,omitempty"`
	HazardClass string  `db:"hazard_class" json:"hazardClass,omitempty"`
}

// NewChemical creates a chemical with required fields.
func NewChemical(name string) *Chemical {
	return &Chemical{
		Item: newItem(name, "ml"),
	}
}

func (c *Chemical) BusinessID() string      { return c.ChemicalID }
func (c *Chemical) SetBusinessID(v string)  { c.ChemicalID = v }
func (c *Chemical) BusinessIDField() string { return "chemical_id" }
func (c *Chemical) Kind() Kind              { return KindChemical }

// Validate implements entity.Validatable interface.
func (c *Chemical) Validate(ctx context.Context) error {
	if err := c.Item.validate(); err != nil {
		return err
	}
	if c.CASNumber != nil {
		cas := strings.TrimSpace(*c.CASNumber)
		if cas == "" {
			c.CASNumber = nil
		} else if !casNumberRE.MatchString(cas) {
			return apperror.NewValidation("invalid CAS number format").
				WithDetail("field", "casNumber").
				WithDetail("value", cas)
		}
	}
	return nil
}

// EquipmentStatus is the operational state of a device.
type EquipmentStatus string

const (
	EquipmentOperational EquipmentStatus = "operational"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentRetired     EquipmentStatus = "retired"
)

// Equipment is a tracked device or instrument.
type Equipment struct {
	Item

	// EquipmentID is the business ID (EQP00001)
	EquipmentID string `db:"equipment_id" json:"equipmentId"`

	// SerialNumber is unique across all equipment
	SerialNumber string          `db:"serial_number" json:"serialNumber"`
	Model        string          `db:"model" json:"model,omitempty"`
	Manufacturer string          `db:"manufacturer" json:"manufacturer,omitempty"`
	Status       EquipmentStatus `db:"status" json:"status"`
	Location     string          `db:"location" json:"location,omitempty"`

	PurchaseDate        *time.Time `db:"purchase_date" json:"purchaseDate,omitempty"`
	NextMaintenanceDate *time.Time `db:"next_maintenance_date" json:"nextMaintenanceDate,omitempty"`
}

// NewEquipment creates an operational device with quantity 1.
func NewEquipment(name, serialNumber string) *Equipment {
	e := &Equipment{
		Item:         newItem(name, "unit"),
		SerialNumber: serialNumber,
		Status:       EquipmentOperational,
	}
	e.Quantity = 1
	return e
}

func (e *Equipment) BusinessID() string      { return e.EquipmentID }
func (e *Equipment) SetBusinessID(v string)  { e.EquipmentID = v }
func (e *Equipment) BusinessIDField() string { return "equipment_id" }
func (e *Equipment) Kind() Kind              { return KindEquipment }

// Validate implements entity.Validatable interface.
func (e *Equipment) Validate(ctx context.Context) error {
	if err := e.Item.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.SerialNumber) == "" {
		return apperror.NewValidation("serial number is required").WithDetail("field", "serialNumber")
	}
	switch e.Status {
	case EquipmentOperational, EquipmentMaintenance, EquipmentRetired:
	default:
		return apperror.NewValidation("invalid equipment status").
			WithDetail("field", "status").
			WithDetail("value", string(e.Status))
	}
	if e.PurchaseDate != nil && e.NextMaintenanceDate != nil && e.NextMaintenanceDate.Before(*e.PurchaseDate) {
		return apperror.NewValidation("next maintenance date is before purchase date").
			WithDetail("field", "nextMaintenanceDate")
	}
	return nil
}
