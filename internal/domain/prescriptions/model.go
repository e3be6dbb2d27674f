// Package prescriptions provides prescriptions issued to patients and
// their dispensing from medicine stock.
package prescriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/entity"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain"
)

const (
	StatusActive    entity.Status = "active"
	StatusDispensed entity.Status = "dispensed"
	StatusCancelled entity.Status = "cancelled"
)

// Item is one prescribed medicine.
type Item struct {
	LineNo       int    `db:"line_no" json:"lineNo"`
	MedicineID   id.ID  `db:"medicine_id" json:"medicineId"`
	Dosage       string `db:"dosage" json:"dosage"`
	Frequency    string `db:"frequency" json:"frequency,omitempty"`
	DurationDays int    `db:"duration_days" json:"durationDays,omitempty"`

	// Quantity is the number of units dispensed
	Quantity int64 `db:"quantity" json:"quantity"`
}

// Prescription is an order from a prescriber to dispense medicines.
type Prescription struct {
	entity.Document

	// PrescriptionNumber is the business ID (RX-202501-0001)
	PrescriptionNumber string `db:"prescription_number" json:"prescriptionNumber"`

	PatientID   id.ID      `db:"patient_id" json:"patientId"`
	Prescriber  string     `db:"prescriber" json:"prescriber"`
	IssuedDate  time.Time  `db:"issued_date" json:"issuedDate"`
	DispensedAt *time.Time `db:"dispensed_at" json:"dispensedAt,omitempty"`
	Notes       string     `db:"notes" json:"notes,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// NewPrescription creates an active prescription.
func NewPrescription(patientID id.ID, prescriber string, issued time.Time) *Prescription {
	return &Prescription{
		Document:   entity.NewDocument(StatusActive),
		PatientID:  patientID,
		Prescriber: prescriber,
		IssuedDate: issued,
	}
}

func (p *Prescription) BusinessID() string      { return p.PrescriptionNumber }
func (p *Prescription) SetBusinessID(v string)  { p.PrescriptionNumber = v }
func (p *Prescription) BusinessIDField() string { return "prescription_number" }

// AddItem appends an item.
func (p *Prescription) AddItem(item Item) {
	p.Items = append(p.Items, item)
	p.renumber()
}

func (p *Prescription) renumber() {
	for i := range p.Items {
		p.Items[i].LineNo = i + 1
	}
}

// Validate implements entity.Validatable interface.
func (p *Prescription) Validate(ctx context.Context) error {
	if id.IsNil(p.PatientID) {
		return apperror.NewValidation("patient is required").WithDetail("field", "patientId")
	}
	if strings.TrimSpace(p.Prescriber) == "" {
		return apperror.NewValidation("prescriber is required").WithDetail("field", "prescriber")
	}
	if p.IssuedDate.IsZero() {
		return apperror.NewValidation("issued date is required").WithDetail("field", "issuedDate")
	}
	if len(p.Items) == 0 {
		return apperror.NewValidation("prescription must have at least one item").WithDetail("field", "items")
	}
	for i, it := range p.Items {
		field := fmt.Sprintf("items[%d]", i)
		if id.IsNil(it.MedicineID) {
			return apperror.NewValidation("medicine is required").WithDetail("field", field+".medicineId")
		}
		if strings.TrimSpace(it.Dosage) == "" {
			return apperror.NewValidation("dosage is required").WithDetail("field", field+".dosage")
		}
		if it.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").WithDetail("field", field+".quantity")
		}
		if it.DurationDays < 0 {
			return apperror.NewValidation("duration cannot be negative").WithDetail("field", field+".durationDays")
		}
	}
	return nil
}

// MarkDispensed moves an active prescription to dispensed.
func (p *Prescription) MarkDispensed(at time.Time) error {
	if err := p.Transition(StatusDispensed, StatusActive); err != nil {
		return err
	}
	p.DispensedAt = &at
	return nil
}

// Cancel cancels an active prescription.
func (p *Prescription) Cancel() error {
	return p.Transition(StatusCancelled, StatusActive)
}

// Filter narrows prescription lists.
type Filter struct {
	domain.ListFilter
	PatientID *id.ID
	Status    entity.Status
	DateFrom  *time.Time
	DateTo    *time.Time
}
