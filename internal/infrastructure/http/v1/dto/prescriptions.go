package dto

import (
	"fmt"
	"time"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain/prescriptions"
)

// PrescriptionItemRequest is one prescribed medicine.
type PrescriptionItemRequest struct {
	MedicineID   string `json:"medicineId" binding:"required"`
	Dosage       string `json:"dosage" binding:"required"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"durationDays" binding:"min=0"`
	Quantity     int64  `json:"quantity" binding:"required,min=1"`
}

// CreatePrescriptionRequest issues a prescription.
type CreatePrescriptionRequest struct {
	PrescriptionNumber string                    `json:"prescriptionNumber"`
	PatientID          string                    `json:"patientId" binding:"required"`
	Prescriber         string                    `json:"prescriber" binding:"required,max=200"`
	IssuedDate         *Date                     `json:"issuedDate"`
	Notes              string                    `json:"notes"`
	Items              []PrescriptionItemRequest `json:"items" binding:"required,min=1,dive"`
}

func setPrescriptionItems(p *prescriptions.Prescription, items []PrescriptionItemRequest) error {
	p.Items = nil
	for i, it := range items {
		medID, err := id.Parse(it.MedicineID)
		if err != nil {
			return apperror.NewValidation("invalid medicine id").
				WithDetail("field", fmt.Sprintf("items[%d].medicineId", i)).
				WithDetail("value", it.MedicineID)
		}
		p.AddItem(prescriptions.Item{
			MedicineID:   medID,
			Dosage:       it.Dosage,
			Frequency:    it.Frequency,
			DurationDays: it.DurationDays,
			Quantity:     it.Quantity,
		})
	}
	return nil
}

// ToEntity maps the request to a new prescription.
func (r CreatePrescriptionRequest) ToEntity(today time.Time) (*prescriptions.Prescription, error) {
	patientID, err := id.Parse(r.PatientID)
	if err != nil {
		return nil, apperror.NewValidation("invalid patient id").
			WithDetail("field", "patientId").
			WithDetail("value", r.PatientID)
	}
	issued := today
	if t := r.IssuedDate.TimePtr(); t != nil {
		issued = *t
	}
	p := prescriptions.NewPrescription(patientID, r.Prescriber, issued)
	p.PrescriptionNumber = r.PrescriptionNumber
	p.Notes = r.Notes
	if err := setPrescriptionItems(p, r.Items); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePrescriptionRequest updates an active prescription.
type UpdatePrescriptionRequest struct {
	PrescriptionNumber *string                   `json:"prescriptionNumber"`
	Prescriber         *string                   `json:"prescriber"`
	IssuedDate         *Date                     `json:"issuedDate"`
	Notes              *string                   `json:"notes"`
	Comment            *string                   `json:"comment"`
	Items              []PrescriptionItemRequest `json:"items" binding:"omitempty,dive"`
	Version            int                       `json:"version" binding:"required,min=1"`
}

// ApplyTo applies the changes to p.
func (r UpdatePrescriptionRequest) ApplyTo(p *prescriptions.Prescription) (*prescriptions.Prescription, error) {
	if r.PrescriptionNumber != nil {
		p.PrescriptionNumber = *r.PrescriptionNumber
	}
	if r.Prescriber != nil {
		p.Prescriber = *r.Prescriber
	}
	if t := r.IssuedDate.TimePtr(); t != nil {
		p.IssuedDate = *t
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
	if r.Comment != nil {
		p.Comment = *r.Comment
	}
	if r.Items != nil {
		if err := setPrescriptionItems(p, r.Items); err != nil {
			return nil, err
		}
	}
	p.Version = r.Version
	return p, nil
}

// PrescriptionItemResponse is one prescribed medicine.
type PrescriptionItemResponse struct {
	LineNo       int    `json:"lineNo"`
	MedicineID   string `json:"medicineId"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency,omitempty"`
	DurationDays int    `json:"durationDays,omitempty"`
	Quantity     int64  `json:"quantity"`
}

// PrescriptionResponse is a prescription.
type PrescriptionResponse struct {
	DocumentResponse
	PrescriptionNumber string                     `json:"prescriptionNumber"`
	PatientID          string                     `json:"patientId"`
	Prescriber         string                     `json:"prescriber"`
	IssuedDate         Date                       `json:"issuedDate"`
	DispensedAt        *time.Time                 `json:"dispensedAt,omitempty"`
	Notes              string                     `json:"notes,omitempty"`
	Items              []PrescriptionItemResponse `json:"items"`
}

// FromPrescription maps a prescription for output.
func FromPrescription(p *prescriptions.Prescription) PrescriptionResponse {
	items := make([]PrescriptionItemResponse, len(p.Items))
	for i, it := range p.Items {
		items[i] = PrescriptionItemResponse{
			LineNo:       it.LineNo,
			MedicineID:   it.MedicineID.String(),
			Dosage:       it.Dosage,
			Frequency:    it.Frequency,
			DurationDays: it.DurationDays,
			Quantity:     it.Quantity,
		}
	}
	return PrescriptionResponse{
		DocumentResponse:   FromDocument(p.Document),
		PrescriptionNumber: p.PrescriptionNumber,
		PatientID:          p.PatientID.String(),
		Prescriber:         p.Prescriber,
		IssuedDate:         Date{Time: p.IssuedDate},
		DispensedAt:        p.DispensedAt,
		Notes:              p.Notes,
		Items:              items,
	}
}
