package dto

import (
	"pharmadesk/internal/domain/patients"
)

// CreatePatientRequest registers a patient.
type CreatePatientRequest struct {
	PatientID string  `json:"patientId"`
	FirstName string  `json:"firstName" binding:"required,max=100"`
	LastName  string  `json:"lastName" binding:"required,max=100"`
	BirthDate *Date   `json:"birthDate"`
	Gender    string  `json:"gender"`
	Phone     string  `json:"phone"`
	Email     *string `json:"email"`
	Address   string  `json:"address"`
	Allergies string  `json:"allergies"`
}

// ToEntity maps the request to a new patient.
func (r CreatePatientRequest) ToEntity() *patients.Patient {
	p := patients.NewPatient(r.FirstName, r.LastName)
	p.PatientID = r.PatientID
	p.BirthDate = r.BirthDate.TimePtr()
	p.Gender = patients.Gender(r.Gender)
	p.Phone = r.Phone
	p.Email = r.Email
	p.Address = r.Address
	p.Allergies = r.Allergies
	return p
}

// UpdatePatientRequest updates a patient.
type UpdatePatientRequest struct {
	PatientID *string `json:"patientId"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	BirthDate *Date   `json:"birthDate"`
	Gender    *string `json:"gender"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
	Allergies *string `json:"allergies"`
	Version   int     `json:"version" binding:"required,min=1"`
}

// ApplyTo applies the changes to p. An empty email clears it.
func (r UpdatePatientRequest) ApplyTo(p *patients.Patient) *patients.Patient {
	if r.PatientID != nil {
		p.PatientID = *r.PatientID
	}
	if r.FirstName != nil {
		p.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		p.LastName = *r.LastName
	}
	if r.BirthDate != nil {
		p.BirthDate = r.BirthDate.TimePtr()
	}
	if r.Gender != nil {
		p.Gender = patients.Gender(*r.Gender)
	}
	if r.Phone != nil {
		p.Phone = *r.Phone
	}
	if r.Email != nil {
		p.Email = r.Email
	}
	if r.Address != nil {
		p.Address = *r.Address
	}
	if r.Allergies != nil {
		p.Allergies = *r.Allergies
	}
	p.Version = r.Version
	return p
}

// PatientResponse is a patient.
type PatientResponse struct {
	BaseResponse
	PatientID string  `json:"patientId"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	FullName  string  `json:"fullName"`
	BirthDate *Date   `json:"birthDate,omitempty"`
	Gender    string  `json:"gender,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Address   string  `json:"address,omitempty"`
	Allergies string  `json:"allergies,omitempty"`
}

// FromPatient maps a patient for output.
func FromPatient(p *patients.Patient) PatientResponse {
	return PatientResponse{
		BaseResponse: FromBase(p.BaseEntity),
		PatientID:    p.PatientID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		FullName:     p.FullName(),
		BirthDate:    DatePtr(p.BirthDate),
		Gender:       string(p.Gender),
		Phone:        p.Phone,
		Email:        p.Email,
		Address:      p.Address,
		Allergies:    p.Allergies,
	}
}
