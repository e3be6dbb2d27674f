// Package patients provides the patient register of the clinic.
package patients

import (
	"context"
	"regexp"
	"strings"
	"time"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/entity"
	"pharmadesk/internal/domain"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Gender as recorded at registration.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderOther   Gender = "other"
)

// Patient is a registered clinic patient.
type Patient struct {
	entity.BaseEntity

	// PatientID is the business ID (PAT00001)
	PatientID string `db:"patient_id" json:"patientId"`

	FirstName string     `db:"first_name" json:"firstName"`
	LastName  string     `db:"last_name" json:"lastName"`
	BirthDate *time.Time `db:"birth_date" json:"birthDate,omitempty"`
	Gender    Gender     `db:"gender" json:"gender,omitempty"`
	Phone     string     `db:"phone" json:"phone,omitempty"`

	// Email is unique (case-insensitive) when set
	Email *string `db:"email" json:"email,omitempty"`

	Address   string `db:"address" json:"address,omitempty"`
	Allergies string `db:"allergies" json:"allergies,omitempty"`
}

// NewPatient creates a patient with required fields.
func NewPatient(firstName, lastName string) *Patient {
	return &Patient{
		BaseEntity: entity.NewBaseEntity(),
		FirstName:  firstName,
		LastName:   lastName,
	}
}

func (p *Patient) BusinessID() string      { return p.PatientID }
func (p *Patient) SetBusinessID(v string)  { p.PatientID = v }
func (p *Patient) BusinessIDField() string { return "patient_id" }

// FullName returns "First Last".
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Validate implements entity.Validatable interface.
func (p *Patient) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.FirstName) == "" {
		return apperror.NewValidation("first name is required").WithDetail("field", "firstName")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return apperror.NewValidation("last name is required").WithDetail("field", "lastName")
	}
	if p.BirthDate != nil && p.BirthDate.After(time.Now()) {
		return apperror.NewValidation("birth date is in the future").WithDetail("field", "birthDate")
	}
	switch p.Gender {
	case GenderUnknown, GenderFemale, GenderMale, GenderOther:
	default:
		return apperror.NewValidation("invalid gender").
			WithDetail("field", "gender").
			WithDetail("value", string(p.Gender))
	}
	if p.Email != nil {
		email := strings.TrimSpace(*p.Email)
		if email == "" {
			p.Email = nil
		} else if !emailRE.MatchString(email) {
			return apperror.NewValidation("invalid email format").WithDetail("field", "email")
		} else {
			p.Email = &email
		}
	}
	return nil
}

// Filter narrows patient lists. Search matches name, patient ID, phone and email.
type Filter struct {
	domain.ListFilter
	BornAfter  *time.Time
	BornBefore *time.Time
}
