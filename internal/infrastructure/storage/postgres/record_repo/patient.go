package record_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/patients"
	"pharmadesk/internal/infrastructure/storage/postgres"
)

// PatientRepo stores patients.
type PatientRepo struct {
	*BaseRepo[*patients.Patient]
}

// NewPatientRepo creates the patients repository.
func NewPatientRepo(db QuerierProvider) *PatientRepo {
	return &PatientRepo{
		BaseRepo: NewBaseRepo(db, Table{
			Name:             "patients",
			BusinessIDColumn: "patient_id",
			SearchColumns:    []string{"patient_id", "first_name", "last_name", "phone", "email"},
			DefaultOrder:     "last_name ASC, first_name ASC",
			Errors: postgres.ErrorTranslator{
				Entity: "patient",
				Constraints: map[string]string{
					"uq_patients_patient_id": "patient_id",
					"uq_patients_email":      "email",
				},
			},
		}, postgres.ExtractDBColumns[*patients.Patient](), func() *patients.Patient { return &patients.Patient{} }),
	}
}

func patientConditions(f patients.Filter) []squirrel.Sqlizer {
	var conds []squirrel.Sqlizer
	if f.BornAfter != nil {
		conds = append(conds, squirrel.GtOrEq{"birth_date": *f.BornAfter})
	}
	if f.BornBefore != nil {
		conds = append(conds, squirrel.LtOrEq{"birth_date": *f.BornBefore})
	}
	return conds
}

// List retrieves patients matching f.
func (r *PatientRepo) List(ctx context.Context, f patients.Filter) (domain.ListResult[*patients.Patient], error) {
	return r.BaseRepo.List(ctx, f.ListFilter, patientConditions(f)...)
}
