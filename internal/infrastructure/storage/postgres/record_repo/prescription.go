package record_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/prescriptions"
	"pharmadesk/internal/infrastructure/storage/postgres"
)

const prescriptionItemsTable = "prescription_items"

var prescriptionItemColumns = []string{"line_no", "medicine_id", "dosage", "frequency", "duration_days", "quantity"}

// PrescriptionRepo stores prescriptions with their items.
type PrescriptionRepo struct {
	*BaseRepo[*prescriptions.Prescription]
}

// NewPrescriptionRepo creates the prescriptions repository.
func NewPrescriptionRepo(db QuerierProvider) *PrescriptionRepo {
	return &PrescriptionRepo{
		BaseRepo: NewBaseRepo(db, Table{
			Name:             "prescriptions",
			BusinessIDColumn: "prescription_number",
			SearchColumns:    []string{"prescription_number", "prescriber"},
			DefaultOrder:     "issued_date DESC, prescription_number DESC",
			Errors: postgres.ErrorTranslator{
				Entity: "prescription",
				Constraints: map[string]string{
					"uq_prescriptions_prescription_number": "prescription_number",
					"fk_prescriptions_patient":             "patient_id",
					"chk_prescriptions_status":             "status",
					"fk_prescription_items_medicine":       "items.medicine_id",
					"chk_prescription_items_quantity":      "items.quantity",
				},
			},
		}, postgres.ExtractDBColumns[*prescriptions.Prescription](), func() *prescriptions.Prescription { return &prescriptions.Prescription{} }),
	}
}

// Create inserts the prescription and its items.
func (r *PrescriptionRepo) Create(ctx context.Context, p *prescriptions.Prescription) error {
	if err := r.BaseRepo.Create(ctx, p); err != nil {
		return err
	}
	return r.SaveItems(ctx, p.ID, p.Items)
}

// Update stores the header and replaces the items.
func (r *PrescriptionRepo) Update(ctx context.Context, p *prescriptions.Prescription) error {
	if err := r.BaseRepo.Update(ctx, p); err != nil {
		return err
	}
	return r.SaveItems(ctx, p.ID, p.Items)
}

// GetByID retrieves a prescription with its items.
func (r *PrescriptionRepo) GetByID(ctx context.Context, prescriptionID id.ID) (*prescriptions.Prescription, error) {
	p, err := r.BaseRepo.GetByID(ctx, prescriptionID)
	if err != nil {
		return p, err
	}
	return p, r.loadItems(ctx, p)
}

// GetByBusinessID retrieves a prescription by number with its items.
func (r *PrescriptionRepo) GetByBusinessID(ctx context.Context, number string) (*prescriptions.Prescription, error) {
	p, err := r.BaseRepo.GetByBusinessID(ctx, number)
	if err != nil {
		return p, err
	}
	return p, r.loadItems(ctx, p)
}

func (r *PrescriptionRepo) loadItems(ctx context.Context, p *prescriptions.Prescription) error {
	items, err := r.GetItems(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Items = items
	return nil
}

// GetItems retrieves the items of a prescription.
func (r *PrescriptionRepo) GetItems(ctx context.Context, prescriptionID id.ID) ([]prescriptions.Item, error) {
	sql, args, err := r.Builder().
		Select(prescriptionItemColumns...).
		From(prescriptionItemsTable).
		Where(squirrel.Eq{"prescription_id": prescriptionID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := []prescriptions.Item{}
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get prescription items: %w", err)
	}
	return items, nil
}

// SaveItems replaces the items of a prescription.
func (r *PrescriptionRepo) SaveItems(ctx context.Context, prescriptionID id.ID, items []prescriptions.Item) error {
	querier := r.Querier(ctx)

	if _, err := querier.Exec(ctx, "DELETE FROM "+prescriptionItemsTable+" WHERE prescription_id = $1", prescriptionID); err != nil {
		return fmt.Errorf("delete existing items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(prescriptionItemsTable).
		Columns(append([]string{"prescription_id"}, prescriptionItemColumns...)...)
	for _, it := range items {
		q = q.Values(prescriptionID, it.LineNo, it.MedicineID, it.Dosage, it.Frequency, it.DurationDays, it.Quantity)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return r.Translate(err)
	}
	return nil
}

func prescriptionConditions(f prescriptions.Filter) []squirrel.Sqlizer {
	var conds []squirrel.Sqlizer
	if f.PatientID != nil {
		conds = append(conds, squirrel.Eq{"patient_id": *f.PatientID})
	}
	if f.Status != "" {
		conds = append(conds, squirrel.Eq{"status": f.Status})
	}
	if f.DateFrom != nil {
		conds = append(conds, squirrel.GtOrEq{"issued_date": *f.DateFrom})
	}
	if f.DateTo != nil {
		conds = append(conds, squirrel.LtOrEq{"issued_date": *f.DateTo})
	}
	return conds
}

// List retrieves prescription headers matching f. Items are not loaded.
func (r *PrescriptionRepo) List(ctx context.Context, f prescriptions.Filter) (domain.ListResult[*prescriptions.Prescription], error) {
	return r.BaseRepo.List(ctx, f.ListFilter, prescriptionConditions(f)...)
}
