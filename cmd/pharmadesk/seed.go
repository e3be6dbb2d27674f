package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pharmadesk/internal/app"
	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/types"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/domain/orders"
	"pharmadesk/internal/domain/patients"
	"pharmadesk/internal/domain/prescriptions"
	"pharmadesk/pkg/logger"
)

func seedCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create demo records through the ID allocator",
		Long: "Create demo medicines, chemicals, equipment, patients, a purchase order and a\n" +
			"prescription. Every record receives its business ID from the sequence counters.\n" +
			"Records whose unique fields already exist are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			ctx := commandContext(cmd)
			svc, err := env.services(ctx)
			if err != nil {
				return err
			}

			s := &seeder{svc: svc, log: env.log, today: time.Now().UTC().Truncate(24 * time.Hour)}
			if err := s.run(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d record(s), skipped %d\n", s.created, s.skipped)
			return nil
		},
	}
}

type seeder struct {
	svc   *app.Services
	log   *logger.Logger
	today time.Time

	created int
	skipped int
}

// keep counts a create result; duplicates on unique fields are skipped.
func (s *seeder) keep(kind string, businessID string, err error) (bool, error) {
	if err == nil {
		s.created++
		s.log.Infow("seeded", "kind", kind, "business_id", businessID)
		return true, nil
	}
	if field, ok := apperror.DuplicateField(err); ok {
		s.skipped++
		s.log.Infow("seed record exists, skipped", "kind", kind, "field", field)
		return false, nil
	}
	return false, fmt.Errorf("seed %s: %w", kind, err)
}

func (s *seeder) run(ctx context.Context) error {
	medicineIDs, err := s.medicines(ctx)
	if err != nil {
		return err
	}
	chemicalIDs, err := s.chemicals(ctx)
	if err != nil {
		return err
	}
	if err := s.equipment(ctx); err != nil {
		return err
	}
	patientIDs, err := s.patients(ctx)
	if err != nil {
		return err
	}

	if len(medicineIDs) > 0 || len(chemicalIDs) > 0 {
		o := orders.NewPurchaseOrder("MedSupply Ltd", s.today)
		for _, mID := range medicineIDs {
			o.AddLine(inventory.KindMedicine, mID, 100, types.MustMoney("0.45"))
		}
		for _, cID := range chemicalIDs {
			o.AddLine(inventory.KindChemical, cID, 5, types.MustMoney("12.50"))
		}
		created, err := s.svc.Orders.Create(ctx, o)
		if _, err := s.keep("purchase_order", created.OrderNumber, err); err != nil {
			return err
		}
	}

	if len(patientIDs) > 0 && len(medicineIDs) > 0 {
		p := prescriptions.NewPrescription(patientIDs[0], "Dr. Grey", s.today)
		p.AddItem(prescriptions.Item{
			MedicineID:   medicineIDs[0],
			Dosage:       "500 mg",
			Frequency:    "3x daily",
			DurationDays: 7,
			Quantity:     21,
		})
		created, err := s.svc.Prescriptions.Create(ctx, p)
		if _, err := s.keep("prescription", created.PrescriptionNumber, err); err != nil {
			return err
		}
	}

	return nil
}

func (s *seeder) medicines(ctx context.Context) ([]id.ID, error) {
	demo := []struct {
		name, generic, category, batch, price string
		qty, reorder                          int64
		expiresIn                             time.Duration
	}{
		{"Amoxil 500", "Amoxicillin", "antibiotic", "AMX-2401", "0.45", 400, 100, 365 * 24 * time.Hour},
		{"Panadol", "Paracetamol", "analgesic", "PCM-2407", "0.10", 1200, 300, 540 * 24 * time.Hour},
		{"Ventolin", "Salbutamol", "bronchodilator", "SAL-2311", "4.20", 20, 25, 20 * 24 * time.Hour},
	}

	var ids []id.ID
	for _, d := range demo {
		m := inventory.NewMedicine(d.name, d.batch)
		m.GenericName = d.generic
		m.Category = d.category
		m.Quantity = d.qty
		m.ReorderLevel = d.reorder
		m.UnitPrice = types.MustMoney(d.price)
		expiry := s.today.Add(d.expiresIn)
		m.ExpiryDate = &expiry

		created, err := s.svc.Medicines.Create(ctx, m)
		ok, err := s.keep("medicine", created.MedicineID, err)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, created.ID)
		}
	}
	return ids, nil
}

func (s *seeder) chemicals(ctx context.Context) ([]id.ID, error) {
	demo := []struct{ name, cas, grade, hazard string }{
		{"Ethanol 96%", "64-17-5", "analytical", "flammable"},
		{"Sodium chloride", "7647-14-5", "reagent", ""},
	}

	var ids []id.ID
	for _, d := range demo {
		c := inventory.NewChemical(d.name)
		cas := d.cas
		c.CASNumber = &cas
		c.Grade = d.grade
		c.HazardClass = d.hazard
		c.Quantity = 2000

		created, err := s.svc.Chemicals.Create(ctx, c)
		ok, err := s.keep("chemical", created.ChemicalID, err)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, created.ID)
		}
	}
	return ids, nil
}

func (s *seeder) equipment(ctx context.Context) error {
	demo := []struct{ name, serial, model string }{
		{"Centrifuge", "CF-99812", "Heraeus Megafuge 8"},
		{"Blood pressure monitor", "BP-10023", "Omron M3"},
	}

	for _, d := range demo {
		e := inventory.NewEquipment(d.name, d.serial)
		e.Model = d.model
		next := s.today.AddDate(0, 6, 0)
		e.NextMaintenanceDate = &next

		created, err := s.svc.Equipment.Create(ctx, e)
		if _, err := s.keep("equipment", created.EquipmentID, err); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) patients(ctx context.Context) ([]id.ID, error) {
	demo := []struct{ first, last, email, birth string }{
		{"Maria", "Lopez", "maria.lopez@example.com", "1984-03-12"},
		{"John", "Okafor", "john.okafor@example.com", "1979-11-02"},
	}

	var ids []id.ID
	for _, d := range demo {
		p := patients.NewPatient(d.first, d.last)
		email := d.email
		p.Email = &email
		if birth, err := time.Parse("2006-01-02", d.birth); err == nil {
			p.BirthDate = &birth
		}

		created, err := s.svc.Patients.Create(ctx, p)
		ok, err := s.keep("patient", created.PatientID, err)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, created.ID)
		}
	}
	return ids, nil
}
