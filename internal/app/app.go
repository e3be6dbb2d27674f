// Package app wires repositories and domain services on a database pool.
package app

import (
	"fmt"

	"pharmadesk/internal/config"
	"pharmadesk/internal/core/allocator"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/domain/orders"
	"pharmadesk/internal/domain/patients"
	"pharmadesk/internal/domain/prescriptions"
	"pharmadesk/internal/domain/sequences"
	"pharmadesk/internal/domain/stock"
	seqstore "pharmadesk/internal/infrastructure/sequence"
	"pharmadesk/internal/infrastructure/storage/postgres"
	"pharmadesk/internal/infrastructure/storage/postgres/record_repo"
)

// Services holds every domain service of the application.
type Services struct {
	TxManager *postgres.TxManager
	Audit     *postgres.AuditService
	Counter   *seqstore.PostgresCounter
	Allocator *allocator.Allocator
	Patterns  map[string]sequence.Pattern

	Medicines     *inventory.Service[*inventory.Medicine]
	Chemicals     *inventory.Service[*inventory.Chemical]
	Equipment     *inventory.Service[*inventory.Equipment]
	Stock         *stock.Service
	Orders        *orders.Service
	Patients      *patients.Service
	Prescriptions *prescriptions.Service
	Sequences     *sequences.Service
}

// NewServices builds repositories and services on pool.
func NewServices(pool *postgres.Pool, cfg *config.Config) (*Services, error) {
	patterns, err := cfg.Patterns()
	if err != nil {
		return nil, err
	}

	txManager := postgres.NewTxManager(pool)

	auditSvc, err := postgres.NewAuditService(txManager, cfg.Audit.CompressThreshold)
	if err != nil {
		return nil, fmt.Errorf("create audit service: %w", err)
	}

	// Counter draws bypass request transactions.
	counter := seqstore.NewPostgresCounter(txManager.Pool())
	alloc := allocator.New(counter, allocator.WithObserver(auditSvc.AllocationObserver()))

	medicineRepo := record_repo.NewMedicineRepo(txManager)
	chemicalRepo := record_repo.NewChemicalRepo(txManager)
	equipmentRepo := record_repo.NewEquipmentRepo(txManager)
	orderRepo := record_repo.NewOrderRepo(txManager)
	patientRepo := record_repo.NewPatientRepo(txManager)
	prescriptionRepo := record_repo.NewPrescriptionRepo(txManager)

	s := &Services{
		TxManager: txManager,
		Audit:     auditSvc,
		Counter:   counter,
		Allocator: alloc,
		Patterns:  patterns,
	}

	s.Medicines = inventory.NewService(inventory.KindMedicine, inventory.Config[*inventory.Medicine]{
		Repo:      medicineRepo,
		TxManager: txManager,
		Allocator: alloc,
		Pattern:   patterns[sequence.MedicinePattern.Name],
		Audit:     auditSvc,
	})
	s.Chemicals = inventory.NewService(inventory.KindChemical, inventory.Config[*inventory.Chemical]{
		Repo:      chemicalRepo,
		TxManager: txManager,
		Allocator: alloc,
		Pattern:   patterns[sequence.ChemicalPattern.Name],
		Audit:     auditSvc,
	})
	s.Equipment = inventory.NewService(inventory.KindEquipment, inventory.Config[*inventory.Equipment]{
		Repo:      equipmentRepo,
		TxManager: txManager,
		Allocator: alloc,
		Pattern:   patterns[sequence.EquipmentPattern.Name],
		Audit:     auditSvc,
	})

	s.Stock = stock.NewService(record_repo.NewStockRepo(txManager), txManager, auditSvc)

	s.Orders = orders.NewService(orders.Config{
		Repo:      orderRepo,
		TxManager: txManager,
		Allocator: alloc,
		Pattern:   patterns[sequence.OrderPattern.Name],
		Audit:     auditSvc,
		Stock:     s.Stock,
	})

	s.Patients = patients.NewService(patientRepo, txManager, alloc, patterns[sequence.PatientPattern.Name], auditSvc)

	s.Prescriptions = prescriptions.NewService(prescriptions.Config{
		Repo:      prescriptionRepo,
		TxManager: txManager,
		Allocator: alloc,
		Pattern:   patterns[sequence.PrescriptionPattern.Name],
		Audit:     auditSvc,
		Patients:  s.Patients,
		Stock:     s.Stock,
	})

	s.Sequences = sequences.NewService(counter, patterns, auditSvc)
	s.Sequences.RegisterSource(sequence.MedicinePattern.Name, medicineRepo)
	s.Sequences.RegisterSource(sequence.ChemicalPattern.Name, chemicalRepo)
	s.Sequences.RegisterSource(sequence.EquipmentPattern.Name, equipmentRepo)
	s.Sequences.RegisterSource(sequence.OrderPattern.Name, orderRepo)
	s.Sequences.RegisterSource(sequence.PatientPattern.Name, patientRepo)
	s.Sequences.RegisterSource(sequence.PrescriptionPattern.Name, prescriptionRepo)

	return s, nil
}
