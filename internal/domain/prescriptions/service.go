package prescriptions

import (
	"context"
	"time"

	"pharmadesk/internal/core/allocator"
	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/core/tx"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/audit"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/domain/patients"
	"pharmadesk/internal/domain/stock"
	"pharmadesk/pkg/logger"
)

// Repository stores prescriptions with their items.
type Repository interface {
	domain.RecordRepository[*Prescription]
	List(ctx context.Context, filter Filter) (domain.ListResult[*Prescription], error)
}

// PatientLookup resolves the prescribed patient.
type PatientLookup interface {
	GetByID(ctx context.Context, patientID id.ID) (*patients.Patient, error)
}

// StockAdjuster applies stock movements in one transaction.
type StockAdjuster interface {
	AdjustAll(ctx context.Context, movements []stock.Movement) ([]stock.Movement, error)
}

// Service provides business logic for prescriptions.
type Service struct {
	*domain.RecordService[*Prescription]
	repo     Repository
	patients PatientLookup
	stock    StockAdjuster
	now      func() time.Time
}

// Config wires a Service.
type Config struct {
	Repo      Repository
	TxManager tx.Manager
	Allocator *allocator.Allocator
	Pattern   sequence.Pattern
	Audit     audit.Recorder
	Patients  PatientLookup
	Stock     StockAdjuster
}

// NewService creates a new prescription service.
func NewService(cfg Config) *Service {
	base := domain.NewRecordService(domain.RecordServiceConfig[*Prescription]{
		Repo:       cfg.Repo,
		TxManager:  cfg.TxManager,
		Allocator:  cfg.Allocator,
		Pattern:    cfg.Pattern,
		Audit:      cfg.Audit,
		EntityName: "prescription",
	})

	svc := &Service{
		RecordService: base,
		repo:          cfg.Repo,
		patients:      cfg.Patients,
		stock:         cfg.Stock,
		now:           func() time.Time { return time.Now().UTC() },
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// prepareForCreate checks the patient before a number is drawn, so a
// mistyped patient does not consume one.
func (s *Service) prepareForCreate(ctx context.Context, p *Prescription) error {
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.Status != StatusActive {
		return apperror.NewValidation("new prescriptions start as active").
			WithDetail("field", "status").
			WithDetail("value", string(p.Status))
	}
	p.DispensedAt = nil
	p.renumber()

	patient, err := s.patients.GetByID(ctx, p.PatientID)
	if err != nil {
		return err
	}
	if patient.DeletionMark {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "patient record is deleted").
			WithDetail("patient_id", patient.PatientID)
	}
	return nil
}

func (s *Service) prepareForUpdate(_ context.Context, p *Prescription) error {
	if !p.IsIn(StatusActive) {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "only active prescriptions can be edited").
			WithDetail("status", string(p.Status))
	}
	p.renumber()
	return nil
}

// List retrieves prescriptions with filtering.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[*Prescription], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// Dispense marks an active prescription dispensed and withdraws every item
// from medicine stock in one transaction. A shortage on any item leaves
// both stock and the prescription unchanged.
func (s *Service) Dispense(ctx context.Context, prescriptionID id.ID) (*Prescription, error) {
	return s.changeStatus(ctx, prescriptionID, func(ctx context.Context, p *Prescription) error {
		if err := p.MarkDispensed(s.now()); err != nil {
			return err
		}
		movements := make([]stock.Movement, 0, len(p.Items))
		for _, it := range p.Items {
			movements = append(movements, stock.Movement{
				ItemKind:  inventory.KindMedicine,
				ItemID:    it.MedicineID,
				Delta:     -it.Quantity,
				Reason:    stock.ReasonDispense,
				Reference: p.PrescriptionNumber,
			})
		}
		_, err := s.stock.AdjustAll(ctx, movements)
		return err
	})
}

// Cancel cancels an active prescription.
func (s *Service) Cancel(ctx context.Context, prescriptionID id.ID) (*Prescription, error) {
	return s.changeStatus(ctx, prescriptionID, func(_ context.Context, p *Prescription) error {
		return p.Cancel()
	})
}

func (s *Service) changeStatus(ctx context.Context, prescriptionID id.ID, fn func(ctx context.Context, p *Prescription) error) (*Prescription, error) {
	p, err := s.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	from := p.Status

	err = s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := fn(ctx, p); err != nil {
			return err
		}
		audit.StampUpdated(ctx, p)
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		return s.Audit().LogChange(ctx, s.EntityName(), p.ID, p.PrescriptionNumber, audit.ActionStatus,
			map[string]any{"from": from, "to": p.Status})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "prescription status changed",
		"prescription_number", p.PrescriptionNumber,
		"from", from,
		"to", p.Status)

	return s.GetByID(ctx, prescriptionID)
}
