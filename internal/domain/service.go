package domain

import (
	"context"

	"pharmadesk/internal/core/allocator"
	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/entity"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/core/tx"
	"pharmadesk/internal/domain/audit"
	"pharmadesk/pkg/logger"
)

// Record is a stored entity with a business ID minted by the allocator.
type Record interface {
	entity.Validatable
	allocator.Record

	GetID() id.ID
	Touch()
	SetCreatedBy(operatorID string)
	SetUpdatedBy(operatorID string)
}

// RecordService provides create/read/update/delete for records whose
// business ID comes from a sequence pattern.
type RecordService[T Record] struct {
	repo      RecordRepository[T]
	txManager tx.Manager
	allocator *allocator.Allocator
	pattern   sequence.Pattern
	audit     audit.Recorder
	hooks     *HookRegistry[T]

	// entityName for error messages and audit entries
	entityName string
}

// RecordServiceConfig configures the record service.
type RecordServiceConfig[T Record] struct {
	Repo       RecordRepository[T]
	TxManager  tx.Manager
	Allocator  *allocator.Allocator
	Pattern    sequence.Pattern
	Audit      audit.Recorder // Optional
	EntityName string
}

// NewRecordService creates a new record service.
func NewRecordService[T Record](cfg RecordServiceConfig[T]) *RecordService[T] {
	rec := cfg.Audit
	if rec == nil {
		rec = audit.Nop{}
	}
	return &RecordService[T]{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		allocator:  cfg.Allocator,
		pattern:    cfg.Pattern,
		audit:      rec,
		hooks:      NewHookRegistry[T](),
		entityName: cfg.EntityName,
	}
}

// Hooks returns the hook registry for external registration.
func (s *RecordService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

// EntityName returns the name used in errors and audit entries.
func (s *RecordService[T]) EntityName() string {
	return s.entityName
}

// Pattern returns the sequence pattern business IDs are drawn from.
func (s *RecordService[T]) Pattern() sequence.Pattern {
	return s.pattern
}

// TxManager returns the transaction manager used by the service.
func (s *RecordService[T]) TxManager() tx.Manager {
	return s.txManager
}

// Audit returns the audit recorder used by the service.
func (s *RecordService[T]) Audit() audit.Recorder {
	return s.audit
}

// NormalizeValidationErr keeps structured errors and wraps plain ones as
// VALIDATION_ERROR.
func NormalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func (s *RecordService[T]) normalizeGetErr(err error, idOrCode any) error {
	if err == nil {
		return nil
	}
	// Preserve existing AppError, but ensure not-found is mapped to the correct entity name.
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, idOrCode)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", idOrCode)
}

// Create validates rec, assigns its business ID unless one was supplied and
// stores it. Each insert attempt runs in its own transaction together with
// the audit entry, so a collision rolls back cleanly before the retry.
func (s *RecordService[T]) Create(ctx context.Context, rec T) (T, error) {
	if err := rec.Validate(ctx); err != nil {
		return rec, NormalizeValidationErr(err)
	}

	audit.StampCreated(ctx, rec)

	if err := s.hooks.Run(ctx, BeforeCreate, rec); err != nil {
		return rec, err
	}

	created, err := allocator.CreateWithGeneratedID(ctx, s.allocator, s.pattern, rec, s.insert)
	if err != nil {
		return created, err
	}

	logger.Debug(ctx, "record created",
		"entity", s.entityName,
		"id", created.GetID().String(),
		"business_id", created.BusinessID())

	return created, nil
}

func (s *RecordService[T]) insert(ctx context.Context, rec T) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, AfterCreate, rec); err != nil {
			return err
		}
		return s.audit.LogChange(ctx, s.entityName, rec.GetID(), rec.BusinessID(), audit.ActionCreate, rec)
	})
}

// GetByID retrieves a record by internal ID.
func (s *RecordService[T]) GetByID(ctx context.Context, recID id.ID) (T, error) {
	rec, err := s.repo.GetByID(ctx, recID)
	if err != nil {
		return rec, s.normalizeGetErr(err, recID.String())
	}
	return rec, nil
}

// GetByBusinessID retrieves a live record by its business ID.
func (s *RecordService[T]) GetByBusinessID(ctx context.Context, businessID string) (T, error) {
	rec, err := s.repo.GetByBusinessID(ctx, businessID)
	if err != nil {
		return rec, s.normalizeGetErr(err, businessID)
	}
	return rec, nil
}

// Update stores changes to rec and returns the stored state.
// The business ID is immutable once assigned.
func (s *RecordService[T]) Update(ctx context.Context, rec T) (T, error) {
	current, err := s.repo.GetByID(ctx, rec.GetID())
	if err != nil {
		return rec, s.normalizeGetErr(err, rec.GetID().String())
	}

	if rec.BusinessID() != current.BusinessID() {
		return rec, apperror.NewValidation("business id cannot be changed").
			WithDetail("field", rec.BusinessIDField()).
			WithDetail("current", current.BusinessID())
	}

	if err := rec.Validate(ctx); err != nil {
		return rec, NormalizeValidationErr(err)
	}

	audit.StampUpdated(ctx, rec)
	rec.Touch()

	if err := s.hooks.Run(ctx, BeforeUpdate, rec); err != nil {
		return rec, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, rec); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, AfterUpdate, rec); err != nil {
			return err
		}
		return s.audit.LogChange(ctx, s.entityName, rec.GetID(), rec.BusinessID(), audit.ActionUpdate,
			audit.Update{Before: current, After: rec})
	})
	if err != nil {
		return rec, err
	}

	return s.GetByID(ctx, rec.GetID())
}

// Delete performs soft delete.
func (s *RecordService[T]) Delete(ctx context.Context, recID id.ID) error {
	rec, err := s.repo.GetByID(ctx, recID)
	if err != nil {
		return s.normalizeGetErr(err, recID.String())
	}

	if err := s.hooks.Run(ctx, BeforeDelete, rec); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SetDeletionMark(ctx, recID, true); err != nil {
			return err
		}
		return s.audit.LogChange(ctx, s.entityName, recID, rec.BusinessID(), audit.ActionDelete, nil)
	})
}
