package inventory

import (
	"context"

	"pharmadesk/internal/core/allocator"
	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/core/tx"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/audit"
)

// Stocked is an inventory record: a domain record with stock fields.
type Stocked interface {
	domain.Record
	StockItem() *Item
	Kind() Kind
}

// Filter narrows inventory lists.
type Filter struct {
	domain.ListFilter

	Category string

	// LowStock keeps items with quantity at or below the reorder level
	LowStock bool

	// ExpiringWithinDays keeps items expiring within this many days
	// (already expired included)
	ExpiringWithinDays *int
}

// Repository is the storage of one inventory kind.
type Repository[T Stocked] interface {
	domain.RecordRepository[T]
	List(ctx context.Context, filter Filter) (domain.ListResult[T], error)
}

// Service provides business logic for one inventory kind.
// Uses composition with domain.RecordService for common operations.
type Service[T Stocked] struct {
	*domain.RecordService[T]
	repo Repository[T]
}

// Config wires a Service.
type Config[T Stocked] struct {
	Repo      Repository[T]
	TxManager tx.Manager
	Allocator *allocator.Allocator
	Pattern   sequence.Pattern
	Audit     audit.Recorder
}

// NewService creates an inventory service for kind.
func NewService[T Stocked](kind Kind, cfg Config[T]) *Service[T] {
	base := domain.NewRecordService(domain.RecordServiceConfig[T]{
		Repo:       cfg.Repo,
		TxManager:  cfg.TxManager,
		Allocator:  cfg.Allocator,
		Pattern:    cfg.Pattern,
		Audit:      cfg.Audit,
		EntityName: string(kind),
	})
	return &Service[T]{
		RecordService: base,
		repo:          cfg.Repo,
	}
}

// List retrieves items with filtering.
func (s *Service[T]) List(ctx context.Context, filter Filter) (domain.ListResult[T], error) {
	filter.Normalize()
	for _, item := range filter.AdvancedFilters {
		if err := item.Validate(); err != nil {
			return domain.ListResult[T]{}, err
		}
	}
	if filter.ExpiringWithinDays != nil && *filter.ExpiringWithinDays < 0 {
		return domain.ListResult[T]{}, apperror.NewValidation("expiringWithinDays cannot be negative").
			WithDetail("field", "expiringWithinDays")
	}
	return s.repo.List(ctx, filter)
}
