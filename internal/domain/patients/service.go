package patients

import (
	"context"

	"pharmadesk/internal/core/allocator"
	"pharmadesk/internal/core/sequence"
	"pharmadesk/internal/core/tx"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/audit"
)

// Repository stores patients.
type Repository interface {
	domain.RecordRepository[*Patient]
	List(ctx context.Context, filter Filter) (domain.ListResult[*Patient], error)
}

// Service provides business logic for patients.
type Service struct {
	*domain.RecordService[*Patient]
	repo Repository
}

// NewService creates a new patient service.
func NewService(repo Repository, txManager tx.Manager, alloc *allocator.Allocator, pattern sequence.Pattern, rec audit.Recorder) *Service {
	return &Service{
		RecordService: domain.NewRecordService(domain.RecordServiceConfig[*Patient]{
			Repo:       repo,
			TxManager:  txManager,
			Allocator:  alloc,
			Pattern:    pattern,
			Audit:      rec,
			EntityName: "patient",
		}),
		repo: repo,
	}
}

// List retrieves patients with filtering.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[*Patient], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}
