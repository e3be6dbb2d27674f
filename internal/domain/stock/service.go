package stock

import (
	"context"
	"time"

	"pharmadesk/internal/core/apperror"
	appctx "pharmadesk/internal/core/context"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/core/tx"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/audit"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/pkg/logger"
)

// Repository stores quantities and the movement ledger.
type Repository interface {
	// AdjustQuantity adds delta to the item quantity unless the result
	// would be negative. It returns the quantity after the call and
	// whether delta was applied. A missing or deleted item is NOT_FOUND.
	AdjustQuantity(ctx context.Context, kind inventory.Kind, itemID id.ID, delta int64) (quantity int64, applied bool, err error)

	CreateMovement(ctx context.Context, m *Movement) error
	ListMovements(ctx context.Context, filter Filter) (domain.ListResult[Movement], error)
}

// Service applies stock movements.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Recorder
	now       func() time.Time
}

// NewService creates a new stock service.
func NewService(repo Repository, txManager tx.Manager, rec audit.Recorder) *Service {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		audit:     rec,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Adjust applies m atomically: the quantity update is guarded so that it
// never goes below zero, and the movement row is written in the same
// transaction. Called inside an outer transaction it joins it.
func (s *Service) Adjust(ctx context.Context, m Movement) (Movement, error) {
	if err := m.Validate(); err != nil {
		return m, err
	}

	m.ID = id.New()
	m.CreatedAt = s.now()
	if m.OperatorID == "" {
		m.OperatorID = appctx.GetOperatorID(ctx)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		qty, applied, err := s.repo.AdjustQuantity(ctx, m.ItemKind, m.ItemID, m.Delta)
		if err != nil {
			return err
		}
		if !applied {
			return apperror.NewInsufficientStock(m.ItemID.String(), -m.Delta, qty).
				WithDetail("item_kind", string(m.ItemKind)).
				WithDetail("reference", m.Reference)
		}
		m.ResultingQuantity = qty

		if err := s.repo.CreateMovement(ctx, &m); err != nil {
			return err
		}
		return s.audit.LogChange(ctx, string(m.ItemKind), m.ItemID, m.Reference, audit.ActionStockAdjust, m)
	})
	if err != nil {
		return m, err
	}

	logger.Info(ctx, "stock adjusted",
		"item_kind", m.ItemKind,
		"item_id", m.ItemID.String(),
		"delta", m.Delta,
		"quantity", m.ResultingQuantity,
		"reason", m.Reason,
		"reference", m.Reference)

	return m, nil
}

// AdjustAll applies every movement in one transaction; the first failure
// rolls back all of them.
func (s *Service) AdjustAll(ctx context.Context, movements []Movement) ([]Movement, error) {
	applied := make([]Movement, 0, len(movements))
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, m := range movements {
			done, err := s.Adjust(ctx, m)
			if err != nil {
				return err
			}
			applied = append(applied, done)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// List retrieves movements with filtering.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[Movement], error) {
	filter.Normalize()
	if filter.ItemKind != "" && !filter.ItemKind.Valid() {
		return domain.ListResult[Movement]{}, apperror.NewValidation("invalid item kind").
			WithDetail("value", string(filter.ItemKind))
	}
	return s.repo.ListMovements(ctx, filter)
}
