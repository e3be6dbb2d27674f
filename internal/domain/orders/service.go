package orders

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
	"pharmadesk/internal/domain/stock"
	"pharmadesk/pkg/logger"
)

// Repository stores orders with their lines.
type Repository interface {
	domain.RecordRepository[*PurchaseOrder]
	List(ctx context.Context, filter Filter) (domain.ListResult[*PurchaseOrder], error)
}

// StockAdjuster applies stock movements in one transaction.
type StockAdjuster interface {
	AdjustAll(ctx context.Context, movements []stock.Movement) ([]stock.Movement, error)
}

// Service provides business logic for purchase orders.
type Service struct {
	*domain.RecordService[*PurchaseOrder]
	repo  Repository
	stock StockAdjuster
	now   func() time.Time
}

// Config wires a Service.
type Config struct {
	Repo      Repository
	TxManager tx.Manager
	Allocator *allocator.Allocator
	Pattern   sequence.Pattern
	Audit     audit.Recorder
	Stock     StockAdjuster
}

// NewService creates a new purchase order service.
func NewService(cfg Config) *Service {
	base := domain.NewRecordService(domain.RecordServiceConfig[*PurchaseOrder]{
		Repo:       cfg.Repo,
		TxManager:  cfg.TxManager,
		Allocator:  cfg.Allocator,
		Pattern:    cfg.Pattern,
		Audit:      cfg.Audit,
		EntityName: "purchase_order",
	})

	svc := &Service{
		RecordService: base,
		repo:          cfg.Repo,
		stock:         cfg.Stock,
		now:           func() time.Time { return time.Now().UTC() },
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

func (s *Service) prepareForCreate(_ context.Context, o *PurchaseOrder) error {
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.Status != StatusPending {
		return apperror.NewValidation("new orders start as pending").
			WithDetail("field", "status").
			WithDetail("value", string(o.Status))
	}
	o.ReceivedAt = nil
	o.Recalculate()
	return nil
}

// prepareForUpdate allows editing only while the order is pending.
func (s *Service) prepareForUpdate(_ context.Context, o *PurchaseOrder) error {
	if !o.IsIn(StatusPending) {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "only pending orders can be edited").
			WithDetail("status", string(o.Status))
	}
	o.Recalculate()
	return nil
}

// List retrieves orders with filtering.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[*PurchaseOrder], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// Approve moves a pending order to approved.
func (s *Service) Approve(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	return s.changeStatus(ctx, orderID, func(_ context.Context, o *PurchaseOrder) error {
		return o.Approve()
	})
}

// Cancel cancels an order that has not been received.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	return s.changeStatus(ctx, orderID, func(_ context.Context, o *PurchaseOrder) error {
		return o.Cancel()
	})
}

// Receive marks an approved order received and books every line into
// stock, all in one transaction.
func (s *Service) Receive(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	return s.changeStatus(ctx, orderID, func(ctx context.Context, o *PurchaseOrder) error {
		if err := o.MarkReceived(s.now()); err != nil {
			return err
		}
		movements := make([]stock.Movement, 0, len(o.Lines))
		for _, l := range o.Lines {
			movements = append(movements, stock.Movement{
				ItemKind:  l.ItemKind,
				ItemID:    l.ItemID,
				Delta:     l.Quantity,
				Reason:    stock.ReasonReceipt,
				Reference: o.OrderNumber,
			})
		}
		_, err := s.stock.AdjustAll(ctx, movements)
		return err
	})
}

// changeStatus loads the order, applies fn and stores the result with an
// audit entry inside one transaction.
func (s *Service) changeStatus(ctx context.Context, orderID id.ID, fn func(ctx context.Context, o *PurchaseOrder) error) (*PurchaseOrder, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := o.Status

	err = s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := fn(ctx, o); err != nil {
			return err
		}
		audit.StampUpdated(ctx, o)
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		return s.Audit().LogChange(ctx, s.EntityName(), o.ID, o.OrderNumber, audit.ActionStatus,
			map[string]any{"from": from, "to": o.Status})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order status changed",
		"order_number", o.OrderNumber,
		"from", from,
		"to", o.Status)

	return s.GetByID(ctx, orderID)
}
