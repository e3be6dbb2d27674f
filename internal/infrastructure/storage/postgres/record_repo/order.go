package record_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/orders"
	"pharmadesk/internal/infrastructure/storage/postgres"
)

const orderLinesTable = "purchase_order_lines"

var orderLineColumns = []string{"line_no", "item_kind", "item_id", "quantity", "unit_price", "amount"}

// OrderRepo stores purchase orders with their lines.
type OrderRepo struct {
	*BaseRepo[*orders.PurchaseOrder]
}

// NewOrderRepo creates the purchase orders repository.
func NewOrderRepo(db QuerierProvider) *OrderRepo {
	return &OrderRepo{
		BaseRepo: NewBaseRepo(db, Table{
			Name:             "purchase_orders",
			BusinessIDColumn: "order_number",
			SearchColumns:    []string{"order_number", "supplier"},
			DefaultOrder:     "order_date DESC, order_number DESC",
			Errors: postgres.ErrorTranslator{
				Entity: "purchase_order",
				Constraints: map[string]string{
					"uq_purchase_orders_order_number":   "order_number",
					"chk_purchase_orders_status":        "status",
					"chk_purchase_order_lines_quantity": "lines.quantity",
					"chk_purchase_order_lines_kind":     "lines.item_kind",
				},
			},
		}, postgres.ExtractDBColumns[*orders.PurchaseOrder](), func() *orders.PurchaseOrder { return &orders.PurchaseOrder{} }),
	}
}

// Create inserts the order header and its lines.
func (r *OrderRepo) Create(ctx context.Context, o *orders.PurchaseOrder) error {
	if err := r.BaseRepo.Create(ctx, o); err != nil {
		return err
	}
	return r.SaveLines(ctx, o.ID, o.Lines)
}

// Update stores the header and replaces the lines.
func (r *OrderRepo) Update(ctx context.Context, o *orders.PurchaseOrder) error {
	if err := r.BaseRepo.Update(ctx, o); err != nil {
		return err
	}
	return r.SaveLines(ctx, o.ID, o.Lines)
}

// GetByID retrieves an order with its lines.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*orders.PurchaseOrder, error) {
	o, err := r.BaseRepo.GetByID(ctx, orderID)
	if err != nil {
		return o, err
	}
	return o, r.loadLines(ctx, o)
}

// GetByBusinessID retrieves an order by number with its lines.
func (r *OrderRepo) GetByBusinessID(ctx context.Context, number string) (*orders.PurchaseOrder, error) {
	o, err := r.BaseRepo.GetByBusinessID(ctx, number)
	if err != nil {
		return o, err
	}
	return o, r.loadLines(ctx, o)
}

func (r *OrderRepo) loadLines(ctx context.Context, o *orders.PurchaseOrder) error {
	lines, err := r.GetLines(ctx, o.ID)
	if err != nil {
		return err
	}
	o.Lines = lines
	return nil
}

// GetLines retrieves the lines of an order.
func (r *OrderRepo) GetLines(ctx context.Context, orderID id.ID) ([]orders.Line, error) {
	sql, args, err := r.Builder().
		Select(orderLineColumns...).
		From(orderLinesTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := []orders.Line{}
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	return lines, nil
}

func (r *OrderRepo) insertLinesQuery(orderID id.ID, lines []orders.Line) squirrel.InsertBuilder {
	q := r.Builder().
		Insert(orderLinesTable).
		Columns(append([]string{"order_id"}, orderLineColumns...)...)

	for _, l := range lines {
		q = q.Values(orderID, l.LineNo, l.ItemKind, l.ItemID, l.Quantity, l.UnitPrice, l.Amount)
	}
	return q
}

// SaveLines replaces the lines of an order (delete existing + insert new).
func (r *OrderRepo) SaveLines(ctx context.Context, orderID id.ID, lines []orders.Line) error {
	querier := r.Querier(ctx)

	if _, err := querier.Exec(ctx, "DELETE FROM "+orderLinesTable+" WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	sql, args, err := r.insertLinesQuery(orderID, lines).ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return r.Translate(err)
	}
	return nil
}

func orderConditions(f orders.Filter) []squirrel.Sqlizer {
	var conds []squirrel.Sqlizer
	if f.Status != "" {
		conds = append(conds, squirrel.Eq{"status": f.Status})
	}
	if f.Supplier != "" {
		conds = append(conds, squirrel.ILike{"supplier": "%" + escapeLike(f.Supplier) + "%"})
	}
	if f.DateFrom != nil {
		conds = append(conds, squirrel.GtOrEq{"order_date": *f.DateFrom})
	}
	if f.DateTo != nil {
		conds = append(conds, squirrel.LtOrEq{"order_date": *f.DateTo})
	}
	return conds
}

// List retrieves order headers matching f. Lines are not loaded.
func (r *OrderRepo) List(ctx context.Context, f orders.Filter) (domain.ListResult[*orders.PurchaseOrder], error) {
	return r.BaseRepo.List(ctx, f.ListFilter, orderConditions(f)...)
}
