package record_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/inventory"
	"pharmadesk/internal/domain/stock"
	"pharmadesk/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "stock_movements"

var itemTables = map[inventory.Kind]string{
	inventory.KindMedicine:  "medicines",
	inventory.KindChemical:  "chemicals",
	inventory.KindEquipment: "equipment",
}

var movementColumns = postgres.ExtractDBColumns[stock.Movement]()

// StockRepo implements stock.Repository.
type StockRepo struct {
	db      QuerierProvider
	builder squirrel.StatementBuilderType
	errors  postgres.ErrorTranslator
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(db QuerierProvider) *StockRepo {
	return &StockRepo{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		errors: postgres.ErrorTranslator{
			Entity: "stock_movement",
			Constraints: map[string]string{
				"chk_stock_movements_kind":  "item_kind",
				"chk_stock_movements_delta": "delta",
			},
		},
	}
}

func itemTable(kind inventory.Kind) (string, error) {
	table, ok := itemTables[kind]
	if !ok {
		return "", apperror.NewValidation("invalid item kind").
			WithDetail("field", "itemKind").
			WithDetail("value", string(kind))
	}
	return table, nil
}

// adjustQuery updates the quantity only when the result stays non-negative.
func (r *StockRepo) adjustQuery(table string, itemID id.ID, delta int64) squirrel.UpdateBuilder {
	return r.builder.
		Update(table).
		Set("quantity", squirrel.Expr("quantity + ?", delta)).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": itemID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Expr("quantity + ? >= 0", delta)).
		Suffix("RETURNING quantity")
}

// AdjustQuantity adds delta to the item quantity in a single guarded
// statement. When the guard rejects the change the current quantity is
// returned with applied=false.
func (r *StockRepo) AdjustQuantity(ctx context.Context, kind inventory.Kind, itemID id.ID, delta int64) (int64, bool, error) {
	table, err := itemTable(kind)
	if err != nil {
		return 0, false, err
	}

	sql, args, err := r.adjustQuery(table, itemID, delta).ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build adjust: %w", err)
	}

	querier := r.db.GetQuerier(ctx)

	var qty int64
	err = querier.QueryRow(ctx, sql, args...).Scan(&qty)
	if err == nil {
		return qty, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, r.errors.Translate(err)
	}

	// Either the item is missing or the guard failed.
	sql, args, err = r.builder.
		Select("quantity").
		From(table).
		Where(squirrel.Eq{"id": itemID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build query: %w", err)
	}

	if err := querier.QueryRow(ctx, sql, args...).Scan(&qty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, apperror.NewNotFound(string(kind), itemID.String())
		}
		return 0, false, fmt.Errorf("get quantity: %w", err)
	}
	return qty, false, nil
}

// CreateMovement inserts a movement row.
func (r *StockRepo) CreateMovement(ctx context.Context, m *stock.Movement) error {
	data := postgres.StructToMap(m)

	sql, args, err := r.builder.
		Insert(stockMovementsTable).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert movement: %w", err)
	}

	if _, err := r.db.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.errors.Translate(err)
	}
	return nil
}

func (r *StockRepo) listQuery(f stock.Filter) squirrel.SelectBuilder {
	q := r.builder.
		Select(movementColumns...).
		From(stockMovementsTable)

	if f.ItemKind != "" {
		q = q.Where(squirrel.Eq{"item_kind": f.ItemKind})
	}
	if f.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *f.ItemID})
	}
	if f.Reference != "" {
		q = q.Where(squirrel.Eq{"reference": f.Reference})
	}
	if f.Reason != "" {
		q = q.Where(squirrel.Eq{"reason": f.Reason})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{"created_at": *f.To})
	}
	return q
}

// ListMovements retrieves movements newest first.
func (r *StockRepo) ListMovements(ctx context.Context, f stock.Filter) (domain.ListResult[stock.Movement], error) {
	result := domain.ListResult[stock.Movement]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q := r.listQuery(f)
	querier := r.db.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("created_at DESC", "id DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	result.Items = []stock.Movement{}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list movements: %w", err)
	}
	return result, nil
}
