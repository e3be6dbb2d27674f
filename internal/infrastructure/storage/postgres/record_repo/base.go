// Package record_repo provides PostgreSQL implementations for repositories
// of records that carry a business ID.
package record_repo

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmadesk/internal/core/apperror"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain"
	"pharmadesk/internal/domain/filter"
	"pharmadesk/internal/infrastructure/storage/postgres"
)

// QuerierProvider returns the transaction in ctx or the pool.
// Implemented by *postgres.TxManager.
type QuerierProvider interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// Table describes the storage of one record type.
type Table struct {
	Name string

	// BusinessIDColumn holds the allocator-minted ID; never updated
	BusinessIDColumn string

	// SearchColumns are matched by ListFilter.Search
	SearchColumns []string

	// ReadOnlyColumns are written on insert but never by Update
	ReadOnlyColumns []string

	// DefaultOrder applies when ListFilter.OrderBy is empty
	DefaultOrder string

	// Errors translates driver errors into AppErrors
	Errors postgres.ErrorTranslator
}

// baseReadOnly columns are managed by the repository itself.
var baseReadOnly = []string{"id", "version", "created_at", "created_by", "deletion_mark"}

// BaseRepo provides common CRUD operations for record tables.
// Embed this in specific repositories.
type BaseRepo[T any] struct {
	db         QuerierProvider
	table      Table
	selectCols []string
	newFn      func() T
}

// NewBaseRepo creates a new base repository.
func NewBaseRepo[T any](db QuerierProvider, table Table, selectCols []string, newFn func() T) *BaseRepo[T] {
	if table.DefaultOrder == "" {
		table.DefaultOrder = table.BusinessIDColumn + " ASC"
	}
	return &BaseRepo[T]{
		db:         db,
		table:      table,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Querier returns the querier for ctx.
func (r *BaseRepo[T]) Querier(ctx context.Context) postgres.Querier {
	return r.db.GetQuerier(ctx)
}

// Translate maps driver errors of this table to AppErrors.
func (r *BaseRepo[T]) Translate(err error) error {
	return r.table.Errors.Translate(err)
}

// TableName returns the table name.
func (r *BaseRepo[T]) TableName() string {
	return r.table.Name
}

func (r *BaseRepo[T]) insertQuery(rec T) (squirrel.InsertBuilder, error) {
	data := postgres.StructToMap(rec)
	if len(data) == 0 {
		return squirrel.InsertBuilder{}, fmt.Errorf("no db tags found in %T", rec)
	}

	// Only columns that exist in the table
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	return r.Builder().
		Insert(r.table.Name).
		SetMap(filtered), nil
}

// Create inserts a new record using its "db" tags. Unique violations are
// reported as DUPLICATE_ENTRY naming the violated field.
func (r *BaseRepo[T]) Create(ctx context.Context, rec T) error {
	q, err := r.insertQuery(rec)
	if err != nil {
		return err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.Translate(err)
	}
	return nil
}

func (r *BaseRepo[T]) updateQuery(rec T) (squirrel.UpdateBuilder, any, error) {
	data := postgres.StructToMap(rec)
	if len(data) == 0 {
		return squirrel.UpdateBuilder{}, nil, fmt.Errorf("no db tags found in %T", rec)
	}

	recID, ok := data["id"]
	if !ok {
		return squirrel.UpdateBuilder{}, nil, fmt.Errorf("%T has no 'id' field with db tag", rec)
	}
	version, ok := data["version"].(int)
	if !ok {
		return squirrel.UpdateBuilder{}, nil, fmt.Errorf("%T has no int 'version' field", rec)
	}

	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == r.table.BusinessIDColumn ||
			slices.Contains(baseReadOnly, col) ||
			slices.Contains(r.table.ReadOnlyColumns, col) {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.Builder().
		Update(r.table.Name).
		SetMap(filtered).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": recID}).
		Where(squirrel.Eq{"version": version}) // optimistic lock: expect current version

	return q, recID, nil
}

// Update modifies an existing record with optimistic locking.
func (r *BaseRepo[T]) Update(ctx context.Context, rec T) error {
	q, recID, err := r.updateQuery(rec)
	if err != nil {
		return err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.Translate(err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.table.Name, recID)
	}
	return nil
}

// baseSelect creates a SELECT builder.
func (r *BaseRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.table.Name)
}

// FindOne executes q and scans a single record.
func (r *BaseRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, key any) (T, error) {
	rec := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return rec, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.Querier(ctx), rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return rec, apperror.NewNotFound(r.table.Name, key)
		}
		return rec, fmt.Errorf("get %s: %w", r.table.Name, err)
	}
	return rec, nil
}

// GetByID retrieves a record by internal ID, deleted or not.
func (r *BaseRepo[T]) GetByID(ctx context.Context, recID id.ID) (T, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": recID}).
		Limit(1)
	return r.FindOne(ctx, q, recID.String())
}

// GetByBusinessID retrieves a live record by business ID.
func (r *BaseRepo[T]) GetByBusinessID(ctx context.Context, businessID string) (T, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{r.table.BusinessIDColumn: businessID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)
	return r.FindOne(ctx, q, businessID)
}

// SetDeletionMark sets or clears the deletion mark (soft delete).
func (r *BaseRepo[T]) SetDeletionMark(ctx context.Context, recID id.ID, marked bool) error {
	q := r.Builder().
		Update(r.table.Name).
		Set("deletion_mark", marked).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": recID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set deletion mark: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.Translate(err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.table.Name, recID.String())
	}
	return nil
}

// lastBusinessIDQuery only considers IDs shaped like generated ones (prefix
// followed by digits), so supplied IDs such as MED-LEGACY never win.
// It orders by length first so that MED100000 sorts after MED99999.
// Deleted rows count: their IDs still hold the unique constraint.
func (r *BaseRepo[T]) lastBusinessIDQuery(prefix string) squirrel.SelectBuilder {
	col := r.table.BusinessIDColumn
	return r.Builder().
		Select(col).
		From(r.table.Name).
		Where(col+" ~ ?", "^"+regexp.QuoteMeta(prefix)+"[0-9]+$").
		OrderBy("length("+col+") DESC", col+" DESC").
		Limit(1)
}

// LastBusinessID returns the highest generated business ID with prefix.
func (r *BaseRepo[T]) LastBusinessID(ctx context.Context, prefix string) (string, bool, error) {
	sql, args, err := r.lastBusinessIDQuery(prefix).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}

	var last string
	err = r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&last)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("last business id: %w", err)
	}
	return last, true, nil
}

// listQuery applies the common filter and extra conditions.
func (r *BaseRepo[T]) listQuery(f domain.ListFilter, conds ...squirrel.Sqlizer) (squirrel.SelectBuilder, error) {
	q := r.baseSelect()

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if f.Search != "" && len(r.table.SearchColumns) > 0 {
		pattern := "%" + escapeLike(f.Search) + "%"
		or := make(squirrel.Or, 0, len(r.table.SearchColumns))
		for _, col := range r.table.SearchColumns {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	if len(f.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": f.IDs})
	}

	for _, c := range conds {
		q = q.Where(c)
	}

	return r.applyAdvancedFilters(q, f.AdvancedFilters)
}

// List retrieves records with filtering and pagination.
func (r *BaseRepo[T]) List(ctx context.Context, f domain.ListFilter, conds ...squirrel.Sqlizer) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q, err := r.listQuery(f, conds...)
	if err != nil {
		return result, err
	}

	// Count total (before pagination)
	countSQL, countArgs, err := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.Querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(f.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

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

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.table.Name, err)
	}
	if result.Items == nil {
		result.Items = []T{}
	}

	return result, nil
}

// applyAdvancedFilters applies client conditions. Columns are whitelisted
// against the select list.
func (r *BaseRepo[T]) applyAdvancedFilters(q squirrel.SelectBuilder, filters []filter.Item) (squirrel.SelectBuilder, error) {
	for _, item := range filters {
		if !slices.Contains(r.selectCols, item.Field) {
			return q, apperror.NewValidation("invalid filter column").WithDetail("field", item.Field)
		}

		switch item.Operator {
		case filter.Equal, filter.InList:
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotEqual, filter.NotInList:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.Less:
			q = q.Where(squirrel.Lt{item.Field: item.Value})
		case filter.Greater:
			q = q.Where(squirrel.Gt{item.Field: item.Value})
		case filter.LessOrEqual:
			q = q.Where(squirrel.LtOrEq{item.Field: item.Value})
		case filter.GreaterOrEqual:
			q = q.Where(squirrel.GtOrEq{item.Field: item.Value})
		case filter.IsNull:
			q = q.Where(squirrel.Eq{item.Field: nil})
		case filter.IsNotNull:
			q = q.Where(squirrel.NotEq{item.Field: nil})
		case filter.Contains:
			q = q.Where(squirrel.ILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)})
		case filter.NotContains:
			q = q.Where(squirrel.NotILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)})
		default:
			return q, apperror.NewValidation("unknown filter operator").
				WithDetail("field", item.Field).
				WithDetail("operator", string(item.Operator))
		}
	}
	return q, nil
}

func (r *BaseRepo[T]) parseOrderBy(orderBy string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return r.table.DefaultOrder, nil
	}

	// Support "-field" for DESC.
	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" || !slices.Contains(r.selectCols, field) {
		return "", apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}

	return field + " " + direction, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
