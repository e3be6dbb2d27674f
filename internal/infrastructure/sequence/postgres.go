// Package sequence provides counter store implementations for
// core/sequence.Counter: PostgreSQL for production, in-memory for tests
// and single-process embedding.
package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pharmadesk/internal/core/apperror"
	coresequence "pharmadesk/internal/core/sequence"
	"pharmadesk/pkg/logger"
)

var tracer = otel.Tracer("pharmadesk/sequence")

// Querier is the subset of pgx used by the counter store.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ensure compile-time interface compliance.
var _ coresequence.Counter = (*PostgresCounter)(nil)

// PostgresCounter keeps counters in sys_sequences.
//
// The querier must not be a request transaction: a counter value is
// consumed as soon as it is drawn and must stay consumed if the record
// insert that follows is rolled back.
type PostgresCounter struct {
	db Querier
}

// NewPostgresCounter creates a counter store on db (normally TxManager.Pool()).
func NewPostgresCounter(db Querier) *PostgresCounter {
	return &PostgresCounter{db: db}
}

// IncrementAndGet atomically advances name and returns the new value.
// The upsert takes the row lock for a single statement, so concurrent
// callers serialize on the row and each observes a distinct value.
func (c *PostgresCounter) IncrementAndGet(ctx context.Context, name string) (int64, error) {
	if err := coresequence.ValidateName(name); err != nil {
		return 0, err
	}

	ctx, span := tracer.Start(ctx, "sequence.increment",
		trace.WithAttributes(attribute.String("sequence.name", name)))
	defer span.End()

	var seq int64
	err := c.db.QueryRow(ctx, `
		INSERT INTO sys_sequences (name, seq, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (name) DO UPDATE
			SET seq = sys_sequences.seq + 1,
			    updated_at = NOW()
		RETURNING seq
	`, name).Scan(&seq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "increment failed")
		logger.Error(ctx, "sequence counter unavailable", "sequence", name, "error", err)
		return 0, apperror.NewCounterUnavailable(name, err)
	}

	span.SetAttributes(attribute.Int64("sequence.value", seq))
	return seq, nil
}

// Current returns the last issued value, 0 if the counter does not exist.
func (c *PostgresCounter) Current(ctx context.Context, name string) (int64, error) {
	if err := coresequence.ValidateName(name); err != nil {
		return 0, err
	}

	var seq int64
	err := c.db.QueryRow(ctx, `SELECT seq FROM sys_sequences WHERE name = $1`, name).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, apperror.NewCounterUnavailable(name, err)
	}
	return seq, nil
}

// Set overwrites the counter. The next IncrementAndGet returns value+1.
func (c *PostgresCounter) Set(ctx context.Context, name string, value int64) error {
	if err := coresequence.ValidateName(name); err != nil {
		return err
	}
	if err := coresequence.ValidateValue(value); err != nil {
		return err
	}

	_, err := c.db.Exec(ctx, `
		INSERT INTO sys_sequences (name, seq, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
			SET seq = EXCLUDED.seq,
			    updated_at = NOW()
	`, name, value)
	if err != nil {
		return apperror.NewCounterUnavailable(name, err)
	}

	logger.Info(ctx, "sequence counter set", "sequence", name, "value", value)
	return nil
}

// Raise moves the counter up to value and returns the stored value.
// GREATEST inside the upsert keeps draws that commit concurrently from
// being overwritten.
func (c *PostgresCounter) Raise(ctx context.Context, name string, value int64) (int64, error) {
	if err := coresequence.ValidateName(name); err != nil {
		return 0, err
	}
	if err := coresequence.ValidateValue(value); err != nil {
		return 0, err
	}

	var seq int64
	err := c.db.QueryRow(ctx, `
		INSERT INTO sys_sequences (name, seq, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
			SET seq = GREATEST(sys_sequences.seq, EXCLUDED.seq),
			    updated_at = NOW()
		RETURNING seq
	`, name, value).Scan(&seq)
	if err != nil {
		logger.Error(ctx, "sequence counter unavailable", "sequence", name, "error", err)
		return 0, apperror.NewCounterUnavailable(name, err)
	}
	return seq, nil
}

// List returns all counters ordered by name.
func (c *PostgresCounter) List(ctx context.Context) ([]coresequence.Sequence, error) {
	var out []coresequence.Sequence
	err := pgxscan.Select(ctx, c.db, &out, `SELECT name, seq, updated_at FROM sys_sequences ORDER BY name`)
	if err != nil {
		return nil, apperror.NewCounterUnavailable("*", fmt.Errorf("list sequences: %w", err))
	}
	return out, nil
}
