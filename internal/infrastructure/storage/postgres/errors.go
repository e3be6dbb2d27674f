package postgres

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"pharmadesk/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes handled by ErrorTranslator.
const (
	CodeUniqueViolation        = "23505"
	CodeNotNullViolation       = "23502"
	CodeForeignKeyViolation    = "23503"
	CodeCheckViolation         = "23514"
	CodeStringDataRightTrunc   = "22001"
	CodeInvalidTextRepr        = "22P02"
	CodeNumericValueOutOfRange = "22003"
	CodeSerializationFailure   = "40001"
	CodeDeadlockDetected       = "40P01"
)

// uniqueDetail matches `Key (medicine_id)=(MED00001) already exists.`
var uniqueDetail = regexp.MustCompile(`^Key \((.+?)\)=\((.*)\) already exists\.?$`)

// ErrorTranslator converts driver errors of one table into typed AppErrors.
type ErrorTranslator struct {
	// Entity is reported in error details (e.g. "medicine")
	Entity string

	// Constraints maps constraint names to the field they guard.
	// Unlisted unique constraints fall back to the column in the error detail.
	Constraints map[string]string
}

// Translate returns err unchanged unless it is a *pgconn.PgError it knows.
// Unique violations become DUPLICATE_ENTRY with the offending field, so the
// allocator can tell a business-ID collision from any other duplicate.
func (t ErrorTranslator) Translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case CodeUniqueViolation:
		field, value := t.uniqueField(pgErr)
		return apperror.NewDuplicate(t.Entity, field, value).WithCause(err)

	case CodeNotNullViolation:
		return apperror.NewRecordValidation(t.Entity, map[string]string{
			pgErr.ColumnName: "is required",
		}).WithCause(err)

	case CodeCheckViolation:
		return apperror.NewRecordValidation(t.Entity, map[string]string{
			t.constraintField(pgErr): "violates constraint " + pgErr.ConstraintName,
		}).WithCause(err)

	case CodeForeignKeyViolation:
		return apperror.NewRecordValidation(t.Entity, map[string]string{
			t.constraintField(pgErr): "references a missing record",
		}).WithCause(err)

	case CodeStringDataRightTrunc, CodeInvalidTextRepr, CodeNumericValueOutOfRange:
		field := pgErr.ColumnName
		if field == "" {
			field = "_"
		}
		return apperror.NewRecordValidation(t.Entity, map[string]string{
			field: pgErr.Message,
		}).WithCause(err)

	case CodeSerializationFailure, CodeDeadlockDetected:
		return apperror.NewConcurrentModification(t.Entity, nil).WithCause(err)
	}

	return err
}

func (t ErrorTranslator) uniqueField(pgErr *pgconn.PgError) (field, value string) {
	if m := uniqueDetail.FindStringSubmatch(pgErr.Detail); m != nil {
		field, value = m[1], m[2]
		// Multi-column and expression indexes report "lower(email)" or "a, b".
		if i := strings.IndexByte(field, '('); i >= 0 {
			field = strings.TrimSuffix(field[i+1:], ")")
		}
		field, _, _ = strings.Cut(field, "::")
	}
	if mapped, ok := t.Constraints[pgErr.ConstraintName]; ok {
		field = mapped
	}
	if field == "" {
		field = pgErr.ConstraintName
	}
	return field, value
}

func (t ErrorTranslator) constraintField(pgErr *pgconn.PgError) string {
	if mapped, ok := t.Constraints[pgErr.ConstraintName]; ok {
		return mapped
	}
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	return pgErr.ConstraintName
}
