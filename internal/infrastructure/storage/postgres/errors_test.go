package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/apperror"
)

func TestErrorTranslator_UniqueViolation(t *testing.T) {
	tr := ErrorTranslator{
		Entity: "medicine",
		Constraints: map[string]string{
			"uq_medicines_batch_number": "batch_number",
		},
	}

	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
		wantValue string
	}{
		{
			name: "business id from detail",
			pgErr: &pgconn.PgError{
				Code:           CodeUniqueViolation,
				ConstraintName: "uq_medicines_medicine_id",
				Detail:         "Key (medicine_id)=(MED00001) already exists.",
			},
			wantField: "medicine_id",
			wantValue: "MED00001",
		},
		{
			name: "mapped constraint wins",
			pgErr: &pgconn.PgError{
				Code:           CodeUniqueViolation,
				ConstraintName: "uq_medicines_batch_number",
				Detail:         "Key (batch_number)=(B-77) already exists.",
			},
			wantField: "batch_number",
			wantValue: "B-77",
		},
		{
			name: "expression index",
			pgErr: &pgconn.PgError{
				Code:           CodeUniqueViolation,
				ConstraintName: "uq_patients_email",
				Detail:         "Key (lower(email::text))=(a@b.c) already exists.",
			},
			wantField: "email",
			wantValue: "a@b.c",
		},
		{
			name: "no detail falls back to constraint name",
			pgErr: &pgconn.PgError{
				Code:           CodeUniqueViolation,
				ConstraintName: "uq_something",
			},
			wantField: "uq_something",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.Translate(fmt.Errorf("insert medicines: %w", tt.pgErr))

			field, ok := apperror.DuplicateField(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantField, field)

			appErr, _ := apperror.AsAppError(err)
			assert.Equal(t, tt.wantValue, appErr.Details["value"])
			assert.Equal(t, "medicine", appErr.Details["entity"])

			var pgErr *pgconn.PgError
			assert.True(t, errors.As(err, &pgErr), "driver error stays in the chain")
		})
	}
}

func TestErrorTranslator_ValidationCodes(t *testing.T) {
	tr := ErrorTranslator{Entity: "prescription", Constraints: map[string]string{
		"fk_prescriptions_patient": "patient_id",
	}}

	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
	}{
		{
			name:      "not null",
			pgErr:     &pgconn.PgError{Code: CodeNotNullViolation, ColumnName: "prescriber"},
			wantField: "prescriber",
		},
		{
			name:      "foreign key",
			pgErr:     &pgconn.PgError{Code: CodeForeignKeyViolation, ConstraintName: "fk_prescriptions_patient"},
			wantField: "patient_id",
		},
		{
			name:      "check",
			pgErr:     &pgconn.PgError{Code: CodeCheckViolation, ConstraintName: "chk_quantity", ColumnName: ""},
			wantField: "chk_quantity",
		},
		{
			name:      "too long without column",
			pgErr:     &pgconn.PgError{Code: CodeStringDataRightTrunc, Message: "value too long"},
			wantField: "_",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.Translate(tt.pgErr)

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeRecordValidation, appErr.Code)

			fields, ok := appErr.Details["fields"].(map[string]string)
			require.True(t, ok)
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestErrorTranslator_PassThrough(t *testing.T) {
	tr := ErrorTranslator{Entity: "medicine"}

	plain := errors.New("connection reset")
	assert.Same(t, plain, tr.Translate(plain))

	unknown := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, error(unknown), tr.Translate(unknown))
}

func TestErrorTranslator_SerializationFailure(t *testing.T) {
	tr := ErrorTranslator{Entity: "order"}
	err := tr.Translate(&pgconn.PgError{Code: CodeSerializationFailure})
	assert.True(t, apperror.IsConcurrentModification(err))
}
