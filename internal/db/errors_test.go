package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslateError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "appointments_active_slot_key"}

	err := TranslateError(fmt.Errorf("insert appointment: %w", pgErr))

	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.Equal(t, "appointments_active_slot_key", ConstraintOf(err))
	assert.ErrorAs(t, err, &pgErr)
}

func TestTranslateError_ForeignKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", ConstraintName: "appointments_patient_id_fkey"}

	err := TranslateError(fmt.Errorf("insert appointment: %w", pgErr))

	assert.ErrorIs(t, err, ErrForeignKeyViolation)
	assert.NotErrorIs(t, err, ErrUniqueViolation)
	assert.Equal(t, "appointments_patient_id_fkey", ConstraintOf(err))
	assert.ErrorAs(t, err, &pgErr)
}

func TestTranslateError_PassThrough(t *testing.T) {
	other := &pgconn.PgError{Code: "40001"}
	plain := errors.New("connection reset")

	assert.Same(t, other, TranslateError(other))
	assert.Equal(t, plain, TranslateError(plain))
	assert.NoError(t, TranslateError(nil))
	assert.Empty(t, ConstraintOf(plain))
}

func TestUniqueViolationError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("book slot: %w", &UniqueViolationError{Constraint: "patients_dni_key"})

	assert.True(t, errors.Is(err, ErrUniqueViolation))
	assert.Equal(t, "patients_dni_key", ConstraintOf(err))
}
