package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

var (
	// ErrUniqueViolation matches every *UniqueViolationError via errors.Is.
	ErrUniqueViolation = errors.New("unique constraint violated")
	// ErrForeignKeyViolation matches every *ForeignKeyViolationError.
	ErrForeignKeyViolation = errors.New("referenced row does not exist")
)

// UniqueViolationError reports which constraint rejected a write.
type UniqueViolationError struct {
	Constraint string
	Err        error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint %q violated", e.Constraint)
}

func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrUniqueViolation
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

// ForeignKeyViolationError reports a write that pointed at a missing row.
type ForeignKeyViolationError struct {
	Constraint string
	Err        error
}

func (e *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("foreign key %q violated", e.Constraint)
}

func (e *ForeignKeyViolationError) Is(target error) bool {
	return target == ErrForeignKeyViolation
}

func (e *ForeignKeyViolationError) Unwrap() error {
	return e.Err
}

// TranslateError turns driver specific failures into the typed errors of this
// package. Errors it does not recognise are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return &UniqueViolationError{Constraint: pgErr.ConstraintName, Err: err}
	case foreignKeyViolationCode:
		return &ForeignKeyViolationError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}

// ConstraintOf returns the violated constraint name, or "" when err is not a
// constraint violation.
func ConstraintOf(err error) string {
	var uv *UniqueViolationError
	if errors.As(err, &uv) {
		return uv.Constraint
	}
	var fk *ForeignKeyViolationError
	if errors.As(err, &fk) {
		return fk.Constraint
	}
	return ""
}
