package professional

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
)

// Repository is the read side of the professional catalog.
type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Professional, error)
	Get(ctx context.Context, id uuid.UUID) (*Professional, error)
}

const columns = `id, first_name, last_name, email, specialty, active, created_at, updated_at`

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

// Scan reads a row selected with the package column list.
func Scan(row pgx.Row) (*Professional, error) {
	var p Professional
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Specialty,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) List(ctx context.Context, activeOnly bool) ([]Professional, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+columns+`
		FROM professionals
		WHERE ($1 = false OR active)
		ORDER BY last_name, first_name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Professional
	for rows.Next() {
		p, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	return result, rows.Err()
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*Professional, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+columns+`
		FROM professionals
		WHERE id = $1
	`, id)
	return Scan(row)
}

// LockForBooking takes a row lock on the professional for the rest of the
// surrounding transaction. Concurrent bookings for the same professional
// queue behind it.
func LockForBooking(ctx context.Context, conn db.DBTX, id uuid.UUID) (*Professional, error) {
	row := conn.QueryRow(ctx, `
		SELECT `+columns+`
		FROM professionals
		WHERE id = $1
		FOR UPDATE
	`, id)
	return Scan(row)
}
