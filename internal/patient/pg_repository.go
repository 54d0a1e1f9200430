package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
)

const columns = `id, dni, first_name, last_name, email, phone, birth_date, active, created_by, created_at, updated_at`

// PgRepository works on a pool or on a transaction, see db.DBTX.
type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.DNI,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&p.BirthDate,
		&p.Active,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) FindByDNI(ctx context.Context, dni string) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+columns+`
		FROM patients
		WHERE dni = $1
	`, dni)
	return scanPatient(row)
}

func (r *PgRepository) Insert(ctx context.Context, p Patient) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, dni, first_name, last_name, email, phone, birth_date, active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (dni) DO NOTHING
		RETURNING `+columns,
		uuid.New(), p.DNI, p.FirstName, p.LastName, p.Email, p.Phone, p.BirthDate, p.Active, p.CreatedBy)

	created, err := scanPatient(row)
	switch {
	case errors.Is(err, ErrPatientNotFound):
		return nil, nil
	case err != nil:
		return nil, db.TranslateError(err)
	}
	return created, nil
}

func (r *PgRepository) UpdateContact(ctx context.Context, id uuid.UUID, d Details) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    phone = $5,
		    birth_date = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+columns,
		id, d.FirstName, d.LastName, d.Email, d.Phone, d.BirthDate)
	return scanPatient(row)
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+columns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Patient, error) {
	f = f.normalized()

	rows, err := r.db.Query(ctx, `
		SELECT `+columns+`
		FROM patients
		WHERE ($1 = '' OR dni ILIKE '%' || $1 || '%'
		               OR first_name ILIKE '%' || $1 || '%'
		               OR last_name ILIKE '%' || $1 || '%')
		  AND ($2::boolean IS NULL OR active = $2)
		ORDER BY last_name, first_name, id
		LIMIT $3 OFFSET $4
	`, f.Search, f.Active, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, d Details) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET dni = $2,
		    first_name = $3,
		    last_name = $4,
		    email = $5,
		    phone = $6,
		    birth_date = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+columns,
		id, d.DNI, d.FirstName, d.LastName, d.Email, d.Phone, d.BirthDate)

	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(db.TranslateError(err), db.ErrUniqueViolation) {
			return nil, ErrDuplicateDNI
		}
		return nil, err
	}
	return p, nil
}

func (r *PgRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+columns,
		id, active)
	return scanPatient(row)
}

// Delete removes the patient together with its appointments and clinical
// records.
func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}
