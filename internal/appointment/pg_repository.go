package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/db"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
)

const (
	columns         = `id, professional_id, patient_id, date_time, status, reason, professional_notes, created_at, updated_at`
	prefixedColumns = `a.id, a.professional_id, a.patient_id, a.date_time, a.status, a.reason, a.professional_notes, a.created_at, a.updated_at`

	activeSlotConstraint = "appointments_active_slot_key"
)

type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.ProfessionalID,
		&a.PatientID,
		&a.DateTime,
		&a.Status,
		&a.Reason,
		&a.ProfessionalNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// slotError maps a violation of the active slot index onto ErrSlotUnavailable.
func slotError(err error) error {
	err = db.TranslateError(err)
	if errors.Is(err, db.ErrUniqueViolation) && db.ConstraintOf(err) == activeSlotConstraint {
		return ErrSlotUnavailable
	}
	return err
}

func optionalStatus(s *Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// Interface methods

func (r *PgRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+columns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]AppointmentDetail, error) {
	f = f.normalized()

	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixedColumns+`, p.dni, p.first_name, p.last_name
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE ($1::uuid IS NULL OR a.professional_id = $1)
		  AND ($2::uuid IS NULL OR a.patient_id = $2)
		  AND ($3::timestamptz IS NULL OR a.date_time >= $3)
		  AND ($4::timestamptz IS NULL OR a.date_time < $4)
		  AND ($5::text IS NULL OR a.status = $5)
		ORDER BY a.date_time, a.id
		LIMIT $6 OFFSET $7
	`, f.ProfessionalID, f.PatientID, f.From, f.To, optionalStatus(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []AppointmentDetail{}
	for rows.Next() {
		var d AppointmentDetail
		err := rows.Scan(
			&d.ID,
			&d.ProfessionalID,
			&d.PatientID,
			&d.DateTime,
			&d.Status,
			&d.Reason,
			&d.ProfessionalNotes,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.PatientDNI,
			&d.PatientFirstName,
			&d.PatientLastName,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+columns,
		id, string(status))

	a, err := scanAppointment(row)
	if err != nil {
		return nil, slotError(err)
	}
	return a, nil
}

func (r *PgRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET professional_notes = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+columns,
		id, notes)
	return scanAppointment(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) BookedTimes(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_time
		FROM appointments
		WHERE professional_id = $1
		  AND date_time >= $2
		  AND date_time < $3
		  AND status NOT LIKE 'CANCELED%'
		ORDER BY date_time
	`, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// pgTx implements Tx on top of a pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockProfessional(ctx context.Context, id uuid.UUID) (*professional.Professional, error) {
	return professional.LockForBooking(ctx, t.tx, id)
}

func (t *pgTx) FindActiveAt(ctx context.Context, professionalID uuid.UUID, at time.Time) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+columns+`
		FROM appointments
		WHERE professional_id = $1
		  AND date_time = $2
		  AND status NOT LIKE 'CANCELED%'
		FOR UPDATE
	`, professionalID, at)
	return scanAppointment(row)
}

func (t *pgTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+columns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (t *pgTx) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO appointments (id, professional_id, patient_id, date_time, status, reason, professional_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+columns,
		uuid.New(), a.ProfessionalID, a.PatientID, a.DateTime, string(a.Status), a.Reason, a.ProfessionalNotes)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, slotError(err)
	}
	return created, nil
}

func (t *pgTx) Reschedule(ctx context.Context, id uuid.UUID, at time.Time) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET date_time = $2,
		    status = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+columns,
		id, at, string(StatusScheduled))

	a, err := scanAppointment(row)
	if err != nil {
		return nil, slotError(err)
	}
	return a, nil
}

func (t *pgTx) Patients() patient.Store {
	return patient.NewPgRepository(t.tx)
}

// InsertNotification writes inside a savepoint so a failed insert does not
// abort the booking transaction.
func (t *pgTx) InsertNotification(ctx context.Context, n notification.Notification) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("open savepoint: %w", err)
	}

	if _, err := notification.NewPgRepository(sp).Insert(ctx, n); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}
