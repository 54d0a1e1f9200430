package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrSlotUnavailable means another non-canceled appointment holds the
	// professional and start instant.
	ErrSlotUnavailable = errors.New("slot is no longer available, please choose another one")
	ErrInvalidBooking  = errors.New("invalid booking request")
	ErrInvalidStatus   = errors.New("invalid appointment status")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// WithinTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, f ListFilter) ([]AppointmentDetail, error)
	// UpdateStatus returns ErrSlotUnavailable when un-canceling would
	// collide with another active appointment.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes *string) (*Appointment, error)
	// Delete removes the appointment and its clinical records.
	Delete(ctx context.Context, id uuid.UUID) error

	// BookedTimes returns start instants of non-canceled appointments in [from, to).
	BookedTimes(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]time.Time, error)
}

// Tx is the booking transaction.
type Tx interface {
	// LockProfessional holds a row lock on the professional until the
	// transaction ends, so bookings for one professional run one at a time.
	LockProfessional(ctx context.Context, id uuid.UUID) (*professional.Professional, error)
	// FindActiveAt returns the non-canceled appointment at (professionalID,
	// at), locked for update, or ErrAppointmentNotFound.
	FindActiveAt(ctx context.Context, professionalID uuid.UUID, at time.Time) (*Appointment, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// InsertAppointment returns ErrSlotUnavailable on a uniqueness violation.
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	// Reschedule moves the appointment to at and marks it SCHEDULED.
	Reschedule(ctx context.Context, id uuid.UUID, at time.Time) (*Appointment, error)
	Patients() patient.Store
	// InsertNotification failures leave the rest of the transaction usable.
	InsertNotification(ctx context.Context, n notification.Notification) error
}
