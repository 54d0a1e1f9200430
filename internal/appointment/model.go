package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
)

type Status string

const (
	StatusScheduled            Status = "SCHEDULED"
	StatusConfirmed            Status = "CONFIRMED"
	StatusCompleted            Status = "COMPLETED"
	StatusCanceledPatient      Status = "CANCELED_PATIENT"
	StatusCanceledProfessional Status = "CANCELED_PROFESSIONAL"
	StatusNoShow               Status = "NO_SHOW"
)

var allStatuses = []Status{
	StatusScheduled,
	StatusConfirmed,
	StatusCompleted,
	StatusCanceledPatient,
	StatusCanceledProfessional,
	StatusNoShow,
}

func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, s)
}

// IsCanceled reports whether the appointment no longer holds its slot.
func (s Status) IsCanceled() bool {
	return strings.HasPrefix(string(s), "CANCELED")
}

type Appointment struct {
	ID                uuid.UUID
	ProfessionalID    uuid.UUID
	PatientID         uuid.UUID
	DateTime          time.Time
	Status            Status
	Reason            *string
	ProfessionalNotes *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AppointmentDetail is an appointment with the patient fields list views show.
type AppointmentDetail struct {
	Appointment
	PatientDNI       string
	PatientFirstName string
	PatientLastName  string
}

type BookingRequest struct {
	ProfessionalID uuid.UUID
	DateTime       time.Time
	Patient        patient.Details
	Reason         *string
	CreatedBy      *uuid.UUID // staff user for manual bookings, nil for public ones
}

// Booking is the result of a successful booking.
type Booking struct {
	Appointment  Appointment
	Patient      patient.Patient
	Professional professional.Professional
}

// Scope restricts which appointments a caller may see or change. A nil
// ProfessionalID means unrestricted.
type Scope struct {
	ProfessionalID *uuid.UUID
}

func Unrestricted() Scope { return Scope{} }

func OwnedBy(professionalID uuid.UUID) Scope {
	return Scope{ProfessionalID: &professionalID}
}

func (s Scope) Allows(professionalID uuid.UUID) bool {
	return s.ProfessionalID == nil || *s.ProfessionalID == professionalID
}

type ListFilter struct {
	ProfessionalID *uuid.UUID
	PatientID      *uuid.UUID
	From           *time.Time // inclusive
	To             *time.Time // exclusive
	Status         *Status
	Limit          int
	Offset         int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
