package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
)

// Availability re-checks a requested instant against the slot generator.
type Availability interface {
	IsBookable(ctx context.Context, professionalID uuid.UUID, at time.Time) (bool, error)
}

type Deps struct {
	Repo          Repository
	Slots         Availability
	Professionals professional.Repository
	Upserter      *patient.Upserter
	Mailer        notification.Mailer
	Location      *time.Location
	Logger        zerolog.Logger
}

type Service struct {
	repo          Repository
	slots         Availability
	professionals professional.Repository
	upserter      *patient.Upserter
	mailer        notification.Mailer
	loc           *time.Location
	log           zerolog.Logger
}

func NewService(d Deps) *Service {
	if d.Upserter == nil {
		d.Upserter = patient.NewUpserter(patient.PolicyOverwrite)
	}
	if d.Mailer == nil {
		d.Mailer = notification.NopMailer{Log: d.Logger}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &Service{
		repo:          d.Repo,
		slots:         d.Slots,
		professionals: d.Professionals,
		upserter:      d.Upserter,
		mailer:        d.Mailer,
		loc:           d.Location,
		log:           d.Logger.With().Str("component", "appointment").Logger(),
	}
}

// BookPublic books a slot for a self-service patient. The professional must
// be active and the instant must be one of their currently open slots.
func (s *Service) BookPublic(ctx context.Context, req BookingRequest) (*Booking, error) {
	req.CreatedBy = nil
	if err := validateBooking(&req); err != nil {
		return nil, err
	}

	if s.professionals != nil {
		prof, err := s.professionals.Get(ctx, req.ProfessionalID)
		if err != nil {
			return nil, err
		}
		if !prof.Active {
			return nil, professional.ErrProfessionalNotFound
		}
	}

	ok, err := s.slots.IsBookable(ctx, req.ProfessionalID, req.DateTime)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !ok {
		return nil, ErrSlotUnavailable
	}

	return s.book(ctx, req, true)
}

// BookManual books on behalf of staff. It skips the slot generator but still
// goes through the conflict guard.
func (s *Service) BookManual(ctx context.Context, req BookingRequest) (*Booking, error) {
	if err := validateBooking(&req); err != nil {
		return nil, err
	}
	return s.book(ctx, req, false)
}

func validateBooking(req *BookingRequest) error {
	if req.ProfessionalID == uuid.Nil {
		return fmt.Errorf("%w: professional is required", ErrInvalidBooking)
	}
	if req.DateTime.IsZero() {
		return fmt.Errorf("%w: date and time are required", ErrInvalidBooking)
	}
	req.Patient = req.Patient.Normalize()
	if err := req.Patient.Validate(); err != nil {
		return err
	}
	if req.Reason != nil && strings.TrimSpace(*req.Reason) == "" {
		req.Reason = nil
	}
	return nil
}

// book is the conflict guard: lock, check, upsert, insert, notify, commit.
// The confirmation email goes out only after commit.
func (s *Service) book(ctx context.Context, req BookingRequest, activeOnly bool) (*Booking, error) {
	var booking Booking

	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		prof, err := tx.LockProfessional(ctx, req.ProfessionalID)
		if err != nil {
			return err
		}
		if activeOnly && !prof.Active {
			return professional.ErrProfessionalNotFound
		}

		if _, err := tx.FindActiveAt(ctx, prof.ID, req.DateTime); err == nil {
			return ErrSlotUnavailable
		} else if !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}

		p, err := s.upserter.Upsert(ctx, tx.Patients(), req.Patient, req.CreatedBy)
		if err != nil {
			return fmt.Errorf("upsert patient: %w", err)
		}

		appt, err := tx.InsertAppointment(ctx, Appointment{
			ProfessionalID: prof.ID,
			PatientID:      p.ID,
			DateTime:       req.DateTime,
			Status:         StatusScheduled,
			Reason:         req.Reason,
		})
		if err != nil {
			if errors.Is(err, ErrSlotUnavailable) {
				return err
			}
			return fmt.Errorf("insert appointment: %w", err)
		}

		err = tx.InsertNotification(ctx, notification.Notification{
			UserID:  prof.ID,
			Type:    notification.TypeNewAppointment,
			Message: notification.NewAppointmentMessage(p.FullName(), appt.DateTime, s.loc),
		})
		if err != nil {
			s.log.Warn().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("failed to record in-app notification")
		}

		booking = Booking{Appointment: *appt, Patient: *p, Professional: *prof}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", booking.Appointment.ID.String()).
		Str("professional_id", booking.Professional.ID.String()).
		Str("patient_id", booking.Patient.ID.String()).
		Time("date_time", booking.Appointment.DateTime).
		Msg("appointment booked")

	s.sendConfirmation(ctx, booking)

	return &booking, nil
}

func (s *Service) sendConfirmation(ctx context.Context, b Booking) {
	if b.Patient.Email == nil {
		return
	}

	msg, err := notification.RenderBookingConfirmation(notification.BookingConfirmation{
		PatientName:      b.Patient.FullName(),
		ProfessionalName: b.Professional.FullName(),
		DateTime:         b.Appointment.DateTime,
		Location:         s.loc,
	})
	if err == nil {
		err = s.mailer.Send(ctx, *b.Patient.Email, msg)
	}
	if err != nil {
		s.log.Error().Err(err).
			Str("appointment_id", b.Appointment.ID.String()).
			Msg("failed to send booking confirmation")
	}
}

// Get returns the appointment if scope allows it. Out of scope rows are
// reported as missing.
func (s *Service) Get(ctx context.Context, scope Scope, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(a.ProfessionalID) {
		return nil, ErrAppointmentNotFound
	}
	return a, nil
}

// List applies the scope on top of the filter's professional.
func (s *Service) List(ctx context.Context, scope Scope, f ListFilter) ([]AppointmentDetail, error) {
	if scope.ProfessionalID != nil {
		f.ProfessionalID = scope.ProfessionalID
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidBooking)
	}

	list, err := s.repo.List(ctx, f.normalized())
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return list, nil
}

// UpdateStatus allows any transition between known statuses.
func (s *Service) UpdateStatus(ctx context.Context, scope Scope, id uuid.UUID, status Status) (*Appointment, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("status", string(status)).
		Msg("appointment status changed")

	return updated, nil
}

// Reprogram moves an appointment to a new instant through the same guard as
// booking. The moved appointment is SCHEDULED again.
func (s *Service) Reprogram(ctx context.Context, scope Scope, id uuid.UUID, at time.Time) (*Appointment, error) {
	if at.IsZero() {
		return nil, fmt.Errorf("%w: date and time are required", ErrInvalidBooking)
	}

	var moved *Appointment

	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !scope.Allows(current.ProfessionalID) {
			return ErrAppointmentNotFound
		}

		if _, err := tx.LockProfessional(ctx, current.ProfessionalID); err != nil {
			return err
		}

		other, err := tx.FindActiveAt(ctx, current.ProfessionalID, at)
		switch {
		case err == nil && other.ID != current.ID:
			return ErrSlotUnavailable
		case err != nil && !errors.Is(err, ErrAppointmentNotFound):
			return fmt.Errorf("check slot: %w", err)
		}

		moved, err = tx.Reschedule(ctx, id, at)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Time("date_time", moved.DateTime).
		Msg("appointment reprogrammed")

	return moved, nil
}

func (s *Service) UpdateNotes(ctx context.Context, scope Scope, id uuid.UUID, notes *string) (*Appointment, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	return s.repo.UpdateNotes(ctx, id, notes)
}

// Purge hard-deletes an appointment and its clinical records.
func (s *Service) Purge(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Warn().Str("appointment_id", id.String()).Msg("appointment purged")
	return nil
}
