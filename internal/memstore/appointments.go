package memstore

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/appointment"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

var (
	_ appointment.Repository     = (*Appointments)(nil)
	_ appointment.Tx             = (*memTx)(nil)
	_ schedule.BookedTimesReader = (*Appointments)(nil)

	errNotificationsUnavailable = errors.New("notifications unavailable")
)

type Appointments struct {
	s *Store
}

// activeConflict reports whether another non-canceled appointment holds
// (professionalID, at). Mirrors the partial unique index. Callers hold mu.
func (s *Store) activeConflict(professionalID uuid.UUID, at time.Time, except uuid.UUID) bool {
	for _, a := range s.appointments {
		if a.ID == except || a.Status.IsCanceled() {
			continue
		}
		if a.ProfessionalID == professionalID && a.DateTime.Equal(at) {
			return true
		}
	}
	return false
}

func (r *Appointments) WithinTx(ctx context.Context, fn func(ctx context.Context, tx appointment.Tx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := r.s.snapshot()
	if err := fn(ctx, &memTx{s: r.s}); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

func (r *Appointments) Get(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *Appointments) List(_ context.Context, f appointment.ListFilter) ([]appointment.AppointmentDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []appointment.AppointmentDetail{}
	for _, a := range r.s.appointments {
		switch {
		case f.ProfessionalID != nil && a.ProfessionalID != *f.ProfessionalID:
			continue
		case f.PatientID != nil && a.PatientID != *f.PatientID:
			continue
		case f.From != nil && a.DateTime.Before(*f.From):
			continue
		case f.To != nil && !a.DateTime.Before(*f.To):
			continue
		case f.Status != nil && a.Status != *f.Status:
			continue
		}

		p := r.s.patients[a.PatientID]
		out = append(out, appointment.AppointmentDetail{
			Appointment:      a,
			PatientDNI:       p.DNI,
			PatientFirstName: p.FirstName,
			PatientLastName:  p.LastName,
		})
	}
	slices.SortFunc(out, func(a, b appointment.AppointmentDetail) int {
		if c := a.DateTime.Compare(b.DateTime); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	return page(out, f.Offset, f.Limit), nil
}

func (r *Appointments) UpdateStatus(_ context.Context, id uuid.UUID, status appointment.Status) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if !status.IsCanceled() && r.s.activeConflict(a.ProfessionalID, a.DateTime, a.ID) {
		return nil, appointment.ErrSlotUnavailable
	}
	a.Status = status
	a.UpdatedAt = r.s.now()
	r.s.appointments[id] = a
	return &a, nil
}

func (r *Appointments) UpdateNotes(_ context.Context, id uuid.UUID, notes *string) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.ProfessionalNotes = notes
	a.UpdatedAt = r.s.now()
	r.s.appointments[id] = a
	return &a, nil
}

func (r *Appointments) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.appointments[id]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	delete(r.s.appointments, id)
	return nil
}

func (r *Appointments) BookedTimes(_ context.Context, professionalID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []time.Time
	for _, a := range r.s.appointments {
		if a.ProfessionalID != professionalID || a.Status.IsCanceled() {
			continue
		}
		if a.DateTime.Before(from) || !a.DateTime.Before(to) {
			continue
		}
		out = append(out, a.DateTime)
	}
	slices.SortFunc(out, time.Time.Compare)
	return out, nil
}

// FailNotifications makes in-transaction notification inserts fail.
func (s *Store) FailNotifications(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNotifications = fail
}

// memTx runs with the store mutex held by WithinTx.
type memTx struct {
	s *Store
}

func (t *memTx) LockProfessional(_ context.Context, id uuid.UUID) (*professional.Professional, error) {
	p, ok := t.s.professionals[id]
	if !ok {
		return nil, professional.ErrProfessionalNotFound
	}
	return &p, nil
}

func (t *memTx) FindActiveAt(_ context.Context, professionalID uuid.UUID, at time.Time) (*appointment.Appointment, error) {
	for _, a := range t.s.appointments {
		if a.ProfessionalID == professionalID && a.DateTime.Equal(at) && !a.Status.IsCanceled() {
			return &a, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (t *memTx) GetForUpdate(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, ok := t.s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (t *memTx) InsertAppointment(_ context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	if !a.Status.IsCanceled() && t.s.activeConflict(a.ProfessionalID, a.DateTime, uuid.Nil) {
		return nil, appointment.ErrSlotUnavailable
	}
	now := t.s.now()
	a.ID = uuid.New()
	a.CreatedAt, a.UpdatedAt = now, now
	t.s.appointments[a.ID] = a
	return &a, nil
}

func (t *memTx) Reschedule(_ context.Context, id uuid.UUID, at time.Time) (*appointment.Appointment, error) {
	a, ok := t.s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if t.s.activeConflict(a.ProfessionalID, at, a.ID) {
		return nil, appointment.ErrSlotUnavailable
	}
	a.DateTime = at
	a.Status = appointment.StatusScheduled
	a.UpdatedAt = t.s.now()
	t.s.appointments[id] = a
	return &a, nil
}

func (t *memTx) Patients() patient.Store {
	return patientTable{s: t.s}
}

func (t *memTx) InsertNotification(_ context.Context, n notification.Notification) error {
	if t.s.failNotifications {
		return errNotificationsUnavailable
	}
	(&Notifications{s: t.s}).insert(n)
	return nil
}
