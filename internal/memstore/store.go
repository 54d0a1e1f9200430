// Package memstore keeps every repository in process memory. It backs the
// service and HTTP tests and the api-server's --in-memory mode.
package memstore

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/appointment"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/professional"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

// Store holds all tables behind one mutex. A transaction holds the mutex
// for its whole duration, which gives serializable isolation.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	failNotifications bool

	professionals map[uuid.UUID]professional.Professional
	rules         map[uuid.UUID]schedule.Rule
	blocks        map[uuid.UUID]schedule.Block
	patients      map[uuid.UUID]patient.Patient
	appointments  map[uuid.UUID]appointment.Appointment
	notifications map[uuid.UUID]notification.Notification
}

func New() *Store {
	return &Store{
		now:           time.Now,
		professionals: map[uuid.UUID]professional.Professional{},
		rules:         map[uuid.UUID]schedule.Rule{},
		blocks:        map[uuid.UUID]schedule.Block{},
		patients:      map[uuid.UUID]patient.Patient{},
		appointments:  map[uuid.UUID]appointment.Appointment{},
		notifications: map[uuid.UUID]notification.Notification{},
	}
}

// AddProfessional inserts p, assigning an id when it has none.
func (s *Store) AddProfessional(p professional.Professional) professional.Professional {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.professionals[p.ID] = p
	return p
}

func (s *Store) Professionals() *Professionals { return &Professionals{s: s} }
func (s *Store) Schedule() *Schedule           { return &Schedule{s: s} }
func (s *Store) Patients() *Patients           { return &Patients{s: s} }
func (s *Store) Notifications() *Notifications { return &Notifications{s: s} }
func (s *Store) Appointments() *Appointments   { return &Appointments{s: s} }

type snapshot struct {
	patients      map[uuid.UUID]patient.Patient
	appointments  map[uuid.UUID]appointment.Appointment
	notifications map[uuid.UUID]notification.Notification
}

// snapshot copies the tables a transaction may write. Callers hold mu.
func (s *Store) snapshot() snapshot {
	return snapshot{
		patients:      maps.Clone(s.patients),
		appointments:  maps.Clone(s.appointments),
		notifications: maps.Clone(s.notifications),
	}
}

func (s *Store) restore(snap snapshot) {
	s.patients = snap.patients
	s.appointments = snap.appointments
	s.notifications = snap.notifications
}

var _ professional.Repository = (*Professionals)(nil)

type Professionals struct {
	s *Store
}

func (r *Professionals) List(_ context.Context, activeOnly bool) ([]professional.Professional, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []professional.Professional
	for _, p := range r.s.professionals {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b professional.Professional) int {
		if c := cmp.Compare(a.LastName, b.LastName); c != 0 {
			return c
		}
		return cmp.Compare(a.FirstName, b.FirstName)
	})
	return out, nil
}

func (r *Professionals) Get(_ context.Context, id uuid.UUID) (*professional.Professional, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.professionals[id]
	if !ok {
		return nil, professional.ErrProfessionalNotFound
	}
	return &p, nil
}
