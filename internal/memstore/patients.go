package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
)

var (
	_ patient.Repository = (*Patients)(nil)
	_ patient.Store      = patientTable{}
)

// patientTable works on the maps directly; callers hold the store mutex.
type patientTable struct {
	s *Store
}

func (t patientTable) FindByDNI(_ context.Context, dni string) (*patient.Patient, error) {
	for _, p := range t.s.patients {
		if p.DNI == dni {
			return &p, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (t patientTable) Insert(ctx context.Context, p patient.Patient) (*patient.Patient, error) {
	if _, err := t.FindByDNI(ctx, p.DNI); err == nil {
		return nil, nil
	}
	now := t.s.now()
	p.ID = uuid.New()
	p.CreatedAt, p.UpdatedAt = now, now
	t.s.patients[p.ID] = p
	return &p, nil
}

func (t patientTable) UpdateContact(_ context.Context, id uuid.UUID, d patient.Details) (*patient.Patient, error) {
	p, ok := t.s.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	p.FirstName = d.FirstName
	p.LastName = d.LastName
	p.Email = d.Email
	p.Phone = d.Phone
	p.BirthDate = d.BirthDate
	p.UpdatedAt = t.s.now()
	t.s.patients[id] = p
	return &p, nil
}

type Patients struct {
	s *Store
}

func (r *Patients) table() patientTable { return patientTable{s: r.s} }

func (r *Patients) FindByDNI(ctx context.Context, dni string) (*patient.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.table().FindByDNI(ctx, dni)
}

func (r *Patients) Insert(ctx context.Context, p patient.Patient) (*patient.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.table().Insert(ctx, p)
}

func (r *Patients) UpdateContact(ctx context.Context, id uuid.UUID, d patient.Details) (*patient.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.table().UpdateContact(ctx, id, d)
}

func (r *Patients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return &p, nil
}

func (r *Patients) List(_ context.Context, f patient.ListFilter) ([]patient.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	matches := func(p patient.Patient) bool {
		if search == "" {
			return true
		}
		for _, field := range []string{p.DNI, p.FirstName, p.LastName} {
			if strings.Contains(strings.ToLower(field), search) {
				return true
			}
		}
		return false
	}

	all := []patient.Patient{}
	for _, p := range r.s.patients {
		if f.Active != nil && p.Active != *f.Active {
			continue
		}
		if matches(p) {
			all = append(all, p)
		}
	}
	slices.SortFunc(all, func(a, b patient.Patient) int {
		if c := cmp.Compare(a.LastName, b.LastName); c != 0 {
			return c
		}
		if c := cmp.Compare(a.FirstName, b.FirstName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	return page(all, f.Offset, f.Limit), nil
}

func (r *Patients) Update(_ context.Context, id uuid.UUID, d patient.Details) (*patient.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	for _, other := range r.s.patients {
		if other.ID != id && other.DNI == d.DNI {
			return nil, patient.ErrDuplicateDNI
		}
	}

	p.DNI = d.DNI
	p.FirstName = d.FirstName
	p.LastName = d.LastName
	p.Email = d.Email
	p.Phone = d.Phone
	p.BirthDate = d.BirthDate
	p.UpdatedAt = r.s.now()
	r.s.patients[id] = p
	return &p, nil
}

func (r *Patients) SetActive(_ context.Context, id uuid.UUID, active bool) (*patient.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	p.Active = active
	p.UpdatedAt = r.s.now()
	r.s.patients[id] = p
	return &p, nil
}

// Delete cascades to the patient's appointments.
func (r *Patients) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.patients[id]; !ok {
		return patient.ErrPatientNotFound
	}
	delete(r.s.patients, id)
	for aid, a := range r.s.appointments {
		if a.PatientID == id {
			delete(r.s.appointments, aid)
		}
	}
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
