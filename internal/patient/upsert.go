package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Policy string

const (
	// PolicyOverwrite replaces stored contact fields with the submitted ones.
	PolicyOverwrite Policy = "overwrite"
	// PolicyPreserve keeps stored values and only fills fields that are empty.
	PolicyPreserve Policy = "preserve"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyOverwrite, PolicyPreserve:
		return p, nil
	case "":
		return PolicyOverwrite, nil
	default:
		return "", fmt.Errorf("unknown patient upsert policy %q", s)
	}
}

// Upserter finds or creates a patient by DNI.
type Upserter struct {
	policy Policy
}

func NewUpserter(policy Policy) *Upserter {
	if policy == "" {
		policy = PolicyOverwrite
	}
	return &Upserter{policy: policy}
}

func (u *Upserter) Policy() Policy {
	return u.policy
}

// Upsert returns the patient with d.DNI, creating it when absent. createdBy
// is recorded on insert only. Sequential calls never create two rows for one
// DNI; concurrent callers must share the store's transaction or rely on the
// unique constraint, which makes Insert report the existing row.
func (u *Upserter) Upsert(ctx context.Context, store Store, d Details, createdBy *uuid.UUID) (*Patient, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	existing, err := store.FindByDNI(ctx, d.DNI)
	switch {
	case errors.Is(err, ErrPatientNotFound):
		created, err := store.Insert(ctx, Patient{
			DNI:       d.DNI,
			FirstName: d.FirstName,
			LastName:  d.LastName,
			Email:     d.Email,
			Phone:     d.Phone,
			BirthDate: d.BirthDate,
			Active:    true,
			CreatedBy: createdBy,
		})
		if err != nil {
			return nil, fmt.Errorf("insert patient: %w", err)
		}
		if created != nil {
			return created, nil
		}
		// Lost an insert race; continue as an update of the winner's row.
		existing, err = store.FindByDNI(ctx, d.DNI)
		if err != nil {
			return nil, fmt.Errorf("reload patient: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find patient by dni: %w", err)
	}

	merged, changed := u.merge(*existing, d)
	if !changed {
		return existing, nil
	}

	updated, err := store.UpdateContact(ctx, existing.ID, merged)
	if err != nil {
		return nil, fmt.Errorf("update patient contact: %w", err)
	}
	return updated, nil
}

// merge applies d on top of p according to the policy. Optional fields that
// were not submitted never erase stored values.
func (u *Upserter) merge(p Patient, d Details) (Details, bool) {
	out := Details{
		DNI:       p.DNI,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		BirthDate: p.BirthDate,
	}

	switch u.policy {
	case PolicyPreserve:
		if out.Email == nil {
			out.Email = d.Email
		}
		if out.Phone == nil {
			out.Phone = d.Phone
		}
		if out.BirthDate == nil {
			out.BirthDate = d.BirthDate
		}
	default:
		out.FirstName = d.FirstName
		out.LastName = d.LastName
		if d.Email != nil {
			out.Email = d.Email
		}
		if d.Phone != nil {
			out.Phone = d.Phone
		}
		if d.BirthDate != nil {
			out.BirthDate = d.BirthDate
		}
	}

	changed := out.FirstName != p.FirstName ||
		out.LastName != p.LastName ||
		!equalString(out.Email, p.Email) ||
		!equalString(out.Phone, p.Phone) ||
		!equalDate(out.BirthDate, p.BirthDate)

	return out, changed
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
