package patient

import (
	"context"

	"github.com/google/uuid"
)

// Store is the part of the patient table the booking transaction needs.
// Implementations bound to a transaction must run every call inside it.
type Store interface {
	FindByDNI(ctx context.Context, dni string) (*Patient, error)
	// Insert returns (nil, nil) when a row with the same DNI already exists.
	Insert(ctx context.Context, p Patient) (*Patient, error)
	UpdateContact(ctx context.Context, id uuid.UUID, d Details) (*Patient, error)
}

type Repository interface {
	Store

	Get(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, f ListFilter) ([]Patient, error)
	// Update rewrites every field including the DNI.
	Update(ctx context.Context, id uuid.UUID, d Details) (*Patient, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
