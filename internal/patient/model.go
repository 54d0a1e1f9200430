package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalidPatient  = errors.New("invalid patient details")
	ErrDuplicateDNI    = errors.New("another patient already uses this dni")
)

type Patient struct {
	ID        uuid.UUID
	DNI       string
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	BirthDate *time.Time
	Active    bool
	CreatedBy *uuid.UUID // nil for self-service bookings
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Details are the fields a caller may submit for a patient. DNI is the
// natural key.
type Details struct {
	DNI       string
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	BirthDate *time.Time
}

// Normalize trims whitespace and turns blank optional fields into nil.
func (d Details) Normalize() Details {
	d.DNI = strings.TrimSpace(d.DNI)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = trimmedOrNil(d.Email)
	d.Phone = trimmedOrNil(d.Phone)
	return d
}

func (d Details) Validate() error {
	switch {
	case d.DNI == "":
		return fmt.Errorf("%w: dni is required", ErrInvalidPatient)
	case d.FirstName == "":
		return fmt.Errorf("%w: first name is required", ErrInvalidPatient)
	case d.LastName == "":
		return fmt.Errorf("%w: last name is required", ErrInvalidPatient)
	}
	return nil
}

type ListFilter struct {
	Search string // matches dni, first or last name
	Active *bool
	Limit  int
	Offset int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
