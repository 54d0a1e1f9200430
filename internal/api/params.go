package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/appointment"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/auth"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/patient"
)

var errProfessionalRequired = errors.New("professionalId is required")

// localLayouts are accepted when the client sends a wall clock time without
// an offset; it is read in the clinic timezone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseDateTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date time %q, expected ISO 8601", raw)
}

func parseBirthDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("birthDate must be formatted as YYYY-MM-DD")
	}
	return &t, nil
}

func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID", name)
	}
	return id, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a valid UUID", name)
	}
	return &id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", name)
	}
	return &b, nil
}

// identity returns the caller set by auth.Middleware.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func scopeOf(id auth.Identity) appointment.Scope {
	if id.IsAdmin() {
		return appointment.Unrestricted()
	}
	return appointment.OwnedBy(id.UserID)
}

// actingProfessional resolves whose schedule a call works on. Professionals
// always act on themselves; admins name the professional explicitly.
func actingProfessional(id auth.Identity, requested string) (uuid.UUID, error) {
	if !id.IsAdmin() {
		return id.UserID, nil
	}
	if requested == "" {
		return uuid.Nil, errProfessionalRequired
	}
	pid, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, errors.New("professionalId must be a valid UUID")
	}
	return pid, nil
}

func (p PatientDetailsRequest) toDetails() (patient.Details, error) {
	birth, err := parseBirthDate(p.BirthDate)
	if err != nil {
		return patient.Details{}, err
	}
	return patient.Details{
		DNI:       p.DNI,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		BirthDate: birth,
	}, nil
}

func (p PublicPatientDetails) toDetails() (patient.Details, error) {
	return PatientDetailsRequest{
		DNI:       p.DNI,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     &p.Email,
		Phone:     &p.Phone,
		BirthDate: p.BirthDate,
	}.toDetails()
}
