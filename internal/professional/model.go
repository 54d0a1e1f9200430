package professional

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrProfessionalNotFound = errors.New("professional not found")

type Professional struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Specialty *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Professional) FullName() string {
	return p.FirstName + " " + p.LastName
}
