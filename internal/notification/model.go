package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

const TypeNewAppointment = "NEW_APPOINTMENT"

// Notification is an in-app message for a staff user.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      string
	Message   string
	Read      bool
	CreatedAt time.Time
}
