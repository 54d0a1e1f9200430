package notification

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

const bookingConfirmationBody = `Hello {{.PatientName}},

Your appointment with {{.ProfessionalName}} is booked for {{.When}}.

If you cannot attend, please contact the clinic to cancel.
`

var templates = template.Must(template.New("booking_confirmation").Parse(bookingConfirmationBody))

type BookingConfirmation struct {
	PatientName      string
	ProfessionalName string
	DateTime         time.Time
	Location         *time.Location
}

// When formats the appointment time in the clinic timezone.
func (b BookingConfirmation) When() string {
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	return b.DateTime.In(loc).Format("Monday 02/01/2006 15:04")
}

func RenderBookingConfirmation(data BookingConfirmation) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "booking_confirmation", data); err != nil {
		return Message{}, fmt.Errorf("render booking confirmation: %w", err)
	}
	return Message{
		Subject: "Appointment confirmation",
		Body:    buf.String(),
	}, nil
}

// NewAppointmentMessage is the in-app text shown to the professional.
func NewAppointmentMessage(patientName string, at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("New appointment with %s on %s", patientName, at.In(loc).Format("02/01/2006 15:04"))
}
