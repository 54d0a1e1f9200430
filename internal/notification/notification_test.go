package notification

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBookingConfirmation(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)

	msg, err := RenderBookingConfirmation(BookingConfirmation{
		PatientName:      "Maria Gomez",
		ProfessionalName: "Ana Suarez",
		DateTime:         time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Location:         loc,
	})
	require.NoError(t, err)

	assert.Equal(t, "Appointment confirmation", msg.Subject)
	assert.Contains(t, msg.Body, "Hello Maria Gomez,")
	assert.Contains(t, msg.Body, "Ana Suarez")
	assert.Contains(t, msg.Body, "Monday 15/01/2024 09:00")
}

func TestNewAppointmentMessage(t *testing.T) {
	got := NewAppointmentMessage("Maria Gomez", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), nil)
	assert.Equal(t, "New appointment with Maria Gomez on 15/01/2024 09:30", got)
}

func TestNopMailer_DropsMessage(t *testing.T) {
	var buf bytes.Buffer
	m := NopMailer{Log: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	err := m.Send(context.Background(), "maria@example.com", Message{Subject: "hi"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "maria@example.com")
}

func TestSMTPMailer_HonoursCanceledContext(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.invalid", Port: 587, From: "clinic@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, "maria@example.com", Message{Subject: "hi", Body: "body"})
	assert.ErrorIs(t, err, context.Canceled)
}
