package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Message is a rendered plain-text email.
type Message struct {
	Subject string
	Body    string
}

// Mailer delivers email. Callers treat failures as non-fatal.
type Mailer interface {
	Send(ctx context.Context, to string, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", to)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// NopMailer logs the message instead of sending it. Used when SMTP is not
// configured.
type NopMailer struct {
	Log zerolog.Logger
}

func (m NopMailer) Send(_ context.Context, to string, msg Message) error {
	m.Log.Debug().
		Str("to", to).
		Str("subject", msg.Subject).
		Msg("email disabled, message dropped")
	return nil
}
