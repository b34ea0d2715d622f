package mailer

import (
	"fmt"
	"net/smtp"
	"os"

	"github.com/rs/zerolog"
)

// SendRegistrationEmail notifies a participant about their registration.
// SMTP settings come from SMTP_ADDR, SMTP_HOST, SMTP_FROM and SMTP_PASS.
func SendRegistrationEmail(log *zerolog.Logger, eventTitle, status, recipientEmail string) error {
	from := os.Getenv("SMTP_FROM")
	pass := os.Getenv("SMTP_PASS")
	host := os.Getenv("SMTP_HOST")
	addr := os.Getenv("SMTP_ADDR")
	if host == "" {
		host = "smtp.gmail.com"
	}
	if addr == "" {
		addr = host + ":587"
	}

	var subject, body string
	switch status {
	case "approved":
		subject = "Your registration is confirmed"
		body = fmt.Sprintf("Hi!\n\nYour registration for \"%s\" has been approved. See you there!", eventTitle)
	default:
		subject = "We received your registration"
		body = fmt.Sprintf("Hi!\n\nYou are registered for \"%s\". We will follow up once your registration is reviewed.", eventTitle)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, recipientEmail, subject, body,
	)

	auth := smtp.PlainAuth("", from, pass, host)

	if err := smtp.SendMail(addr, auth, from, []string{recipientEmail}, []byte(msg)); err != nil {
		log.Warn().Msgf("failed to send email to %s: %v", recipientEmail, err)
		return fmt.Errorf("send email: %w", err)
	}

	log.Info().Msgf("registration email sent to %s (status: %s)", recipientEmail, status)
	return nil
}
