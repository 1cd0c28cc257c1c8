package notify

import (
	"context"
	"fmt"
	"net/smtp"
)

// EmailConfig holds SMTP settings read from the environment at startup.
type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// EmailSender delivers notifications over plain SMTP. No third-party
// mail client is used: delivery mechanics are deliberately thin, the
// dispatcher treats any error as a logged non-event.
type EmailSender struct {
	cfg EmailConfig
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (e *EmailSender) send(_ context.Context, template string, recipient Recipient, payload Payload) error {
	if recipient.Email == "" {
		return fmt.Errorf("recipient has no email address")
	}
	if e.cfg.Host == "" {
		return fmt.Errorf("smtp not configured")
	}

	msg := render(template, recipient, payload)
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		e.cfg.From, recipient.Email, msg.Subject, msg.Body)

	addr := e.cfg.Host + ":" + e.cfg.Port
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	return smtp.SendMail(addr, auth, e.cfg.From, []string{recipient.Email}, []byte(body))
}
