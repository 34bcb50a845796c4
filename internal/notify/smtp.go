package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"beefirst/internal/platform/config"
)

// mailDialer is the part of *gomail.Dialer the SMTP sink uses.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP sends verification codes as plain text email.
type SMTP struct {
	dialer mailDialer
	from   string
}

func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTP) Send(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your verification code")
	m.SetBody("text/plain", fmt.Sprintf(
		"Your verification code is %s.\n\nIt expires shortly. If you did not request it, ignore this email.\n", code))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
