// Package mailer sends account notification emails.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

const welcomeSubject = "Welcome to Our Application!"

const welcomeBody = `Hello %s,

Welcome to our application! We're thrilled to have you on board.

If you have any questions, feel free to reach out to our support team.

Best regards,
The App Team
`

// Sender delivers the welcome email to a newly registered user.
type Sender interface {
	SendWelcome(ctx context.Context, email, name string) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	host    string
	port    int
	from    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewSMTPSender creates a sender for the relay at host:port.
func NewSMTPSender(host string, port int, from string, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		host:    host,
		port:    port,
		from:    from,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

func (s *SMTPSender) SendWelcome(ctx context.Context, email, name string) error {
	msg, err := welcomeMessage(s.from, email, name)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(s.timeout),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending welcome email: %w", err)
	}

	s.logger.Info("welcome email sent", "email", email)
	return nil
}

func welcomeMessage(from, to, name string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(welcomeSubject)
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(welcomeBody, name))
	return msg, nil
}

// LogSender only logs. It is used when no SMTP relay is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendWelcome(_ context.Context, email, name string) error {
	s.logger.Info("welcome email skipped: no smtp relay configured", "email", email, "name", name)
	return nil
}
