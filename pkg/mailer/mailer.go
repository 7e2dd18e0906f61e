// Package mailer delivers plain-text notifications over SMTP, the SendGrid API
// or the process log.
package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/moodle-engagement-api/pkg/config"
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
)

// Message is a single plain-text mail.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a message in one attempt.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// CredentialReporter is implemented by senders that normalise credentials.
type CredentialReporter interface {
	CredentialsAltered() bool
}

// New selects the sender configured by cfg.Driver.
func New(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", config.MailDriverSMTP:
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			Timeout:  cfg.Timeout,
		}), nil
	case config.MailDriverSendgrid:
		if cfg.SendgridAPIKey == "" {
			return nil, appErrors.Clone(appErrors.ErrUnsupportedConfig, "SENDGRID_API_KEY is required for the sendgrid mail driver")
		}
		return NewSendgridSender(cfg.SendgridAPIKey, cfg.Timeout), nil
	case config.MailDriverConsole:
		return NewConsoleSender(logger), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedConfig, fmt.Sprintf("unknown mail driver %q", cfg.Driver))
	}
}
