package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer delivers account credentials to users
type Mailer interface {
	SendCredentials(ctx context.Context, to, password string) error
}

// SMTPConfig holds the outgoing mail server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a mailer for cfg
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// CredentialsMessage builds the credentials email
func CredentialsMessage(from, to, password string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your maintenance portal password")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello,\n\nYour maintenance portal password is: %s\n\nPlease change it after signing in.\n", password))
	return msg
}

func (m *SMTPMailer) SendCredentials(ctx context.Context, to, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(CredentialsMessage(m.cfg.From, to, password)); err != nil {
		return fmt.Errorf("send credentials to %s: %w", to, err)
	}
	return nil
}

// LogMailer records deliveries in the log without sending anything.
// The password itself is never logged.
type LogMailer struct {
	Log zerolog.Logger
}

func (m LogMailer) SendCredentials(_ context.Context, to, _ string) error {
	m.Log.Info().Str("to", to).Msg("smtp disabled, credentials not emailed")
	return nil
}

// New returns an SMTPMailer when a host is configured, a LogMailer otherwise
func New(cfg SMTPConfig, log zerolog.Logger) Mailer {
	if cfg.Host == "" {
		return LogMailer{Log: log}
	}
	return NewSMTPMailer(cfg)
}
