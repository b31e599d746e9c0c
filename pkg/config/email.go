package config

import (
	"time"

	"github.com/eduverse/accountd/pkg/notification"
)

// EmailConfig selects and configures the email transport.
type EmailConfig struct {
	// Provider is one of smtp, resend or log.
	Provider     string        `env:"EMAIL_PROVIDER" env-default:"log"`
	Host         string        `env:"EMAIL_HOST" env-default:"localhost"`
	Port         uint16        `env:"EMAIL_PORT" env-default:"1025"`
	Username     string        `env:"EMAIL_USERNAME"`
	Password     string        `env:"EMAIL_PASSWORD"`
	From         string        `env:"EMAIL_FROM" env-default:"noreply@eduverse.app"`
	FromName     string        `env:"EMAIL_FROM_NAME" env-default:"EduVerse"`
	TLS          bool          `env:"EMAIL_TLS" env-default:"false"`
	Timeout      time.Duration `env:"EMAIL_TIMEOUT" env-default:"30s"`
	ResendAPIKey string        `env:"RESEND_API_KEY"`
}

// ToSMTPConfig converts the config to a notification.SMTPConfig
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     e.Host,
		Port:     int(e.Port),
		Username: e.Username,
		Password: e.Password,
		From:     e.From,
		FromName: e.FromName,
		TLS:      e.TLS,
		Timeout:  e.Timeout,
	}
}

// NewNotifier builds the notifier for Provider.
func (e EmailConfig) NewNotifier() (notification.Notifier, error) {
	switch e.Provider {
	case "smtp":
		return notification.NewEmailNotifier(e.ToSMTPConfig())
	case "resend":
		return notification.NewResendNotifier(e.ResendAPIKey, e.From)
	default:
		return notification.LogNotifier{}, nil
	}
}
