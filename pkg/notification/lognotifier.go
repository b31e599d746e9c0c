package notification

import (
	"context"
	"log/slog"
)

// LogNotifier writes emails to the log instead of delivering them. Used when
// no email provider is configured.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, email Email) error {
	slog.Info("Email not delivered (log provider)", "to", email.To, "subject", email.Subject, "text", email.Text)
	return nil
}
