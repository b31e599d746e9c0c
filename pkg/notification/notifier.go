package notification

import "context"

// Email is a rendered message ready for delivery.
type Email struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string

	// IdempotencyKey lets providers that support it drop duplicate sends
	// when the outbox retries a job.
	IdempotencyKey string
}

// Notifier delivers rendered emails through one transport.
type Notifier interface {
	Send(ctx context.Context, email Email) error
}
