package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendNotifier sends email through the Resend REST API. By default each
// Send makes a single API call and leaves retries to the caller (the outbox).
type ResendNotifier struct {
	from       string
	client     *resend.Client
	maxRetries int
}

type ResendOption func(*ResendNotifier)

// WithResendRetries lets Send retry rate-limited and timed-out calls itself,
// up to attempts calls in total.
func WithResendRetries(attempts int) ResendOption {
	return func(s *ResendNotifier) {
		if attempts > 0 {
			s.maxRetries = attempts
		}
	}
}

func NewResendNotifier(apiKey, from string, opts ...ResendOption) (*ResendNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	s := &ResendNotifier{
		from:       from,
		client:     resend.NewClient(apiKey),
		maxRetries: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ResendNotifier) Send(ctx context.Context, email Email) error {
	if email.To == "" {
		return fmt.Errorf("email notification requires 'To' address")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Text:    email.Text,
		Html:    email.HTML,
	}

	options := &resend.SendEmailOptions{}
	if key := strings.TrimSpace(email.IdempotencyKey); key != "" {
		options.IdempotencyKey = key
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		sent, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			slog.Info("Email sent successfully", "to", email.To, "id", sent.Id)
			return nil
		}
		lastErr = err

		if attempt+1 >= s.maxRetries {
			break
		}
		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
