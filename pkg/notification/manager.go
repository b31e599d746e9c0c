package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"sync"
	texttemplate "text/template"
)

// NoticeType represents a kind of transactional email (e.g. "verification_code").
type NoticeType string

const (
	VerificationCodeNotice NoticeType = "verification_code"
	PasswordChangedNotice  NoticeType = "password_changed"
)

// ErrNoTemplate is returned by Send for notice types that were never registered.
var ErrNoTemplate = errors.New("no template registered for notice type")

// NoticeTemplate holds the subject and bodies of a notice. At least one of
// Text and Html must be set.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// NotificationData is the per-recipient input of a notice.
type NotificationData struct {
	To             string            // Recipient email address
	Name           string            // Optional display name
	Data           map[string]string // Template variables
	IdempotencyKey string
}

type compiledTemplate struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// NotificationManager renders registered notice templates and hands the result
// to its Notifier.
type NotificationManager struct {
	notifier Notifier
	mu       sync.RWMutex
	registry map[NoticeType]compiledTemplate
}

// NewNotificationManager creates a manager that sends through notifier.
func NewNotificationManager(notifier Notifier, opts ...NotificationManagerOption) (*NotificationManager, error) {
	nm := &NotificationManager{
		notifier: notifier,
		registry: make(map[NoticeType]compiledTemplate),
	}
	for _, opt := range opts {
		if err := opt(nm); err != nil {
			return nil, err
		}
	}
	return nm, nil
}

// RegisterNotification parses and stores the template for a notice type,
// replacing any earlier registration.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, tmpl NoticeTemplate) error {
	if noticeType == "" {
		return fmt.Errorf("invalid input: notice type cannot be empty")
	}
	if tmpl.Subject == "" {
		return fmt.Errorf("invalid input: template subject cannot be empty")
	}
	if tmpl.Text == "" && tmpl.Html == "" {
		return fmt.Errorf("invalid input: template needs a text or html body")
	}

	compiled := compiledTemplate{subject: tmpl.Subject}
	if tmpl.Text != "" {
		t, err := texttemplate.New(string(noticeType) + ".txt").Option("missingkey=error").Parse(tmpl.Text)
		if err != nil {
			return fmt.Errorf("parse text template %s: %w", noticeType, err)
		}
		compiled.text = t
	}
	if tmpl.Html != "" {
		t, err := htmltemplate.New(string(noticeType) + ".html").Option("missingkey=error").Parse(tmpl.Html)
		if err != nil {
			return fmt.Errorf("parse html template %s: %w", noticeType, err)
		}
		compiled.html = t
	}

	nm.mu.Lock()
	nm.registry[noticeType] = compiled
	nm.mu.Unlock()
	return nil
}

// Render produces the email for a notice without sending it.
func (nm *NotificationManager) Render(noticeType NoticeType, data NotificationData) (Email, error) {
	nm.mu.RLock()
	compiled, ok := nm.registry[noticeType]
	nm.mu.RUnlock()
	if !ok {
		return Email{}, fmt.Errorf("%w: %s", ErrNoTemplate, noticeType)
	}
	if data.To == "" {
		return Email{}, fmt.Errorf("notice %s requires a recipient", noticeType)
	}

	vars := make(map[string]string, len(data.Data)+2)
	for k, v := range data.Data {
		vars[k] = v
	}
	vars["Email"] = data.To
	if _, ok := vars["Name"]; !ok {
		vars["Name"] = displayName(data)
	}

	email := Email{
		To:             data.To,
		ToName:         data.Name,
		Subject:        compiled.subject,
		IdempotencyKey: data.IdempotencyKey,
	}
	if compiled.text != nil {
		var buf bytes.Buffer
		if err := compiled.text.Execute(&buf, vars); err != nil {
			return Email{}, fmt.Errorf("render text %s: %w", noticeType, err)
		}
		email.Text = buf.String()
	}
	if compiled.html != nil {
		var buf bytes.Buffer
		if err := compiled.html.Execute(&buf, vars); err != nil {
			return Email{}, fmt.Errorf("render html %s: %w", noticeType, err)
		}
		email.HTML = buf.String()
	}
	return email, nil
}

// Send renders the notice and delivers it.
func (nm *NotificationManager) Send(ctx context.Context, noticeType NoticeType, data NotificationData) error {
	email, err := nm.Render(noticeType, data)
	if err != nil {
		return err
	}
	if err := nm.notifier.Send(ctx, email); err != nil {
		slog.Error("Failed to send notice", "type", noticeType, "to", data.To, "err", err)
		return err
	}
	return nil
}

func displayName(data NotificationData) string {
	if data.Name != "" {
		return data.Name
	}
	for i := 0; i < len(data.To); i++ {
		if data.To[i] == '@' {
			return data.To[:i]
		}
	}
	return data.To
}
