package notification

import (
	"embed"
	"fmt"
)

//go:embed templates/email/*
var templateFiles embed.FS

func loadTemplate(filename string) (string, error) {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", filename, err)
	}
	return string(content), nil
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithVerificationCodeTemplate registers the verification code email.
func WithVerificationCodeTemplate() NotificationManagerOption {
	return withEmbeddedTemplate(VerificationCodeNotice, "EduVerse - Email Verification Code", "verification_code")
}

// WithPasswordChangedTemplate registers the password changed confirmation email.
func WithPasswordChangedTemplate() NotificationManagerOption {
	return withEmbeddedTemplate(PasswordChangedNotice, "Your EduVerse Password Has Been Changed", "password_changed")
}

// WithDefaultTemplates registers every notice accountd sends.
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		for _, opt := range []NotificationManagerOption{WithVerificationCodeTemplate(), WithPasswordChangedTemplate()} {
			if err := opt(nm); err != nil {
				return err
			}
		}
		return nil
	}
}

func withEmbeddedTemplate(noticeType NoticeType, subject, name string) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		text, err := loadTemplate("templates/email/" + name + ".txt")
		if err != nil {
			return err
		}
		html, err := loadTemplate("templates/email/" + name + ".html")
		if err != nil {
			return err
		}
		return nm.RegisterNotification(noticeType, NoticeTemplate{Subject: subject, Text: text, Html: html})
	}
}
