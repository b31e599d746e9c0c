// Package notification renders and delivers accountd's transactional emails.
//
// A NotificationManager owns the registered NoticeTemplates and a single
// Notifier. Notifiers exist for SMTP (go-mail), the Resend API and the log.
//
//	notifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
//	    Host: "smtp.example.com",
//	    Port: 587,
//	    TLS:  true,
//	    From: "noreply@eduverse.app",
//	})
//	manager, err := notification.NewNotificationManager(notifier, notification.WithDefaultTemplates())
//
// Verification codes are sent synchronously with manager.Send because the
// caller must know whether the code left. Confirmation mail after a password
// change goes through an Outbox, which retries in the background:
//
//	outbox := notification.NewOutbox(manager, notification.WithWorkers(2))
//	defer outbox.Close(ctx)
//	outbox.Enqueue(notification.PasswordChangedNotice, notification.NotificationData{
//	    To:   "user@example.com",
//	    Data: map[string]string{"ChangedAt": time.Now().Format(time.RFC1123)},
//	})
package notification
