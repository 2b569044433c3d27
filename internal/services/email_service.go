// Package services provides the business logic of the PrepX backend.
package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"prepx/internal/config"
	"prepx/internal/models"
	"prepx/internal/observability"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// EmailServiceInterface defines outbound email
type EmailServiceInterface interface {
	SendStreakReminder(ctx context.Context, user *models.User) error
	IsEnabled() bool
}

// EmailService sends email over SMTP with gomail
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
	// send delivers a composed message; swapped out in tests
	send func(m *mail.Message) error
}

var _ EmailServiceInterface = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance. With email disabled every send is a logged no-op.
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	e := &EmailService{cfg: cfg, logger: logger}
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		e.dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
		e.send = func(m *mail.Message) error { return e.dialer.DialAndSend(m) }
	}
	return e
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.cfg.Email.SMTP.Host != ""
}

// SendStreakReminder tells a user their streak ends unless they practice today
func (e *EmailService) SendStreakReminder(ctx context.Context, user *models.User) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "send_streak_reminder",
		observability.AttributeUserID(user.ID), attribute.Int("user.current_streak", user.CurrentStreak))
	defer observability.FinishSpan(span, &err)

	data := map[string]interface{}{
		"Username":   user.Username,
		"Streak":     user.CurrentStreak,
		"AppBaseURL": strings.TrimRight(e.cfg.Server.AppBaseURL, "/"),
	}
	subject := fmt.Sprintf("Keep your %d-day streak going", user.CurrentStreak)
	return e.SendEmail(ctx, user.Email, subject, streakReminderTemplate, data)
}

// SendEmail renders tmpl with data and sends it to a single recipient
func (e *EmailService) SendEmail(ctx context.Context, to, subject string, tmpl *template.Template, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "send_email",
		attribute.String("email.to", contextutils.MaskEmail(to)),
		attribute.String("email.template", tmpl.Name()),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping email send", map[string]interface{}{
			"to":       contextutils.MaskEmail(to),
			"template": tmpl.Name(),
		})
		return nil
	}
	if e.send == nil {
		return contextutils.ErrorWithContextf("email service not properly configured")
	}

	var body strings.Builder
	if err = tmpl.Execute(&body, data); err != nil {
		return contextutils.WrapError(err, "failed to execute template")
	}

	m := mail.NewMessage()
	m.SetHeader("From", m.FormatAddress(e.cfg.Email.SMTP.FromAddress, e.cfg.Email.SMTP.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if err = e.send(m); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"to":       contextutils.MaskEmail(to),
			"template": tmpl.Name(),
		})
		return contextutils.WrapError(err, "failed to send email")
	}

	e.logger.Info(ctx, "Email sent successfully", map[string]interface{}{
		"to":       contextutils.MaskEmail(to),
		"template": tmpl.Name(),
	})
	return nil
}

var streakReminderTemplate = template.Must(template.New("streak_reminder").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Keep your streak</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #FF7043; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 20px; }
        .button { display: inline-block; background-color: #FF7043; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>🔥 {{.Streak}} days and counting</h1></div>
        <div class="content">
            <h2>Hi {{.Username}}!</h2>
            <p>You have practiced {{.Streak}} days in a row. Answer one question today to keep your streak alive.</p>
            <div style="text-align: center;">
                <a href="{{.AppBaseURL}}/practice" class="button">Practice now</a>
            </div>
        </div>
    </div>
</body>
</html>`))
