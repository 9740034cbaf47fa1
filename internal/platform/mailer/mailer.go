package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/quilldocs/quill-api/internal/config"
	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/platform/logger"
)

// Mailer delivers task outcome notifications over SMTP. When mail is
// disabled in configuration every send is a silent no-op, so callers
// never need to special-case deployments without an SMTP server.
type Mailer struct {
	cfg    config.MailConfig
	logger *slog.Logger

	// send is swapped out in tests to capture messages without a
	// live SMTP connection.
	send func(msg *gomail.Message) error
}

// New creates a Mailer from the SMTP configuration.
func New(log *slog.Logger, cfg config.MailConfig) *Mailer {
	if log == nil {
		log = slog.Default()
	}

	m := &Mailer{
		cfg:    cfg,
		logger: log.With(slog.String("component", "mailer")),
	}
	m.send = m.dialAndSend
	return m
}

// TaskCompleted emails the owner that their task finished and the
// result is ready to collect.
func (m *Mailer) TaskCompleted(ctx context.Context, recipient string, task *domain.Task) error {
	subject := fmt.Sprintf("Your %s task is ready", task.Tool)
	body := fmt.Sprintf(
		"Your %s task finished successfully.\n\nTask ID: %s\n\nThe result is available from the tasks API.\n",
		task.Tool, task.ID)
	return m.deliver(ctx, recipient, subject, body, task)
}

// TaskFailed emails the owner that their task failed, including the
// stored failure message.
func (m *Mailer) TaskFailed(ctx context.Context, recipient string, task *domain.Task) error {
	subject := fmt.Sprintf("Your %s task failed", task.Tool)
	body := fmt.Sprintf(
		"Your %s task could not be completed.\n\nTask ID: %s\n\nReason: %s\n",
		task.Tool, task.ID, task.ErrorMessage)
	return m.deliver(ctx, recipient, subject, body, task)
}

func (m *Mailer) deliver(ctx context.Context, recipient, subject, body string, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, m.logger)

	if !m.cfg.Enabled {
		log.Debug("mail disabled, skipping notification",
			slog.String("task_id", task.ID.String()))
		return nil
	}
	if recipient == "" {
		return errors.New("recipient cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.FromAddress)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	// The recipient address is deliberately left out of the log line.
	log.Debug("notification email sent",
		slog.String("task_id", task.ID.String()),
		slog.String("subject", subject))
	return nil
}

// dialAndSend opens a fresh SMTP connection per message. Notification
// volume is low enough that connection reuse is not worth the state.
func (m *Mailer) dialAndSend(msg *gomail.Message) error {
	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	return d.DialAndSend(msg)
}
