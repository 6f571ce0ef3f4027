// Package notify доставляет уведомления проверяющего задания получателям.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	defaultAttempts   = 3
	initialRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

// Notification - одно письмо для группы получателей.
type Notification struct {
	Sender    string
	Receivers []string
	Subject   string
	Body      string
}

// Notifier отправляет уведомления.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier пишет уведомления в лог вместо отправки.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify логирует уведомление.
func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "sender", n.Sender, "receivers", n.Receivers, "subject", n.Subject, "body", n.Body)
	return nil
}

// SendFunc совпадает по сигнатуре с smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier отправляет письма через SMTP-сервер с повторами при сбоях.
type SMTPNotifier struct {
	Addr     string
	Auth     smtp.Auth
	Attempts uint
	Logger   *slog.Logger

	send SendFunc
}

// NewSMTPNotifier создаёт отправителя для host:port. Пустой username отключает авторизацию.
func NewSMTPNotifier(host, port, username, password string, attempts uint, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if attempts == 0 {
		attempts = defaultAttempts
	}
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPNotifier{
		Addr:     host + ":" + port,
		Auth:     auth,
		Attempts: attempts,
		Logger:   logger,
		send:     smtp.SendMail,
	}
}

// Notify отправляет письмо. Пустой список получателей не считается ошибкой.
func (s *SMTPNotifier) Notify(ctx context.Context, n Notification) error {
	if len(n.Receivers) == 0 {
		return nil
	}
	if n.Sender == "" {
		return errors.New("notification sender is empty")
	}
	msg := buildMessage(n)

	err := retry.Do(
		func() error { return s.send(s.Addr, s.Auth, n.Sender, n.Receivers, msg) },
		retry.Context(ctx),
		retry.Attempts(s.Attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			s.Logger.Warn("smtp send failed, retrying", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("failed to send notification to %v: %w", n.Receivers, err)
	}
	return nil
}

// buildMessage собирает RFC 5322 письмо в виде простого текста.
func buildMessage(n Notification) []byte {
	var b strings.Builder
	b.WriteString("From: " + n.Sender + "\r\n")
	b.WriteString("To: " + strings.Join(n.Receivers, ", ") + "\r\n")
	b.WriteString("Subject: " + n.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(n.Body, "\n", "\r\n"))
	return []byte(b.String())
}
