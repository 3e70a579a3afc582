// Package mailer implements account-email delivery. The default
// implementation logs instead of sending, which is all a single-operator
// development deployment needs; an SMTP sender can drop in behind the same
// interface.
package mailer

import (
	"context"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/pestpro/pestpro/internal/platform/retry"
)

// LogMailer writes account emails to the log instead of delivering them.
type LogMailer struct{}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer() *LogMailer { return &LogMailer{} }

func (m *LogMailer) SendConfirmation(_ context.Context, email, link string) error {
	slog.Info("Confirmation email (log-only mailer)", "to", email, "link", link)
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	slog.Info("Password reset email (log-only mailer)", "to", email, "link", link)
	return nil
}

// SMTPMailer delivers account emails over SMTP, retrying transient failures.
type SMTPMailer struct {
	addr   string
	from   string
	auth   smtp.Auth
	policy retry.Policy

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer pointed at a SMTP relay. addr is host:port.
func NewSMTPMailer(addr, from string, auth smtp.Auth) *SMTPMailer {
	return &SMTPMailer{
		addr: addr,
		from: from,
		auth: auth,
		policy: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Email delivery failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
		send: smtp.SendMail,
	}
}

func (m *SMTPMailer) SendConfirmation(ctx context.Context, email, link string) error {
	return m.deliver(ctx, email, "Confirm your PestPro account",
		"Welcome to PestPro. Confirm your email address by opening this link:\r\n\r\n"+link+"\r\n")
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	return m.deliver(ctx, email, "Reset your PestPro password",
		"A password reset was requested for this address. Open this link to choose a new password:\r\n\r\n"+link+"\r\n\r\nIf you did not request this, ignore this email.\r\n")
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject, body string) error {
	msg := []byte("From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body)

	// SMTP failures are treated as transient; the relay either accepts the
	// message or we give up after the policy is exhausted.
	return retry.DoVoid(ctx, m.policy, func(error) retry.Action { return retry.Retry }, func() error {
		return m.send(m.addr, m.auth, m.from, []string{to}, msg)
	})
}
