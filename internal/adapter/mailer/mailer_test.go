package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pestpro/pestpro/internal/platform/retry"
)

func newTestMailer(send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) *SMTPMailer {
	m := NewSMTPMailer("smtp.test:587", "noreply@pestpro.test", nil)
	m.policy = retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	m.send = send
	return m
}

func TestSMTPMailerDelivers(t *testing.T) {
	var gotTo []string
	var gotMsg []byte
	m := newTestMailer(func(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotTo = to
		gotMsg = msg
		return nil
	})

	require.NoError(t, m.SendConfirmation(context.Background(), "owner@pestpro.test", "https://app.test/confirm?token=abc"))

	assert.Equal(t, []string{"owner@pestpro.test"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Confirm your PestPro account")
	assert.Contains(t, string(gotMsg), "https://app.test/confirm?token=abc")
}

func TestSMTPMailerRetriesTransientFailures(t *testing.T) {
	attempts := 0
	m := newTestMailer(func(_ string, _ smtp.Auth, _ string, _ []string, _ []byte) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	require.NoError(t, m.SendPasswordReset(context.Background(), "owner@pestpro.test", "https://app.test/reset?token=abc"))
	assert.Equal(t, 3, attempts)
}

func TestSMTPMailerGivesUpAfterPolicy(t *testing.T) {
	attempts := 0
	m := newTestMailer(func(_ string, _ smtp.Auth, _ string, _ []string, _ []byte) error {
		attempts++
		return errors.New("relay down")
	})

	err := m.SendConfirmation(context.Background(), "owner@pestpro.test", "https://app.test/confirm")
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestLogMailerNeverFails(t *testing.T) {
	m := NewLogMailer()
	assert.NoError(t, m.SendConfirmation(context.Background(), "a@b.test", "link"))
	assert.NoError(t, m.SendPasswordReset(context.Background(), "a@b.test", "link"))
}
