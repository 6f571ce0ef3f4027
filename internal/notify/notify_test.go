package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSMTPNotifier_RetriesUntilSuccess(t *testing.T) {
	n := NewSMTPNotifier("mail.local", "25", "", "", 3, nil)
	calls := 0
	var sent []byte
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		require.Equal(t, "mail.local:25", addr)
		require.Nil(t, a)
		if calls < 2 {
			return errors.New("connection refused")
		}
		sent = msg
		return nil
	}

	err := n.Notify(context.Background(), Notification{
		Sender:    "review@example.com",
		Receivers: []string{"lead@example.com"},
		Subject:   "Code review",
		Body:      "line1\nline2",
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.True(t, strings.HasPrefix(string(sent), "From: review@example.com\r\n"))
	require.Contains(t, string(sent), "Subject: Code review\r\n")
	require.True(t, strings.HasSuffix(string(sent), "line1\r\nline2"))
}

func TestSMTPNotifier_GivesUp(t *testing.T) {
	n := NewSMTPNotifier("mail.local", "25", "", "", 1, nil)
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("boom")
	}
	err := n.Notify(context.Background(), Notification{Sender: "a@b", Receivers: []string{"c@d"}})
	require.ErrorContains(t, err, "boom")
}

func TestSMTPNotifier_NoReceivers(t *testing.T) {
	n := NewSMTPNotifier("mail.local", "25", "", "", 1, nil)
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	require.NoError(t, n.Notify(context.Background(), Notification{Sender: "a@b"}))

	err := NewSMTPNotifier("mail.local", "25", "", "", 1, nil).Notify(context.Background(), Notification{Receivers: []string{"c@d"}})
	require.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	require.NoError(t, (&LogNotifier{}).Notify(context.Background(), Notification{Subject: "x"}))
}
