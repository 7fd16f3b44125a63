package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/events"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type recordingSender struct {
	sent []sentMail
}

func (s *recordingSender) Send(to []string, subject, body string) error {
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func envelope(t *testing.T, eventType string, data events.ReconciliationData) events.Envelope {
	t.Helper()
	evt, err := events.NewEnvelope(eventType, data.OrderID, data)
	require.NoError(t, err)
	return evt
}

func TestAlerterEmailsFailures(t *testing.T) {
	sender := &recordingSender{}
	a := NewAlerter(sender, []string{"ops@example.com"}, zap.NewNop())

	err := a.Handle(context.Background(), envelope(t, events.EventOrderReconciliationFailed, events.ReconciliationData{
		OrderID: "gid://shopify/Order/1", OrderName: "#1001", Kind: "pending", Error: "paypal get capture: status 500 <html>",
	}))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Reconciliation failed for order #1001", sender.sent[0].subject)
	assert.Equal(t, []string{"ops@example.com"}, sender.sent[0].to)
	assert.Contains(t, sender.sent[0].body, "status 500 &lt;html&gt;")
}

func TestAlerterEmailsTriggeredRefunds(t *testing.T) {
	sender := &recordingSender{}
	a := NewAlerter(sender, []string{"ops@example.com"}, zap.NewNop())

	err := a.Handle(context.Background(), envelope(t, events.EventOrderReconciled, events.ReconciliationData{
		OrderID: "gid://shopify/Order/2", OrderName: "#1002", Action: "trigger_refund", Outcome: "acted",
		CaptureID: "CAP-2", Amount: "10.00",
		Row: []string{"#1002", "gid://shopify/Order/2", "2024-08-01T10:00:00Z", "2024-08-02T09:00:00Z", "10.00", "COMPLETED", "COMPLETED"},
	}))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Refund triggered for order #1002", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].body, "Refund status: <b>COMPLETED</b>")
}

func TestAlerterIgnoresQuietEvents(t *testing.T) {
	sender := &recordingSender{}
	a := NewAlerter(sender, nil, zap.NewNop())

	require.NoError(t, a.Handle(context.Background(), envelope(t, events.EventOrderReconciled, events.ReconciliationData{Action: "mark_paid", Outcome: "acted"})))
	require.NoError(t, a.Handle(context.Background(), events.Envelope{EventType: "SomethingElse"}))
	assert.Empty(t, sender.sent)
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "mailhog", Port: "1025", From: "reconciler@example.local"})
	var gotAddr string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotAddr, gotMsg = addr, msg
		return nil
	}

	require.NoError(t, s.Send([]string{"a@example.com", "b@example.com"}, "Hello", "<p>hi</p>"))
	assert.Equal(t, "mailhog:1025", gotAddr)
	assert.True(t, strings.HasPrefix(string(gotMsg), "From: reconciler@example.local\r\nTo: a@example.com, b@example.com\r\nSubject: Hello\r\n"))
	assert.Nil(t, s.auth)
}

func TestPickSender(t *testing.T) {
	assert.IsType(t, LogSender{}, PickSender(config.SMTPConfig{}, zap.NewNop()))
	assert.IsType(t, &SMTPSender{}, PickSender(config.SMTPConfig{Host: "mailhog", Port: "1025"}, zap.NewNop()))
}
