package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/events"
)

var failedTpl = template.Must(template.New("failed").Parse(`
<h2>Order reconciliation failed</h2>
<p>Order: <b>{{.OrderName}}</b> ({{.OrderID}})</p>
<p>Flow: {{.Kind}} &middot; run {{.RunID}}</p>
<p>Error: <code>{{.Error}}</code></p>
`))

var refundTpl = template.Must(template.New("refund").Parse(`
<h2>PayPal refund triggered</h2>
<p>Order: <b>{{.OrderName}}</b> ({{.OrderID}})</p>
<p>Capture: {{.CaptureID}} &middot; amount {{.Amount}}</p>
<p>Refund status: <b>{{index .Row 6}}</b></p>
`))

func render(tpl *template.Template, data events.ReconciliationData) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}

// Alerter emails operators about failed orders and triggered refunds.
type Alerter struct {
	sender Sender
	to     []string
	logger *zap.Logger
}

func NewAlerter(sender Sender, to []string, logger *zap.Logger) *Alerter {
	return &Alerter{sender: sender, to: to, logger: logger.Named("alerts")}
}

// Handle sends at most one email for evt. Events that need no attention are
// ignored.
func (a *Alerter) Handle(_ context.Context, evt events.Envelope) error {
	var data events.ReconciliationData
	switch evt.EventType {
	case events.EventOrderReconciliationFailed, events.EventOrderReconciled:
		if err := evt.Decode(&data); err != nil {
			return err
		}
	default:
		return nil
	}

	var subject, body string
	var err error
	switch {
	case evt.EventType == events.EventOrderReconciliationFailed:
		subject = fmt.Sprintf("Reconciliation failed for order %s", data.OrderName)
		body, err = render(failedTpl, data)
	case data.Action == "trigger_refund" && data.Outcome == "acted" && len(data.Row) == 7:
		subject = fmt.Sprintf("Refund triggered for order %s", data.OrderName)
		body, err = render(refundTpl, data)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	if err := a.sender.Send(a.to, subject, body); err != nil {
		return err
	}
	a.logger.Info("sent alert", zap.String("event_type", evt.EventType), zap.String("order", data.OrderName))
	return nil
}
