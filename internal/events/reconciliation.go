package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/reconcile"
)

const (
	EventOrderReconciled           = "OrderReconciled"
	EventOrderReconciliationFailed = "OrderReconciliationFailed"
)

// ReconciliationData is the payload of both reconciliation events.
type ReconciliationData struct {
	RunID         string   `json:"runId"`
	Kind          string   `json:"kind"`
	OrderID       string   `json:"orderId"`
	OrderName     string   `json:"orderName"`
	Outcome       string   `json:"outcome"`
	Action        string   `json:"action"`
	CaptureID     string   `json:"captureId,omitempty"`
	CaptureStatus string   `json:"captureStatus,omitempty"`
	Amount        string   `json:"amount,omitempty"`
	Row           []string `json:"row"`
	Error         string   `json:"error,omitempty"`
}

type publisher interface {
	Publish(ctx context.Context, topic, key string, evt Envelope) error
}

// ResultPublisher turns every reconciled order into an event. Publishing is
// best effort: failures are logged and never fail the order.
type ResultPublisher struct {
	producer publisher
	topic    string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewResultPublisher(p publisher, topic string, logger *zap.Logger) *ResultPublisher {
	return &ResultPublisher{producer: p, topic: topic, timeout: 5 * time.Second, logger: logger.Named("events")}
}

func (p *ResultPublisher) OrderReconciled(ctx context.Context, run *reconcile.Run, res reconcile.Result) {
	data := ReconciliationData{
		RunID:     run.ID,
		Kind:      string(run.Kind),
		OrderID:   res.Order.ID,
		OrderName: res.Order.Name,
		Outcome:   string(res.Outcome),
		Action:    res.Action.String(),
		Row:       res.Row,
	}
	if res.Capture != nil {
		data.CaptureID = res.Capture.ID
		data.CaptureStatus = res.Capture.RawStatus
		data.Amount = res.Capture.Amount.Value
	}
	eventType := EventOrderReconciled
	if res.Err != nil {
		eventType = EventOrderReconciliationFailed
		data.Error = res.Err.Error()
	}

	evt, err := NewEnvelope(eventType, res.Order.ID, data)
	if err != nil {
		p.logger.Warn("build reconciliation event", zap.String("order_id", res.Order.ID), zap.Error(err))
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.producer.Publish(pubCtx, p.topic, res.Order.ID, evt); err != nil {
		p.logger.Warn("publish reconciliation event",
			zap.String("event_type", eventType), zap.String("order_id", res.Order.ID), zap.Error(err))
	}
}
