package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads envelopes from the reconciliation topic as part of a
// consumer group.
type Consumer struct {
	r      messageReader
	group  string
	logger *zap.Logger
}

func NewConsumer(cfg config.KafkaConfig, logger *zap.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.AlertGroup, // its own consumer group
			Topic:    cfg.ReconciliationTopic,
			MinBytes: 1e3, MaxBytes: 10e6,
		}),
		group:  cfg.AlertGroup,
		logger: logger.Named("consumer"),
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

// Run hands every decodable envelope to handle until ctx is done or the
// reader fails. Undecodable payloads and handler errors are logged and
// skipped.
func (c *Consumer) Run(ctx context.Context, handle func(context.Context, Envelope) error) error {
	c.logger.Info("consuming", zap.String("group", c.group))
	for {
		msg, err := c.r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}

		var evt Envelope
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			c.logger.Warn("bad json", zap.Error(err), zap.ByteString("payload", msg.Value))
			continue
		}
		if err := handle(ctx, evt); err != nil {
			c.logger.Error("handle event", zap.String("event_type", evt.EventType), zap.String("event_id", evt.EventID), zap.Error(err))
		}
	}
}
