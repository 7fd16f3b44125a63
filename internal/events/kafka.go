package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	w   messageWriter
	now func() time.Time
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{}, // partition by Kafka message key
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		now: time.Now,
	}
}

func (p *Producer) Close() error { return p.w.Close() }

// Envelope is the event schema published on every topic.
type Envelope struct {
	EventID      string          `json:"eventId"`
	EventType    string          `json:"eventType"`
	EventVersion string          `json:"eventVersion"`
	OccurredAt   time.Time       `json:"occurredAt"`
	AggregateID  string          `json:"aggregateId"` // order id
	Data         json.RawMessage `json:"data"`
}

// NewEnvelope encodes data as the payload of a version 1 event.
func NewEnvelope(eventType, aggregateID string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: "1",
		AggregateID:  aggregateID,
		Data:         raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// Publish writes a single message to Kafka.
// 'key' is the Kafka partition key (use the order id to keep per-order ordering).
func (p *Producer) Publish(ctx context.Context, topic, key string, evt Envelope) error {
	evt.OccurredAt = p.now().UTC()
	val, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", evt.EventType, err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
	})
}
