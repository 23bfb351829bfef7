package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fjod/go_connect/internal/domain"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "payment-intents-succeeded"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards succeeded payment intents to a topic, keyed by intent ID.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Fulfill(ctx context.Context, intent domain.PaymentIntent) error {
	value := []byte(intent.Raw)
	if len(value) == 0 {
		b, err := json.Marshal(intent)
		if err != nil {
			return fmt.Errorf("marshal payment intent: %w", err)
		}
		value = b
	}

	msg := kafka.Message{
		Key:   []byte(intent.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(domain.EventTypePaymentIntentSucceeded)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish payment intent %s: %w", intent.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
