package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/observability"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes score messages to Kafka, keyed by token id so
// every score of a token lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	Topic  string
}

// NewKafkaPublisher creates a new Kafka publisher for score messages.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, Topic: topic}
}

// Publish sends one message per record in a single batch write.
func (p *KafkaPublisher) Publish(ctx context.Context, records []*domain.ScoreRecord) error {
	if len(records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	for _, rec := range records {
		value, err := json.Marshal(NewScoreMessage(rec))
		if err != nil {
			return fmt.Errorf("marshal score %s: %w", rec.TokenID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(rec.TokenID),
			Value: value,
		})
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	observability.RecordPublish(len(msgs), err)
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
