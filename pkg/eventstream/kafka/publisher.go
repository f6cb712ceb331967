// Package kafka publishes index events to a Kafka topic using segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/s-bear/image-hash/pkg/eventstream"
)

// Publisher publishes events as JSON messages to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
}

// Config configures a Kafka-backed Publisher.
type Config struct {
	Brokers []string
	Topic   string
}

// NewPublisher creates a Publisher that writes to the given brokers and topic.
// Writes are load-balanced across partitions and do not block waiting for
// every broker replica to acknowledge.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if c.Topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}

	return &Publisher{writer: w}, nil
}

// Publish marshals event to JSON and writes it as a single Kafka message.
func (p *Publisher) Publish(ctx context.Context, event eventstream.Event) error {
	if event.Type == "" {
		return eventstream.ErrUnknownEventType
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshaling event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Type),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: writing message: %w", err)
	}

	return nil
}

// Close flushes any buffered messages and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
