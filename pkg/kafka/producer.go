package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/config"
)

// Event is one message to publish. Key picks the partition, so events
// sharing a key stay ordered. Value is JSON-encoded. Headers travel as
// Kafka record headers.
type Event struct {
	Key     string
	Value   any
	Headers map[string]string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON-encoded events to one topic.
type Producer struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewProducer creates a Producer for topic. Writes wait for all in-sync
// replicas, and the topic is created on first use.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
		now:    time.Now,
	}
}

// Publish writes a single event synchronously.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch encodes events and writes them in one call. Nothing is
// written if any event fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	stamp := p.now()
	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		msg, err := encode(event, stamp)
		if err != nil {
			return fmt.Errorf("encoding event %d (key %q): %w", i, event.Key, err)
		}
		messages[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish batch", "count", len(messages), "error", err)
		return fmt.Errorf("publishing %d events: %w", len(messages), err)
	}
	p.logger.Debug("batch published", "count", len(messages))
	return nil
}

func encode(event Event, stamp time.Time) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, err
	}
	msg := kafka.Message{Key: []byte(event.Key), Value: value, Time: stamp}
	if len(event.Headers) > 0 {
		names := make([]string, 0, len(event.Headers))
		for name := range event.Headers {
			names = append(names, name)
		}
		slices.Sort(names)
		msg.Headers = make([]kafka.Header, len(names))
		for i, name := range names {
			msg.Headers[i] = kafka.Header{Key: name, Value: []byte(event.Headers[name])}
		}
	}
	return msg, nil
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}
