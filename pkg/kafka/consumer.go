// Package kafka wraps segmentio/kafka-go for the two streams searchd uses:
// page ingestion (consumed and produced) and analytics events (produced).
// Values are JSON on the wire.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/config"
)

// ErrMalformed marks a message that can never be processed. The consumer
// commits past it instead of retrying.
var ErrMalformed = errors.New("malformed message")

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic and dispatches each message to a MessageHandler.
// Fetch errors back off exponentially between fetchBackoff and maxBackoff.
type Consumer struct {
	reader       messageReader
	handler      MessageHandler
	logger       *slog.Logger
	fetchBackoff time.Duration
	maxBackoff   time.Duration
}

// NewConsumer creates a Consumer for the given topic and handler. A new
// consumer group starts from the earliest offset so an empty process can
// rebuild its corpus from the topic.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r messageReader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:       r,
		handler:      handler,
		logger:       slog.Default().With("component", "kafka-consumer", "topic", topic),
		fetchBackoff: 100 * time.Millisecond,
		maxBackoff:   5 * time.Second,
	}
}

// Start runs the consume loop until ctx is cancelled and closes the reader
// on exit. A message is committed when its handler succeeds or reports
// ErrMalformed. Any other handler error is retried in place with backoff,
// so later messages on the partition never commit past it. If ctx ends
// first the message stays uncommitted and is redelivered after a restart.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()

	backoff := c.fetchBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if ctx.Err() != nil {
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return nil
		}
		if err != nil {
			c.logger.Error("failed to fetch message", "error", err, "retry_in", backoff)
			if !c.wait(ctx, backoff) {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}
		backoff = c.fetchBackoff
		if !c.process(ctx, msg) {
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// process handles msg until it succeeds or is malformed, then commits it.
// It reports false if ctx ended before the message was settled.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	logger := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
	logger.Debug("message received", "key", string(msg.Key), "value_size", len(msg.Value))

	backoff := c.fetchBackoff
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, msg.Key, msg.Value)
		if err == nil {
			break
		}
		if errors.Is(err, ErrMalformed) {
			logger.Warn("skipping malformed message", "error", err)
			break
		}
		logger.Error("failed to process message, retrying", "error", err, "attempt", attempt, "retry_in", backoff)
		if !c.wait(ctx, backoff) {
			return false
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		logger.Error("failed to commit message", "error", err)
	}
	return true
}

func (c *Consumer) wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// DecodeJSON unmarshals a Kafka message value into T. Decode failures wrap
// ErrMalformed.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return result, nil
}
