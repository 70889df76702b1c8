// Package consumer reads page-ingest events from Kafka and indexes them
// through the ingestion service.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/kafka"
)

// Ingester indexes a validated page.
type Ingester interface {
	Ingest(ctx context.Context, source string, req ingestion.IngestRequest) (*ingestion.IngestResponse, error)
}

// Runner is a blocking consume loop.
type Runner interface {
	Start(ctx context.Context) error
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer Runner
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer Runner) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that indexes every page
// ingest event. Undecodable or invalid pages are reported as malformed so
// the consumer skips past them.
func HandleMessage(svc Ingester) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.PageIngestEvent](value)
		if err != nil {
			return fmt.Errorf("decoding page event %q: %w", key, err)
		}
		resp, err := svc.Ingest(ctx, ingestion.SourceKafka, ingestion.IngestRequest{
			URL:  event.URL,
			Text: event.Text,
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidInput) || errors.Is(err, apperrors.ErrPageTooLarge) {
				return fmt.Errorf("%w: %v", kafka.ErrMalformed, err)
			}
			return fmt.Errorf("indexing page %q: %w", event.URL, err)
		}
		logger.Debug("page indexed from stream",
			"page_id", resp.PageID,
			"url", event.URL,
		)
		return nil
	}
}
