package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/metrics"
)

// Page sources, used as the metrics label and in analytics events.
const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
	SourceSeed  = "seed"
)

// Indexer is the part of the engine ingestion writes to.
type Indexer interface {
	AddWebPage(url, text string) index.DocID
	Stats() indexer.Stats
}

// Tracker receives analytics events.
type Tracker interface {
	Track(event any)
}

// Publisher writes events to the page-ingest topic.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Service validates pages and indexes them directly or queues them on
// Kafka. publisher, tracker and m may be nil.
type Service struct {
	indexer   Indexer
	maxBytes  int
	publisher Publisher
	tracker   Tracker
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(idx Indexer, maxBytes int, publisher Publisher, tracker Tracker, m *metrics.Metrics) *Service {
	return &Service{
		indexer:   idx,
		maxBytes:  maxBytes,
		publisher: publisher,
		tracker:   tracker,
		metrics:   m,
		logger:    slog.Default().With("component", "ingestion"),
	}
}

// Ingest validates req and indexes it synchronously.
func (s *Service) Ingest(ctx context.Context, source string, req IngestRequest) (*IngestResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	id := s.indexer.AddWebPage(req.URL, req.Text)

	if s.metrics != nil {
		s.metrics.PagesIndexedTotal.WithLabelValues(source).Inc()
		stats := s.indexer.Stats()
		s.metrics.CorpusPages.Set(float64(stats.Pages))
		s.metrics.CorpusTerms.Set(float64(stats.Terms))
	}
	if s.tracker != nil {
		s.tracker.Track(analytics.PageEvent{
			Type:      analytics.EventPageIndex,
			PageID:    uint64(id),
			URL:       req.URL,
			Source:    source,
			SizeBytes: len(req.Text),
			Timestamp: time.Now().UTC(),
		})
	}
	logger.FromContext(ctx).Debug("page ingested",
		"page_id", id,
		"url", req.URL,
		"source", source,
	)
	return &IngestResponse{PageID: uint64(id), Status: StatusIndexed}, nil
}

// CanEnqueue reports whether a Kafka publisher is configured.
func (s *Service) CanEnqueue() bool {
	return s.publisher != nil
}

// Enqueue validates req and publishes it to the page-ingest topic; the
// page becomes searchable once the consumer indexes it.
func (s *Service) Enqueue(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	if s.publisher == nil {
		return nil, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "asynchronous ingestion is disabled")
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	event := kafka.Event{
		Key: req.URL,
		Value: PageIngestEvent{
			URL:         req.URL,
			Text:        req.Text,
			SubmittedAt: time.Now().UTC(),
		},
		Headers: map[string]string{"request_id": logger.RequestID(ctx)},
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("queueing page: %w", errors.Join(apperrors.ErrUnavailable, err))
	}
	return &IngestResponse{Status: StatusQueued}, nil
}

func (s *Service) validate(req IngestRequest) error {
	err := validator.ValidatePage(req.URL, req.Text, s.maxBytes)
	if err == nil {
		return nil
	}
	var tooLarge *validator.TooLargeError
	if errors.As(err, &tooLarge) {
		return apperrors.New(apperrors.ErrPageTooLarge, http.StatusRequestEntityTooLarge, tooLarge.Error())
	}
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
}
