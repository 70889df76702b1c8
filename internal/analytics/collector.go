package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/kafka"
)

// Publisher ships batches of events off-process.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector feeds every tracked event to the Aggregator and, when a
// Publisher is set, buffers it for batched publishing. Track never blocks;
// events are dropped when the buffer is full.
type Collector struct {
	aggregator    *Aggregator
	publisher     Publisher
	eventCh       chan any
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewCollector creates a Collector. publisher may be nil.
func NewCollector(agg *Aggregator, publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		aggregator:    agg,
		publisher:     publisher,
		eventCh:       make(chan any, bufferSize),
		batchSize:     100,
		flushInterval: 5 * time.Second,
		logger:        slog.Default().With("component", "analytics-collector"),
	}
}

// Aggregator returns the in-process aggregator.
func (c *Collector) Aggregator() *Aggregator {
	return c.aggregator
}

func (c *Collector) Track(event any) {
	c.aggregator.Record(event)
	if c.publisher == nil {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Run publishes buffered events in batches until ctx is cancelled, then
// flushes what is left with a short deadline. It returns immediately when
// no Publisher is configured.
func (c *Collector) Run(ctx context.Context) error {
	if c.publisher == nil {
		return nil
	}
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	for {
		select {
		case event := <-c.eventCh:
			batch = append(batch, toKafkaEvent(event))
			if len(batch) >= c.batchSize {
				batch = c.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = c.flush(ctx, batch)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			c.flush(flushCtx, c.drain(batch))
			return nil
		}
	}
}

func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event := <-c.eventCh:
			batch = append(batch, toKafkaEvent(event))
		default:
			return batch
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics batch", "count", len(batch), "error", err)
	}
	return batch[:0]
}

func toKafkaEvent(event any) kafka.Event {
	key := "analytics"
	switch e := event.(type) {
	case SearchEvent:
		key = string(e.Type)
	case PageEvent:
		key = string(e.Type)
	}
	return kafka.Event{Key: key, Value: event, Headers: map[string]string{"event_type": key}}
}
