package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/metrics"
)

type recordingTracker struct{ events []any }

func (r *recordingTracker) Track(event any) { r.events = append(r.events, event) }

type recordingPublisher struct {
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func newEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	e, err := indexer.NewEngine(config.Default().Engine)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestIngestIndexesPage(t *testing.T) {
	engine := newEngine(t)
	tracker := &recordingTracker{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(engine, 1024, nil, tracker, m)

	resp, err := svc.Ingest(context.Background(), SourceHTTP, IngestRequest{
		URL:  "https://example.com",
		Text: "This is an example page with a search engine.",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.Status != StatusIndexed || resp.PageID == 0 {
		t.Errorf("resp = %+v", resp)
	}
	if res := engine.Search("example", 0); res.TotalHits != 1 {
		t.Errorf("page not searchable: %+v", res)
	}
	if got := testutil.ToFloat64(m.PagesIndexedTotal.WithLabelValues(SourceHTTP)); got != 1 {
		t.Errorf("pages_indexed_total = %v", got)
	}
	if got := testutil.ToFloat64(m.CorpusPages); got != 1 {
		t.Errorf("corpus_pages = %v", got)
	}
	if len(tracker.events) != 1 {
		t.Fatalf("tracked %d events", len(tracker.events))
	}
	if ev, ok := tracker.events[0].(analytics.PageEvent); !ok || ev.PageID != resp.PageID || ev.Source != SourceHTTP {
		t.Errorf("event = %+v", tracker.events[0])
	}
}

func TestIngestRejects(t *testing.T) {
	svc := NewService(newEngine(t), 16, nil, nil, nil)

	_, err := svc.Ingest(context.Background(), SourceHTTP, IngestRequest{Text: strings.Repeat("a", 17)})
	if !errors.Is(err, apperrors.ErrPageTooLarge) {
		t.Errorf("oversized page error = %v", err)
	}

	_, err = svc.Ingest(context.Background(), SourceHTTP, IngestRequest{URL: "not a url", Text: "x"})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("bad url error = %v", err)
	}
	var verr *validator.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("bad url should carry field details, got %T", err)
	}
}

func TestEnqueue(t *testing.T) {
	svc := NewService(newEngine(t), 0, nil, nil, nil)
	if svc.CanEnqueue() {
		t.Error("no publisher configured")
	}
	if _, err := svc.Enqueue(context.Background(), IngestRequest{Text: "x"}); !errors.Is(err, apperrors.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}

	pub := &recordingPublisher{}
	svc = NewService(newEngine(t), 0, pub, nil, nil)
	resp, err := svc.Enqueue(context.Background(), IngestRequest{URL: "https://a.example", Text: "queued page"})
	if err != nil || resp.Status != StatusQueued {
		t.Fatalf("Enqueue = %+v, %v", resp, err)
	}
	if len(pub.events) != 1 || pub.events[0].Key != "https://a.example" {
		t.Errorf("published = %+v", pub.events)
	}

	pub.err = errors.New("broker down")
	if _, err := svc.Enqueue(context.Background(), IngestRequest{Text: "x"}); !errors.Is(err, apperrors.ErrUnavailable) {
		t.Errorf("publish failure = %v, want ErrUnavailable", err)
	}
}
