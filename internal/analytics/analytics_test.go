package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/kafka"
)

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	start := agg.startTime
	agg.now = func() time.Time { return start.Add(2 * time.Minute) }

	agg.Record(SearchEvent{Type: EventSearch, Query: "quick fox", TotalHits: 2, LatencyMicros: 100})
	agg.Record(SearchEvent{Type: EventSearch, Query: "quick fox", TotalHits: 2, LatencyMicros: 300, CacheHit: true})
	agg.Record(SearchEvent{Type: EventSearch, Query: "zebra", TotalHits: 0, LatencyMicros: 200})
	agg.Record(SearchEvent{Type: EventSuggest, Query: "qu", Returned: 1})
	agg.Record(SearchEvent{Type: EventWordBreak, Query: "quickxyz", Failed: true})
	agg.Record(SearchEvent{Type: EventWordBreak, Query: "quickfox", Returned: 2})
	agg.Record(PageEvent{Type: EventPageIndex, PageID: 1})
	agg.Record("ignored")

	s := agg.Stats()
	if s.TotalSearches != 3 || s.CacheHits != 1 || s.CacheMisses != 2 {
		t.Errorf("search totals = %+v", s)
	}
	if s.TotalSuggests != 1 || s.TotalWordBreaks != 2 || s.FailedWordBreaks != 1 || s.TotalPagesIndexed != 1 {
		t.Errorf("other totals = %+v", s)
	}
	if s.ZeroResultCount != 1 || len(s.ZeroResultQueries) != 1 || s.ZeroResultQueries[0].Query != "zebra" {
		t.Errorf("zero results = %d %v", s.ZeroResultCount, s.ZeroResultQueries)
	}
	if len(s.TopQueries) != 2 || s.TopQueries[0].Query != "quick fox" || s.TopQueries[0].Count != 2 {
		t.Errorf("top queries = %v", s.TopQueries)
	}
	if s.AvgLatencyMicros != 200 || s.P50LatencyMicros != 200 {
		t.Errorf("latency avg=%v p50=%d", s.AvgLatencyMicros, s.P50LatencyMicros)
	}
	if s.QueriesPerMinute != 1.5 {
		t.Errorf("qpm = %v, want 1.5", s.QueriesPerMinute)
	}
}

func TestAggregatorLatencyWindowBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+500; i++ {
		agg.Record(SearchEvent{Type: EventSearch, Query: "q", TotalHits: 1, LatencyMicros: int64(i)})
	}
	if len(agg.latencies) != maxLatencySamples {
		t.Errorf("latency samples = %d, want %d", len(agg.latencies), maxLatencySamples)
	}
}

func TestTopNTieBreak(t *testing.T) {
	got := topN(map[string]int64{"b": 1, "a": 1, "c": 3}, 2)
	if len(got) != 2 || got[0].Query != "c" || got[1].Query != "a" {
		t.Errorf("topN = %v", got)
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesOnShutdown(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(NewAggregator(), pub, 16)

	for i := 0; i < 5; i++ {
		c.Track(SearchEvent{Type: EventSearch, Query: "q"})
	}
	c.Track(PageEvent{Type: EventPageIndex, PageID: 9})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := pub.count(); got != 6 {
		t.Errorf("published %d events, want 6", got)
	}
	if c.Aggregator().Stats().TotalSearches != 5 {
		t.Error("aggregator should see tracked events immediately")
	}
}

func TestCollectorWithoutPublisher(t *testing.T) {
	c := NewCollector(NewAggregator(), nil, 1)
	c.Track(SearchEvent{Type: EventSearch, Query: "a"})
	c.Track(SearchEvent{Type: EventSearch, Query: "b"})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := c.Aggregator().Stats().TotalSearches; got != 2 {
		t.Errorf("TotalSearches = %d", got)
	}
}

func TestHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Record(SearchEvent{Type: EventSearch, Query: "fox", TotalHits: 1})
	h := NewHandler(agg, nil)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	var stats AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalSearches != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rec = httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("snapshots without store = %d, want 503", rec.Code)
	}
}
