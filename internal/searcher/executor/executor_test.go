package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/trie"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/metrics"
)

func newExecutor(t *testing.T) (*Executor, *indexer.Engine, *metrics.Metrics) {
	t.Helper()
	engine, err := indexer.NewEngine(config.Default().Engine)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	engine.AddWebPage("https://www.example.com", "This is an example page with a search engine.")
	engine.AddWebPage("https://www.test.com", "Test page for implementing a search engine.")
	engine.AddWebPage("https://www.sample.com", "Sample page for search engine testing.")
	engine.AddWebPage("https://www.demo.com", "Algorithms and data structures are essential for search engines.")
	m := metrics.New(prometheus.NewRegistry())
	return New(engine, nil, nil, m), engine, m
}

func TestSearchRecordsMetrics(t *testing.T) {
	exec, _, m := newExecutor(t)
	ctx := context.Background()

	res, out := exec.Search(ctx, "search engine", 10)
	if res.TotalHits != 4 || out.CacheHit || out.Plan == nil {
		t.Errorf("result=%+v outcome=%+v", res, out)
	}
	exec.Search(ctx, "zebra", 10)
	exec.Search(ctx, "the of", 10)

	for label, want := range map[string]float64{"hit": 1, "zero_result": 1, "empty_query": 1} {
		if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(label)); got != want {
			t.Errorf("search_queries_total{%s} = %v, want %v", label, got, want)
		}
	}
	if got := testutil.CollectAndCount(m.SearchResultsCount); got != 1 {
		t.Errorf("results histogram series = %d", got)
	}
}

func TestSearchRanksLikeEngine(t *testing.T) {
	exec, engine, _ := newExecutor(t)
	want := engine.Search("search engine algorithms", 0)
	got, _ := exec.Search(context.Background(), "search engine algorithms", 0)
	if len(got.Results) != len(want.Results) {
		t.Fatalf("len = %d, want %d", len(got.Results), len(want.Results))
	}
	for i := range want.Results {
		if got.Results[i].DocID != want.Results[i].DocID {
			t.Errorf("rank %d: doc %d, want %d", i, got.Results[i].DocID, want.Results[i].DocID)
		}
	}
	if len(got.Results) != 4 || got.Results[0].URL == "" {
		t.Errorf("results = %+v", got.Results)
	}
}

func TestSuggestAndWordBreak(t *testing.T) {
	exec, _, m := newExecutor(t)
	ctx := context.Background()

	if got := exec.Suggest(ctx, "sea", 5); len(got) != 1 || got[0] != "search" {
		t.Errorf("Suggest = %v", got)
	}
	segs, err := exec.WordBreak(ctx, "searchengine", false, 0)
	if err != nil || len(segs) != 1 || len(segs[0]) != 2 {
		t.Errorf("WordBreak = %v, %v", segs, err)
	}
	if _, err := exec.WordBreak(ctx, "searchxyz", true, 5); !errors.Is(err, trie.ErrSegmentationFailure) {
		t.Errorf("err = %v", err)
	}
	if got := testutil.ToFloat64(m.WordBreaksTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed word breaks = %v", got)
	}
	if got := testutil.ToFloat64(m.SuggestRequestsTotal); got != 1 {
		t.Errorf("suggest requests = %v", got)
	}
}

func TestSearchLatencyRecorded(t *testing.T) {
	exec, _, _ := newExecutor(t)
	_, out := exec.Search(context.Background(), "page", 0)
	if out.Latency <= 0 || out.Latency > time.Minute {
		t.Errorf("latency = %v", out.Latency)
	}
}
