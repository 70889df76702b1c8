package analytics

import (
	"sort"
	"sync"
	"time"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	TotalSuggests     int64        `json:"total_suggests"`
	TotalWordBreaks   int64        `json:"total_word_breaks"`
	FailedWordBreaks  int64        `json:"failed_word_breaks"`
	TotalPagesIndexed int64        `json:"total_pages_indexed"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMicros  float64      `json:"avg_latency_us"`
	P50LatencyMicros  int64        `json:"p50_latency_us"`
	P95LatencyMicros  int64        `json:"p95_latency_us"`
	P99LatencyMicros  int64        `json:"p99_latency_us"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	CapturedAt        time.Time    `json:"captured_at"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals of search activity. Search latencies are
// held in a ring of the most recent samples.
type Aggregator struct {
	mu                sync.Mutex
	stats             AggregatedStats
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	now               func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
	}
}

// Record folds a SearchEvent or PageEvent into the totals. Other values are
// ignored.
func (a *Aggregator) Record(event any) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearchEvent(e)
	case PageEvent:
		a.mu.Lock()
		a.stats.TotalPagesIndexed++
		a.mu.Unlock()
	}
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch event.Type {
	case EventSuggest:
		a.stats.TotalSuggests++
		return
	case EventWordBreak:
		a.stats.TotalWordBreaks++
		if event.Failed {
			a.stats.FailedWordBreaks++
		}
		return
	}

	a.stats.TotalSearches++
	if event.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	a.addLatency(event.LatencyMicros)
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.stats.ZeroResultCount++
		a.zeroResultQueries[event.Query]++
	}
}

func (a *Aggregator) addLatency(us int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, us)
		return
	}
	a.latencies[a.next] = us
	a.next = (a.next + 1) % maxLatencySamples
}

// Stats returns a point-in-time copy of the totals.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := a.stats
	stats.CapturedAt = a.now().UTC()
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMicros = float64(sum) / float64(len(sorted))
		stats.P50LatencyMicros = percentile(sorted, 50)
		stats.P95LatencyMicros = percentile(sorted, 95)
		stats.P99LatencyMicros = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
