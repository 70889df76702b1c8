// Package executor runs read requests against the engine: it consults the
// query cache, records spans and updates search metrics.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/tracing"
)

// Outcome summarises a search for callers that log or track it.
type Outcome struct {
	Plan     *parser.QueryPlan
	CacheHit bool
	Latency  time.Duration
}

type Executor struct {
	engine  *indexer.Engine
	cache   *cache.QueryCache
	tracer  *tracing.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Executor. queryCache and m may be nil; a nil tracer
// disables span logging.
func New(engine *indexer.Engine, queryCache *cache.QueryCache, tracer *tracing.Tracer, m *metrics.Metrics) *Executor {
	if tracer == nil {
		tracer = tracing.New(false)
	}
	return &Executor{
		engine:  engine,
		cache:   queryCache,
		tracer:  tracer,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Search parses and ranks query. limit <= 0 returns every match.
func (e *Executor) Search(ctx context.Context, query string, limit int) (*indexer.SearchResult, Outcome) {
	start := time.Now()
	ctx, root := e.tracer.Start(ctx, "search")
	defer e.tracer.Finish(root)

	_, parseSpan := e.tracer.Start(ctx, "parse")
	plan := parser.Parse(e.engine.Tokenizer(), query)
	parseSpan.SetAttr("terms", len(plan.Unique))
	parseSpan.End()

	out := Outcome{Plan: plan}
	cacheStatus := "none"
	var result *indexer.SearchResult

	_, execSpan := e.tracer.Start(ctx, "execute")
	switch {
	case plan.Empty():
		result = e.engine.Execute(plan, limit)
	case e.cache != nil:
		result, out.CacheHit = e.cache.GetOrCompute(ctx, plan, limit, e.engine.Generation(), func() *indexer.SearchResult {
			return e.engine.Execute(plan, limit)
		})
		cacheStatus = "miss"
		if out.CacheHit {
			cacheStatus = "hit"
		}
	default:
		result = e.engine.Execute(plan, limit)
	}
	execSpan.SetAttr("cache", cacheStatus)
	execSpan.SetAttr("total_hits", result.TotalHits)
	execSpan.End()

	out.Latency = time.Since(start)
	root.SetAttr("query", query)

	if e.metrics != nil {
		resultType := "hit"
		switch {
		case plan.Empty():
			resultType = "empty_query"
		case result.TotalHits == 0:
			resultType = "zero_result"
		}
		e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		e.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(out.Latency.Seconds())
		e.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
		if e.cache != nil && !plan.Empty() {
			if out.CacheHit {
				e.metrics.CacheHitsTotal.Inc()
			} else {
				e.metrics.CacheMissesTotal.Inc()
			}
		}
	}

	logger.FromContext(ctx).Debug("query executed",
		"query", query,
		"terms", plan.Unique,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache", cacheStatus,
	)
	return result, out
}

// Suggest returns vocabulary completions for prefix.
func (e *Executor) Suggest(ctx context.Context, prefix string, limit int) []string {
	suggestions := e.engine.Suggest(prefix, limit)
	if e.metrics != nil {
		e.metrics.SuggestRequestsTotal.Inc()
	}
	return suggestions
}

// WordBreak returns one segmentation of blob, or up to limit of them when
// all is set. It fails with trie.ErrSegmentationFailure when none exists.
func (e *Executor) WordBreak(ctx context.Context, blob string, all bool, limit int) ([][]string, error) {
	var (
		segs [][]string
		err  error
	)
	if all {
		segs, err = e.engine.WordBreakAll(blob, limit)
	} else {
		var words []string
		if words, err = e.engine.WordBreak(blob); err == nil {
			segs = [][]string{words}
		}
	}
	if e.metrics != nil {
		outcome := "segmented"
		if err != nil {
			outcome = "failed"
		}
		e.metrics.WordBreaksTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		logger.FromContext(ctx).Debug("word break failed", "input", blob, "error", err)
	}
	return segs, err
}
