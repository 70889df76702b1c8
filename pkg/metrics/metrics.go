// Package metrics defines the Prometheus collectors searchd exports and the
// handler that serves them. Every metric name carries the pagesearch_
// namespace.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pagesearch"

var (
	latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	// Engine lookups are in-memory and far faster than a round trip.
	searchBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25}
	resultBuckets = []float64{0, 1, 5, 10, 25, 50, 100}
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	SuggestRequestsTotal prometheus.Counter
	WordBreaksTotal      *prometheus.CounterVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	PagesIndexedTotal *prometheus.CounterVec
	CorpusPages       prometheus.Gauge
	CorpusTerms       prometheus.Gauge

	CircuitBreakerState *prometheus.GaugeVec
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
}

func histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

// New creates every collector and registers it with reg. A nil reg uses
// the Prometheus default registerer. Registering twice on the same
// registry panics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal:    counterVec("http_requests_total", "HTTP requests by method, route and status.", "method", "path", "status"),
		HTTPRequestDuration:  histogramVec("http_request_duration_seconds", "HTTP request latency in seconds.", latencyBuckets, "method", "path"),
		HTTPRequestsInFlight: gauge("http_requests_in_flight", "HTTP requests currently being served."),

		SearchQueriesTotal: counterVec("search_queries_total", "Search queries by result type (hit, zero_result, empty_query).", "result_type"),
		SearchLatency:      histogramVec("search_latency_seconds", "Search latency in seconds by cache status.", searchBuckets, "cache_status"),
		SearchResultsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_count",
			Help:      "Results returned per search query.",
			Buckets:   resultBuckets,
		}),
		SuggestRequestsTotal: counter("suggest_requests_total", "Autocomplete requests."),
		WordBreaksTotal:      counterVec("word_breaks_total", "Word-break requests by outcome (segmented, failed).", "outcome"),

		CacheHitsTotal:   counter("cache_hits_total", "Query cache hits."),
		CacheMissesTotal: counter("cache_misses_total", "Query cache misses."),

		PagesIndexedTotal: counterVec("pages_indexed_total", "Pages indexed by source (http, kafka, seed).", "source"),
		CorpusPages:       gauge("corpus_pages", "Pages in the corpus."),
		CorpusTerms:       gauge("corpus_terms", "Distinct stemmed terms in the inverted index."),

		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPRequestsInFlight,
		m.SearchQueriesTotal, m.SearchLatency, m.SearchResultsCount,
		m.SuggestRequestsTotal, m.WordBreaksTotal,
		m.CacheHitsTotal, m.CacheMissesTotal,
		m.PagesIndexedTotal, m.CorpusPages, m.CorpusTerms,
		m.CircuitBreakerState,
	)
	return m
}

// Handler returns the scrape handler for g. A nil g serves the default
// gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
