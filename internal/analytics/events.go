// Package analytics records search, autocomplete, word-break and indexing
// activity. Events are aggregated in process, optionally published to Kafka
// and periodically snapshotted to PostgreSQL.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventSuggest    EventType = "suggest"
	EventWordBreak  EventType = "word_break"
	EventPageIndex  EventType = "page_indexed"
	EventZeroResult EventType = "zero_result"
)

// SearchEvent describes one read request. For suggest and word-break
// requests Returned counts suggestions or tokens and TotalHits is unused.
type SearchEvent struct {
	Type          EventType `json:"type"`
	Query         string    `json:"query"`
	Terms         []string  `json:"terms,omitempty"`
	TotalHits     int       `json:"total_hits"`
	Returned      int       `json:"returned"`
	LatencyMicros int64     `json:"latency_us"`
	CacheHit      bool      `json:"cache_hit"`
	Failed        bool      `json:"failed,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
}

// PageEvent describes one indexed page.
type PageEvent struct {
	Type       EventType `json:"type"`
	PageID     uint64    `json:"page_id"`
	URL        string    `json:"url,omitempty"`
	Source     string    `json:"source"`
	TokenCount int       `json:"token_count"`
	SizeBytes  int       `json:"size_bytes"`
	Timestamp  time.Time `json:"timestamp"`
}
