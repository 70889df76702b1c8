// Package ingestion accepts pages from HTTP and Kafka, validates them and
// hands them to the search engine.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by POST /api/v1/pages.
type IngestRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// IngestResponse is returned once a page is indexed or queued.
type IngestResponse struct {
	PageID uint64 `json:"doc_id,omitempty"`
	Status string `json:"status"`
}

const (
	StatusIndexed = "indexed"
	StatusQueued  = "queued"
)

// PageIngestEvent is the Kafka payload on the page-ingest topic.
type PageIngestEvent struct {
	URL         string    `json:"url"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}
