package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/kafka"
)

func newService(t *testing.T, maxBytes int) (*ingestion.Service, *indexer.Engine) {
	t.Helper()
	engine, err := indexer.NewEngine(config.Default().Engine)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return ingestion.NewService(engine, maxBytes, nil, nil, nil), engine
}

func encode(t *testing.T, event ingestion.PageIngestEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestHandleMessageIndexesPage(t *testing.T) {
	svc, engine := newService(t, 0)
	handle := HandleMessage(svc)

	err := handle(context.Background(), []byte("k"), encode(t, ingestion.PageIngestEvent{
		URL:  "https://www.example.com",
		Text: "Algorithms are essential for search engines.",
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	res := engine.Search("algorithms", 0)
	if res.TotalHits != 1 || res.Results[0].URL != "https://www.example.com" {
		t.Errorf("result = %+v", res)
	}
}

func TestHandleMessageMalformed(t *testing.T) {
	svc, engine := newService(t, 8)
	handle := HandleMessage(svc)

	tests := []struct {
		name  string
		value []byte
	}{
		{"bad json", []byte(`{"url":`)},
		{"bad url", encode(t, ingestion.PageIngestEvent{URL: "mailto:x", Text: "hi"})},
		{"too large", encode(t, ingestion.PageIngestEvent{Text: "far too long for the limit"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := handle(context.Background(), nil, tt.value); !errors.Is(err, kafka.ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
	if engine.Stats().Pages != 0 {
		t.Error("rejected events must not be indexed")
	}
}

type stubRunner struct{ started bool }

func (s *stubRunner) Start(context.Context) error {
	s.started = true
	return nil
}

func TestIndexConsumerStart(t *testing.T) {
	r := &stubRunner{}
	if err := New(r).Start(context.Background()); err != nil || !r.started {
		t.Errorf("Start: %v started=%v", err, r.started)
	}
}
