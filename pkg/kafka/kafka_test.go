package kafka

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumerCommitPolicy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{
		cancel: cancel,
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("transient")},
			{Offset: 3, Value: []byte("malformed")},
		},
	}
	var seen []string
	busy := 2
	c := newConsumer(reader, "page-ingest", func(_ context.Context, _ []byte, value []byte) error {
		seen = append(seen, string(value))
		switch string(value) {
		case "transient":
			if busy > 0 {
				busy--
				return errors.New("engine busy")
			}
		case "malformed":
			return ErrMalformed
		}
		return nil
	})
	c.fetchBackoff = time.Millisecond
	c.maxBackoff = 2 * time.Millisecond

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := []string{"ok", "transient", "transient", "transient", "malformed"}
	if !slices.Equal(seen, want) {
		t.Errorf("handled %v, want %v", seen, want)
	}
	if !slices.Equal(reader.committed, []int64{1, 2, 3}) {
		t.Errorf("committed offsets = %v, want [1 2 3]", reader.committed)
	}
	if !reader.closed {
		t.Error("reader should be closed when the loop exits")
	}
}

func TestConsumerFailingMessageBlocksLaterCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{
		cancel: cancel,
		msgs: []kafka.Message{
			{Offset: 4, Value: []byte("stuck")},
			{Offset: 5, Value: []byte("ok")},
		},
	}
	attempts := 0
	c := newConsumer(reader, "page-ingest", func(_ context.Context, _ []byte, value []byte) error {
		if string(value) == "stuck" {
			attempts++
			if attempts == 3 {
				cancel()
			}
			return errors.New("engine busy")
		}
		return nil
	})
	c.fetchBackoff = time.Millisecond
	c.maxBackoff = time.Millisecond

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(reader.committed) != 0 {
		t.Errorf("committed %v past an unsettled message", reader.committed)
	}
}

type flakyReader struct {
	*fakeReader
	failures int
}

func (r *flakyReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.failures > 0 {
		r.failures--
		return kafka.Message{}, errors.New("broker unreachable")
	}
	return r.fakeReader.FetchMessage(ctx)
}

func TestConsumerBacksOffOnFetchErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &flakyReader{
		fakeReader: &fakeReader{cancel: cancel, msgs: []kafka.Message{{Offset: 7, Value: []byte("ok")}}},
		failures:   3,
	}
	c := newConsumer(reader, "page-ingest", func(context.Context, []byte, []byte) error { return nil })
	c.fetchBackoff = time.Millisecond
	c.maxBackoff = 2 * time.Millisecond

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if reader.failures != 0 || len(reader.committed) != 1 || reader.committed[0] != 7 {
		t.Errorf("failures left = %d, committed = %v", reader.failures, reader.committed)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		URL string `json:"url"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"url":"https://example.com"}`))
	if err != nil || got.URL != "https://example.com" {
		t.Errorf("DecodeJSON = %+v, %v", got, err)
	}
	if _, err := DecodeJSON[payload]([]byte(`{`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("bad JSON error = %v, want ErrMalformed", err)
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerPublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "search-analytics")
	err := p.PublishBatch(context.Background(), []Event{
		{Key: "a", Value: map[string]int{"n": 1}},
		{Key: "b", Value: map[string]int{"n": 2}},
	})
	if err != nil {
		t.Fatalf("PublishBatch: %v", err)
	}
	if len(w.msgs) != 2 || string(w.msgs[1].Key) != "b" || string(w.msgs[0].Value) != `{"n":1}` {
		t.Errorf("messages = %+v", w.msgs)
	}
	if err := p.PublishBatch(context.Background(), nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}

	w.err = errors.New("broker down")
	if err := p.Publish(context.Background(), Event{Key: "c", Value: 1}); err == nil {
		t.Error("expected publish error")
	}
}

func TestProducerHeadersAndTimestamp(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "page-ingest")
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return stamp }

	err := p.Publish(context.Background(), Event{
		Key:     "https://example.com",
		Value:   map[string]string{"url": "https://example.com"},
		Headers: map[string]string{"source": "http", "event_type": "page"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msg := w.msgs[0]
	if !msg.Time.Equal(stamp) {
		t.Errorf("time = %v", msg.Time)
	}
	if len(msg.Headers) != 2 || msg.Headers[0].Key != "event_type" || string(msg.Headers[1].Value) != "http" {
		t.Errorf("headers = %+v", msg.Headers)
	}

	if err := p.Publish(context.Background(), Event{Key: "bad", Value: make(chan int)}); err == nil {
		t.Error("unencodable value should fail")
	}
}
