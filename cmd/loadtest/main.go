package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// op is one kind of request in the workload mix.
type op struct {
	name   string
	weight int
	build  func(ctx context.Context, baseURL string, i int) (*http.Request, error)
}

type opStats struct {
	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
	failures  int64
}

func (s *opStats) record(d time.Duration, status int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failures++
		return
	}
	s.latencies = append(s.latencies, d)
	s.statuses[status]++
}

var seedTexts = []string{
	"This is an example page with a search engine.",
	"This is a test page for search engines.",
	"Sample page with search engine optimization.",
	"Demo page with search engine and data structures.",
	"Tries support prefix queries and word breaking.",
	"An inverted index maps tokens to document frequencies.",
}

var queries = []string{
	"search engine",
	"example page",
	"data structures",
	"prefix queries",
	"inverted index",
	"word breaking",
	"search engine optimization",
	"test page",
}

var prefixes = []string{"se", "ex", "pa", "da", "in", "wo", "te", "op"}

var blobs = []string{"searchengine", "examplepage", "datastructures", "invertedindex", "testpage", "nosuchwordzz"}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of searchd")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	seed := flag.Int("seed", 50, "pages to add before the run")
	writeWeight := flag.Int("write-weight", 1, "relative weight of page adds during the run")
	flag.Parse()

	base := strings.TrimRight(*baseURL, "/")
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        *concurrency * 2,
			MaxIdleConnsPerHost: *concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Println("=== Page Search Load Test ===")
	fmt.Printf("Target:      %s\n", base)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Println()

	if *seed > 0 {
		if err := seedPages(client, base, *seed); err != nil {
			fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d pages\n\n", *seed)
	}

	ops := workload(*writeWeight)
	stats := make(map[string]*opStats, len(ops))
	for _, o := range ops {
		stats[o.name] = &opStats{statuses: make(map[int]int64)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	run(ctx, client, base, *concurrency, ops, stats)

	if !printReport(ops, stats, *duration) {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is searchd running?")
		os.Exit(1)
	}
}

func workload(writeWeight int) []op {
	ops := []op{
		{name: "search", weight: 6, build: func(ctx context.Context, base string, i int) (*http.Request, error) {
			q := queries[i%len(queries)]
			return http.NewRequestWithContext(ctx, http.MethodGet,
				fmt.Sprintf("%s/api/v1/search?q=%s&limit=10", base, url.QueryEscape(q)), nil)
		}},
		{name: "suggest", weight: 3, build: func(ctx context.Context, base string, i int) (*http.Request, error) {
			p := prefixes[i%len(prefixes)]
			return http.NewRequestWithContext(ctx, http.MethodGet,
				fmt.Sprintf("%s/api/v1/suggest?prefix=%s", base, url.QueryEscape(p)), nil)
		}},
		{name: "wordbreak", weight: 2, build: func(ctx context.Context, base string, i int) (*http.Request, error) {
			b := blobs[i%len(blobs)]
			return http.NewRequestWithContext(ctx, http.MethodGet,
				fmt.Sprintf("%s/api/v1/wordbreak?q=%s", base, url.QueryEscape(b)), nil)
		}},
	}
	if writeWeight > 0 {
		ops = append(ops, op{name: "add_page", weight: writeWeight, build: func(ctx context.Context, base string, i int) (*http.Request, error) {
			return newPageRequest(ctx, base, i)
		}})
	}
	return ops
}

func newPageRequest(ctx context.Context, base string, i int) (*http.Request, error) {
	body, err := json.Marshal(map[string]string{
		"url":  fmt.Sprintf("https://loadtest.local/%d", i),
		"text": seedTexts[i%len(seedTexts)],
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/pages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func seedPages(client *http.Client, base string, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for i := 0; i < n; i++ {
		req, err := newPageRequest(ctx, base, i)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("page %d: unexpected status %d", i, resp.StatusCode)
		}
	}
	return nil
}

func run(ctx context.Context, client *http.Client, base string, workers int, ops []op, stats map[string]*opStats) {
	// Expand weights into a schedule each worker walks from its own offset.
	var schedule []op
	for _, o := range ops {
		for w := 0; w < o.weight; w++ {
			schedule = append(schedule, o)
		}
	}

	var g errgroup.Group
	fmt.Print("Running")
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				o := schedule[i%len(schedule)]
				req, err := o.build(ctx, base, i)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats[o.name].record(elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats[o.name].record(elapsed, resp.StatusCode, nil)
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "\nworker error: %v\n", err)
	}
	close(done)
	fmt.Println(" done!")
	fmt.Println()
}

// printReport prints per-operation results and reports whether any request
// completed.
func printReport(ops []op, stats map[string]*opStats, duration time.Duration) bool {
	var total int64
	for _, o := range ops {
		s := stats[o.name]
		s.mu.Lock()
		latencies := slices.Clone(s.latencies)
		statuses := make(map[int]int64, len(s.statuses))
		for code, n := range s.statuses {
			statuses[code] = n
		}
		failures := s.failures
		s.mu.Unlock()

		completed := int64(len(latencies))
		total += completed
		fmt.Printf("=== %s ===\n", o.name)
		fmt.Printf("Completed:    %d\n", completed)
		fmt.Printf("Failures:     %d\n", failures)
		fmt.Printf("Requests/sec: %.2f\n", float64(completed)/duration.Seconds())
		if completed > 0 {
			slices.Sort(latencies)
			var sum time.Duration
			for _, l := range latencies {
				sum += l
			}
			fmt.Printf("Latency avg=%s p50=%s p95=%s p99=%s max=%s\n",
				sum/time.Duration(completed),
				percentile(latencies, 50),
				percentile(latencies, 95),
				percentile(latencies, 99),
				latencies[len(latencies)-1],
			)
		}
		codes := make([]int, 0, len(statuses))
		for code := range statuses {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Printf("  %d: %d\n", code, statuses[code])
		}
		fmt.Println()
	}
	return total > 0
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
