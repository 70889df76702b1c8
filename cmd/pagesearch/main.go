package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/logger"
)

var demoPages = []ingestion.IngestRequest{
	{URL: "https://example.com", Text: "This is an example page with a search engine."},
	{URL: "https://example2.com", Text: "Another example page with algorithms and data."},
	{URL: "https://example3.com", Text: "The news are spreading quickly. Search engines use algorithms."},
	{URL: "https://example4.com", Text: "Exact match test: example search"},
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	pagesPath := flag.String("pages", "", "JSON-lines file of pages to index instead of the demo pages")
	limit := flag.Int("limit", 0, "maximum results per query (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Log to stderr at warn so the prompt stays readable.
	slog.SetDefault(logger.New(os.Stderr, "warn", "text"))

	engine, err := indexer.NewEngine(cfg.Engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create engine: %v\n", err)
		os.Exit(1)
	}
	svc := ingestion.NewService(engine, cfg.Engine.MaxPageBytes, nil, nil, nil)
	if err := seed(context.Background(), svc, *pagesPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed pages: %v\n", err)
		os.Exit(1)
	}

	repl(os.Stdin, os.Stdout, engine, *limit)
}

func seed(ctx context.Context, svc *ingestion.Service, path string) error {
	if path == "" {
		for _, page := range demoPages {
			if _, err := svc.Ingest(ctx, ingestion.SourceSeed, page); err != nil {
				return err
			}
		}
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = ingestion.LoadPages(ctx, svc, f)
	return err
}

// repl answers one query per input line until "exit" or EOF.
func repl(in io.Reader, out io.Writer, engine *indexer.Engine, limit int) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nEnter search query (or 'exit'): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		query := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(query), "exit") {
			return
		}
		answer(out, engine, query, limit)
	}
}

func answer(out io.Writer, engine *indexer.Engine, query string, limit int) {
	result := engine.Search(query, limit)
	if len(result.Results) == 0 {
		fmt.Fprintf(out, "No results found for: %s\n", query)
	}
	for _, hit := range result.Results {
		exact := ""
		if hit.Phrase {
			exact = ", Exact Match"
		}
		fmt.Fprintf(out, "Found: %s (Matches: %d, Frequency Sum: %d%s)\n",
			displayName(hit), hit.Matched, hit.FreqSum, exact)
	}

	fmt.Fprintf(out, "Autocomplete suggestions: %v\n", engine.Suggest(query, 0))

	breaks, err := engine.WordBreakAll(query, 0)
	switch {
	case errors.Is(err, apperrors.ErrNotDecomposable):
		fmt.Fprintln(out, "Word Breaks: []")
	case err != nil:
		fmt.Fprintf(out, "Word Breaks: error: %v\n", err)
	default:
		joined := make([]string, len(breaks))
		for i, words := range breaks {
			joined[i] = strings.Join(words, " ")
		}
		fmt.Fprintf(out, "Word Breaks: %q\n", joined)
	}
}

func displayName(hit indexer.Hit) string {
	if hit.URL != "" {
		return hit.URL
	}
	return fmt.Sprintf("page %d", hit.DocID)
}
