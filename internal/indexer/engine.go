// Package indexer holds the search Engine: the facade that ties the
// tokenizer, vocabulary trie, inverted index, document store and ranker
// together behind AddPage, Search, Suggest and WordBreak.
package indexer

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/trie"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/config"
)

// Hit is a ranked document with its display URL.
type Hit struct {
	ranker.ScoredDoc
	URL string `json:"url,omitempty"`
}

// SearchResult is the outcome of one query.
type SearchResult struct {
	Query      string         `json:"query"`
	Terms      []string       `json:"terms"`
	TotalHits  int            `json:"total_hits"`
	Results    []Hit          `json:"results"`
	TermStats  map[string]int `json:"term_stats"`
	Generation uint64         `json:"generation"`
}

// Stats summarises engine state.
type Stats struct {
	Pages      int    `json:"pages"`
	Terms      int    `json:"terms"`
	Vocabulary int    `json:"vocabulary"`
	Postings   int    `json:"postings"`
	TextBytes  int64  `json:"text_bytes"`
	Generation uint64 `json:"generation"`
}

// Engine is safe for concurrent use. AddPage holds the write lock across
// the trie, index and store updates, so readers never observe a partially
// added page.
type Engine struct {
	mu         sync.RWMutex
	tok        *tokenizer.Tokenizer
	vocab      *trie.Trie
	memIndex   *index.MemoryIndex
	store      *docstore.Store
	ranker     *ranker.Ranker
	cfg        config.EngineConfig
	logger     *slog.Logger
	nextID     index.DocID
	generation uint64
}

// NewEngine builds an empty engine from cfg.
func NewEngine(cfg config.EngineConfig) (*Engine, error) {
	r, err := ranker.New(cfg.Weights)
	if err != nil {
		return nil, err
	}
	return &Engine{
		tok:      tokenizer.New(tokenizer.Config{StopWords: cfg.StopWords}),
		vocab:    trie.New(),
		memIndex: index.NewMemoryIndex(),
		store:    docstore.New(),
		ranker:   r,
		cfg:      cfg,
		logger:   slog.Default().With("component", "engine"),
		nextID:   1,
	}, nil
}

// Tokenizer returns the tokenizer shared by indexing and querying.
func (e *Engine) Tokenizer() *tokenizer.Tokenizer {
	return e.tok
}

// AddPage indexes text and returns its new id.
func (e *Engine) AddPage(text string) index.DocID {
	return e.AddWebPage("", text)
}

// AddWebPage indexes text under a display URL and returns its new id. Text
// that yields no tokens is still stored.
func (e *Engine) AddWebPage(url string, text string) index.DocID {
	tokens := e.tok.Tokenize(text)
	page := docstore.Page{
		URL:        url,
		Text:       text,
		Phrase:     e.tok.NormalizePhrase(text),
		TokenCount: len(tokens),
		AddedAt:    time.Now().UTC(),
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	page.ID = id
	for _, token := range tokens {
		e.vocab.Insert(token.Term)
	}
	e.memIndex.Record(id, tokens)
	e.store.Put(page)
	e.generation++
	e.mu.Unlock()

	e.logger.Debug("page indexed",
		"doc_id", id,
		"url", url,
		"token_count", len(tokens),
	)
	return id
}

// Search parses query and ranks matching pages. limit <= 0 returns every
// match.
func (e *Engine) Search(query string, limit int) *SearchResult {
	return e.Execute(parser.Parse(e.tok, query), limit)
}

// Execute ranks pages for an already parsed plan.
func (e *Engine) Execute(plan *parser.QueryPlan, limit int) *SearchResult {
	result := &SearchResult{
		Query:     plan.RawQuery,
		Terms:     plan.Unique,
		Results:   []Hit{},
		TermStats: make(map[string]int),
	}
	if plan.Empty() {
		result.Generation = e.Generation()
		return result
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	result.Generation = e.generation

	postingsPerTerm := make(map[string]index.PostingList, len(plan.Unique))
	candidates := make(map[index.DocID]struct{})
	for _, term := range plan.Unique {
		postings := e.memIndex.Lookup(term)
		if len(postings) == 0 {
			continue
		}
		postingsPerTerm[term] = postings
		result.TermStats[term] = len(postings)
		for _, p := range postings {
			candidates[p.DocID] = struct{}{}
		}
	}
	result.TotalHits = len(candidates)
	if len(candidates) == 0 {
		return result
	}

	q := ranker.Query{Terms: plan.Unique, Phrase: plan.Phrase}
	ranked := e.ranker.Rank(q, postingsPerTerm, e.store.Phrase, limit)
	result.Results = make([]Hit, 0, len(ranked))
	for _, doc := range ranked {
		page, _ := e.store.Get(doc.DocID)
		result.Results = append(result.Results, Hit{ScoredDoc: doc, URL: page.URL})
	}
	return result
}

// Suggest returns up to limit vocabulary tokens starting with prefix. A
// limit <= 0 uses the configured default.
func (e *Engine) Suggest(prefix string, limit int) []string {
	if limit <= 0 {
		limit = e.cfg.SuggestLimit
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vocab.PrefixSearch(prefix, limit)
}

// WordBreak splits an unsegmented string into vocabulary tokens. Case and
// whitespace are ignored. It returns trie.ErrSegmentationFailure when no
// full cover exists.
func (e *Engine) WordBreak(blob string) ([]string, error) {
	blob = compact(blob)
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vocab.Segment(blob)
}

// WordBreakAll returns up to limit segmentations of blob. A limit <= 0
// uses the configured default.
func (e *Engine) WordBreakAll(blob string, limit int) ([][]string, error) {
	if limit <= 0 {
		limit = e.cfg.WordBreakLimit
	}
	blob = compact(blob)
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vocab.SegmentAll(blob, limit)
}

// Page returns a stored page.
func (e *Engine) Page(id index.DocID) (docstore.Page, bool) {
	return e.store.Get(id)
}

// DocumentFrequency returns how often term (already normalised) occurs in
// a page.
func (e *Engine) DocumentFrequency(term string, id index.DocID) int {
	return e.memIndex.DocumentFrequency(term, id)
}

// Generation counts completed AddPage calls. Results computed at one
// generation stay valid until it changes.
func (e *Engine) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Stats reports corpus size.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		Pages:      e.store.Len(),
		Terms:      e.memIndex.TermCount(),
		Vocabulary: e.vocab.Len(),
		Postings:   e.memIndex.PostingCount(),
		TextBytes:  e.store.Bytes(),
		Generation: e.generation,
	}
}

// Snapshot returns every indexed term with its postings.
func (e *Engine) Snapshot() []index.TermEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.memIndex.Snapshot()
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
