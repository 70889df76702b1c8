// Package index implements the in-memory inverted index mapping normalised
// terms to per-document posting lists.
package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/tokenizer"
)

// MemoryIndex is an inverted index held entirely in memory. Its own lock
// makes single calls safe; callers needing several structures to change
// together (the engine) hold a wider lock.
type MemoryIndex struct {
	mu       sync.RWMutex
	index    map[string]map[DocID]*Posting
	docs     map[DocID]struct{}
	postings int
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]map[DocID]*Posting),
		docs:  make(map[DocID]struct{}),
	}
}

// Record adds every token of docID to the index, incrementing the term's
// frequency for that document and appending the token position.
func (m *MemoryIndex) Record(docID DocID, tokens []tokenizer.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, token := range tokens {
		docs, exists := m.index[token.Term]
		if !exists {
			docs = make(map[DocID]*Posting)
			m.index[token.Term] = docs
		}
		p, exists := docs[docID]
		if !exists {
			p = &Posting{
				DocID:     docID,
				Positions: make([]int, 0, 4),
			}
			docs[docID] = p
			m.postings++
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}
	m.docs[docID] = struct{}{}
}

// Lookup returns a copy of the postings for term sorted by DocID, or nil
// if the term is unknown. Matching is exact.
func (m *MemoryIndex) Lookup(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	return sortedPostings(docs)
}

// DocumentFrequency returns how many times term occurs in docID, 0 if it
// does not.
func (m *MemoryIndex) DocumentFrequency(term string, docID DocID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.index[term][docID]; ok {
		return p.Frequency
	}
	return 0
}

// CorpusFrequency returns the total occurrences of term across all
// documents.
func (m *MemoryIndex) CorpusFrequency(term string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, p := range m.index[term] {
		total += p.Frequency
	}
	return total
}

// Terms returns every indexed term in ascending order.
func (m *MemoryIndex) Terms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0, len(m.index))
	for term := range m.index {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Snapshot returns every term with its postings, sorted by term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: sortedPostings(docs),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// DocCount returns the number of documents recorded, including those that
// contributed no tokens.
func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// TermCount returns the number of distinct terms.
func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

// PostingCount returns the number of (term, document) pairs.
func (m *MemoryIndex) PostingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.postings
}

func sortedPostings(docs map[DocID]*Posting) PostingList {
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		p := *posting
		p.Positions = append([]int(nil), posting.Positions...)
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}
