// Package docstore keeps the raw text of every indexed page. It is the
// source of truth for exact-phrase matching and result display.
package docstore

import (
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/index"
)

// Page is a stored document. Pages are immutable once stored.
type Page struct {
	ID         index.DocID `json:"doc_id"`
	URL        string      `json:"url,omitempty"`
	Text       string      `json:"text"`
	Phrase     string      `json:"-"`
	TokenCount int         `json:"token_count"`
	AddedAt    time.Time   `json:"added_at"`
}

// Store maps document IDs to pages.
type Store struct {
	mu    sync.RWMutex
	pages map[index.DocID]Page
	bytes int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{pages: make(map[index.DocID]Page)}
}

// Put stores page under page.ID. A page already stored under that ID is
// kept; it returns false in that case.
func (s *Store) Put(page Page) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pages[page.ID]; exists {
		return false
	}
	s.pages[page.ID] = page
	s.bytes += int64(len(page.Text))
	return true
}

// Get returns the page stored under id.
func (s *Store) Get(id index.DocID) (Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[id]
	return p, ok
}

// Text returns the raw text of id, or "" if unknown.
func (s *Store) Text(id index.DocID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pages[id].Text
}

// Phrase returns the exact-phrase form of id's text, or "" if unknown.
func (s *Store) Phrase(id index.DocID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pages[id].Phrase
}

// IDs returns every stored ID in ascending order.
func (s *Store) IDs() []index.DocID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]index.DocID, 0, len(s.pages))
	for id := range s.pages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of stored pages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Bytes returns the total size of stored text.
func (s *Store) Bytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}
