package index

// DocID identifies a stored page. IDs are assigned by the engine from a
// monotonic counter starting at 1 and are never reused.
type DocID uint64

// Posting records how often, and where, a term occurs in one document.
type Posting struct {
	DocID     DocID `json:"doc_id"`
	Frequency int   `json:"frequency"`
	Positions []int `json:"positions,omitempty"`
}

// PostingList holds the postings of one term, sorted by DocID.
type PostingList []Posting

// TermEntry is a term together with its postings.
type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}

// CorpusFrequency sums the per-document frequencies in the list.
func (pl PostingList) CorpusFrequency() int {
	total := 0
	for _, p := range pl {
		total += p.Frequency
	}
	return total
}
