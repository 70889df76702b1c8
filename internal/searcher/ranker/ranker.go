package ranker

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/index"
)

// ErrInvalidWeights is returned by Validate and ValidateFor for weightings
// that would let a frequency point outweigh a matched term or a non-phrase
// score reach the phrase bonus.
var ErrInvalidWeights = errors.New("invalid ranking weights")

// Weights scales the three score components.
type Weights struct {
	MatchWeight int64 `yaml:"matchWeight"`
	FreqWeight  int64 `yaml:"freqWeight"`
	PhraseBonus int64 `yaml:"phraseBonus"`
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{
		MatchWeight: 1000,
		FreqWeight:  1,
		PhraseBonus: 1_000_000_000_000,
	}
}

// Validate checks that every weight is positive, that a matched term is
// worth more than a frequency point and that the phrase bonus outweighs a
// matched term.
func (w Weights) Validate() error {
	if w.MatchWeight <= 0 || w.FreqWeight <= 0 || w.PhraseBonus <= 0 {
		return fmt.Errorf("%w: weights must be positive (match=%d freq=%d phrase=%d)",
			ErrInvalidWeights, w.MatchWeight, w.FreqWeight, w.PhraseBonus)
	}
	if w.MatchWeight <= w.FreqWeight {
		return fmt.Errorf("%w: matchWeight %d must exceed freqWeight %d",
			ErrInvalidWeights, w.MatchWeight, w.FreqWeight)
	}
	if w.PhraseBonus <= w.MatchWeight {
		return fmt.Errorf("%w: phraseBonus %d must exceed matchWeight %d",
			ErrInvalidWeights, w.PhraseBonus, w.MatchWeight)
	}
	return nil
}

// ValidateFor runs Validate and also requires the phrase bonus to exceed
// the best score a page of at most maxTokens tokens can reach without the
// phrase: every token matching and every token counted once.
func (w Weights) ValidateFor(maxTokens int64) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if maxTokens <= 0 {
		return nil
	}
	per := w.MatchWeight + w.FreqWeight
	if per < 0 || per > math.MaxInt64/maxTokens {
		return fmt.Errorf("%w: matchWeight+freqWeight %d overflows over %d tokens",
			ErrInvalidWeights, per, maxTokens)
	}
	if ceiling := per * maxTokens; w.PhraseBonus <= ceiling {
		return fmt.Errorf("%w: phraseBonus %d must exceed %d, the best non-phrase score over %d tokens",
			ErrInvalidWeights, w.PhraseBonus, ceiling, maxTokens)
	}
	return nil
}

// ScoredDoc is one ranked result.
type ScoredDoc struct {
	DocID   index.DocID `json:"doc_id"`
	Score   int64       `json:"score"`
	Rank    int         `json:"rank"`
	Matched int         `json:"matched"`
	FreqSum int         `json:"freq_sum"`
	Phrase  bool        `json:"exact_match"`
}

// Query is what the ranker needs from a parsed query.
type Query struct {
	// Terms must be deduplicated.
	Terms []string
	// Phrase is the query in exact-phrase form; empty disables the bonus.
	Phrase string
}

// PhraseText returns a document's text in exact-phrase form.
type PhraseText func(docID index.DocID) string

// Ranker scores candidate documents.
type Ranker struct {
	weights Weights
}

// New creates a Ranker after validating w.
func New(w Weights) (*Ranker, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{weights: w}, nil
}

// Weights returns the weighting in use.
func (r *Ranker) Weights() Weights {
	return r.weights
}

// Rank scores every document that appears in at least one posting list of
// postingsPerTerm and returns them by score descending, DocID ascending.
// Phrase hits always sort ahead of non-phrase hits, so the order holds even
// when the bonus is too small to dominate. Only terms in q.Terms
// contribute. A limit <= 0 returns all candidates.
func (r *Ranker) Rank(q Query, postingsPerTerm map[string]index.PostingList, phraseText PhraseText, limit int) []ScoredDoc {
	type acc struct {
		matched int
		freqSum int
	}
	scores := make(map[index.DocID]*acc)
	for _, term := range q.Terms {
		for _, posting := range postingsPerTerm[term] {
			if posting.Frequency <= 0 {
				continue
			}
			a, ok := scores[posting.DocID]
			if !ok {
				a = &acc{}
				scores[posting.DocID] = a
			}
			a.matched++
			a.freqSum += posting.Frequency
		}
	}

	result := make([]ScoredDoc, 0, len(scores))
	for docID, a := range scores {
		phrase := q.Phrase != "" && phraseText != nil && strings.Contains(phraseText(docID), q.Phrase)
		score := int64(a.matched)*r.weights.MatchWeight + int64(a.freqSum)*r.weights.FreqWeight
		if phrase {
			score += r.weights.PhraseBonus
		}
		result = append(result, ScoredDoc{
			DocID:   docID,
			Score:   score,
			Matched: a.matched,
			FreqSum: a.freqSum,
			Phrase:  phrase,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Phrase != result[j].Phrase {
			return result[i].Phrase
		}
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	for i := range result {
		result[i].Rank = i + 1
	}
	return result
}
