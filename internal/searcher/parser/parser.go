package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/tokenizer"
)

// QueryPlan is a query reduced to normalised terms.
type QueryPlan struct {
	RawQuery string
	// Terms keeps every token in query order, duplicates included.
	Terms []string
	// Unique is Terms deduplicated, first occurrence wins.
	Unique []string
	// Phrase is the query in exact-phrase form.
	Phrase string
}

// Empty reports whether the query produced no searchable terms.
func (p *QueryPlan) Empty() bool {
	return len(p.Unique) == 0
}

// Parse tokenizes query with tok.
func Parse(tok *tokenizer.Tokenizer, query string) *QueryPlan {
	plan := &QueryPlan{
		RawQuery: query,
		Terms:    make([]string, 0),
		Unique:   make([]string, 0),
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	plan.Terms = tok.Terms(query)
	seen := make(map[string]struct{}, len(plan.Terms))
	for _, term := range plan.Terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		plan.Unique = append(plan.Unique, term)
	}
	plan.Phrase = tok.NormalizePhrase(query)
	return plan
}
