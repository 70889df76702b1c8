// Package tokenizer provides text tokenisation for the search engine.
// It splits input on non-alphanumeric boundaries, lower-cases it, removes
// stop-words, and applies a plural-stripping stemmer. The same Tokenizer
// must be used at index time and query time.
package tokenizer

import (
	"strings"
)

// DefaultStopWords is the stop-word list used when a Config leaves
// StopWords empty.
var DefaultStopWords = []string{
	"the", "is", "and", "a", "an", "in", "of", "on", "for", "with", "to", "at",
}

// Config controls tokenizer behaviour.
type Config struct {
	StopWords []string
}

// Token represents a single normalised term and its position in the
// token stream.
type Token struct {
	Term     string
	Position int
}

// Tokenizer turns raw text into Tokens. It is safe for concurrent use once
// constructed.
type Tokenizer struct {
	stopWords map[string]struct{}
}

// New creates a Tokenizer from cfg, falling back to DefaultStopWords.
func New(cfg Config) *Tokenizer {
	words := cfg.StopWords
	if len(words) == 0 {
		words = DefaultStopWords
	}
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stop[w] = struct{}{}
		}
	}
	return &Tokenizer{stopWords: stop}
}

// Tokenize breaks text into a slice of stemmed, lowercased Tokens with
// stop-words removed.
func (t *Tokenizer) Tokenize(text string) []Token {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !isAlnum(r)
	})
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		word = strings.ToLower(word)
		if _, isStop := t.stopWords[word]; isStop {
			continue
		}
		stemmed := Stem(word)
		if _, isStop := t.stopWords[stemmed]; isStop || stemmed == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     stemmed,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// Terms is Tokenize without positions.
func (t *Tokenizer) Terms(text string) []string {
	tokens := t.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// IsStopWord reports whether word (already lowercased) is filtered out.
func (t *Tokenizer) IsStopWord(word string) bool {
	_, ok := t.stopWords[word]
	return ok
}

// NormalizePhrase lowercases text, deletes everything that is not an ASCII
// letter, digit or whitespace, and collapses whitespace runs to one space.
// It is the form compared for exact-phrase matches.
func (t *Tokenizer) NormalizePhrase(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case isAlnum(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(toLowerASCII(r))
		case isSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

// Stem strips plural suffixes from an already lowercased word until none
// applies, so Stem(Stem(w)) == Stem(w). It is a heuristic, not a
// linguistic stemmer.
func Stem(word string) string {
	for {
		next := stemOnce(word)
		if next == word {
			return word
		}
		word = next
	}
}

func stemOnce(word string) string {
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "es") && len(word) > 3:
		return word[:len(word)-2]
	case strings.HasSuffix(word, "s") && len(word) > 3 && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	}
	return word
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func toLowerASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
