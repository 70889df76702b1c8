package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tok := New(Config{})
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"stopwords and plural", "The quick brown foxes jump", []string{"quick", "brown", "fox", "jump"}},
		{"punctuation delimits", "search-engine,algorithms!data", []string{"search", "engine", "algorithm", "data"}},
		{"ies suffix", "Libraries and flies", []string{"library", "fly"}},
		{"short ies falls back to es", "ties", []string{"ti"}},
		{"ss kept", "class glass", []string{"class", "glass"}},
		{"short s kept", "bus gas", []string{"bus", "gas"}},
		{"digits", "Top 10 results", []string{"top", "10", "result"}},
		{"only stopwords", "the a an of", []string{}},
		{"empty", "", []string{}},
		{"only punctuation", "!!! ... ,,,", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Terms(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Terms(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	tok := New(Config{})
	tokens := tok.Tokenize("the cat and the hat")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	for i, token := range tokens {
		if token.Position != i {
			t.Errorf("token %q position = %d, want %d", token.Term, token.Position, i)
		}
	}
}

func TestNormalizationIdempotent(t *testing.T) {
	tok := New(Config{})
	words := []string{"foxes", "libraries", "horses", "quick", "classes", "series", "runs", "data"}
	for _, w := range words {
		first := tok.Terms(w)
		if len(first) != 1 {
			t.Fatalf("Terms(%q) = %v, want exactly one token", w, first)
		}
		second := tok.Terms(first[0])
		if !reflect.DeepEqual(first, second) {
			t.Errorf("normalizing %q again: got %v, want %v", first[0], second, first)
		}
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	tok := New(Config{})
	text := "Search engines use algorithms. The news are spreading quickly."
	a := tok.Terms(text)
	b := tok.Terms(text)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("tokenization not deterministic: %v vs %v", a, b)
	}
}

func TestCustomStopWords(t *testing.T) {
	tok := New(Config{StopWords: []string{"Quick", " fox "}})
	got := tok.Terms("the quick fox")
	want := []string{"the"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms = %v, want %v", got, want)
	}
	if !tok.IsStopWord("quick") {
		t.Error("expected quick to be a stop word")
	}
	if tok.IsStopWord("the") {
		t.Error("default stop words should be replaced by the configured list")
	}
}

func TestStemmedStopWordDropped(t *testing.T) {
	tok := New(Config{StopWords: []string{"page"}})
	got := tok.Terms("pages about search")
	want := []string{"about", "search"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms = %v, want %v", got, want)
	}
	// Re-tokenizing the output must not drop anything further.
	if again := tok.Terms(strings.Join(got, " ")); !reflect.DeepEqual(again, got) {
		t.Errorf("second pass = %v, want %v", again, got)
	}
}

func TestNormalizePhrase(t *testing.T) {
	tok := New(Config{})
	tests := []struct {
		in   string
		want string
	}{
		{"Exact match test: example search", "exact match test example search"},
		{"  Don't   STOP\tnow ", "dont stop now"},
		{"...", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := tok.NormalizePhrase(tt.in); got != tt.want {
			t.Errorf("NormalizePhrase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"foxes":   "fox",
		"cities":  "city",
		"pies":    "pi",
		"cats":    "cat",
		"is":      "is",
		"gas":     "gas",
		"boss":    "boss",
		"horses":  "hor",
		"quickly": "quickly",
	}
	for in, want := range tests {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
		if again := Stem(Stem(in)); again != Stem(in) {
			t.Errorf("Stem not idempotent for %q: %q", in, again)
		}
	}
}

func BenchmarkTokenize(b *testing.B) {
	tok := New(Config{})
	text := strings.Repeat("Information retrieval systems combine tokenization, stemming, and stop word removal. ", 20)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = tok.Tokenize(text)
	}
}
