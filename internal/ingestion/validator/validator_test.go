package validator

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePage(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		text      string
		maxBytes  int
		wantField string
		tooLarge  bool
	}{
		{name: "valid", url: "https://example.com/a", text: "search engines"},
		{name: "no url", text: "search engines"},
		{name: "empty text", url: "http://example.com", text: ""},
		{name: "relative url", url: "/pages/1", text: "x", wantField: "url"},
		{name: "ftp url", url: "ftp://example.com", text: "x", wantField: "url"},
		{name: "long url", url: "https://example.com/" + strings.Repeat("a", maxURLLength), text: "x", wantField: "url"},
		{name: "bad utf8", text: "\xff\xfe", wantField: "text"},
		{name: "too large", text: strings.Repeat("a", 11), maxBytes: 10, tooLarge: true},
		{name: "no limit", text: strings.Repeat("a", 11), maxBytes: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePage(tt.url, tt.text, tt.maxBytes)
			var tooLarge *TooLargeError
			if tt.tooLarge {
				if !errors.As(err, &tooLarge) {
					t.Fatalf("err = %v, want TooLargeError", err)
				}
				return
			}
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Errorf("fields = %v, want %q", verr.Fields, tt.wantField)
			}
		})
	}
}
