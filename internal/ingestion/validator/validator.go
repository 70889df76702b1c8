// Package validator checks incoming pages before indexing and returns
// per-field error details.
package validator

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

const maxURLLength = 2048

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// TooLargeError reports a page body above the configured limit.
type TooLargeError struct {
	Size, Limit int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("text is %d bytes, limit is %d", e.Size, e.Limit)
}

// ValidatePage checks a page before indexing. The URL is optional but must
// be an absolute http(s) URL when present. Text may be empty; a page with
// no searchable words is still stored. maxBytes <= 0 disables the size
// check.
func ValidatePage(rawURL, text string, maxBytes int) error {
	if maxBytes > 0 && len(text) > maxBytes {
		return &TooLargeError{Size: len(text), Limit: maxBytes}
	}
	errs := make(map[string]string)
	if rawURL != "" {
		if len(rawURL) > maxURLLength {
			errs["url"] = fmt.Sprintf("url must be at most %d characters", maxURLLength)
		} else if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs["url"] = "url must be an absolute http or https URL"
		}
	}
	if !utf8.ValidString(text) {
		errs["text"] = "text must be valid UTF-8"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
