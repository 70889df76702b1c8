// Package errors defines the sentinel errors shared across the service and
// maps them to HTTP status codes and stable machine-readable codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrPageNotFound = errors.New("page not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrPageTooLarge = errors.New("page too large")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUnavailable  = errors.New("dependency unavailable")
	ErrInternal     = errors.New("internal error")
	ErrTimeout      = errors.New("operation timed out")

	// ErrNotDecomposable means a word-break input has no segmentation into
	// indexed tokens.
	ErrNotDecomposable = errors.New("not decomposable")
)

// kind pairs a sentinel with its response status and code. Order matters:
// the first sentinel err matches wins.
type kind struct {
	sentinel error
	status   int
	code     string
}

var kinds = []kind{
	{ErrPageNotFound, http.StatusNotFound, "page_not_found"},
	{ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{ErrPageTooLarge, http.StatusRequestEntityTooLarge, "page_too_large"},
	{ErrNotDecomposable, http.StatusUnprocessableEntity, "not_decomposable"},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{ErrTimeout, http.StatusServiceUnavailable, "timeout"},
	{ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// AppError attaches an HTTP status and client-facing message to a sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

func lookup(err error) (kind, bool) {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k, true
		}
	}
	return kind{}, false
}

// HTTPStatusCode picks the response status for err. An AppError's own
// status wins over sentinel matching.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	if k, ok := lookup(err); ok {
		return k.status
	}
	return http.StatusInternalServerError
}

// Code returns the stable code clients can switch on, "internal" when err
// matches no known sentinel.
func Code(err error) string {
	if k, ok := lookup(err); ok {
		return k.code
	}
	return "internal"
}
