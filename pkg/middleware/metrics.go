// Package middleware provides the HTTP middleware searchd wraps its routes
// in: request IDs, CORS, rate limiting, Prometheus metrics and request
// timeouts. Chain composes them.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/metrics"
)

// Metrics records request count, latency and in-flight requests. Paths are
// normalized so page ids do not explode label cardinality.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			defer func() {
				m.HTTPRequestsInFlight.Dec()
				path := normalizePath(r.URL.Path)
				m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
				m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.code())).Inc()
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// statusRecorder remembers the first status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// normalizePath collapses page ids so each route is one label value.
func normalizePath(path string) string {
	const pages = "/api/v1/pages/"
	if strings.HasPrefix(path, pages) && len(path) > len(pages) {
		return pages + "{id}"
	}
	return path
}
