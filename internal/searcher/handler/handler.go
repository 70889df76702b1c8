// Package handler exposes the engine over HTTP: search, autocomplete,
// word break, page ingestion and lookup, corpus stats and cache control.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/page-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/page-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/page-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/page-search/pkg/logger"
)

// Tracker receives analytics events.
type Tracker interface {
	Track(event any)
}

type Handler struct {
	executor  *executor.Executor
	engine    *indexer.Engine
	ingest    *ingestion.Service
	cache     *cache.QueryCache
	tracker   Tracker
	cfg       config.SearchConfig
	bodyLimit int64
	logger    *slog.Logger
}

// New creates a Handler. queryCache and tracker may be nil.
func New(
	exec *executor.Executor,
	engine *indexer.Engine,
	ingest *ingestion.Service,
	queryCache *cache.QueryCache,
	tracker Tracker,
	cfg config.Config,
) *Handler {
	bodyLimit := int64(cfg.Engine.MaxPageBytes)*2 + 4096
	if cfg.Engine.MaxPageBytes <= 0 {
		bodyLimit = 64 << 20
	}
	return &Handler{
		executor:  exec,
		engine:    engine,
		ingest:    ingest,
		cache:     queryCache,
		tracker:   tracker,
		cfg:       cfg.Search,
		bodyLimit: bodyLimit,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/pages", h.AddPage)
	mux.HandleFunc("GET /api/v1/pages/{id}", h.GetPage)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/wordbreak", h.WordBreak)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")
	limit, ok := h.parseLimit(w, r, h.cfg.DefaultLimit)
	if !ok {
		return
	}

	result, out := h.executor.Search(ctx, query, limit)

	logger.FromContext(ctx).Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", out.CacheHit,
		"latency_us", out.Latency.Microseconds(),
	)
	if h.tracker != nil && !out.Plan.Empty() {
		eventType := analytics.EventSearch
		if result.TotalHits == 0 {
			eventType = analytics.EventZeroResult
		}
		h.tracker.Track(analytics.SearchEvent{
			Type:          eventType,
			Query:         query,
			Terms:         out.Plan.Unique,
			TotalHits:     result.TotalHits,
			Returned:      len(result.Results),
			LatencyMicros: out.Latency.Microseconds(),
			CacheHit:      out.CacheHit,
			Timestamp:     time.Now().UTC(),
			RequestID:     logger.RequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	limit, ok := h.parseLimit(w, r, 0)
	if !ok {
		return
	}
	suggestions := h.executor.Suggest(r.Context(), prefix, limit)
	h.track(r, analytics.SearchEvent{Type: analytics.EventSuggest, Query: prefix, Returned: len(suggestions)})
	h.writeJSON(w, http.StatusOK, map[string]any{
		"prefix":      prefix,
		"suggestions": suggestions,
	})
}

func (h *Handler) WordBreak(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := q.Get("q")
	all := false
	if v := q.Get("all"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, apperrors.ErrInvalidInput, "all must be a boolean")
			return
		}
		all = parsed
	}
	limit, ok := h.parseLimit(w, r, 0)
	if !ok {
		return
	}

	segs, err := h.executor.WordBreak(r.Context(), input, all, limit)
	h.track(r, analytics.SearchEvent{Type: analytics.EventWordBreak, Query: input, Returned: len(segs), Failed: err != nil})
	if err != nil {
		h.writeAppError(w, r, fmt.Errorf("word break %q: %w", input, err))
		return
	}
	if all {
		h.writeJSON(w, http.StatusOK, map[string]any{"input": input, "segmentations": segs})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"input": input, "words": segs[0]})
}

// AddPage indexes the posted page. With ?async=true it is queued on Kafka
// instead and 202 is returned.
func (h *Handler) AddPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ingestion.IngestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.bodyLimit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, apperrors.ErrPageTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, apperrors.ErrInvalidInput, "invalid JSON body")
		return
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	var (
		resp   *ingestion.IngestResponse
		err    error
		status = http.StatusCreated
	)
	if async {
		resp, err = h.ingest.Enqueue(ctx, req)
		status = http.StatusAccepted
	} else {
		resp, err = h.ingest.Ingest(ctx, ingestion.SourceHTTP, req)
	}
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	logger.FromContext(ctx).Info("page accepted",
		"page_id", resp.PageID,
		"status", resp.Status,
		"url", req.URL,
	)
	h.writeJSON(w, status, resp)
}

func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, apperrors.ErrInvalidInput, "page id must be a positive integer")
		return
	}
	page, ok := h.engine.Page(index.DocID(id))
	if !ok {
		h.writeAppError(w, r, apperrors.Newf(apperrors.ErrPageNotFound, http.StatusNotFound, "page %d", id))
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":       hits,
		"misses":     misses,
		"total":      total,
		"hit_rate":   fmt.Sprintf("%.1f%%", hitRate),
		"breaker":    h.cache.BreakerState().String(),
		"generation": h.engine.Generation(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, apperrors.ErrUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, apperrors.ErrInternal, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// parseLimit reads ?limit= and clamps it to the configured maximum. A
// missing limit returns fallback unchanged; 0 lets the engine apply its own
// default.
func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		h.writeError(w, http.StatusBadRequest, apperrors.ErrInvalidInput, "limit must be a positive integer")
		return 0, false
	}
	if h.cfg.MaxResults > 0 && limit > h.cfg.MaxResults {
		limit = h.cfg.MaxResults
	}
	return limit, true
}

func (h *Handler) track(r *http.Request, event analytics.SearchEvent) {
	if h.tracker == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.RequestID = logger.RequestID(r.Context())
	h.tracker.Track(event)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError writes message with the stable code of kind.
func (h *Handler) writeError(w http.ResponseWriter, status int, kind error, message string) {
	h.writeJSON(w, status, map[string]string{"error": message, "code": apperrors.Code(kind)})
}

// writeAppError maps err to a status with apperrors.HTTPStatusCode. Field
// validation details are returned to the client; server errors are logged
// and hidden.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"code":   apperrors.Code(apperrors.ErrInvalidInput),
			"fields": verr.Fields,
		})
		return
	}
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "error", err, "status", status)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}
	h.writeJSON(w, status, map[string]string{"error": message, "code": apperrors.Code(err)})
}
