// Package api exposes the query engine over HTTP. Engine errors are
// carried in-body as error_code + message with HTTP 200; HTTP status
// codes are reserved for transport failures (malformed JSON, rate
// limits, panics).
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/querylens/querylens/pkg/cache"
	"github.com/querylens/querylens/pkg/executor"
	"github.com/querylens/querylens/pkg/logger"
	"github.com/querylens/querylens/pkg/metrics"
	"github.com/querylens/querylens/pkg/queryspec"
	"github.com/querylens/querylens/pkg/translator"
)

// Handler serves the query and widget endpoints.
type Handler struct {
	runner     executor.Runner
	cache      *cache.Cache
	translator *translator.Translator
	invalidate Invalidator
}

// Invalidator broadcasts cache invalidation for a dataset or
// connection. May be nil when no bus is configured.
type Invalidator interface {
	Invalidate(tag string) error
}

// NewHandler creates a Handler. cache and invalidator may be nil.
func NewHandler(runner executor.Runner, resultCache *cache.Cache, tr *translator.Translator, inv Invalidator) *Handler {
	return &Handler{runner: runner, cache: resultCache, translator: tr, invalidate: inv}
}

// HandleQuery serves POST /api/query. The request is validated before
// anything else runs: an invalid identifier or aggregation aborts the
// request without touching the generator, cache or executor.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req queryspec.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, start, queryspec.WrapError(queryspec.ErrCodeMissingParams, err, "request body is not valid JSON"))
		return
	}

	if err := req.Validate(); err != nil {
		h.sendError(w, start, err)
		return
	}

	if h.cache != nil {
		if cached, ok := h.cache.GetResult(r.Context(), &req); ok {
			metrics.GetProvider().RecordCacheHit("result")
			h.sendResult(w, start, cached)
			return
		}
		metrics.GetProvider().RecordCacheMiss("result")
	}

	result, err := h.runner.Execute(r.Context(), &req)
	metrics.GetProvider().RecordQuery("query", outcomeCode(err), time.Since(start))
	if err != nil {
		h.sendError(w, start, err)
		return
	}

	if h.cache != nil {
		if storeErr := h.cache.StoreResult(r.Context(), &req, result); storeErr != nil {
			logger.Warn("storing query result: %v", storeErr)
		}
	}

	h.sendResult(w, start, result)
}

// HandleWidget serves POST /api/widget. The body is an org-scoped
// widget configuration; the translator owns the rest.
func (h *Handler) HandleWidget(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body struct {
		OrgID  string            `json:"org_id"`
		Widget translator.Widget `json:"widget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.sendError(w, start, queryspec.WrapError(queryspec.ErrCodeMissingParams, err, "request body is not valid JSON"))
		return
	}

	data, err := h.translator.Render(r.Context(), body.OrgID, &body.Widget)
	metrics.GetProvider().RecordWidgetRender(string(body.Widget.Type))
	if err != nil {
		h.sendError(w, start, err)
		return
	}

	h.writeJSON(w, data)
}

// HandleInvalidate serves POST /api/invalidate. It evicts cached
// results for a dataset or connection and broadcasts the eviction to
// peer instances when a bus is configured.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body struct {
		DatasetID    string `json:"dataset_id"`
		ConnectionID string `json:"connection_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.sendError(w, start, queryspec.WrapError(queryspec.ErrCodeMissingParams, err, "request body is not valid JSON"))
		return
	}

	var tag string
	switch {
	case body.DatasetID != "":
		tag = "dataset:" + body.DatasetID
	case body.ConnectionID != "":
		tag = "connection:" + body.ConnectionID
	default:
		h.sendError(w, start, queryspec.NewError(queryspec.ErrCodeMissingParams, "dataset_id or connection_id is required"))
		return
	}

	if h.cache != nil {
		if err := h.cache.DeleteByTag(r.Context(), tag); err != nil {
			h.sendError(w, start, queryspec.WrapError(queryspec.ErrCodeInternal, err, "evicting cached results"))
			return
		}
	}
	if h.invalidate != nil {
		if err := h.invalidate.Invalidate(tag); err != nil {
			logger.Warn("broadcasting invalidation for %s: %v", tag, err)
		}
	}

	h.writeJSON(w, map[string]interface{}{"invalidated": tag, "elapsed_ms": time.Since(start).Milliseconds()})
}

// HandleHealth serves GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"})
}

// sendResult writes a successful in-body response. elapsed_ms reflects
// total handler time, cache hits included.
func (h *Handler) sendResult(w http.ResponseWriter, start time.Time, result *queryspec.QueryResult) {
	h.writeJSON(w, &queryspec.Response{
		Columns:   result.Columns,
		Rows:      result.Rows,
		Truncated: result.Truncated,
		ElapsedMs: time.Since(start).Milliseconds(),
	})
}

// sendError writes an engine error as an HTTP 200 body. The cause
// chain stays in the logs; clients only see code and message.
func (h *Handler) sendError(w http.ResponseWriter, start time.Time, err error) {
	code := queryspec.CodeOf(err)
	message := err.Error()
	var engineErr *queryspec.EngineError
	if errors.As(err, &engineErr) {
		message = engineErr.Message
	}

	logger.Debug("request failed with %s: %v", code, err)
	h.writeJSON(w, &queryspec.Response{
		ErrorCode: code,
		Message:   message,
		ElapsedMs: time.Since(start).Milliseconds(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("encoding response: %v", err)
	}
}

// outcomeCode labels a query execution for metrics.
func outcomeCode(err error) string {
	if err == nil {
		return "ok"
	}
	return queryspec.CodeOf(err)
}
