package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"raggy/internal/service"
)

// SearchHandler handles GET /search.
type SearchHandler struct {
	svc service.RAGService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc service.RAGService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// ServeHTTP reads q, k, t (or minScore), mmr.lambda and mmr.pool from the
// query string. Unparseable numbers fall back to the defaults; a k below 1
// is rejected.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	query := q.Get("q")
	if query == "" {
		writeError(ctx, w, http.StatusBadRequest, "Missing q")
		return
	}

	req := service.SearchRequest{Query: query}
	if k, err := strconv.Atoi(q.Get("k")); err == nil {
		if k <= 0 {
			writeError(ctx, w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		req.K = k
	}
	if v, ok := floatParam(q, "t", "minScore"); ok {
		req.MinScore = &v
	}
	if v, ok := floatParam(q, "mmr.lambda"); ok {
		req.MMRLambda = &v
	}
	if pool, err := strconv.Atoi(q.Get("mmr.pool")); err == nil {
		req.MMRPool = pool
	}

	resp, err := h.svc.Search(ctx, req)
	if err != nil {
		handleServiceError(ctx, w, err, "Search failed")
		return
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// floatParam returns the first of keys present in q that parses as a float.
func floatParam(q url.Values, keys ...string) (float64, bool) {
	for _, k := range keys {
		if !q.Has(k) {
			continue
		}
		v, err := strconv.ParseFloat(q.Get(k), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
