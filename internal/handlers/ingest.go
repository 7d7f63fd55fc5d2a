package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"raggy/internal/contextutil"
	"raggy/internal/service"
	"raggy/internal/storage"
)

// DefaultHistoryLimit is the number of runs /ingest/history returns by default.
const DefaultHistoryLimit = 20

// IngestHandler handles POST /ingest.
type IngestHandler struct {
	svc service.RAGService
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(svc service.RAGService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// IngestRequest represents the HTTP request payload for ingest.
type IngestRequest struct {
	Paths []string `json:"paths"`
}

// ServeHTTP runs the ingest synchronously and returns its report.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IngestRequest
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Provide body { paths: string[] }")
		return
	}
	if len(req.Paths) == 0 {
		writeError(ctx, w, http.StatusBadRequest, "Provide body { paths: string[] }")
		return
	}

	report, err := h.svc.Ingest(ctx, service.IngestRequest{Paths: req.Paths})
	if err != nil {
		handleServiceError(ctx, w, err, "Ingest failed")
		return
	}
	writeJSON(ctx, w, http.StatusOK, report)
}

// ProgressHandler handles GET /ingest/progress.
type ProgressHandler struct {
	svc service.RAGService
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(svc service.RAGService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// ServeHTTP returns the current progress snapshot.
func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(ctx, w, http.StatusOK, h.svc.Progress(ctx))
}

// StatsHandler handles GET /ingest/stats.
type StatsHandler struct {
	svc service.RAGService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc service.RAGService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// ServeHTTP returns store statistics.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to compute stats")
		return
	}
	writeJSON(ctx, w, http.StatusOK, stats)
}

// HistoryHandler handles GET /ingest/history.
type HistoryHandler struct {
	svc service.RAGService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(svc service.RAGService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// HistoryResponse wraps recent ingest runs.
type HistoryResponse struct {
	Runs []storage.IngestRun `json:"runs"`
}

// ServeHTTP lists recent runs, limited by ?limit.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(ctx, w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := h.svc.History(ctx, limit)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list ingest history")
		return
	}
	writeJSON(ctx, w, http.StatusOK, HistoryResponse{Runs: runs})
}

// ResetHandler handles POST /ingest/reset.
type ResetHandler struct {
	svc service.RAGService
}

// NewResetHandler creates a new ResetHandler.
func NewResetHandler(svc service.RAGService) *ResetHandler {
	return &ResetHandler{svc: svc}
}

// OKResponse acknowledges an operation without a payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ServeHTTP clears the store.
func (h *ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.svc.ResetStore(ctx); err != nil {
		handleServiceError(ctx, w, err, "Failed to reset store")
		return
	}
	writeJSON(ctx, w, http.StatusOK, OKResponse{OK: true})
}

// ReingestHandler handles POST /ingest/reingest.
type ReingestHandler struct {
	svc service.RAGService
}

// NewReingestHandler creates a new ReingestHandler.
func NewReingestHandler(svc service.RAGService) *ReingestHandler {
	return &ReingestHandler{svc: svc}
}

// ServeHTTP re-ingests every registered path and returns the report.
func (h *ReingestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.svc.Reingest(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Re-ingest failed")
		return
	}
	writeJSON(ctx, w, http.StatusOK, report)
}

// RunHandler handles GET /ingest/history/{id}.
type RunHandler struct {
	svc service.RAGService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(svc service.RAGService) *RunHandler {
	return &RunHandler{svc: svc}
}

// ServeHTTP returns one run, or 404 for an unknown id.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	run, err := h.svc.Run(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get ingest run")
		return
	}
	writeJSON(ctx, w, http.StatusOK, run)
}
