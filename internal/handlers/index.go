package handlers

import (
	"net/http"

	"raggy/internal/contextutil"
	"raggy/internal/service"
)

// IndexBuildHandler handles POST /index/build.
type IndexBuildHandler struct {
	svc service.RAGService
}

// NewIndexBuildHandler creates a new IndexBuildHandler.
func NewIndexBuildHandler(svc service.RAGService) *IndexBuildHandler {
	return &IndexBuildHandler{svc: svc}
}

// ServeHTTP rebuilds the flat index from the ledger and returns its metadata.
func (h *IndexBuildHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "flat index build triggered via API")

	meta, err := h.svc.BuildIndex(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to build index")
		return
	}
	writeJSON(ctx, w, http.StatusOK, meta)
}
