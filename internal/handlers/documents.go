package handlers

import (
	"net/http"

	"raggy/internal/service"
)

// DocumentsHandler lists registered documents with their chunk counts.
type DocumentsHandler struct {
	svc service.RAGService
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(svc service.RAGService) *DocumentsHandler {
	return &DocumentsHandler{svc: svc}
}

// DocumentsResponse wraps the registry listing.
type DocumentsResponse struct {
	Documents []service.DocumentInfo `json:"documents"`
}

// ServeHTTP lists registered documents with their chunk counts.
func (h *DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := h.svc.ListDocuments(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}
	if docs == nil {
		docs = []service.DocumentInfo{}
	}
	writeJSON(ctx, w, http.StatusOK, DocumentsResponse{Documents: docs})
}
