package handlers

import (
	"net/http"

	"raggy/internal/service"
)

// ProbeHandler handles GET /ollama/test.
type ProbeHandler struct {
	svc service.RAGService
}

// NewProbeHandler creates a new ProbeHandler.
func NewProbeHandler(svc service.RAGService) *ProbeHandler {
	return &ProbeHandler{svc: svc}
}

// ServeHTTP probes the embedding backend. The response status mirrors the
// probed status; a probe that got no answer is a 500.
func (h *ProbeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.svc.ProbeEmbeddings(ctx)
	if err != nil {
		res.OK = false
		if res.Error == "" {
			res.Error = err.Error()
		}
		writeJSON(ctx, w, http.StatusInternalServerError, res)
		return
	}
	status := res.Status
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	writeJSON(ctx, w, status, res)
}
