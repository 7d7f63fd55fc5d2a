package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"raggy/internal/contextutil"
	"raggy/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// writeJSON writes v with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(ctx context.Context, w http.ResponseWriter, statusCode int, message string, details ...string) {
	writeJSON(ctx, w, statusCode, ErrorResponse{Error: message, Details: details})
}

// handleServiceError maps service errors to HTTP status codes and responses.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		logger.WarnContext(ctx, "rejected request", "error", err)
		writeError(ctx, w, http.StatusBadRequest, validationErr.Message, validationErr.Details...)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		logger.WarnContext(ctx, "rejected request", "error", err)
		writeError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		logger.WarnContext(ctx, "rejected request", "error", err)
		writeError(ctx, w, http.StatusConflict, "An ingest operation is already running. Please wait for it to finish.")
	case errors.Is(err, service.ErrExternalService):
		logger.ErrorContext(ctx, "service error", "error", err)
		writeError(ctx, w, http.StatusBadGateway, err.Error())
	default:
		logger.ErrorContext(ctx, "service error", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, defaultMsg)
	}
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}
