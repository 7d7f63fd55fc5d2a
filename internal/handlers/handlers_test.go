package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"raggy/internal/flatindex"
	"raggy/internal/indexer"
	"raggy/internal/llm"
	"raggy/internal/rag"
	"raggy/internal/service"
	"raggy/internal/service/mocks"
	"raggy/internal/storage"
	vectorstore_mocks "raggy/internal/vectorstore/mocks"
)

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation error", &service.ValidationError{Field: "q", Message: "cannot be empty"}, http.StatusBadRequest},
		{"invalid input", fmt.Errorf("bad: %w", service.ErrInvalidInput), http.StatusBadRequest},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"conflict", fmt.Errorf("%w: %w", service.ErrConflict, indexer.ErrIngestRunning), http.StatusConflict},
		{"external", fmt.Errorf("%w: %w", service.ErrExternalService, rag.ErrQueryEmbedding), http.StatusBadGateway},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			handleServiceError(req.Context(), w, tt.err, "failed")

			if w.Code != tt.wantStatus {
				t.Errorf("handleServiceError() status = %v, want %v", w.Code, tt.wantStatus)
			}
			resp := decode[ErrorResponse](t, w)
			if resp.Error == "" {
				t.Error("handleServiceError() should set error message")
			}
		})
	}
}

func TestIngestHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name        string
		body        string
		mockSetup   func(*mocks.MockRAGService)
		wantStatus  int
		wantDetails []string
	}{
		{
			name: "successful ingest",
			body: `{"paths":["/docs"]}`,
			mockSetup: func(m *mocks.MockRAGService) {
				m.EXPECT().
					Ingest(gomock.Any(), service.IngestRequest{Paths: []string{"/docs"}}).
					Return(indexer.Report{Added: 2, Chunks: 7}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing body",
			body:       "",
			mockSetup:  func(m *mocks.MockRAGService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid JSON body",
			body:       "invalid json",
			mockSetup:  func(m *mocks.MockRAGService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no existing paths",
			body: `{"paths":["/missing"]}`,
			mockSetup: func(m *mocks.MockRAGService) {
				m.EXPECT().Ingest(gomock.Any(), gomock.Any()).Return(indexer.Report{}, &service.ValidationError{
					Field: "paths", Message: "none of the paths exist", Details: []string{"/missing"},
				})
			},
			wantStatus:  http.StatusBadRequest,
			wantDetails: []string{"/missing"},
		},
		{
			name: "already running",
			body: `{"paths":["/docs"]}`,
			mockSetup: func(m *mocks.MockRAGService) {
				m.EXPECT().Ingest(gomock.Any(), gomock.Any()).Return(indexer.Report{}, fmt.Errorf("%w: busy", service.ErrConflict))
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockRAGService(ctrl)
			tt.mockSetup(svc)
			handler := NewIngestHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				report := decode[indexer.Report](t, w)
				if report.Added != 2 || report.Chunks != 7 {
					t.Errorf("ServeHTTP() report = %+v", report)
				}
			}
			if tt.wantDetails != nil {
				resp := decode[ErrorResponse](t, w)
				if len(resp.Details) != 1 || resp.Details[0] != tt.wantDetails[0] {
					t.Errorf("ServeHTTP() details = %v, want %v", resp.Details, tt.wantDetails)
				}
			}
		})
	}
}

func TestSearchHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name       string
		target     string
		wantReq    *service.SearchRequest
		wantStatus int
	}{
		{
			name:       "missing q",
			target:     "/search",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "query only",
			target:     "/search?q=hello",
			wantReq:    &service.SearchRequest{Query: "hello"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "all parameters",
			target:     "/search?q=hello&k=3&t=0.2&mmr.lambda=0.7&mmr.pool=40",
			wantReq:    &service.SearchRequest{Query: "hello", K: 3, MinScore: f(0.2), MMRLambda: f(0.7), MMRPool: 40},
			wantStatus: http.StatusOK,
		},
		{
			name:       "minScore alias",
			target:     "/search?q=hello&minScore=0.9",
			wantReq:    &service.SearchRequest{Query: "hello", MinScore: f(0.9)},
			wantStatus: http.StatusOK,
		},
		{
			name:       "zero k",
			target:     "/search?q=hello&k=0",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative k",
			target:     "/search?q=hello&k=-3",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unparseable numbers fall back",
			target:     "/search?q=hello&k=many&t=abc",
			wantReq:    &service.SearchRequest{Query: "hello"},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockRAGService(ctrl)
			if tt.wantReq != nil {
				svc.EXPECT().Search(gomock.Any(), *tt.wantReq).Return(service.SearchResponse{
					Query:   tt.wantReq.Query,
					Results: []rag.Result{{Path: "/a.txt", Score: 0.8}},
				}, nil)
			}
			handler := NewSearchHandler(svc)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				resp := decode[service.SearchResponse](t, w)
				if resp.Query != "hello" || len(resp.Results) != 1 {
					t.Errorf("ServeHTTP() response = %+v", resp)
				}
			}
		})
	}
}

func TestDocumentsHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockRAGService(ctrl)
	svc.EXPECT().ListDocuments(gomock.Any()).Return(nil, nil)

	w := httptest.NewRecorder()
	NewDocumentsHandler(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got != "{\"documents\":[]}\n" {
		t.Errorf("ServeHTTP() body = %q", got)
	}
}

func TestHistoryHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		target     string
		wantLimit  int
		wantStatus int
	}{
		{"default limit", "/ingest/history", DefaultHistoryLimit, http.StatusOK},
		{"explicit limit", "/ingest/history?limit=3", 3, http.StatusOK},
		{"bad limit", "/ingest/history?limit=0", 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockRAGService(ctrl)
			if tt.wantLimit > 0 {
				svc.EXPECT().History(gomock.Any(), tt.wantLimit).Return([]storage.IngestRun{{ID: "r1"}}, nil)
			}
			w := httptest.NewRecorder()
			NewHistoryHandler(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRunHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		id         string
		run        *storage.IngestRun
		err        error
		wantStatus int
	}{
		{"found", "r1", &storage.IngestRun{ID: "r1", Kind: storage.RunKindIngest}, nil, http.StatusOK},
		{"unknown id", "nope", nil, fmt.Errorf("%w: ingest run nope", service.ErrNotFound), http.StatusNotFound},
		{"store failure", "r2", nil, errors.New("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockRAGService(ctrl)
			svc.EXPECT().Run(gomock.Any(), tt.id).Return(tt.run, tt.err)

			r := chi.NewRouter()
			r.Method(http.MethodGet, "/ingest/history/{id}", NewRunHandler(svc))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ingest/history/"+tt.id, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				got := decode[storage.IngestRun](t, w)
				if got.ID != tt.id {
					t.Errorf("ServeHTTP() run id = %q, want %q", got.ID, tt.id)
				}
			}
			if tt.wantStatus == http.StatusNotFound {
				resp := decode[ErrorResponse](t, w)
				if resp.Error != tt.err.Error() {
					t.Errorf("ServeHTTP() error = %q, want %q", resp.Error, tt.err.Error())
				}
			}
		})
	}
}

func TestResetAndReingestHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockRAGService(ctrl)
	svc.EXPECT().ResetStore(gomock.Any()).Return(nil)
	svc.EXPECT().Reingest(gomock.Any()).Return(indexer.Report{}, &service.ValidationError{Field: "registry", Message: "no documents to re-ingest"})

	w := httptest.NewRecorder()
	NewResetHandler(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest/reset", nil))
	if w.Code != http.StatusOK || !decode[OKResponse](t, w).OK {
		t.Errorf("reset status = %v body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	NewReingestHandler(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest/reingest", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("reingest status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestProgressStatsAndIndexHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockRAGService(ctrl)
	svc.EXPECT().Progress(gomock.Any()).Return(indexer.ProgressSnapshot{Status: indexer.StatusRunning, TotalFiles: 4})
	svc.EXPECT().Stats(gomock.Any()).Return(service.Stats{StoreStats: indexer.StoreStats{Documents: 2, Chunks: 9}, Provider: "ollama"}, nil)
	svc.EXPECT().BuildIndex(gomock.Any()).Return(flatindex.Meta{Count: 9, Dim: 768}, nil)

	w := httptest.NewRecorder()
	NewProgressHandler(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ingest/progress", nil))
	if snap := decode[indexer.ProgressSnapshot](t, w); snap.Status != indexer.StatusRunning || snap.TotalFiles != 4 {
		t.Errorf("progress = %+v", snap)
	}

	w = httptest.NewRecorder()
	NewStatsHandler(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ingest/stats", nil))
	var stats map[string]any
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats["documents"] != float64(2) || stats["chunks"] != float64(9) || stats["provider"] != "ollama" {
		t.Errorf("stats = %v", stats)
	}

	w = httptest.NewRecorder()
	NewIndexBuildHandler(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/index/build", nil))
	if meta := decode[flatindex.Meta](t, w); meta.Count != 9 || meta.Dim != 768 {
		t.Errorf("index meta = %+v", meta)
	}
}

func TestProbeHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		res        llm.ProbeResult
		err        error
		wantStatus int
	}{
		{"reachable", llm.ProbeResult{OK: true, Status: 200}, nil, http.StatusOK},
		{"backend error status", llm.ProbeResult{OK: false, Status: 404}, nil, http.StatusNotFound},
		{"unreachable", llm.ProbeResult{}, fmt.Errorf("%w: dial", service.ErrExternalService), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockRAGService(ctrl)
			svc.EXPECT().ProbeEmbeddings(gomock.Any()).Return(tt.res, tt.err)

			w := httptest.NewRecorder()
			NewProbeHandler(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ollama/test", nil))
			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.err != nil && decode[llm.ProbeResult](t, w).Error == "" {
				t.Error("ServeHTTP() should report the probe error")
			}
		})
	}
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("without mirror", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHealthHandler(nil, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, http.StatusOK)
		}
		resp := decode[HealthResponse](t, w)
		if resp.Status != "ok" || resp.Checks["store"] != "ok" {
			t.Errorf("ServeHTTP() = %+v", resp)
		}
		if _, ok := resp.Checks["mirror"]; ok {
			t.Error("mirror check should be absent when not configured")
		}
	})

	t.Run("mirror unavailable", func(t *testing.T) {
		mirror := vectorstore_mocks.NewMockVectorStore(ctrl)
		mirror.EXPECT().CollectionExists(gomock.Any(), "raggy").Return(false, errors.New("connection refused"))

		w := httptest.NewRecorder()
		NewHealthHandler(mirror, "raggy").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, http.StatusServiceUnavailable)
		}
		resp := decode[HealthResponse](t, w)
		if resp.Status != "degraded" || resp.Checks["mirror"] != "error" || len(resp.Issues) != 1 {
			t.Errorf("ServeHTTP() = %+v", resp)
		}
	})

	t.Run("mirror collection not created yet", func(t *testing.T) {
		mirror := vectorstore_mocks.NewMockVectorStore(ctrl)
		mirror.EXPECT().CollectionExists(gomock.Any(), "raggy").Return(false, nil)

		w := httptest.NewRecorder()
		NewHealthHandler(mirror, "raggy").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusOK)
		}
	})
}
