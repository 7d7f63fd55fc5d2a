package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/mock/gomock"

	"raggy/internal/indexer"
	"raggy/internal/llm"
	"raggy/internal/rag"
	rag_mocks "raggy/internal/rag/mocks"
	"raggy/internal/scanner"
	"raggy/internal/service"
	"raggy/internal/storage"
	storage_mocks "raggy/internal/storage/mocks"
	vectorstore_mocks "raggy/internal/vectorstore/mocks"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testContext() context.Context {
	return context.Background()
}

// lengthEmbedder derives a 3-dimensional vector from the text length.
type lengthEmbedder struct{}

func (lengthEmbedder) Embed(_ context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{1, float32(len(t) % 7), 0.5}
	}
	return out
}

type fakeProber struct {
	res llm.ProbeResult
	err error
}

func (f fakeProber) Probe(context.Context) (llm.ProbeResult, error) {
	return f.res, f.err
}

var testConfig = service.Config{
	Provider:    "ollama",
	Model:       "test-model",
	MinScore:    0.5,
	MMRLambda:   0.5,
	MMRPoolBase: 8,
	MMRPoolMin:  50,
}

type env struct {
	fs       afero.Fs
	store    *storage.FileStore
	progress *indexer.Progress
	c        service.Components
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fsys := afero.NewMemMapFs()
	store := storage.NewFileStore(fsys, "/data/embeddings", "test-model")
	sc := scanner.New(fsys)
	progress := indexer.NewProgress()
	pipeline := indexer.NewPipeline(store, sc, lengthEmbedder{}, progress)

	files := map[string]string{
		"/docs/a.txt":     "Alpha is the first letter. It opens the alphabet.",
		"/docs/b.md":      "# Beta\n\nBeta follows alpha in the Greek alphabet.",
		"/docs/image.png": "\x89PNG",
	}
	for p, content := range files {
		if err := afero.WriteFile(fsys, p, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}
	return &env{
		fs:       fsys,
		store:    store,
		progress: progress,
		c: service.Components{
			Store:    store,
			Scanner:  sc,
			Pipeline: pipeline,
			Engine:   rag.NewEngine(store, lengthEmbedder{}, rag.Config{Provider: "ollama", Model: "test-model"}),
		},
	}
}

func TestRAGService_Ingest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	runs := storage_mocks.NewMockRunStore(ctrl)
	e.c.Runs = runs

	var runID string
	runs.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, run *storage.IngestRun) error {
		if run.Kind != storage.RunKindIngest {
			t.Errorf("Start() kind = %v, want %v", run.Kind, storage.RunKindIngest)
		}
		runID = run.ID
		return nil
	})
	runs.EXPECT().Finish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, run *storage.IngestRun) error {
		if run.ID != runID {
			t.Errorf("Finish() id = %v, want %v", run.ID, runID)
		}
		if run.Status != storage.RunStatusDone {
			t.Errorf("Finish() status = %v, want %v", run.Status, storage.RunStatusDone)
		}
		if run.Added != 2 {
			t.Errorf("Finish() added = %v, want 2", run.Added)
		}
		if len(run.Report) == 0 {
			t.Error("Finish() report should be recorded")
		}
		return nil
	})

	svc := service.NewRAGService(testConfig, e.c)
	report, err := svc.Ingest(testContext(), service.IngestRequest{Paths: []string{"/docs/*.txt", "/docs/b.md", "/nothing/*.txt", "  "}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.Added != 2 {
		t.Errorf("Ingest() added = %v, want 2", report.Added)
	}
	if len(report.InvalidPaths) != 1 || report.InvalidPaths[0] != "/nothing/*.txt" {
		t.Errorf("Ingest() invalidPaths = %v, want [/nothing/*.txt]", report.InvalidPaths)
	}
	if got := svc.Progress(testContext()).Status; got != indexer.StatusDone {
		t.Errorf("Progress() status = %v, want %v", got, indexer.StatusDone)
	}

	docs, err := svc.ListDocuments(testContext())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("ListDocuments() len = %v, want 2", len(docs))
	}
	for _, d := range docs {
		if d.Chunks < 1 {
			t.Errorf("document %s has %d chunks, want at least 1", d.Path, d.Chunks)
		}
	}
}

func TestRAGService_Ingest_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		paths       []string
		prepare     func(e *env)
		wantErr     error
		wantDetails []string
	}{
		{
			name:    "empty list",
			paths:   nil,
			wantErr: service.ErrInvalidInput,
		},
		{
			name:        "network share",
			paths:       []string{"/docs", "SMB://server/share"},
			wantErr:     service.ErrInvalidInput,
			wantDetails: []string{"SMB://server/share"},
		},
		{
			name:        "nothing exists",
			paths:       []string{"/missing.txt", "/nope/*.md"},
			wantErr:     service.ErrInvalidInput,
			wantDetails: []string{"/nope/*.md", "/missing.txt"},
		},
		{
			name:    "already running",
			paths:   []string{"/docs"},
			prepare: func(e *env) { _, _ = e.progress.TryStart("busy") },
			wantErr: service.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			if tt.prepare != nil {
				tt.prepare(e)
			}
			svc := service.NewRAGService(testConfig, e.c)

			_, err := svc.Ingest(testContext(), service.IngestRequest{Paths: tt.paths})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Ingest() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantDetails != nil {
				var ve *service.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("Ingest() error = %T, want *ValidationError", err)
				}
				if len(ve.Details) != len(tt.wantDetails) {
					t.Fatalf("Details = %v, want %v", ve.Details, tt.wantDetails)
				}
				for i := range ve.Details {
					if ve.Details[i] != tt.wantDetails[i] {
						t.Errorf("Details[%d] = %v, want %v", i, ve.Details[i], tt.wantDetails[i])
					}
				}
			}

			docs, _ := e.store.LoadRegistry()
			if len(docs) != 0 {
				t.Errorf("rejected ingest wrote %d registry entries", len(docs))
			}
		})
	}
}

func TestRAGService_Reingest(t *testing.T) {
	e := newEnv(t)
	svc := service.NewRAGService(testConfig, e.c)

	if _, err := svc.Reingest(testContext()); !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("Reingest() on empty registry error = %v, want ErrInvalidInput", err)
	}

	if _, err := svc.Ingest(testContext(), service.IngestRequest{Paths: []string{"/docs"}}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	before, _ := e.store.CountChunks(testContext())

	report, err := svc.Reingest(testContext())
	if err != nil {
		t.Fatalf("Reingest() error = %v", err)
	}
	if report.Added != 2 {
		t.Errorf("Reingest() added = %v, want 2", report.Added)
	}
	after, _ := e.store.CountChunks(testContext())
	if after != before {
		t.Errorf("ledger has %d chunks after reingest, want %d", after, before)
	}
}

func TestRAGService_ResetStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	mirror := vectorstore_mocks.NewMockVectorStore(ctrl)
	e.c.Mirror = mirror
	e.c.MirrorCollection = "raggy"
	svc := service.NewRAGService(testConfig, e.c)

	if _, err := svc.Ingest(testContext(), service.IngestRequest{Paths: []string{"/docs/a.txt"}}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	mirror.EXPECT().DropCollection(gomock.Any(), "raggy").Return(errors.New("unavailable"))
	if err := svc.ResetStore(testContext()); err != nil {
		t.Fatalf("ResetStore() error = %v", err)
	}
	docs, _ := svc.ListRegistry(testContext())
	if len(docs) != 0 {
		t.Errorf("registry has %d entries after reset, want 0", len(docs))
	}
	dim, err := svc.StoredDimension(testContext())
	if err != nil || dim != nil {
		t.Errorf("StoredDimension() = %v, %v, want nil, nil", dim, err)
	}

	_, _ = e.progress.TryStart("busy")
	if err := svc.ResetStore(testContext()); !errors.Is(err, service.ErrConflict) {
		t.Errorf("ResetStore() while running error = %v, want ErrConflict", err)
	}
}

func TestRAGService_Search_Defaults(t *testing.T) {
	ptr := func(f float64) *float64 { return &f }

	tests := []struct {
		name string
		req  service.SearchRequest
		want rag.SearchOptions
	}{
		{
			name: "all defaults",
			req:  service.SearchRequest{Query: "q"},
			want: rag.SearchOptions{K: 5, MinScore: 0.5, MMRLambda: 0.5, MMRPool: 50},
		},
		{
			name: "pool from base times k",
			req:  service.SearchRequest{Query: "q", K: 10},
			want: rag.SearchOptions{K: 10, MinScore: 0.5, MMRLambda: 0.5, MMRPool: 80},
		},
		{
			name: "non-finite min score and clamped lambda",
			req:  service.SearchRequest{Query: "q", K: 3, MinScore: ptr(math.NaN()), MMRLambda: ptr(2)},
			want: rag.SearchOptions{K: 3, MinScore: 0, MMRLambda: 1, MMRPool: 50},
		},
		{
			name: "explicit pool floored",
			req:  service.SearchRequest{Query: "q", K: 1, MinScore: ptr(0.1), MMRLambda: ptr(-1), MMRPool: 3},
			want: rag.SearchOptions{K: 1, MinScore: 0.1, MMRLambda: 0, MMRPool: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			e := newEnv(t)
			engine := rag_mocks.NewMockEngine(ctrl)
			engine.EXPECT().Search(gomock.Any(), "q", tt.want).Return([]rag.Result{{Path: "/a", Score: 0.9}}, nil)
			e.c.Engine = engine
			svc := service.NewRAGService(testConfig, e.c)

			resp, err := svc.Search(testContext(), tt.req)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if resp.Query != "q" || len(resp.Results) != 1 {
				t.Errorf("Search() = %+v", resp)
			}
		})
	}
}

func TestRAGService_Search_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	engine := rag_mocks.NewMockEngine(ctrl)
	e.c.Engine = engine
	svc := service.NewRAGService(testConfig, e.c)

	if _, err := svc.Search(testContext(), service.SearchRequest{Query: "   "}); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("Search() blank query error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Search(testContext(), service.SearchRequest{Query: "q", K: -1}); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("Search() negative k error = %v, want ErrInvalidInput", err)
	}

	engine.EXPECT().Search(gomock.Any(), "q", gomock.Any()).Return(nil, rag.ErrQueryEmbedding)
	if _, err := svc.Search(testContext(), service.SearchRequest{Query: "q"}); !errors.Is(err, service.ErrExternalService) {
		t.Errorf("Search() embedding failure error = %v, want ErrExternalService", err)
	}
}

func TestRAGService_SearchAfterIngest(t *testing.T) {
	e := newEnv(t)
	svc := service.NewRAGService(testConfig, e.c)
	if _, err := svc.Ingest(testContext(), service.IngestRequest{Paths: []string{"/docs"}}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	zero := 0.0
	resp, err := svc.Search(testContext(), service.SearchRequest{Query: "alphabet", K: 2, MinScore: &zero})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) == 0 || len(resp.Results) > 2 {
		t.Errorf("Search() returned %d results, want 1..2", len(resp.Results))
	}
}

func TestRAGService_StatsAndIndex(t *testing.T) {
	e := newEnv(t)
	svc := service.NewRAGService(testConfig, e.c)

	if _, err := svc.BuildIndex(testContext()); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("BuildIndex() on empty ledger error = %v, want ErrInvalidInput", err)
	}

	if _, err := svc.Ingest(testContext(), service.IngestRequest{Paths: []string{"/docs"}}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	stats, err := svc.Stats(testContext())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Documents != 2 || stats.Provider != "ollama" || stats.Model != "test-model" {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.EmbeddingDim == nil || *stats.EmbeddingDim != 3 {
		t.Errorf("Stats() embeddingDim = %v, want 3", stats.EmbeddingDim)
	}

	meta, err := svc.BuildIndex(testContext())
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	if meta.Count != stats.Chunks || meta.Dim != 3 {
		t.Errorf("BuildIndex() = %+v, want count %d dim 3", meta, stats.Chunks)
	}
}

func TestRAGService_History(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	svc := service.NewRAGService(testConfig, e.c)
	runs, err := svc.History(testContext(), 20)
	if err != nil || len(runs) != 0 {
		t.Errorf("History() without a run store = %v, %v, want empty", runs, err)
	}

	store := storage_mocks.NewMockRunStore(ctrl)
	store.EXPECT().List(gomock.Any(), 5).Return([]storage.IngestRun{{ID: "r1"}}, nil)
	e.c.Runs = store
	svc = service.NewRAGService(testConfig, e.c)
	runs, err = svc.History(testContext(), 5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "r1" {
		t.Errorf("History() = %v", runs)
	}
}

func TestRAGService_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	svc := service.NewRAGService(testConfig, e.c)
	if _, err := svc.Run(testContext(), "r1"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Run() without a run store error = %v, want ErrNotFound", err)
	}

	store := storage_mocks.NewMockRunStore(ctrl)
	e.c.Runs = store
	svc = service.NewRAGService(testConfig, e.c)

	tests := []struct {
		name    string
		id      string
		setup   func()
		wantID  string
		wantErr error
	}{
		{
			name:   "found",
			id:     " r1 ",
			setup:  func() { store.EXPECT().Get(gomock.Any(), "r1").Return(&storage.IngestRun{ID: "r1"}, nil) },
			wantID: "r1",
		},
		{
			name:    "unknown id",
			id:      "missing",
			setup:   func() { store.EXPECT().Get(gomock.Any(), "missing").Return(nil, storage.ErrNotFound) },
			wantErr: service.ErrNotFound,
		},
		{
			name:    "blank id",
			id:      "  ",
			setup:   func() {},
			wantErr: service.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			run, err := svc.Run(testContext(), tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if run.ID != tt.wantID {
				t.Errorf("Run() id = %q, want %q", run.ID, tt.wantID)
			}
		})
	}
}

func TestRAGService_ProbeEmbeddings(t *testing.T) {
	e := newEnv(t)

	svc := service.NewRAGService(testConfig, e.c)
	if _, err := svc.ProbeEmbeddings(testContext()); !errors.Is(err, service.ErrExternalService) {
		t.Errorf("ProbeEmbeddings() without prober error = %v, want ErrExternalService", err)
	}

	e.c.Prober = fakeProber{res: llm.ProbeResult{OK: true, Status: 200}}
	svc = service.NewRAGService(testConfig, e.c)
	res, err := svc.ProbeEmbeddings(testContext())
	if err != nil || !res.OK {
		t.Errorf("ProbeEmbeddings() = %+v, %v", res, err)
	}

	e.c.Prober = fakeProber{err: errors.New("dial failed")}
	svc = service.NewRAGService(testConfig, e.c)
	if _, err := svc.ProbeEmbeddings(testContext()); !errors.Is(err, service.ErrExternalService) {
		t.Errorf("ProbeEmbeddings() failure error = %v, want ErrExternalService", err)
	}
}
