package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_rag_service.go -package=mocks raggy/internal/service RAGService

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"raggy/internal/contextutil"
	"raggy/internal/flatindex"
	"raggy/internal/indexer"
	"raggy/internal/llm"
	"raggy/internal/rag"
	"raggy/internal/scanner"
	"raggy/internal/storage"
	"raggy/internal/vectorstore"
)

const (
	// DefaultK is the result count when a search does not name one.
	DefaultK = 5
	// MinPool is the smallest candidate pool a search asks for.
	MinPool = 10
)

// unsupportedSchemes are network share URIs that must be mounted first.
var unsupportedSchemes = []string{"smb://", "cifs://"}

// IngestRequest names the files, directories and globs to ingest.
type IngestRequest struct {
	Paths []string `json:"paths"`
}

// SearchRequest is one search. Zero values select the configured defaults.
type SearchRequest struct {
	Query     string
	K         int
	MinScore  *float64
	MMRLambda *float64
	MMRPool   int
}

// SearchResponse echoes the query with its ranked results.
type SearchResponse struct {
	Query   string       `json:"query"`
	Results []rag.Result `json:"results"`
}

// DocumentInfo is a registry entry with its ledger chunk count.
type DocumentInfo struct {
	storage.Document
	Chunks int `json:"chunks"`
}

// Stats describes the store and the embedding backend it was built with.
type Stats struct {
	indexer.StoreStats
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Prober checks the embedding backend.
type Prober interface {
	Probe(ctx context.Context) (llm.ProbeResult, error)
}

// RAGService is the operational surface shared by the HTTP API and the CLI.
type RAGService interface {
	InitStore(ctx context.Context) error
	// ResetStore clears the store. Returns ErrConflict while an ingest runs.
	ResetStore(ctx context.Context) error
	ListRegistry(ctx context.Context) ([]storage.Document, error)
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)
	Ingest(ctx context.Context, req IngestRequest) (indexer.Report, error)
	// Reingest resets the store and ingests every registered path again.
	Reingest(ctx context.Context) (indexer.Report, error)
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
	Progress(ctx context.Context) indexer.ProgressSnapshot
	ChunkCounts(ctx context.Context) (map[string]int, error)
	// StoredDimension returns nil until the first chunk is written.
	StoredDimension(ctx context.Context) (*int, error)
	Stats(ctx context.Context) (Stats, error)
	ProbeEmbeddings(ctx context.Context) (llm.ProbeResult, error)
	History(ctx context.Context, limit int) ([]storage.IngestRun, error)
	// Run returns one recorded ingest run. Returns ErrNotFound for unknown
	// ids and when no history database is configured.
	Run(ctx context.Context, id string) (*storage.IngestRun, error)
	BuildIndex(ctx context.Context) (flatindex.Meta, error)
}

// Config carries the search defaults and backend identifiers.
type Config struct {
	Provider    string
	Model       string
	MinScore    float64
	MMRLambda   float64
	MMRPoolBase int
	MMRPoolMin  int
}

// Components are the collaborators of the service. Runs, Mirror and Prober
// are optional.
type Components struct {
	Store            *storage.FileStore
	Scanner          *scanner.Scanner
	Pipeline         *indexer.Pipeline
	Engine           rag.Engine
	Runs             storage.RunStore
	Mirror           vectorstore.VectorStore
	MirrorCollection string
	Prober           Prober
}

// ragService implements RAGService.
type ragService struct {
	cfg Config
	Components
	now func() time.Time
}

// NewRAGService creates a new RAGService.
func NewRAGService(cfg Config, c Components) RAGService {
	return &ragService{cfg: cfg, Components: c, now: time.Now}
}

func conflict(err error) error {
	return fmt.Errorf("%w: %w", ErrConflict, err)
}

func external(err error) error {
	return fmt.Errorf("%w: %w", ErrExternalService, err)
}

func (s *ragService) progress() *indexer.Progress {
	return s.Pipeline.Progress()
}

func (s *ragService) InitStore(ctx context.Context) error {
	if err := s.Store.Init(); err != nil {
		return WrapError(err, "failed to initialize store")
	}
	return nil
}

func (s *ragService) ResetStore(ctx context.Context) error {
	if s.progress().Running() {
		return conflict(indexer.ErrIngestRunning)
	}
	if err := s.Store.Reset(); err != nil {
		return WrapError(err, "failed to reset store")
	}
	s.dropMirror(ctx)
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "store reset", "dir", s.Store.Dir())
	return nil
}

func (s *ragService) dropMirror(ctx context.Context) {
	if s.Mirror == nil {
		return
	}
	if err := s.Mirror.DropCollection(ctx, s.MirrorCollection); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to drop mirror collection",
			"collection", s.MirrorCollection, "error", err)
	}
}

func (s *ragService) ListRegistry(ctx context.Context) ([]storage.Document, error) {
	docs, err := s.Store.LoadRegistry()
	if err != nil {
		return nil, WrapError(err, "failed to load registry")
	}
	return docs, nil
}

func (s *ragService) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	docs, err := s.ListRegistry(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.ChunkCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentInfo, len(docs))
	for i, d := range docs {
		out[i] = DocumentInfo{Document: d, Chunks: counts[d.ID]}
	}
	return out, nil
}

func (s *ragService) Ingest(ctx context.Context, req IngestRequest) (indexer.Report, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if s.progress().Running() {
		return indexer.Report{}, conflict(indexer.ErrIngestRunning)
	}
	requested := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		requested = append(requested, p)
		for _, scheme := range unsupportedSchemes {
			if strings.HasPrefix(strings.ToLower(p), scheme) {
				return indexer.Report{}, &ValidationError{
					Field:   "paths",
					Message: "network share URIs are not supported, mount the share and pass the local path",
					Details: []string{p},
				}
			}
		}
	}

	paths, unmatched, err := s.Scanner.ExpandGlobs(ctx, requested)
	if err != nil {
		return indexer.Report{}, WrapError(err, "failed to expand globs")
	}
	if len(paths) == 0 {
		return indexer.Report{}, &ValidationError{
			Field:   "paths",
			Message: "no paths to ingest",
			Details: unmatched,
		}
	}
	existing, missing := s.splitExisting(paths)
	if len(existing) == 0 {
		return indexer.Report{}, &ValidationError{
			Field:   "paths",
			Message: "none of the paths exist",
			Details: append(unmatched, missing...),
		}
	}

	runID, err := s.progress().TryStart("Enumerating files…")
	if err != nil {
		return indexer.Report{}, conflict(err)
	}
	logger.InfoContext(ctx, "ingest started", "run_id", runID, "paths", len(paths), "unmatched_globs", len(unmatched))

	report, err := s.runRecorded(ctx, runID, storage.RunKindIngest, requested, func() (indexer.Report, error) {
		return s.Pipeline.Run(ctx, paths)
	})
	if err != nil {
		return indexer.Report{}, WrapError(err, "ingest failed")
	}
	if len(unmatched) > 0 {
		report.InvalidPaths = append(unmatched, report.InvalidPaths...)
	}
	return report, nil
}

func (s *ragService) splitExisting(paths []string) (existing, missing []string) {
	for _, p := range paths {
		if _, err := s.Scanner.Fs().Stat(p); err != nil {
			missing = append(missing, p)
			continue
		}
		existing = append(existing, p)
	}
	return existing, missing
}

func (s *ragService) Reingest(ctx context.Context) (indexer.Report, error) {
	docs, err := s.ListRegistry(ctx)
	if err != nil {
		return indexer.Report{}, err
	}
	if len(docs) == 0 {
		return indexer.Report{}, &ValidationError{Field: "registry", Message: "no documents to re-ingest"}
	}
	paths := make([]string, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.Path]; ok {
			continue
		}
		seen[d.Path] = struct{}{}
		paths = append(paths, d.Path)
	}

	runID, err := s.progress().TryStart("Re-ingesting registered documents…")
	if err != nil {
		return indexer.Report{}, conflict(err)
	}

	report, err := s.runRecorded(ctx, runID, storage.RunKindReingest, paths, func() (indexer.Report, error) {
		if err := s.Store.Reset(); err != nil {
			s.progress().Fail(err.Error())
			return indexer.Report{}, WrapError(err, "failed to reset store")
		}
		s.dropMirror(ctx)
		return s.Pipeline.Run(ctx, paths)
	})
	if err != nil {
		return indexer.Report{}, WrapError(err, "re-ingest failed")
	}
	return report, nil
}

// runRecorded executes fn and records it in the run history when one is
// configured. History failures are logged and never fail the ingest.
func (s *ragService) runRecorded(ctx context.Context, runID, kind string, paths []string, fn func() (indexer.Report, error)) (indexer.Report, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var run *storage.IngestRun
	if s.Runs != nil {
		run = &storage.IngestRun{
			ID:             runID,
			Kind:           kind,
			StartedAt:      s.now().UTC(),
			RequestedPaths: paths,
		}
		if err := s.Runs.Start(ctx, run); err != nil {
			logger.WarnContext(ctx, "failed to record ingest run", "run_id", runID, "error", err)
			run = nil
		}
	}

	report, runErr := fn()

	if run != nil {
		run.Message = s.progress().Snapshot().Message
		if runErr != nil {
			run.Status = storage.RunStatusError
		} else {
			run.Status = storage.RunStatusDone
			run.Added = report.Added
			run.Chunks = report.Chunks
			if data, err := json.Marshal(report); err == nil {
				run.Report = data
			}
		}
		if err := s.Runs.Finish(ctx, run); err != nil {
			logger.WarnContext(ctx, "failed to finish ingest run", "run_id", runID, "error", err)
		}
	}
	return report, runErr
}

func (s *ragService) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return SearchResponse{}, &ValidationError{Field: "q", Message: "cannot be empty"}
	}
	if req.K < 0 {
		return SearchResponse{}, &ValidationError{Field: "k", Message: "must be a positive integer"}
	}
	opts := s.searchOptions(req)

	results, err := s.Engine.Search(ctx, req.Query, opts)
	if err != nil {
		if errors.Is(err, rag.ErrQueryEmbedding) {
			return SearchResponse{}, external(err)
		}
		return SearchResponse{}, WrapError(err, "search failed")
	}
	return SearchResponse{Query: req.Query, Results: results}, nil
}

func (s *ragService) searchOptions(req SearchRequest) rag.SearchOptions {
	k := req.K
	if k == 0 {
		k = DefaultK
	}
	minScore := s.cfg.MinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	if math.IsNaN(minScore) || math.IsInf(minScore, 0) {
		minScore = 0
	}
	lambda := s.cfg.MMRLambda
	if req.MMRLambda != nil && !math.IsNaN(*req.MMRLambda) {
		lambda = *req.MMRLambda
	}
	lambda = math.Min(1, math.Max(0, lambda))

	pool := req.MMRPool
	if pool <= 0 {
		pool = max(s.cfg.MMRPoolMin, s.cfg.MMRPoolBase*k)
	}
	return rag.SearchOptions{
		K:         k,
		MinScore:  minScore,
		MMRLambda: lambda,
		MMRPool:   max(MinPool, pool),
	}
}

func (s *ragService) Progress(ctx context.Context) indexer.ProgressSnapshot {
	return s.progress().Snapshot()
}

func (s *ragService) ChunkCounts(ctx context.Context) (map[string]int, error) {
	counts, err := s.Store.ChunkCounts(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to count chunks")
	}
	return counts, nil
}

func (s *ragService) StoredDimension(ctx context.Context) (*int, error) {
	dim, ok, err := s.Store.StoredDimension()
	if err != nil {
		return nil, WrapError(err, "failed to read store metadata")
	}
	if !ok {
		return nil, nil
	}
	return &dim, nil
}

func (s *ragService) Stats(ctx context.Context) (Stats, error) {
	st, err := indexer.ComputeStats(ctx, s.Store)
	if err != nil {
		return Stats{}, WrapError(err, "failed to compute stats")
	}
	return Stats{StoreStats: st, Provider: s.cfg.Provider, Model: s.cfg.Model}, nil
}

func (s *ragService) ProbeEmbeddings(ctx context.Context) (llm.ProbeResult, error) {
	if s.Prober == nil {
		return llm.ProbeResult{}, external(errors.New("no embedding backend configured"))
	}
	res, err := s.Prober.Probe(ctx)
	if err != nil {
		return res, external(err)
	}
	return res, nil
}

func (s *ragService) History(ctx context.Context, limit int) ([]storage.IngestRun, error) {
	if s.Runs == nil {
		return []storage.IngestRun{}, nil
	}
	runs, err := s.Runs.List(ctx, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list ingest runs")
	}
	return runs, nil
}

func (s *ragService) Run(ctx context.Context, id string) (*storage.IngestRun, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "cannot be empty"}
	}
	if s.Runs == nil {
		return nil, fmt.Errorf("%w: ingest run %s", ErrNotFound, id)
	}
	run, err := s.Runs.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: ingest run %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, WrapError(err, "failed to get ingest run")
	}
	return run, nil
}

func (s *ragService) BuildIndex(ctx context.Context) (flatindex.Meta, error) {
	if s.progress().Running() {
		return flatindex.Meta{}, conflict(indexer.ErrIngestRunning)
	}
	meta, err := flatindex.Build(ctx, s.Store)
	if errors.Is(err, flatindex.ErrEmptyLedger) {
		return flatindex.Meta{}, &ValidationError{Field: "ledger", Message: "no embedded chunks to index"}
	}
	if err != nil {
		return flatindex.Meta{}, WrapError(err, "failed to build flat index")
	}
	return meta, nil
}
