package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks raggy/internal/rag Engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"raggy/internal/contextutil"
	"raggy/internal/flatindex"
	"raggy/internal/llm"
	"raggy/internal/metrics"
	"raggy/internal/storage"
	"raggy/internal/vecmath"
)

// ErrQueryEmbedding is returned when the backend produced no embedding for
// the query.
var ErrQueryEmbedding = errors.New("failed to embed query")

// Default pool sizing.
const (
	DefaultPoolBase = 8
	DefaultPoolMin  = 50
)

// Engine answers similarity queries over the store.
type Engine interface {
	// Search returns at most opts.K diversified results, best first.
	Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error)
}

// Config carries the identifiers and pool sizing of an engine.
type Config struct {
	Provider string
	Model    string
	PoolBase int
	PoolMin  int
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	store    *storage.FileStore
	embedder llm.Embedder
	cfg      Config
	cache    *queryCache
	metrics  *metrics.Metrics

	mu         sync.Mutex
	index      *flatindex.Index
	indexStamp time.Time
}

// Option configures the engine.
type Option func(*ragEngine)

// WithMetrics records search latency and cache lookups.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *ragEngine) { e.metrics = m }
}

// NewEngine creates a new search engine.
func NewEngine(store *storage.FileStore, embedder llm.Embedder, cfg Config, opts ...Option) Engine {
	if cfg.PoolBase < 1 {
		cfg.PoolBase = DefaultPoolBase
	}
	if cfg.PoolMin < 0 {
		cfg.PoolMin = 0
	}
	e := &ragEngine{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		cache:    newQueryCache(QueryCacheSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search embeds the query, gathers a candidate pool from the flat index
// when one is built or from the ledger otherwise, and applies the bucket
// diversity selection.
func (e *ragEngine) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	k := opts.K
	if k <= 0 {
		return []Result{}, nil
	}

	qEmb, err := e.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	qn := vecmath.L2Normalize(qEmb)

	if dim, ok, err := e.store.StoredDimension(); err == nil && ok && dim != len(qn) {
		logger.WarnContext(ctx, "embedding dimension mismatch, scores may be meaningless; re-ingest with a consistent model",
			"stored_dim", dim, "query_dim", len(qn))
	}

	start := time.Now()
	ix, err := e.loadIndex(ctx)
	if err != nil {
		logger.WarnContext(ctx, "flat index unusable, falling back to ledger scan", "error", err)
	}
	if ix != nil {
		results := SelectDiverse(e.indexCandidates(ix, qn, k, opts.MMRPool), k, opts.MinScore)
		e.metrics.ObserveSearch(metrics.PathIndex, time.Since(start))
		logger.DebugContext(ctx, "search completed", "path", metrics.PathIndex, "k", k, "results", len(results))
		return results, nil
	}

	cands, err := e.ledgerCandidates(ctx, qn, k, opts)
	if err != nil {
		return nil, err
	}
	results := SelectDiverse(cands, k, opts.MinScore)
	e.metrics.ObserveSearch(metrics.PathLedger, time.Since(start))
	logger.DebugContext(ctx, "search completed", "path", metrics.PathLedger, "k", k, "candidates", len(cands), "results", len(results))
	return results, nil
}

func (e *ragEngine) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := cacheKey(e.cfg.Provider, e.cfg.Model, query)
	if emb, ok := e.cache.get(key); ok {
		e.metrics.QueryCache(true)
		return emb, nil
	}
	e.metrics.QueryCache(false)

	embs := e.embedder.Embed(ctx, []string{query})
	if len(embs) == 0 || len(embs[0]) == 0 || !vecmath.IsFinite(embs[0]) {
		return nil, ErrQueryEmbedding
	}
	e.cache.put(key, embs[0])
	return embs[0], nil
}

// loadIndex returns the cached flat index, reloading it when its meta.json
// changed. A nil index with a nil error means none is built.
func (e *ragEngine) loadIndex(ctx context.Context) (*flatindex.Index, error) {
	fsys := e.store.Fs()
	dir := e.store.IndexDir()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !flatindex.Available(fsys, dir) {
		e.index = nil
		return nil, nil
	}
	stamp, err := storage.MetaModTime(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat index meta: %w", err)
	}
	if e.index != nil && stamp.Equal(e.indexStamp) {
		return e.index, nil
	}

	ix, err := flatindex.Load(fsys, dir)
	if err != nil {
		e.index = nil
		return nil, err
	}
	e.index = ix
	e.indexStamp = stamp
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "loaded flat index", "count", ix.Count(), "dim", ix.Dim())
	return ix, nil
}

func (e *ragEngine) indexCandidates(ix *flatindex.Index, qn []float32, k, mmrPool int) []Result {
	pool := max(k, DefaultPoolBase*k)
	if mmrPool > 0 {
		pool = max(k, k*ceilDiv(mmrPool, k))
	}

	hits := ix.Query(qn, pool)
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		r, ok := ix.Record(h.Row)
		if !ok {
			continue
		}
		out = append(out, Result{
			Score:      h.Score,
			Path:       r.Path,
			DocID:      r.DocID,
			ChunkIndex: r.ChunkIndex,
			Text:       r.Text,
			Heading:    r.Heading,
			Page:       r.Page,
		})
	}
	return out
}

func (e *ragEngine) ledgerCandidates(ctx context.Context, qn []float32, k int, opts SearchOptions) ([]Result, error) {
	base := e.cfg.PoolBase * k
	if opts.MMRPool > 0 {
		base = opts.MMRPool
	}
	top := vecmath.NewTopK[Result](max(e.cfg.PoolMin, base))

	err := e.store.ScanChunks(ctx, func(rec storage.ChunkRecord) error {
		score := vecmath.Cosine(qn, rec.Embedding)
		if score < opts.MinScore {
			return nil
		}
		top.Push(score, Result{
			Score:      score,
			Path:       rec.Path,
			DocID:      rec.DocID,
			ChunkIndex: rec.ChunkIndex,
			Text:       rec.Text,
			Heading:    rec.Heading,
			Page:       rec.Page,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}

	items := top.Items()
	out := make([]Result, len(items))
	for i, it := range items {
		out[i] = it.Item
	}
	return out, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
