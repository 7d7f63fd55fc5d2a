package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"

	"raggy/internal/chunker"
	"raggy/internal/config"
	"raggy/internal/indexer"
	"raggy/internal/llm"
	"raggy/internal/metrics"
	"raggy/internal/rag"
	"raggy/internal/scanner"
	"raggy/internal/service"
	"raggy/internal/storage"
	"raggy/internal/vectorstore"
)

// App holds the wired components a command runs against.
type App struct {
	Config  *config.Config
	Fs      afero.Fs
	Service service.RAGService
	Metrics *metrics.Metrics
	// Mirror is nil unless QDRANT_URL is set.
	Mirror vectorstore.VectorStore

	closers []io.Closer
}

// AppFactory builds the App lazily so commands that fail flag parsing never
// open the database or dial the mirror.
type AppFactory func(ctx context.Context) (*App, error)

// Close releases the database and mirror connections.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// NewApp wires the store, pipeline, engine and service from cfg on the
// operating system filesystem.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	return newApp(ctx, cfg, afero.NewOsFs())
}

func newApp(ctx context.Context, cfg *config.Config, fsys afero.Fs) (*App, error) {
	app := &App{Config: cfg, Fs: fsys}
	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
	}

	store := storage.NewFileStore(fsys, cfg.EmbeddingsDir, cfg.EmbeddingsModel)
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingsBaseURL, cfg.EmbeddingsModel, cfg.EmbeddingsConcurrency,
		llm.WithRateLimit(cfg.EmbeddingsRateLimit),
		llm.WithMetrics(app.Metrics),
	)

	sc := scanner.New(fsys)
	pipelineOpts := []indexer.PipelineOption{
		indexer.WithChunkOptions(chunkOptions(cfg)),
		indexer.WithMetrics(app.Metrics),
	}

	if cfg.QdrantURL != "" {
		qs, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		app.closers = append(app.closers, qs)
		app.Mirror = qs
		pipelineOpts = append(pipelineOpts, indexer.WithMirror(qs, cfg.QdrantCollection))
		slog.InfoContext(ctx, "Qdrant mirror enabled", "url", cfg.QdrantURL, "collection", cfg.QdrantCollection)
	}

	var runs storage.RunStore
	if cfg.HistoryDBPath != "" {
		db, err := openHistory(cfg.HistoryDBPath)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.closers = append(app.closers, db)
		runs = storage.NewRunRepo(db)
		slog.DebugContext(ctx, "run history database initialized", "path", cfg.HistoryDBPath)
	}

	pipeline := indexer.NewPipeline(store, sc, embedder, indexer.NewProgress(), pipelineOpts...)
	engine := rag.NewEngine(store, embedder, rag.Config{
		Provider: cfg.EmbeddingsProvider,
		Model:    cfg.EmbeddingsModel,
		PoolBase: cfg.MMRPoolBase,
		PoolMin:  cfg.MMRPoolMin,
	}, rag.WithMetrics(app.Metrics))

	app.Service = service.NewRAGService(service.Config{
		Provider:    cfg.EmbeddingsProvider,
		Model:       cfg.EmbeddingsModel,
		MinScore:    cfg.SearchMinScore,
		MMRLambda:   cfg.MMRLambda,
		MMRPoolBase: cfg.MMRPoolBase,
		MMRPoolMin:  cfg.MMRPoolMin,
	}, service.Components{
		Store:            store,
		Scanner:          sc,
		Pipeline:         pipeline,
		Engine:           engine,
		Runs:             runs,
		Mirror:           app.Mirror,
		MirrorCollection: cfg.QdrantCollection,
		Prober:           embedder,
	})
	return app, nil
}

func openHistory(path string) (*sql.DB, error) {
	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func chunkOptions(cfg *config.Config) chunker.Options {
	opts := chunker.DefaultOptions()
	opts.Tokenizer = chunker.ParseTokenizer(cfg.SentTokenizer)
	return opts
}
