package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"raggy/internal/chunker"
	"raggy/internal/contextutil"
	"raggy/internal/llm"
	"raggy/internal/metrics"
	"raggy/internal/pdf"
	"raggy/internal/scanner"
	"raggy/internal/storage"
	"raggy/internal/vecmath"
	"raggy/internal/vectorstore"
)

// Pipeline ingests files into the store: enumerate, hash, extract, chunk,
// embed, normalize, persist.
type Pipeline struct {
	store      *storage.FileStore
	scanner    *scanner.Scanner
	embedder   llm.Embedder
	progress   *Progress
	chunkOpts  chunker.Options
	mirror     vectorstore.VectorStore
	collection string
	metrics    *metrics.Metrics
	now        func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithChunkOptions overrides the sentence window configuration.
func WithChunkOptions(opts chunker.Options) PipelineOption {
	return func(p *Pipeline) { p.chunkOpts = opts }
}

// WithMirror upserts every persisted chunk into collection after the ledger
// is written.
func WithMirror(vs vectorstore.VectorStore, collection string) PipelineOption {
	return func(p *Pipeline) {
		p.mirror = vs
		p.collection = collection
	}
}

// WithMetrics records per-file outcomes and chunk counts.
func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(store *storage.FileStore, sc *scanner.Scanner, embedder llm.Embedder, progress *Progress, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:     store,
		scanner:   sc,
		embedder:  embedder,
		progress:  progress,
		chunkOpts: chunker.DefaultOptions(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Progress returns the tracker the pipeline reports to.
func (p *Pipeline) Progress() *Progress {
	return p.progress
}

// ingestState accumulates the outcome of one Run.
type ingestState struct {
	report    Report
	registry  []storage.Document
	meta      storage.Meta
	metaDirty bool
	records   []storage.ChunkRecord
}

// Run ingests paths inside a run the caller already started with TryStart.
// Structural failures mark the run as failed and are returned; per-file
// problems are counted in the report.
func (p *Pipeline) Run(ctx context.Context, paths []string) (Report, error) {
	report, err := p.run(ctx, paths)
	if err != nil {
		p.progress.Fail(err.Error())
		return Report{}, err
	}
	p.progress.Finish(fmt.Sprintf("Added %d doc(s), %d chunk(s).", report.Added, report.Chunks))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, paths []string) (Report, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.store.Init(); err != nil {
		return Report{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	registry, err := p.store.LoadRegistry()
	if err != nil {
		return Report{}, err
	}
	meta, err := p.store.ReadMeta()
	if err != nil {
		return Report{}, err
	}
	st := &ingestState{registry: registry, meta: meta}

	p.progress.SetMessage("Enumerating files…")
	enum, err := p.scanner.Enumerate(ctx, paths)
	if err != nil {
		return Report{}, fmt.Errorf("failed to enumerate files: %w", err)
	}
	p.progress.SetTotal(len(enum.Files))

	st.report.RequestedPaths = len(paths)
	st.report.ValidPaths = enum.ValidPaths
	st.report.InvalidPaths = enum.InvalidPaths

	logger.InfoContext(ctx, "starting ingest", "requested_paths", len(paths), "files", len(enum.Files))

	for _, file := range enum.Files {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		st.report.ProcessedFiles++
		result := p.ingestFile(ctx, logger, st, file)
		p.metrics.IngestFile(result)
		p.progress.FileDone(st.report.ProcessedFiles)
	}

	if err := p.store.AppendChunks(st.records); err != nil {
		return Report{}, err
	}
	if err := p.store.WriteRegistry(st.registry); err != nil {
		return Report{}, err
	}
	if st.metaDirty {
		if err := p.store.WriteMeta(st.meta); err != nil {
			return Report{}, err
		}
	}
	p.metrics.IngestChunks(len(st.records))

	if st.meta.Dim != nil {
		p.mirrorRecords(ctx, logger, *st.meta.Dim, st.records)
	}

	logger.InfoContext(ctx, "ingest completed",
		"added", st.report.Added,
		"chunks", st.report.Chunks,
		"processed_files", st.report.ProcessedFiles,
		"skipped_non_text", st.report.SkippedNonTextFiles,
		"skipped_unreadable", st.report.SkippedUnreadableFiles,
	)
	return st.report, nil
}

// ingestFile handles one enumerated file and returns its metrics outcome.
func (p *Pipeline) ingestFile(ctx context.Context, logger *slog.Logger, st *ingestState, file string) string {
	isPDF := scanner.IsPDFPath(file)
	if !isPDF && !scanner.IsTextPath(file) {
		st.report.SkippedNonTextFiles++
		return metrics.FileNonText
	}

	p.progress.BeginFile(file)

	fsys := p.scanner.Fs()
	hash, size, err := storage.HashFile(fsys, file)
	if err != nil {
		return p.skipUnreadable(ctx, logger, st, file, err)
	}
	info, err := fsys.Stat(file)
	if err != nil {
		return p.skipUnreadable(ctx, logger, st, file, err)
	}
	mtimeMs := float64(info.ModTime().UnixNano()) / float64(time.Millisecond)

	// Same path with different content: the old entry is stale.
	kept := st.registry[:0]
	for _, d := range st.registry {
		if d.Path == file && d.ID != hash {
			continue
		}
		kept = append(kept, d)
	}
	st.registry = kept

	for i := range st.registry {
		if st.registry[i].ID != hash {
			continue
		}
		st.registry[i].Path = file
		st.registry[i].MtimeMs = mtimeMs
		st.registry[i].Size = size
		st.registry[i].ContentHash = hash
		p.progress.SetFileStatus(FileSkipped)
		return metrics.FileUnchanged
	}

	content, err := p.readContent(fsys, file, isPDF)
	if err != nil {
		return p.skipUnreadable(ctx, logger, st, file, err)
	}

	chunks, dups := dedupe(p.chunk(file, content, isPDF))
	if dups > 0 {
		st.report.SkippedDuplicateChunks += dups
		if st.report.DuplicateChunksByFile == nil {
			st.report.DuplicateChunksByFile = make(map[string]int)
		}
		st.report.DuplicateChunksByFile[file] += dups
	}
	p.progress.SetFileChunks(len(chunks))
	if len(chunks) == 0 {
		st.report.SkippedZeroChunkFiles++
		p.progress.SetFileStatus(FileSkipped)
		return metrics.FileZeroChunks
	}

	base := filepath.Base(file)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = "filename: " + base + "\n" + c.Text
	}
	embeddings := p.embedder.Embed(ctx, texts)

	p.progress.SetFileStatus(FileWriting)

	var recs []storage.ChunkRecord
	for i, c := range chunks {
		var emb []float32
		if i < len(embeddings) {
			emb = embeddings[i]
		}
		if len(emb) == 0 || !vecmath.IsFinite(emb) {
			st.report.SkippedEmptyEmbeddingChunks++
			continue
		}
		emb = vecmath.L2Normalize(emb)
		p.observeDimension(ctx, logger, st, file, len(emb))

		recs = append(recs, storage.ChunkRecord{
			ID:         hash + ":" + strconv.Itoa(i),
			DocID:      hash,
			Path:       file,
			ChunkIndex: i,
			Text:       c.Text,
			Embedding:  emb,
			Heading:    c.Heading,
			Page:       c.Page,
		})
		p.progress.SetFileProcessedChunks(len(recs))
	}

	if len(recs) == 0 {
		st.report.SkippedFilesNoEmbeddings++
		p.progress.SetFileStatus(FileSkipped)
		logger.WarnContext(ctx, "no chunk could be embedded", "path", file, "chunks", len(chunks))
		return metrics.FileNoEmbeddings
	}

	st.registry = append(st.registry, storage.Document{
		ID:          hash,
		Path:        file,
		AddedAt:     p.now().UTC(),
		MtimeMs:     mtimeMs,
		Size:        size,
		ContentHash: hash,
	})
	st.records = append(st.records, recs...)
	st.report.Added++
	st.report.Chunks += len(recs)

	if st.meta.Normalised == nil || !*st.meta.Normalised {
		t := true
		st.meta.Normalised = &t
		st.metaDirty = true
	}
	if st.meta.EmbeddingModel == "" {
		st.meta.EmbeddingModel = p.store.Model()
		st.metaDirty = true
	}

	p.progress.SetFileStatus(FileDone)
	logger.DebugContext(ctx, "ingested file", "path", file, "chunks", len(recs), "duplicates", dups)
	return metrics.FileAdded
}

// observeDimension records the first dimension seen and warns on mismatch.
func (p *Pipeline) observeDimension(ctx context.Context, logger *slog.Logger, st *ingestState, file string, dim int) {
	if st.meta.Dim == nil {
		d := dim
		st.meta.Dim = &d
		st.metaDirty = true
		return
	}
	if *st.meta.Dim != dim {
		logger.WarnContext(ctx, "embedding dimension differs from stored dimension",
			"path", file, "stored_dim", *st.meta.Dim, "dim", dim)
	}
}

func (p *Pipeline) skipUnreadable(ctx context.Context, logger *slog.Logger, st *ingestState, file string, err error) string {
	st.report.SkippedUnreadableFiles++
	p.progress.SetFileStatus(FileSkipped)
	logger.WarnContext(ctx, "skipping unreadable file", "path", file, "error", err)
	return metrics.FileUnreadable
}

func (p *Pipeline) readContent(fsys afero.Fs, file string, isPDF bool) (string, error) {
	if isPDF {
		return pdf.ExtractFile(fsys, file)
	}
	data, err := afero.ReadFile(fsys, file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func (p *Pipeline) chunk(file, content string, isPDF bool) []chunker.Chunk {
	switch {
	case isPDF:
		return chunker.ChunkPDF(content, p.chunkOpts)
	case scanner.IsMarkdownPath(file):
		return chunker.ChunkMarkdown(content, p.chunkOpts)
	default:
		return chunker.ChunkPlain(content, p.chunkOpts)
	}
}

// dedupe keeps the first chunk for each trimmed text and drops blank
// chunks. It returns the kept chunks and the number of duplicates removed.
func dedupe(chunks []chunker.Chunk) ([]chunker.Chunk, int) {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]chunker.Chunk, 0, len(chunks))
	dups := 0
	for _, c := range chunks {
		t := strings.TrimSpace(c.Text)
		if t == "" {
			dups++
			continue
		}
		if _, ok := seen[t]; ok {
			dups++
			continue
		}
		seen[t] = struct{}{}
		out = append(out, c)
	}
	return out, dups
}

// mirrorRecords copies freshly persisted chunks into the vector store.
// Failures are logged; the ledger stays the source of truth.
func (p *Pipeline) mirrorRecords(ctx context.Context, logger *slog.Logger, dim int, recs []storage.ChunkRecord) {
	if p.mirror == nil || len(recs) == 0 {
		return
	}
	if err := p.mirror.EnsureCollection(ctx, p.collection, dim); err != nil {
		logger.WarnContext(ctx, "failed to ensure mirror collection", "collection", p.collection, "error", err)
		return
	}
	points := make([]vectorstore.Point, len(recs))
	for i, r := range recs {
		payload := map[string]any{
			"docId":      r.DocID,
			"path":       r.Path,
			"chunkIndex": r.ChunkIndex,
			"text":       r.Text,
		}
		if r.Heading != "" {
			payload["heading"] = r.Heading
		}
		if r.Page > 0 {
			payload["page"] = r.Page
		}
		points[i] = vectorstore.Point{
			ID:      vectorstore.PointID(r.ID),
			Vec:     r.Embedding,
			Payload: payload,
		}
	}
	if err := p.mirror.Upsert(ctx, p.collection, points); err != nil {
		logger.WarnContext(ctx, "failed to mirror chunks", "collection", p.collection, "points", len(points), "error", err)
		return
	}
	logger.InfoContext(ctx, "mirrored chunks", "collection", p.collection, "points", len(points))
}
