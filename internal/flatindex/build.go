package flatindex

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"raggy/internal/contextutil"
	"raggy/internal/storage"
	"raggy/internal/vecmath"
)

// Build streams the chunk ledger of store into a new index under
// store.IndexDir(). Embeddings are normalized; records whose dimension
// differs from the first record are skipped. meta.json is written last so a
// reader never sees new metadata over old vectors.
func Build(ctx context.Context, store *storage.FileStore) (Meta, error) {
	logger := contextutil.LoggerFromContext(ctx)
	fsys := store.Fs()
	dir := store.IndexDir()

	var (
		vectors bytes.Buffer
		ids     bytes.Buffer
		records bytes.Buffer
		dim     int
		count   int
		skipped int
	)
	word := make([]byte, 4)

	err := store.ScanChunks(ctx, func(rec storage.ChunkRecord) error {
		if len(rec.Embedding) == 0 || !vecmath.IsFinite(rec.Embedding) {
			skipped++
			return nil
		}
		if dim == 0 {
			dim = len(rec.Embedding)
		}
		if len(rec.Embedding) != dim {
			skipped++
			return nil
		}
		for _, x := range vecmath.L2Normalize(rec.Embedding) {
			binary.LittleEndian.PutUint32(word, math.Float32bits(x))
			vectors.Write(word)
		}
		ids.WriteString(rec.ID)
		ids.WriteByte('\n')

		line, err := json.Marshal(Record{
			ID:         rec.ID,
			DocID:      rec.DocID,
			Path:       rec.Path,
			ChunkIndex: rec.ChunkIndex,
			Text:       rec.Text,
			Heading:    rec.Heading,
			Page:       rec.Page,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal index record %s: %w", rec.ID, err)
		}
		records.Write(line)
		records.WriteByte('\n')
		count++
		return nil
	})
	if err != nil {
		return Meta{}, fmt.Errorf("failed to scan ledger: %w", err)
	}
	if count == 0 {
		return Meta{}, ErrEmptyLedger
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return Meta{}, fmt.Errorf("failed to create index directory: %w", err)
	}
	artifacts := []struct {
		name string
		data []byte
	}{
		{VectorsFile, vectors.Bytes()},
		{IDsFile, ids.Bytes()},
		{RecordsFile, records.Bytes()},
	}
	for _, a := range artifacts {
		if err := storage.WriteFileAtomic(fsys, filepath.Join(dir, a.name), a.data); err != nil {
			return Meta{}, fmt.Errorf("failed to write %s: %w", a.name, err)
		}
	}

	meta := Meta{Count: count, Dim: dim, BuiltAt: time.Now().UTC()}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Meta{}, fmt.Errorf("failed to marshal index meta: %w", err)
	}
	if err := storage.WriteFileAtomic(fsys, filepath.Join(dir, MetaFile), metaData); err != nil {
		return Meta{}, fmt.Errorf("failed to write %s: %w", MetaFile, err)
	}

	logger.InfoContext(ctx, "built flat index", "dir", dir, "count", count, "dim", dim, "skipped", skipped)
	return meta, nil
}
