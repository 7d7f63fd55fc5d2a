package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Artifact names under the store directory.
const (
	RegistryFile = "registry.json"
	ChunksFile   = "chunks.jsonl"
	MetaFile     = "meta.json"
	IndexDirName = "index"
)

// FileStore persists the registry, the chunk ledger and the metadata record
// under one directory. It assumes a single writer per process.
type FileStore struct {
	fs    afero.Fs
	dir   string
	model string
	now   func() time.Time
}

// NewFileStore creates a store rooted at dir. model is recorded in new
// metadata records.
func NewFileStore(fsys afero.Fs, dir, model string) *FileStore {
	return &FileStore{fs: fsys, dir: dir, model: model, now: time.Now}
}

// Fs returns the filesystem the store writes to.
func (s *FileStore) Fs() afero.Fs { return s.fs }

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

// Model returns the embedding model recorded in new metadata.
func (s *FileStore) Model() string { return s.model }

// RegistryPath returns the path of registry.json.
func (s *FileStore) RegistryPath() string { return filepath.Join(s.dir, RegistryFile) }

// ChunksPath returns the path of the chunks.jsonl ledger.
func (s *FileStore) ChunksPath() string { return filepath.Join(s.dir, ChunksFile) }

// MetaPath returns the path of meta.json.
func (s *FileStore) MetaPath() string { return filepath.Join(s.dir, MetaFile) }

// IndexDir returns the directory holding the flat index artifacts.
func (s *FileStore) IndexDir() string { return filepath.Join(s.dir, IndexDirName) }

func (s *FileStore) freshMeta() Meta {
	return Meta{SchemaVersion: SchemaVersion, EmbeddingModel: s.model, CreatedAt: s.now().UTC()}
}

// Init creates the directory and any missing artifact. Existing artifacts
// are never overwritten.
func (s *FileStore) Init() error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := s.createIfMissing(s.RegistryPath(), []byte("[]")); err != nil {
		return err
	}
	if err := s.createIfMissing(s.ChunksPath(), nil); err != nil {
		return err
	}
	if ok, err := afero.Exists(s.fs, s.MetaPath()); err != nil {
		return fmt.Errorf("failed to stat meta: %w", err)
	} else if !ok {
		return s.WriteMeta(s.freshMeta())
	}
	return nil
}

func (s *FileStore) createIfMissing(path string, data []byte) error {
	ok, err := afero.Exists(s.fs, path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if ok {
		return nil
	}
	if err := WriteFileAtomic(s.fs, path, data); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Reset deletes the store directory, flat index included, and recreates the
// empty artifacts. The new metadata carries the model but no dimension.
func (s *FileStore) Reset() error {
	if err := s.fs.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove store directory: %w", err)
	}
	return s.Init()
}

// LoadRegistry reads the registry. A missing or empty file is an empty
// registry.
func (s *FileStore) LoadRegistry() ([]Document, error) {
	data, err := afero.ReadFile(s.fs, s.RegistryPath())
	if errors.Is(err, fs.ErrNotExist) {
		return []Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	docs := []Document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return docs, nil
	}
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	return docs, nil
}

// WriteRegistry atomically replaces the registry with docs.
func (s *FileStore) WriteRegistry(docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := WriteFileAtomic(s.fs, s.RegistryPath(), data); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

// ReadMeta reads the metadata record. A missing or unparsable file yields a
// fresh record.
func (s *FileStore) ReadMeta() (Meta, error) {
	data, err := afero.ReadFile(s.fs, s.MetaPath())
	if errors.Is(err, fs.ErrNotExist) {
		return s.freshMeta(), nil
	}
	if err != nil {
		return Meta{}, fmt.Errorf("failed to read meta: %w", err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return s.freshMeta(), nil
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = SchemaVersion
	}
	return m, nil
}

// WriteMeta atomically replaces the metadata record.
func (s *FileStore) WriteMeta(m Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}
	if err := WriteFileAtomic(s.fs, s.MetaPath(), data); err != nil {
		return fmt.Errorf("failed to write meta: %w", err)
	}
	return nil
}

// StoredDimension returns the embedding dimension recorded in the metadata.
func (s *FileStore) StoredDimension() (int, bool, error) {
	m, err := s.ReadMeta()
	if err != nil {
		return 0, false, err
	}
	if m.Dim == nil {
		return 0, false, nil
	}
	return *m.Dim, true, nil
}

// AppendChunks appends records to the ledger with a single atomic rewrite.
func (s *FileStore) AppendChunks(recs []ChunkRecord) error {
	if len(recs) == 0 {
		return nil
	}
	lines := make([][]byte, 0, len(recs))
	for _, r := range recs {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk %s: %w", r.ID, err)
		}
		lines = append(lines, line)
	}
	if err := AppendLinesAtomic(s.fs, s.ChunksPath(), lines); err != nil {
		return fmt.Errorf("failed to append chunks: %w", err)
	}
	return nil
}

// ScanChunks streams the ledger and calls fn for every well-formed record.
// Blank and malformed lines are skipped. A missing ledger is empty.
func (s *FileStore) ScanChunks(ctx context.Context, fn func(ChunkRecord) error) error {
	f, err := s.fs.Open(s.ChunksPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	r := bufio.NewReaderSize(f, 1<<16)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var rec ChunkRecord
			if json.Unmarshal(line, &rec) == nil {
				if err := fn(rec); err != nil {
					return err
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read ledger: %w", readErr)
		}
	}
}

// ChunkCounts returns the number of ledger records per document id.
func (s *FileStore) ChunkCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.ScanChunks(ctx, func(rec ChunkRecord) error {
		counts[rec.DocID]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// CountChunks returns the number of well-formed ledger records.
func (s *FileStore) CountChunks(ctx context.Context) (int, error) {
	n := 0
	err := s.ScanChunks(ctx, func(ChunkRecord) error {
		n++
		return nil
	})
	return n, err
}

// MetaModTime returns the modification time of meta.json in dir, used to
// detect rebuilt artifacts.
func MetaModTime(fsys afero.Fs, dir string) (time.Time, error) {
	info, err := fsys.Stat(filepath.Join(dir, MetaFile))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
