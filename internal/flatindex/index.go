// Package flatindex reads and writes the prebuilt exhaustive-scan index:
// a contiguous float32 matrix of unit vectors plus the ids and compact
// records of its rows.
package flatindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"raggy/internal/vecmath"
)

// Artifact names under the index directory.
const (
	MetaFile    = "meta.json"
	VectorsFile = "vectors.f32"
	IDsFile     = "ids.txt"
	RecordsFile = "records.jsonl"
)

var (
	// ErrEmptyLedger is returned by Build when there is nothing to index.
	ErrEmptyLedger = errors.New("ledger has no embeddable records")
)

// Meta describes a built index.
type Meta struct {
	Count   int       `json:"count"`
	Dim     int       `json:"dim"`
	BuiltAt time.Time `json:"builtAt"`
}

// Record is the compact per-row payload.
type Record struct {
	ID         string `json:"id"`
	DocID      string `json:"docId"`
	Path       string `json:"path"`
	ChunkIndex int    `json:"chunkIndex"`
	Text       string `json:"text"`
	Heading    string `json:"heading,omitempty"`
	Page       int    `json:"page,omitempty"`
}

// Hit is one query result row.
type Hit struct {
	Row   int
	Score float64
}

// Index is a loaded flat index. It is read-only after Load and safe for
// concurrent queries.
type Index struct {
	meta    Meta
	rows    int
	vectors []float32 // rows*dim, row-major
	ids     []string
	records map[string]Record
}

// Available reports whether all four artifacts exist in dir.
func Available(fsys afero.Fs, dir string) bool {
	for _, name := range []string{MetaFile, VectorsFile, IDsFile, RecordsFile} {
		ok, err := afero.Exists(fsys, filepath.Join(dir, name))
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Load reads all four artifacts. The vector file length is validated
// against the dimension once; row access is unchecked afterwards.
func Load(fsys afero.Fs, dir string) (*Index, error) {
	metaData, err := afero.ReadFile(fsys, filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read index meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse index meta: %w", err)
	}
	if meta.Dim <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", meta.Dim)
	}

	raw, err := afero.ReadFile(fsys, filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read index vectors: %w", err)
	}
	if len(raw)%4 != 0 || (len(raw)/4)%meta.Dim != 0 {
		return nil, fmt.Errorf("vector file has %d bytes, not a multiple of dim %d", len(raw), meta.Dim)
	}
	vectors := make([]float32, len(raw)/4)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	idData, err := afero.ReadFile(fsys, filepath.Join(dir, IDsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read index ids: %w", err)
	}
	var ids []string
	for _, line := range strings.Split(string(idData), "\n") {
		if line != "" {
			ids = append(ids, line)
		}
	}

	records, err := loadRecords(fsys, filepath.Join(dir, RecordsFile))
	if err != nil {
		return nil, err
	}

	return &Index{
		meta:    meta,
		rows:    len(vectors) / meta.Dim,
		vectors: vectors,
		ids:     ids,
		records: records,
	}, nil
}

func loadRecords(fsys afero.Fs, path string) (map[string]Record, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index records: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	records := make(map[string]Record)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r Record
		if json.Unmarshal([]byte(line), &r) != nil || r.ID == "" {
			continue
		}
		records[r.ID] = r
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index records: %w", err)
	}
	return records, nil
}

// Dim returns the vector dimension.
func (ix *Index) Dim() int { return ix.meta.Dim }

// Count returns the number of vector rows.
func (ix *Index) Count() int { return ix.rows }

// Query returns the k rows with the highest dot product against the
// normalized q, best first. Stored vectors are already unit length.
func (ix *Index) Query(q []float32, k int) []Hit {
	if k <= 0 || ix.rows == 0 {
		return nil
	}
	qn := vecmath.L2Normalize(q)
	dim := ix.meta.Dim
	n := min(dim, len(qn))

	top := vecmath.NewTopK[int](k)
	for row := 0; row < ix.rows; row++ {
		off := row * dim
		var s float64
		for j := 0; j < n; j++ {
			s += float64(qn[j]) * float64(ix.vectors[off+j])
		}
		top.Push(s, row)
	}

	items := top.Items()
	hits := make([]Hit, len(items))
	for i, it := range items {
		hits[i] = Hit{Row: it.Item, Score: it.Score}
	}
	return hits
}

// Record returns the compact record of row.
func (ix *Index) Record(row int) (Record, bool) {
	if row < 0 || row >= len(ix.ids) {
		return Record{}, false
	}
	r, ok := ix.records[ix.ids[row]]
	return r, ok
}
