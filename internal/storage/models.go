package storage

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the version written to meta.json.
const SchemaVersion = 1

// Document is a registry entry. ID and ContentHash are both the SHA-1 of the
// file bytes, so a renamed file keeps its identity.
type Document struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	AddedAt     time.Time `json:"addedAt"`
	MtimeMs     float64   `json:"mtimeMs"`
	Size        int64     `json:"size"`
	ContentHash string    `json:"contentHash"`
}

// ChunkRecord is one line of the chunk ledger. Text is stored without the
// filename prefix used for embedding; Embedding is unit length.
type ChunkRecord struct {
	ID         string    `json:"id"` // {docId}:{chunkIndex}
	DocID      string    `json:"docId"`
	Path       string    `json:"path"`
	ChunkIndex int       `json:"chunkIndex"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"`
	Heading    string    `json:"heading,omitempty"`
	Page       int       `json:"page,omitempty"`
}

// Meta is the store metadata record. Dim and Normalised stay nil until the
// first chunk is written.
type Meta struct {
	SchemaVersion  int       `json:"schemaVersion"`
	EmbeddingModel string    `json:"embeddingModel,omitempty"`
	Dim            *int      `json:"dim,omitempty"`
	Normalised     *bool     `json:"normalised,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Run kinds and statuses recorded in ingest_runs.
const (
	RunKindIngest   = "ingest"
	RunKindReingest = "reingest"

	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusError   = "error"
)

// IngestRun is one row of the ingest history.
type IngestRun struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	Status         string          `json:"status"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     *time.Time      `json:"finishedAt,omitempty"`
	RequestedPaths []string        `json:"requestedPaths"`
	Added          int             `json:"added"`
	Chunks         int             `json:"chunks"`
	Message        string          `json:"message,omitempty"`
	Report         json.RawMessage `json:"report,omitempty"`
}
