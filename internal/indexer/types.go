package indexer

// Report summarizes one ingest call. Skip counters are itemized so partial
// success is distinguishable from total success.
type Report struct {
	Added                       int            `json:"added"`
	Chunks                      int            `json:"chunks"`
	RequestedPaths              int            `json:"requestedPaths"`
	ValidPaths                  int            `json:"validPaths"`
	ProcessedFiles              int            `json:"processedFiles"`
	SkippedZeroChunkFiles       int            `json:"skippedZeroChunkFiles"`
	SkippedNonTextFiles         int            `json:"skippedNonTextFiles"`
	SkippedEmptyEmbeddingChunks int            `json:"skippedEmptyEmbeddingChunks"`
	SkippedDuplicateChunks      int            `json:"skippedDuplicateChunks"`
	SkippedFilesNoEmbeddings    int            `json:"skippedFilesNoEmbeddings"`
	SkippedUnreadableFiles      int            `json:"skippedUnreadableFiles"`
	DuplicateChunksByFile       map[string]int `json:"duplicateChunksByFile,omitempty"`
	InvalidPaths                []string       `json:"invalidPaths,omitempty"`
}

// Status is the state of the ingest run.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// FileStatus is the state of the file currently being ingested.
type FileStatus string

const (
	FileIdle      FileStatus = "idle"
	FileEmbedding FileStatus = "embedding"
	FileWriting   FileStatus = "writing"
	FileSkipped   FileStatus = "skipped"
	FileDone      FileStatus = "done"
)
