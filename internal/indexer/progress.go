package indexer

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrIngestRunning is returned when an ingest is requested while another is running.
var ErrIngestRunning = errors.New("ingest already running")

// ProgressSnapshot is a copy of the ingest progress state.
type ProgressSnapshot struct {
	RunID                      string     `json:"runId,omitempty"`
	Status                     Status     `json:"status"`
	TotalFiles                 int        `json:"totalFiles"`
	ProcessedFiles             int        `json:"processedFiles"`
	StartedAt                  *time.Time `json:"startedAt,omitempty"`
	UpdatedAt                  *time.Time `json:"updatedAt,omitempty"`
	Message                    string     `json:"message,omitempty"`
	CurrentFilePath            string     `json:"currentFilePath,omitempty"`
	CurrentFileTotalChunks     int        `json:"currentFileTotalChunks"`
	CurrentFileProcessedChunks int        `json:"currentFileProcessedChunks"`
	CurrentFileStatus          FileStatus `json:"currentFileStatus,omitempty"`
}

// Progress tracks the single active ingest run. Transitions are
// idle|done|error -> running -> done|error; TryStart is the only way into
// running. It is safe for concurrent use.
type Progress struct {
	mu  sync.Mutex
	s   ProgressSnapshot
	now func() time.Time
}

// NewProgress returns an idle tracker.
func NewProgress() *Progress {
	return &Progress{s: ProgressSnapshot{Status: StatusIdle}, now: time.Now}
}

func (p *Progress) touch() {
	t := p.now().UTC()
	p.s.UpdatedAt = &t
}

// TryStart moves the tracker into running and returns the new run id, or
// ErrIngestRunning if a run is already active.
func (p *Progress) TryStart(message string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.s.Status == StatusRunning {
		return "", ErrIngestRunning
	}
	now := p.now().UTC()
	p.s = ProgressSnapshot{
		RunID:             uuid.NewString(),
		Status:            StatusRunning,
		StartedAt:         &now,
		UpdatedAt:         &now,
		Message:           message,
		CurrentFileStatus: FileIdle,
	}
	return p.s.RunID, nil
}

// Running reports whether a run is active.
func (p *Progress) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s.Status == StatusRunning
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s
}

// SetMessage replaces the human-readable status line.
func (p *Progress) SetMessage(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.Message = message
	p.touch()
}

// SetTotal records the number of enumerated files.
func (p *Progress) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.TotalFiles = total
	if total > 0 {
		p.s.Message = "Starting…"
	} else {
		p.s.Message = "No files"
	}
	p.touch()
}

// BeginFile resets the per-file counters for path.
func (p *Progress) BeginFile(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.Message = "Processing " + filepath.Base(path)
	p.s.CurrentFilePath = path
	p.s.CurrentFileTotalChunks = 0
	p.s.CurrentFileProcessedChunks = 0
	p.s.CurrentFileStatus = FileEmbedding
	p.touch()
}

// SetFileStatus sets the sub-state of the file being processed.
func (p *Progress) SetFileStatus(status FileStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.CurrentFileStatus = status
	p.touch()
}

// SetFileChunks records how many chunks the current file produced.
func (p *Progress) SetFileChunks(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.CurrentFileTotalChunks = total
	p.touch()
}

// SetFileProcessedChunks records how many of them have been embedded.
func (p *Progress) SetFileProcessedChunks(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.CurrentFileProcessedChunks = n
	p.touch()
}

// FileDone records that processed files have been handled, never reporting
// more than the enumerated total.
func (p *Progress) FileDone(processed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.s.TotalFiles > 0 {
		processed = min(processed, p.s.TotalFiles)
	}
	p.s.ProcessedFiles = processed
	p.touch()
}

// Finish marks the run done.
func (p *Progress) Finish(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.Status = StatusDone
	p.s.Message = message
	p.touch()
}

// Fail marks the run as failed.
func (p *Progress) Fail(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.Status = StatusError
	p.s.Message = message
	p.touch()
}
