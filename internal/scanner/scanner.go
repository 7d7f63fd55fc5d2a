// Package scanner enumerates ingestible files and expands glob patterns over
// an afero filesystem.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"raggy/internal/contextutil"
)

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".json": {}, ".csv": {}, ".tsv": {}, ".log": {},
	".ini": {}, ".conf": {}, ".cfg": {}, ".yaml": {}, ".yml": {}, ".xml": {},
	".js": {}, ".mjs": {}, ".cjs": {}, ".ts": {}, ".tsx": {}, ".jsx": {},
	".css": {}, ".scss": {}, ".less": {}, ".html": {}, ".htm": {}, ".shtm": {}, ".xhtml": {},
	".py": {}, ".rb": {}, ".go": {}, ".rs": {}, ".java": {}, ".kt": {}, ".scala": {},
	".c": {}, ".h": {}, ".cc": {}, ".cpp": {}, ".hpp": {}, ".m": {}, ".mm": {}, ".swift": {},
	".php": {}, ".pl": {}, ".sh": {}, ".bash": {}, ".zsh": {}, ".fish": {},
	".r": {}, ".jl": {}, ".lua": {}, ".sql": {}, ".bat": {}, ".cmd": {},
	".ps1": {}, ".psm1": {}, ".psd1": {},
}

// IsPDFPath reports whether p has a .pdf extension.
func IsPDFPath(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".pdf")
}

// IsTextPath reports whether p has an extension from the textual allow-list.
func IsTextPath(p string) bool {
	_, ok := textExtensions[strings.ToLower(filepath.Ext(p))]
	return ok
}

// IsMarkdownPath reports whether p should use the Markdown chunker.
func IsMarkdownPath(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".md" || ext == ".markdown"
}

// Scanner walks paths on a filesystem.
type Scanner struct {
	fs afero.Fs
}

// New creates a Scanner over fsys.
func New(fsys afero.Fs) *Scanner {
	return &Scanner{fs: fsys}
}

// Fs returns the underlying filesystem.
func (s *Scanner) Fs() afero.Fs {
	return s.fs
}

// Enumeration is the result of expanding a list of input paths into files.
type Enumeration struct {
	Files        []string // every file found, in traversal order
	ValidPaths   int      // inputs that existed
	InvalidPaths []string // inputs that did not exist
}

// Enumerate expands each path into the files it names. Directories are
// traversed recursively; missing paths are collected as invalid.
func (s *Scanner) Enumerate(ctx context.Context, paths []string) (Enumeration, error) {
	var out Enumeration
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		info, err := s.fs.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				out.InvalidPaths = append(out.InvalidPaths, p)
				continue
			}
			return out, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		out.ValidPaths++
		if !info.IsDir() {
			out.Files = append(out.Files, p)
			continue
		}
		files, err := s.ListFiles(ctx, p)
		if err != nil {
			return out, err
		}
		out.Files = append(out.Files, files...)
	}
	return out, nil
}

// ListFiles returns every non-directory entry below root, depth first with
// directory entries visited in name order. Subdirectories that cannot be
// read are logged and skipped.
func (s *Scanner) ListFiles(ctx context.Context, root string) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := afero.ReadDir(s.fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", root, err)
	}

	stack := pushEntries(nil, root, entries)
	var files []string
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !e.dir {
			files = append(files, e.path)
			continue
		}
		children, err := afero.ReadDir(s.fs, e.path)
		if err != nil {
			logger.WarnContext(ctx, "skipping unreadable directory", "path", e.path, "error", err)
			continue
		}
		stack = pushEntries(stack, e.path, children)
	}
	return files, nil
}

type stackEntry struct {
	path string
	dir  bool
}

// pushEntries pushes children in reverse name order so they pop in name order.
func pushEntries(stack []stackEntry, dir string, children []fs.FileInfo) []stackEntry {
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })
	for i := len(children) - 1; i >= 0; i-- {
		c := children[i]
		stack = append(stack, stackEntry{path: filepath.Join(dir, c.Name()), dir: c.IsDir()})
	}
	return stack
}
