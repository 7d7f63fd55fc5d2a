package storage

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// WriteFileAtomic replaces path with data by writing path+".tmp", syncing it
// and renaming it over path. Readers see either the old or the new file.
func WriteFileAtomic(fsys afero.Fs, path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	return commitTemp(fsys, f, tmp, path)
}

// AppendLinesAtomic rewrites path as its current content followed by lines,
// one per line, through the same temp-and-rename sequence as
// WriteFileAtomic. A missing path is treated as empty.
func AppendLinesAtomic(fsys afero.Fs, path string, lines [][]byte) error {
	tmp := path + ".tmp"
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	fail := func(err error) error {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return err
	}

	w := bufio.NewWriterSize(f, 1<<16)
	lw := &lastByteWriter{w: w}

	src, err := fsys.Open(path)
	switch {
	case err == nil:
		_, err = io.Copy(lw, src)
		_ = src.Close()
		if err != nil {
			return fail(fmt.Errorf("failed to copy %s: %w", path, err))
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fail(fmt.Errorf("failed to open %s: %w", path, err))
	}

	if lw.n > 0 && lw.last != '\n' {
		if _, err := w.WriteString("\n"); err != nil {
			return fail(fmt.Errorf("failed to write temp file: %w", err))
		}
	}
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fail(fmt.Errorf("failed to write temp file: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("failed to write temp file: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("failed to flush temp file: %w", err))
	}
	return commitTemp(fsys, f, tmp, path)
}

func commitTemp(fsys afero.Fs, f afero.File, tmp, path string) error {
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

type lastByteWriter struct {
	w    io.Writer
	n    int64
	last byte
}

func (l *lastByteWriter) Write(p []byte) (int, error) {
	n, err := l.w.Write(p)
	if n > 0 {
		l.n += int64(n)
		l.last = p[n-1]
	}
	return n, err
}

// HashFile streams path through SHA-1 and returns the hex digest and the
// number of bytes read.
func HashFile(fsys afero.Fs, path string) (string, int64, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha1.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
