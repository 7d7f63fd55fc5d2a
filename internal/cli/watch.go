package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"raggy/internal/scanner"
	"raggy/internal/service"
)

// watchDebounce is how long the filesystem must be quiet before a re-ingest.
const watchDebounce = 1500 * time.Millisecond

// watchPaths calls run after changes below paths settle for debounce, until
// ctx is cancelled. Glob arguments are watched through their literal parent
// directory. A run rejected because another ingest is active is skipped.
func watchPaths(ctx context.Context, paths []string, debounce time.Duration, run func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	for _, p := range paths {
		root := watchRoot(p)
		if err := addTree(w, root); err != nil {
			slog.WarnContext(ctx, "cannot watch path", "path", root, "error", err)
		}
	}
	if len(w.WatchList()) == 0 {
		return errors.New("nothing to watch")
	}
	slog.InfoContext(ctx, "watching for changes", "paths", len(w.WatchList()), "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addTree(w, ev.Name)
				}
			}
			slog.DebugContext(ctx, "change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "watcher error", "error", err)
		case <-timer.C:
			if err := run(); err != nil {
				if errors.Is(err, service.ErrConflict) {
					slog.InfoContext(ctx, "ingest already running, skipping this change")
					continue
				}
				slog.ErrorContext(ctx, "re-ingest failed", "error", err)
			}
		}
	}
}

// watchRoot returns the directory or file to watch for an ingest argument.
func watchRoot(p string) string {
	if !scanner.HasGlob(p) {
		return p
	}
	dir := p
	for scanner.HasGlob(dir) {
		dir = filepath.Dir(dir)
	}
	return dir
}

// addTree watches root and, when it is a directory, every directory below it.
func addTree(w *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
