package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docleaai/doclea-mcp-sub003/pkg/treesitter"
)

// Watcher watches a project root for filesystem changes and triggers a
// debounced incremental rescan per file, grounded on the teacher's
// CodeWatcher: an fsnotify watcher over the root plus every
// non-excluded subdirectory added recursively, a 500ms ticker flushing
// any path whose last event is older than the 300ms debounce window.
type Watcher struct {
	scanner  *Scanner
	rootPath string
	cfg      Config

	fw     *fsnotify.Watcher
	cancel context.CancelFunc
	once   sync.Once
}

// Start begins watching cfg.RootPath in the background. Call Stop to
// release the underlying fsnotify watcher.
func Start(parentCtx context.Context, s *Scanner, cfg Config) (*Watcher, error) {
	info, err := os.Stat(cfg.RootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, os.ErrNotExist
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parentCtx)
	w := &Watcher{scanner: s, rootPath: cfg.RootPath, cfg: cfg, fw: fw, cancel: cancel}

	if err := fw.Add(cfg.RootPath); err != nil {
		fw.Close()
		return nil, err
	}
	err = filepath.WalkDir(cfg.RootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && path != cfg.RootPath {
			if s.shouldExclude(path, w.relativePath(path), true) {
				return filepath.SkipDir
			}
			if err := fw.Add(path); err != nil {
				slog.Warn("scanner: failed to watch subdirectory", "path", path, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		fw.Close()
		return nil, err
	}

	go w.run(ctx)
	slog.Info("scanner: watcher started", "path", cfg.RootPath)
	return w, nil
}

// Stop is idempotent.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		w.cancel()
		_ = w.fw.Close()
		slog.Info("scanner: watcher stopped", "path", w.rootPath)
	})
}

func (w *Watcher) run(ctx context.Context) {
	debounce := make(map[string]time.Time)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if evt.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
					if !w.scanner.shouldExclude(evt.Name, w.relativePath(evt.Name), true) {
						if err := w.fw.Add(evt.Name); err != nil {
							slog.Warn("scanner: failed to add new directory", "dir", evt.Name, "error", err)
						}
					}
					continue
				}
			}

			if !w.isTrackedFile(evt.Name) {
				continue
			}

			if evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.processDelete(ctx, evt.Name)
				continue
			}

			if evt.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				debounce[evt.Name] = time.Now()
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("scanner: watcher error", "error", err)

		case now := <-ticker.C:
			for path, t := range debounce {
				if now.Sub(t) > 300*time.Millisecond {
					w.processChange(ctx, path)
					delete(debounce, path)
				}
			}
		}
	}
}

func (w *Watcher) processChange(ctx context.Context, fullPath string) {
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return
	}
	rel := w.relativePath(fullPath)

	start := time.Now()
	change, err := w.scanner.ScanFile(ctx, w.rootPath, rel, w.cfg.ExtractSummaries)
	if err != nil {
		slog.Warn("scanner: failed to rescan changed file", "file", rel, "error", err)
		return
	}
	slog.Info("scanner: rescanned changed file", "file", rel, "kind", change.Kind, "duration", time.Since(start))
}

func (w *Watcher) processDelete(ctx context.Context, fullPath string) {
	rel := w.relativePath(fullPath)
	if err := w.scanner.Graph.ReplaceFile(ctx, rel, nil, nil); err != nil {
		slog.Warn("scanner: failed to remove deleted file from graph", "file", rel, "error", err)
		return
	}
	if err := w.scanner.Graph.DeleteFileHash(ctx, rel); err != nil {
		slog.Warn("scanner: failed to delete file hash", "file", rel, "error", err)
	}
	slog.Info("scanner: removed deleted file from graph", "file", rel)
}

func (w *Watcher) isTrackedFile(path string) bool {
	ext := filepath.Ext(path)
	if ext == "" {
		return false
	}
	_, ok := treesitter.GetLanguageByExtension(strings.TrimPrefix(ext, "."))
	return ok
}

func (w *Watcher) relativePath(full string) string {
	rel, err := filepath.Rel(w.rootPath, full)
	if err != nil {
		return filepath.Base(full)
	}
	return filepath.ToSlash(rel)
}
