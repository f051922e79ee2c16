package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher turns filesystem writes to a set of files into debounced
// change notifications suitable for Engine.Attach. Editors that replace
// files by rename are handled by watching the parent directories.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	logger   *slog.Logger
	changes  chan struct{}
}

// NewFileWatcher watches the given files. A zero debounce defaults to
// 200ms.
func NewFileWatcher(files []string, debounce time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("engine: create watcher: %w", err)
	}
	if debounce == 0 {
		debounce = 200 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw := &FileWatcher{
		watcher:  fsw,
		files:    make(map[string]bool, len(files)),
		debounce: debounce,
		logger:   logger,
		changes:  make(chan struct{}, 1),
	}

	dirs := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("engine: resolve %s: %w", f, err)
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("engine: watch %s: %w", dir, err)
		}
	}
	return fw, nil
}

// Changes returns the notification channel. It carries at most one
// pending notification; coalescing is the receiver's contract.
func (w *FileWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Run pumps filesystem events until ctx is cancelled, then closes the
// change channel.
func (w *FileWatcher) Run(ctx context.Context) {
	defer close(w.changes)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.files[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("input changed", "path", abs, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

// Close releases the underlying filesystem watcher.
func (w *FileWatcher) Close() error {
	return w.watcher.Close()
}
