package csvio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/itemdesk/itemdesk/pkg/telemetry"
)

const (
	// ProcessedDir receives files that imported cleanly.
	ProcessedDir = "processed"
	// FailedDir receives files whose import returned an error.
	FailedDir = "failed"

	defaultDebounce = 500 * time.Millisecond
)

// ResultFunc is called after each inbox file has been imported and moved.
type ResultFunc func(path string, res *ImportResult, err error)

// Watcher imports CSV files dropped into an inbox directory.
type Watcher struct {
	dir      string
	importer *Importer
	logger   *telemetry.Logger
	debounce time.Duration
	onResult ResultFunc
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is imported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithResultFunc registers a callback for finished files.
func WithResultFunc(fn ResultFunc) WatcherOption {
	return func(w *Watcher) {
		w.onResult = fn
	}
}

// WithWatcherLogger sets the logger used for file events.
func WithWatcherLogger(logger *telemetry.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, importer *Importer, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:      filepath.Clean(dir),
		importer: importer,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	return w
}

// Run imports the CSV files already in the inbox, then every file created or
// written there, until ctx is cancelled. Files are handled one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	if w.logger == nil {
		w.logger = telemetry.FromContext(ctx)
	}
	w.logger = w.logger.NewComponentLogger("watcher").WithField("dir", w.dir)

	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	existing, err := w.existingFiles()
	if err != nil {
		return err
	}
	for _, path := range existing {
		if ctx.Err() != nil {
			return nil
		}
		w.process(ctx, path)
	}

	w.logger.Info("watching inbox")

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(w.debounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !w.isInboxFile(event.Name) {
				continue
			}
			w.logger.Zerolog().Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("inbox file changed")
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("watcher error")

		case now := <-ticker.C:
			var ready []string
			for path, seen := range pending {
				if now.Sub(seen) >= w.debounce {
					ready = append(ready, path)
				}
			}
			sort.Strings(ready)
			for _, path := range ready {
				delete(pending, path)
				w.process(ctx, path)
			}
		}
	}
}

func (w *Watcher) isInboxFile(path string) bool {
	return filepath.Dir(path) == w.dir && strings.EqualFold(filepath.Ext(path), ".csv")
}

func (w *Watcher) existingFiles() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var files []string
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if entry.Type().IsRegular() && w.isInboxFile(path) {
			files = append(files, path)
		}
	}
	return files, nil
}

// process imports one file and moves it out of the inbox. A file that
// vanished since its event is ignored.
func (w *Watcher) process(ctx context.Context, path string) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return
	}

	var res *ImportResult
	if err == nil {
		res, err = w.importer.Import(ctx, f)
		_ = f.Close()
	}

	// Interrupted before any insert: leave it for the next run.
	if ctx.Err() != nil && (res == nil || res.Inserted == 0) {
		return
	}

	dest := ProcessedDir
	logger := w.logger.WithField("file", filepath.Base(path))
	if err != nil {
		dest = FailedDir
		logger.WithError(err).Error("inbox import failed")
	} else {
		logger.WithField("inserted", res.Inserted).Info("inbox file imported")
	}

	target := filepath.Join(w.dir, dest, filepath.Base(path))
	if mvErr := os.Rename(path, target); mvErr != nil {
		logger.WithError(mvErr).Warn("failed to move inbox file")
	}

	if w.onResult != nil {
		w.onResult(path, res, err)
	}
}
