package tracker

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/fakeyudi/residue/internal/uninstall"
	"github.com/fakeyudi/residue/internal/watcher"
)

// DefaultFlushInterval is how often buffered events are turned into records.
const DefaultFlushInterval = 5 * time.Second

// Watcher is the part of watcher.Watcher the tracker drives.
type Watcher interface {
	Start(onEvent func(path string, kind watcher.EventKind)) error
	Stop()
}

// WatcherFactory builds a fresh watcher for each session.
type WatcherFactory func() Watcher

// Option configures a Tracker.
type Option func(*Tracker)

// WithWatcherFactory replaces the fsnotify watcher.
func WithWatcherFactory(f WatcherFactory) Option {
	return func(t *Tracker) { t.newWatcher = f }
}

// WithFlushInterval sets the flush period. Non-positive values are ignored.
func WithFlushInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.flushInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithFs sets the filesystem used to stat discovered paths and, unless
// WithPipeline is given, to remove them.
func WithFs(fs afero.Fs) Option {
	return func(t *Tracker) { t.fs = fs }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithPipeline sets the uninstall pipeline.
func WithPipeline(p *uninstall.Pipeline) Option {
	return func(t *Tracker) { t.pipeline = p }
}

// WithExcludedDirs keeps paths inside dirs out of every session. The CLI uses
// it for its own data and config directories.
func WithExcludedDirs(dirs ...string) Option {
	return func(t *Tracker) {
		for _, d := range dirs {
			if d != "" {
				t.excluded = append(t.excluded, filepath.Clean(d))
			}
		}
	}
}
