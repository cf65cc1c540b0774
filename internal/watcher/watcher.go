// Package watcher filters and delivers filesystem change notifications for a
// set of root directories.
package watcher

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventKind classifies a change notification.
type EventKind int

const (
	Created EventKind = iota
	Modified
	Removed
	Renamed
	AttributesChanged
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case Renamed:
		return "renamed"
	default:
		return "attributes-changed"
	}
}

// kindOf maps an fsnotify op to a single kind. Ops can be combined; the
// earliest match in this order wins.
func kindOf(op fsnotify.Op) EventKind {
	switch {
	case op.Has(fsnotify.Create):
		return Created
	case op.Has(fsnotify.Write):
		return Modified
	case op.Has(fsnotify.Remove):
		return Removed
	case op.Has(fsnotify.Rename):
		return Renamed
	default:
		return AttributesChanged
	}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRoots replaces the default root directories.
func WithRoots(roots []string) Option {
	return func(w *Watcher) {
		w.roots = append([]string(nil), roots...)
	}
}

// WithLogger sets the logger used for skipped roots and backend errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher delivers non-noise change notifications under its roots to a
// callback. fsnotify only watches single directories, so every directory below
// each root is registered individually and new directories are picked up as
// they appear.
type Watcher struct {
	roots  []string
	logger *slog.Logger

	mu   sync.Mutex
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// New returns an inactive watcher. Without WithRoots it watches
// DefaultRoots for the current user and platform.
func New(opts ...Option) *Watcher {
	w := &Watcher{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(w)
	}
	if w.roots == nil {
		home, _ := os.UserHomeDir()
		w.roots = DefaultRoots(home, runtime.GOOS)
	}
	return w
}

// Roots returns the configured root directories.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Start registers the roots and begins delivering events to onEvent on the
// watcher's own goroutine.
func (w *Watcher) Start(onEvent func(path string, kind EventKind)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return ErrAlreadyActive
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Join(ErrCreateFailed, err)
	}

	registered := 0
	for _, root := range w.roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			w.logger.Debug("skipping watch root", "path", root, "error", err)
			continue
		}
		registered += w.addTree(fsw, root, nil)
	}
	if registered == 0 {
		fsw.Close()
		return ErrStartFailed
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	go w.loop(fsw, onEvent, w.done)

	w.logger.Debug("watcher started", "roots", len(w.roots), "directories", registered)
	return nil
}

// Stop unregisters everything and waits until no further callbacks can run.
// Calling Stop on an inactive watcher does nothing.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, done := w.fsw, w.done
	w.fsw, w.done = nil, nil
	w.mu.Unlock()

	if fsw == nil {
		return
	}
	if err := fsw.Close(); err != nil {
		w.logger.Warn("closing watcher", "error", err)
	}
	<-done
}

// Active reports whether the watcher is running.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsw != nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, onEvent func(string, EventKind), done chan struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			kind := kindOf(event.Op)

			// Register directories that appear after Start. Files written
			// into them before the watch lands are reported as created.
			if kind == Created {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(fsw, event.Name, onEvent)
				}
			}

			if IsNoise(event.Name) {
				continue
			}
			onEvent(event.Name, kind)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// addTree registers root and every non-noise directory below it. When report
// is non-nil, entries found below root are reported as created. It returns the
// number of directories registered.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string, report func(string, EventKind)) int {
	count := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil // unreadable entry
		}
		if d.IsDir() {
			if IsNoise(path) {
				return fs.SkipDir
			}
			if err := fsw.Add(path); err != nil {
				w.logger.Debug("cannot watch directory", "path", path, "error", err)
				return fs.SkipDir
			}
			count++
		}
		if report != nil && path != root && !IsNoise(path) {
			report(path, Created)
		}
		return nil
	})
	return count
}
