// Package uninstall removes the files recorded by a session, deepest paths
// first.
package uninstall

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.trai.ch/zerr"

	"github.com/fakeyudi/residue/internal/session"
)

// Mode selects how a path is removed.
type Mode int

const (
	// ModeTrash moves paths into the user's trash.
	ModeTrash Mode = iota
	// ModePermanent removes paths and their contents outright.
	ModePermanent
)

func (m Mode) String() string {
	if m == ModePermanent {
		return "permanent"
	}
	return "trash"
}

// ParseMode accepts "trash" or "permanent".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trash":
		return ModeTrash, nil
	case "permanent":
		return ModePermanent, nil
	}
	return ModeTrash, zerr.With(ErrInvalidMode, "mode", s)
}

// Progress is reported once per entry, before that entry is processed.
type Progress struct {
	Current int // 1-based
	Total   int
	Path    string
}

// Order returns a copy of files sorted so that deeper paths come first, which
// removes children before the directories that contain them. Entries of equal
// depth keep their relative order.
func Order(files []session.MonitoredFile) []session.MonitoredFile {
	out := append([]session.MonitoredFile(nil), files...)
	sep := string(filepath.Separator)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.Count(out[i].Path, sep) > strings.Count(out[j].Path, sep)
	})
	return out
}

// Pipeline removes a list of recorded files.
type Pipeline struct {
	Fs     afero.Fs
	Trash  Trasher
	Logger *slog.Logger
}

// NewPipeline returns a pipeline on fsys using the platform trash of the
// current user.
func NewPipeline(fsys afero.Fs, logger *slog.Logger) *Pipeline {
	home, _ := os.UserHomeDir()
	return &Pipeline{
		Fs:     fsys,
		Trash:  NewTrash(fsys, home, runtime.GOOS),
		Logger: logger,
	}
}

// Run processes files deepest first. Paths that no longer exist are skipped
// and count neither as removed nor failed. It returns the number of removed
// paths, and a *PartialFailure if any removal failed.
func (p *Pipeline) Run(files []session.MonitoredFile, mode Mode, onProgress func(Progress)) (int, error) {
	log := p.logger()
	ordered := Order(files)
	total := len(ordered)

	removed := 0
	var failures []Failure
	for i, f := range ordered {
		if onProgress != nil {
			onProgress(Progress{Current: i + 1, Total: total, Path: f.Path})
		}

		if _, err := p.lstat(f.Path); errors.Is(err, fs.ErrNotExist) {
			log.Debug("already gone", "path", f.Path)
			continue
		}

		if err := p.remove(f.Path, mode); err != nil {
			derr := &DeletionError{Path: f.Path, Mode: mode, Err: err}
			log.Warn("removal failed", "path", f.Path, "mode", mode.String(), "error", err)
			failures = append(failures, Failure{Path: f.Path, Err: derr})
			continue
		}
		log.Debug("removed", "path", f.Path, "mode", mode.String())
		removed++
	}

	if len(failures) > 0 {
		return removed, &PartialFailure{Succeeded: removed, Failures: failures}
	}
	return removed, nil
}

func (p *Pipeline) remove(path string, mode Mode) error {
	if mode == ModePermanent {
		return p.Fs.RemoveAll(path)
	}
	if p.Trash == nil {
		return ErrNoTrash
	}
	return p.Trash.Trash(path)
}

// lstat avoids following symlinks so a recorded link is removed rather than
// its target.
func (p *Pipeline) lstat(path string) (os.FileInfo, error) {
	if ls, ok := p.Fs.(afero.Lstater); ok {
		info, _, err := ls.LstatIfPossible(path)
		return info, err
	}
	return p.Fs.Stat(path)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// Job is an uninstall running on its own goroutine.
type Job struct {
	progress chan Progress
	done     chan struct{}
	removed  int
	err      error
}

// RunAsync starts Run in the background. The progress channel is buffered for
// every entry, so the removal never waits on a slow reader.
func (p *Pipeline) RunAsync(files []session.MonitoredFile, mode Mode) *Job {
	job := &Job{
		progress: make(chan Progress, len(files)),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(job.done)
		job.removed, job.err = p.Run(files, mode, func(pr Progress) {
			job.progress <- pr
		})
		close(job.progress)
	}()
	return job
}

// Progress returns the channel of progress updates. It is closed when the
// run finishes.
func (j *Job) Progress() <-chan Progress {
	return j.progress
}

// Wait blocks until the run finishes and returns its outcome.
func (j *Job) Wait() (int, error) {
	<-j.done
	return j.removed, j.err
}
