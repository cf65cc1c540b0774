package tracker

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/fakeyudi/residue/internal/session"
)

const eventBuffer = 1024

// runLoop is the per-session goroutine that owns the pending event set. The
// watcher callback only ever sends on events.
type runLoop struct {
	id      string
	watcher Watcher

	events  chan string
	flushCh chan chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func newRunLoop(id string) *runLoop {
	return &runLoop{
		id:      id,
		events:  make(chan string, eventBuffer),
		flushCh: make(chan chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// halt asks the loop to drain, flush one last time and exit, and waits for it.
func (r *runLoop) halt() {
	close(r.stop)
	<-r.done
}

// flush asks the loop to record everything queued so far and waits for it.
// It returns false if the loop has already exited.
func (r *runLoop) flush() bool {
	ack := make(chan struct{})
	select {
	case r.flushCh <- ack:
		<-ack
		return true
	case <-r.done:
		return false
	}
}

// pendingSet keeps paths in arrival order without duplicates.
type pendingSet struct {
	order []string
	seen  map[string]struct{}
}

func (p *pendingSet) add(path string) {
	if p.seen == nil {
		p.seen = map[string]struct{}{}
	}
	if _, ok := p.seen[path]; ok {
		return
	}
	p.seen[path] = struct{}{}
	p.order = append(p.order, path)
}

func (p *pendingSet) take() []string {
	out := p.order
	p.order = nil
	p.seen = nil
	return out
}

func (t *Tracker) loop(r *runLoop, known map[string]struct{}) {
	defer close(r.done)

	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	var pending pendingSet
	drain := func() {
		for {
			select {
			case p := <-r.events:
				pending.add(p)
			default:
				return
			}
		}
	}

	for {
		select {
		case p := <-r.events:
			pending.add(p)
		case <-ticker.C:
			t.flush(r.id, pending.take(), known)
		case ack := <-r.flushCh:
			drain()
			t.flush(r.id, pending.take(), known)
			close(ack)
		case <-r.stop:
			ticker.Stop()
			drain()
			t.flush(r.id, pending.take(), known)
			return
		}
	}
}

// flush turns pending paths into file records on session id. Paths that are
// already recorded or no longer exist are dropped. Only the run loop calls it.
func (t *Tracker) flush(id string, paths []string, known map[string]struct{}) {
	if len(paths) == 0 {
		return
	}

	now := t.now()
	batch := make([]session.MonitoredFile, 0, len(paths))
	for _, p := range paths {
		if _, ok := known[p]; ok {
			continue
		}
		info, err := lstat(t.fs, p)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				t.logger.Debug("cannot stat path", "path", p, "error", err)
			}
			continue
		}
		batch = append(batch, session.NewMonitoredFile(p, info.Size(), session.Classify(p), now))
		known[p] = struct{}{}
	}
	if len(batch) == 0 {
		return
	}

	t.mu.Lock()
	i := t.indexLocked(id)
	added := 0
	if i >= 0 {
		for _, f := range batch {
			if !t.sessions[i].HasPath(f.Path) {
				t.sessions[i].Files = append(t.sessions[i].Files, f)
				added++
			}
		}
	}
	t.mu.Unlock()
	if added == 0 {
		return
	}

	t.logger.Info("recorded files", "session", id, "count", added)
	t.persist()
	t.notify()
}

func lstat(fsys afero.Fs, path string) (os.FileInfo, error) {
	if ls, ok := fsys.(afero.Lstater); ok {
		info, _, err := ls.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}

// flushNow records everything queued for the running session.
func (t *Tracker) flushNow() {
	t.ctl.Lock()
	r := t.run
	t.ctl.Unlock()
	if r != nil {
		r.flush()
	}
}
