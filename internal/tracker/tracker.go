// Package tracker owns the session collection: it starts and stops monitoring,
// turns watcher events into file records, persists every change and drives
// uninstalls.
package tracker

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/fakeyudi/residue/internal/session"
	"github.com/fakeyudi/residue/internal/uninstall"
	"github.com/fakeyudi/residue/internal/watcher"
)

// Tracker is safe for concurrent use.
type Tracker struct {
	store         session.Store
	fs            afero.Fs
	logger        *slog.Logger
	now           func() time.Time
	flushInterval time.Duration
	newWatcher    WatcherFactory
	pipeline      *uninstall.Pipeline
	excluded      []string

	// ctl serializes lifecycle operations. It is always taken before mu.
	ctl    sync.Mutex
	run    *runLoop
	closed bool

	mu       sync.RWMutex
	sessions []session.Session // newest first
	activeID string

	saveMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]chan []session.Session
	nextSub int
}

// New loads the stored sessions and returns a tracker with no session running.
// A corrupt store is logged and replaced by an empty collection; any other
// read failure is returned so existing data is never overwritten.
func New(store session.Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store:         store,
		fs:            afero.NewOsFs(),
		logger:        slog.New(slog.DiscardHandler),
		now:           time.Now,
		flushInterval: DefaultFlushInterval,
		subs:          map[int]chan []session.Session{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.newWatcher == nil {
		logger := t.logger
		t.newWatcher = func() Watcher { return watcher.New(watcher.WithLogger(logger)) }
	}
	if t.pipeline == nil {
		t.pipeline = uninstall.NewPipeline(t.fs, t.logger)
	}

	sessions, err := store.Load()
	if err != nil {
		var ce *session.CorruptError
		if !errors.As(err, &ce) {
			return nil, err
		}
		t.logger.Error("session store is corrupt, starting empty",
			"path", ce.Path, "quarantine", ce.QuarantinePath, "error", ce.Err)
	}
	t.sessions = sessions
	return t, nil
}

// StartSession stops any running session, then begins monitoring a new one
// named name. It returns the new session's id. If the watcher cannot start,
// the new session is discarded; a session stopped on the way stays stopped.
func (t *Tracker) StartSession(name string) (string, error) {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	if t.closed {
		return "", ErrClosed
	}
	t.stopLocked()

	s := session.NewSession(name, t.now())
	t.mu.Lock()
	t.sessions = append([]session.Session{s}, t.sessions...)
	t.activeID = s.ID
	t.mu.Unlock()

	r := newRunLoop(s.ID)
	go t.loop(r, map[string]struct{}{})

	w := t.newWatcher()
	err := w.Start(func(path string, kind watcher.EventKind) {
		if (kind == watcher.Created || kind == watcher.Modified) && !t.isExcluded(path) {
			r.events <- path
		}
	})
	if err != nil {
		r.halt()
		t.mu.Lock()
		t.removeLocked(s.ID)
		t.activeID = ""
		t.mu.Unlock()
		t.logger.Error("session start failed", "session", s.ID, "error", err)
		return "", errors.Join(ErrStartFailed, err)
	}
	r.watcher = w
	t.run = r

	t.logger.Info("session started", "session", s.ID, "name", name)
	t.persist()
	t.notify()
	return s.ID, nil
}

// StopSession ends the running session, if any. Events already queued are
// recorded before it returns.
func (t *Tracker) StopSession() {
	t.ctl.Lock()
	defer t.ctl.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	r := t.run
	if r == nil {
		return
	}
	r.watcher.Stop()
	r.halt()
	t.run = nil

	end := t.now()
	t.mu.Lock()
	if i := t.indexLocked(r.id); i >= 0 {
		t.sessions[i].Active = false
		t.sessions[i].EndTime = &end
	}
	t.activeID = ""
	t.mu.Unlock()

	t.logger.Info("session stopped", "session", r.id)
	t.persist()
	t.notify()
}

// DeleteSession removes a session and its records, stopping it first if it is
// running. Files on disk are left alone.
func (t *Tracker) DeleteSession(id string) error {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	if t.run != nil && t.run.id == id {
		t.stopLocked()
	}

	t.mu.Lock()
	ok := t.removeLocked(id)
	t.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	t.logger.Info("session deleted", "session", id)
	t.persist()
	t.notify()
	return nil
}

// Sessions returns a copy of every session, newest first.
func (t *Tracker) Sessions() []session.Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return session.CloneAll(t.sessions)
}

// Session returns a copy of the session with the given id.
func (t *Tracker) Session(id string) (session.Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexLocked(id); i >= 0 {
		return t.sessions[i].Clone(), true
	}
	return session.Session{}, false
}

// Active returns a copy of the running session.
func (t *Tracker) Active() (session.Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.activeID == "" {
		return session.Session{}, false
	}
	if i := t.indexLocked(t.activeID); i >= 0 {
		return t.sessions[i].Clone(), true
	}
	return session.Session{}, false
}

// Subscribe returns a channel that receives the full collection after every
// change, starting with the current one. Only the newest value is kept for a
// slow reader. The returned func unsubscribes and closes the channel.
func (t *Tracker) Subscribe() (<-chan []session.Session, func()) {
	ch := make(chan []session.Session, 1)

	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	ch <- t.Sessions()
	t.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.subMu.Lock()
			defer t.subMu.Unlock()
			if c, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(c)
			}
		})
	}
}

// Recover finalizes sessions that were stored as active by a process that
// exited without stopping them. The end time is the latest file record, or
// the start time for an empty session. It returns how many were fixed.
func (t *Tracker) Recover() int {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	running := ""
	if t.run != nil {
		running = t.run.id
	}

	n := 0
	t.mu.Lock()
	for i := range t.sessions {
		s := &t.sessions[i]
		if !s.Active || s.ID == running {
			continue
		}
		end := s.StartTime
		for _, f := range s.Files {
			if f.CreatedAt.After(end) {
				end = f.CreatedAt
			}
		}
		s.Active = false
		s.EndTime = &end
		n++
		t.logger.Warn("recovered interrupted session", "session", s.ID, "files", len(s.Files))
	}
	t.mu.Unlock()

	if n > 0 {
		t.persist()
		t.notify()
	}
	return n
}

// Close stops the running session and closes every subscription.
func (t *Tracker) Close() {
	t.ctl.Lock()
	defer t.ctl.Unlock()
	if t.closed {
		return
	}
	t.stopLocked()
	t.closed = true

	t.subMu.Lock()
	for id, c := range t.subs {
		delete(t.subs, id)
		close(c)
	}
	t.subMu.Unlock()
}

// indexLocked requires mu.
func (t *Tracker) indexLocked(id string) int {
	for i := range t.sessions {
		if t.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// removeLocked requires mu.
func (t *Tracker) removeLocked(id string) bool {
	i := t.indexLocked(id)
	if i < 0 {
		return false
	}
	t.sessions = append(t.sessions[:i], t.sessions[i+1:]...)
	return true
}

// persist writes the collection as it is when the save lock is acquired, so a
// slower caller can never write an older snapshot over a newer one.
func (t *Tracker) persist() {
	t.saveMu.Lock()
	defer t.saveMu.Unlock()
	if err := t.store.Save(t.Sessions()); err != nil {
		t.logger.Error("failed to persist sessions", "error", err)
	}
}

func (t *Tracker) notify() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	if len(t.subs) == 0 {
		return
	}
	for _, c := range t.subs {
		snap := t.Sessions()
		select {
		case c <- snap:
			continue
		default:
		}
		// Replace the unread value.
		select {
		case <-c:
		default:
		}
		select {
		case c <- snap:
		default:
		}
	}
}

func (t *Tracker) isExcluded(path string) bool {
	for _, d := range t.excluded {
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
