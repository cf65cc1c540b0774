package tracker

import (
	"github.com/fakeyudi/residue/internal/session"
	"github.com/fakeyudi/residue/internal/uninstall"
)

// Uninstall removes every file recorded by session id and, if all removals
// succeed, deletes the session. On a partial failure the session is kept so
// the remaining files can be retried.
func (t *Tracker) Uninstall(id string, mode uninstall.Mode, onProgress func(uninstall.Progress)) (int, error) {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	s, err := t.uninstallTarget(id)
	if err != nil {
		return 0, err
	}
	n, err := t.pipeline.Run(s.Files, mode, onProgress)
	if err != nil {
		t.logger.Warn("uninstall incomplete", "session", id, "count", n, "error", err)
		return n, err
	}
	t.finishUninstall(id, n)
	return n, nil
}

// UninstallJob is an uninstall running in the background.
type UninstallJob struct {
	*uninstall.Job
	done    chan struct{}
	removed int
	err     error
}

// Wait blocks until the files are removed and, on success, the session is
// deleted.
func (j *UninstallJob) Wait() (int, error) {
	<-j.done
	return j.removed, j.err
}

// UninstallAsync is Uninstall on a background goroutine. The session is
// checked before it returns.
func (t *Tracker) UninstallAsync(id string, mode uninstall.Mode) (*UninstallJob, error) {
	t.ctl.Lock()
	s, err := t.uninstallTarget(id)
	t.ctl.Unlock()
	if err != nil {
		return nil, err
	}

	job := &UninstallJob{Job: t.pipeline.RunAsync(s.Files, mode), done: make(chan struct{})}
	go func() {
		defer close(job.done)
		n, err := job.Job.Wait()
		job.removed, job.err = n, err
		if err != nil {
			t.logger.Warn("uninstall incomplete", "session", id, "count", n, "error", err)
			return
		}
		t.ctl.Lock()
		t.finishUninstall(id, n)
		t.ctl.Unlock()
	}()
	return job, nil
}

// uninstallTarget requires ctl. A session still marked active is refused even
// when this tracker is not running it, since another process may be.
func (t *Tracker) uninstallTarget(id string) (session.Session, error) {
	s, ok := t.Session(id)
	if !ok {
		return session.Session{}, ErrSessionNotFound
	}
	if s.Active {
		return session.Session{}, ErrSessionActive
	}
	return s, nil
}

// finishUninstall requires ctl.
func (t *Tracker) finishUninstall(id string, removed int) {
	t.mu.Lock()
	t.removeLocked(id)
	t.mu.Unlock()

	t.logger.Info("uninstall complete", "session", id, "count", removed)
	t.persist()
	t.notify()
}
