// Package pidfile guards against two monitors running at once and lets other
// commands find and signal the one that is running.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrAlreadyRunning is returned by Acquire while another monitor holds the lock.
	ErrAlreadyRunning = zerr.New("a monitoring session is already running")

	// ErrNotRunning is returned by Signal when no monitor holds the lock.
	ErrNotRunning = zerr.New("no monitoring session is running")

	// ErrBusy is returned while the lock is held by a command that is changing
	// the stored sessions.
	ErrBusy = zerr.New("another residue command is changing the stored sessions")
)

const fileName = "monitor.pid"

// Path returns the pid file location inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, fileName)
}

// Lock is held by the running monitor for its whole lifetime, or by a command
// that changes the stored sessions while it runs.
type Lock struct {
	f *os.File
}

// Acquire takes the lock at path and records the current pid in it.
func Acquire(path string) (*Lock, error) {
	return acquire(path, strconv.Itoa(os.Getpid())+"\n")
}

// Hold takes the lock at path without advertising a pid, so Running and Signal
// keep reporting that no monitor is live while it is held.
func Hold(path string) (*Lock, error) {
	return acquire(path, "")
}

func acquire(path, content string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, zerr.Wrap(err, "opening pid file")
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if errors.Is(err, errWouldBlock) {
			if pid, ok := readPID(path); ok {
				return nil, errors.Join(ErrAlreadyRunning, fmt.Errorf("held by pid %d", pid))
			}
			return nil, ErrBusy
		}
		return nil, zerr.Wrap(err, "locking pid file")
	}

	// A stale pid must never survive under a live lock.
	if err := f.Truncate(0); err != nil {
		unlockFile(f)
		f.Close()
		return nil, zerr.Wrap(err, "truncating pid file")
	}
	if content != "" {
		if _, err := f.WriteAt([]byte(content), 0); err != nil {
			unlockFile(f)
			f.Close()
			return nil, zerr.Wrap(err, "writing pid file")
		}
	}
	return &Lock{f: f}, nil
}

// Release drops the lock and removes the file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	path := l.f.Name()
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	unlockFile(l.f)
	err = errors.Join(err, l.f.Close())
	l.f = nil
	return err
}

// Running reports the pid of the monitor holding the lock at path.
func Running(path string) (int, bool) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	if err := lockFile(f); err == nil {
		// Nobody holds it; the file is left over from a crash.
		unlockFile(f)
		return 0, false
	}
	return readPID(path)
}

// Signal asks the running monitor to stop and returns its pid.
func Signal(path string) (int, error) {
	pid, ok := Running(path)
	if !ok {
		return 0, ErrNotRunning
	}
	if err := terminate(pid); err != nil {
		return pid, zerr.With(zerr.Wrap(err, "signalling monitor"), "pid", pid)
	}
	return pid, nil
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
