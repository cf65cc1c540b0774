package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
	"go.trai.ch/zerr"
)

const sessionsFileName = "sessions.json"

// Store persists the whole session collection.
type Store interface {
	// Save replaces the stored collection with sessions.
	Save(sessions []Session) error
	// Load returns the stored collection. A missing file yields an empty
	// collection; a corrupt one yields an empty collection and a *CorruptError.
	Load() ([]Session, error)
}

// diskStore is the concrete Store that writes a single JSON file.
type diskStore struct {
	fs   afero.Fs
	path string // full path to sessions.json
	mu   sync.Mutex
}

// NewSessionStore returns a Store backed by the XDG data directory.
// Path: $XDG_DATA_HOME/residue/sessions.json or ~/.local/share/residue/sessions.json
func NewSessionStore() (Store, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, zerr.Wrap(err, "resolving data directory")
	}
	return NewStoreAt(afero.NewOsFs(), dir)
}

// NewStoreAt returns a Store that keeps its file in dir on fs.
func NewStoreAt(fs afero.Fs, dir string) (Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Join(ErrStoreCreateFailed, err)
	}
	return &diskStore{fs: fs, path: filepath.Join(dir, sessionsFileName)}, nil
}

// DataDir returns the residue-specific XDG data directory.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "residue"), nil
}

// Save marshals sessions to JSON and writes them atomically via a temp file
// and a rename in the same directory.
func (d *diskStore) Save(sessions []Session) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if sessions == nil {
		sessions = []Session{}
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}

	tmp, err := afero.TempFile(d.fs, filepath.Dir(d.path), "sessions-*.json.tmp")
	if err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = d.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Join(ErrStoreWriteFailed, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Join(ErrStoreWriteFailed, err)
	}
	if err = tmp.Close(); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}

	// Renames can fail transiently while another process holds the target
	// open (antivirus, indexers); retry a couple of times before giving up.
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 20 * time.Millisecond
	eb.MaxInterval = 200 * time.Millisecond
	if err = backoff.Retry(func() error {
		return d.fs.Rename(tmpName, d.path)
	}, backoff.WithMaxRetries(eb, 2)); err != nil {
		return errors.Join(ErrStoreWriteFailed, err)
	}
	return nil
}

// Load reads and unmarshals the sessions file.
func (d *diskStore) Load() ([]Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := afero.ReadFile(d.fs, d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Session{}, nil
		}
		return []Session{}, errors.Join(ErrStoreReadFailed, err)
	}

	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return []Session{}, d.quarantine(err)
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

// quarantine moves an undecodable sessions file aside so the next Save does
// not overwrite the only copy of the user's data.
func (d *diskStore) quarantine(cause error) error {
	ce := &CorruptError{Path: d.path, Err: cause}
	dst := d.path + ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
	if err := d.fs.Rename(d.path, dst); err == nil {
		ce.QuarantinePath = dst
	}
	return ce
}
