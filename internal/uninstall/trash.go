package uninstall

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"go.trai.ch/zerr"
)

// Trasher moves a path somewhere the user can restore it from.
type Trasher interface {
	Trash(path string) error
}

// NewTrash returns the trash for goos: ~/.Trash on darwin and the freedesktop
// trash under $XDG_DATA_HOME (or ~/.local/share) elsewhere.
func NewTrash(fsys afero.Fs, home, goos string) Trasher {
	if goos == "darwin" {
		return &MacTrash{Fs: fsys, Dir: filepath.Join(home, ".Trash")}
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	return &FreedesktopTrash{Fs: fsys, Dir: filepath.Join(dataHome, "Trash")}
}

// MacTrash moves paths into a flat trash directory.
type MacTrash struct {
	Fs  afero.Fs
	Dir string
}

func (t *MacTrash) Trash(path string) error {
	if err := t.Fs.MkdirAll(t.Dir, 0o700); err != nil {
		return zerr.Wrap(err, "creating trash directory")
	}
	name := uniqueName(t.Fs, filepath.Base(path), func(n string) []string {
		return []string{filepath.Join(t.Dir, n)}
	})
	return move(t.Fs, path, filepath.Join(t.Dir, name))
}

// FreedesktopTrash implements the XDG trash layout: the item goes to
// files/<name> and its origin is recorded in info/<name>.trashinfo.
type FreedesktopTrash struct {
	Fs  afero.Fs
	Dir string
	Now func() time.Time
}

const trashInfoTimeLayout = "2006-01-02T15:04:05"

func (t *FreedesktopTrash) Trash(path string) error {
	filesDir := filepath.Join(t.Dir, "files")
	infoDir := filepath.Join(t.Dir, "info")
	for _, d := range []string{filesDir, infoDir} {
		if err := t.Fs.MkdirAll(d, 0o700); err != nil {
			return zerr.Wrap(err, "creating trash directory")
		}
	}

	name := uniqueName(t.Fs, filepath.Base(path), func(n string) []string {
		return []string{filepath.Join(filesDir, n), filepath.Join(infoDir, n+".trashinfo")}
	})
	infoPath := filepath.Join(infoDir, name+".trashinfo")

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: path}).EscapedPath(), now().Format(trashInfoTimeLayout))
	if err := afero.WriteFile(t.Fs, infoPath, []byte(info), 0o600); err != nil {
		return zerr.Wrap(err, "writing trash info")
	}

	if err := move(t.Fs, path, filepath.Join(filesDir, name)); err != nil {
		// The trashed copy needs its info record to stay restorable.
		if !errors.Is(err, ErrPartlyTrashed) {
			_ = t.Fs.Remove(infoPath)
		}
		return err
	}
	return nil
}

// uniqueName returns base, or base with a numeric suffix, such that none of
// the paths produced by targets exist yet.
func uniqueName(fsys afero.Fs, base string, targets func(string) []string) string {
	taken := func(n string) bool {
		for _, p := range targets(n) {
			if ok, _ := afero.Exists(fsys, p); ok {
				return true
			}
		}
		return false
	}

	if !taken(base) {
		return base
	}
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	for i := 2; ; i++ {
		n := stem + " " + strconv.Itoa(i) + ext
		if !taken(n) {
			return n
		}
	}
}

// move renames src to dst, falling back to copy and remove when the rename
// fails, e.g. across filesystems. dst is only rolled back while src is still
// intact; once the copy is complete it is never removed.
func move(fsys afero.Fs, src, dst string) error {
	renameErr := fsys.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	if err := copyTree(fsys, src, dst); err != nil {
		_ = fsys.RemoveAll(dst)
		return errors.Join(renameErr, err)
	}
	if err := fsys.RemoveAll(src); err != nil {
		return errors.Join(ErrPartlyTrashed, fmt.Errorf("copy kept at %s", dst), err)
	}
	return nil
}

func copyTree(fsys afero.Fs, src, dst string) error {
	return afero.Walk(fsys, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fsys.MkdirAll(target, info.Mode().Perm())
		}
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		return afero.WriteFile(fsys, target, data, info.Mode().Perm())
	})
}
