package watcher

import (
	"os"
	"path/filepath"
)

// DefaultRoots returns the directories installers usually write to on goos,
// with user-relative entries resolved against home.
func DefaultRoots(home, goos string) []string {
	if goos == "darwin" {
		lib := filepath.Join(home, "Library")
		return []string{
			"/Applications",
			filepath.Join(lib, "Application Support"),
			filepath.Join(lib, "Caches"),
			filepath.Join(lib, "Preferences"),
			filepath.Join(lib, "Logs"),
			filepath.Join(lib, "WebKit"),
			filepath.Join(home, ".config"),
			"/tmp",
		}
	}

	// XDG layout. ~/.local/share/applications is listed first even though
	// ~/.local/share covers it, so it is registered when .local/share itself
	// is unreadable.
	return []string{
		filepath.Join(home, ".local", "share", "applications"),
		filepath.Join(home, ".local", "share"),
		filepath.Join(home, ".cache"),
		filepath.Join(home, ".config"),
		filepath.Join(home, ".local", "state"),
		os.TempDir(),
	}
}
