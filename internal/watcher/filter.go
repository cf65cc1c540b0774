package watcher

import "strings"

// noiseMarkers are substrings that identify OS bookkeeping files. Any path that
// contains one of them is dropped before it reaches a session.
var noiseMarkers = []string{
	".DS_Store",
	".Spotlight-",
	".Trashes",
	"/.Trash/",
	"/.Trash-",
	"/.local/share/Trash/",
	"/.DocumentRevisions-",
	"/.fseventsd",
	"/com.apple.",
	"/.TemporaryItems",
	"/.apdisk",
	"/.git/",
}

const systemPrefix = "/System/"

// IsNoise reports whether path should be excluded from tracking. Directory
// markers also match the directory itself, so it is never watched.
func IsNoise(path string) bool {
	if strings.HasPrefix(path, systemPrefix) {
		return true
	}
	dir := path + "/"
	for _, m := range noiseMarkers {
		if strings.Contains(dir, m) {
			return true
		}
	}
	return false
}
