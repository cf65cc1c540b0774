package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Category is the semantic kind of a recorded path.
type Category string

const (
	CategoryApplication Category = "application"
	CategorySupport     Category = "support"
	CategoryCache       Category = "cache"
	CategoryPreference  Category = "preference"
	CategoryLog         Category = "log"
	CategoryConfig      Category = "config"
	CategoryTemporary   Category = "temporary"
	CategoryOther       Category = "other"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryApplication,
		CategorySupport,
		CategoryCache,
		CategoryPreference,
		CategoryLog,
		CategoryConfig,
		CategoryTemporary,
		CategoryOther,
	}
}

// DisplayName is the heading used when files are grouped by category.
func (c Category) DisplayName() string {
	switch c {
	case CategoryApplication:
		return "Applications"
	case CategorySupport:
		return "Application Support"
	case CategoryCache:
		return "Caches"
	case CategoryPreference:
		return "Preferences"
	case CategoryLog:
		return "Logs"
	case CategoryConfig:
		return "Configuration Files"
	case CategoryTemporary:
		return "Temporary Files"
	default:
		return "Other Files"
	}
}

// Valid reports whether c is one of the eight known categories.
func (c Category) Valid() bool {
	for _, k := range AllCategories() {
		if c == k {
			return true
		}
	}
	return false
}

// UnmarshalText rejects unknown categories so a tampered session file is
// reported as corrupt instead of silently reclassified.
func (c *Category) UnmarshalText(text []byte) error {
	v := Category(text)
	if !v.Valid() {
		return fmt.Errorf("unknown file category %q", string(text))
	}
	*c = v
	return nil
}

// applicationDir pairs an applications directory with the suffix that marks a
// bundle inside it.
type applicationDir struct {
	marker string
	prefix bool // marker must be a path prefix rather than a substring
	suffix string
}

var applicationDirs = []applicationDir{
	{marker: "/Applications", prefix: true, suffix: ".app"},
	{marker: "/usr/share/applications", prefix: true, suffix: ".desktop"},
	{marker: "/.local/share/applications", suffix: ".desktop"},
}

// Checked in order; the first category with a matching marker wins.
var substringRules = []struct {
	category Category
	markers  []string
}{
	{CategorySupport, []string{"/Application Support", "/.local/share"}},
	{CategoryCache, []string{"/Caches", "/.cache"}},
	{CategoryPreference, []string{"/Preferences"}},
	{CategoryLog, []string{"/Logs", "/.local/state"}},
	{CategoryConfig, []string{"/.config"}},
}

var temporaryPrefixes = []string{"/tmp", "/private/tmp"}

// Classify maps an absolute path to its category. Rules are evaluated in a
// fixed order because a path can satisfy several of them.
func Classify(path string) Category {
	for _, d := range applicationDirs {
		var under bool
		if d.prefix {
			under = strings.HasPrefix(path, d.marker)
		} else {
			under = strings.Contains(path, d.marker)
		}
		if under && strings.HasSuffix(path, d.suffix) {
			return CategoryApplication
		}
	}

	for _, rule := range substringRules {
		for _, m := range rule.markers {
			if strings.Contains(path, m) {
				return rule.category
			}
		}
	}

	for _, p := range temporaryPrefixes {
		if strings.HasPrefix(path, p) {
			return CategoryTemporary
		}
	}
	if underTempDir(path) {
		return CategoryTemporary
	}
	return CategoryOther
}

// underTempDir reports whether path is inside the user's temporary directory,
// which honours $TMPDIR and so may live outside /tmp.
func underTempDir(path string) bool {
	dir := filepath.Clean(os.TempDir())
	if dir == string(filepath.Separator) || dir == "." {
		return false
	}
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
