// Package session holds the monitoring session model, the path classifier and
// the on-disk session store.
package session

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Session is one bounded monitoring interval and the files it discovered.
type Session struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Active    bool            `json:"active"`
	Files     []MonitoredFile `json:"files"`
}

// MonitoredFile is a single filesystem artifact recorded during a session.
// Records are never edited after creation.
type MonitoredFile struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"` // captured at flush time, not kept live
	CreatedAt time.Time `json:"created_at"`
	Category  Category  `json:"category"`
}

// NewSession returns an active session named name with a fresh id.
func NewSession(name string, now time.Time) Session {
	return Session{
		ID:        uuid.New().String(),
		Name:      name,
		StartTime: now,
		Active:    true,
		Files:     []MonitoredFile{},
	}
}

// NewMonitoredFile builds a record for path with a fresh id.
func NewMonitoredFile(path string, size int64, category Category, now time.Time) MonitoredFile {
	return MonitoredFile{
		ID:        uuid.New().String(),
		Path:      path,
		Size:      size,
		CreatedAt: now,
		Category:  category,
	}
}

// TotalSize is the sum of the recorded file sizes.
func (s *Session) TotalSize() int64 {
	var total int64
	for _, f := range s.Files {
		total += f.Size
	}
	return total
}

// FormattedSize renders TotalSize for humans, e.g. "3.6 kB".
func (s *Session) FormattedSize() string {
	return FormatBytes(s.TotalSize())
}

// HasPath reports whether path is already recorded in the session.
func (s *Session) HasPath(path string) bool {
	for _, f := range s.Files {
		if f.Path == path {
			return true
		}
	}
	return false
}

// Duration is the monitored interval. For a session without an end time it is
// measured up to now.
func (s *Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return end.Sub(s.StartTime)
}

// Clone returns a deep copy that shares no memory with s.
func (s Session) Clone() Session {
	c := s
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	c.Files = make([]MonitoredFile, len(s.Files))
	copy(c.Files, s.Files)
	return c
}

// CloneAll deep copies a session collection.
func CloneAll(sessions []Session) []Session {
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out
}

// FormatBytes renders a byte count with SI units.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
