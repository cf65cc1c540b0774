// Package report turns a session into a shareable document and back.
package report

import (
	"time"

	"github.com/fakeyudi/residue/internal/session"
)

// Report is the complete, renderable representation of a session.
type Report struct {
	Session SessionMeta `json:"session" yaml:"session"`
	Groups  []Group     `json:"groups" yaml:"groups"`
}

// SessionMeta holds summary metadata about the session.
type SessionMeta struct {
	ID            string     `json:"id" yaml:"id"`
	Name          string     `json:"name" yaml:"name"`
	StartTime     time.Time  `json:"start_time" yaml:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Active        bool       `json:"active" yaml:"active"`
	Duration      string     `json:"duration" yaml:"duration"` // human-readable, e.g. "2m15s"
	FileCount     int        `json:"file_count" yaml:"file_count"`
	TotalSize     int64      `json:"total_size" yaml:"total_size"`
	FormattedSize string     `json:"formatted_size" yaml:"formatted_size"`
}

// Group is every file of one category.
type Group struct {
	Category session.Category `json:"category" yaml:"category"`
	Title    string           `json:"title" yaml:"title"`
	Size     int64            `json:"size" yaml:"size"`
	Files    []File           `json:"files" yaml:"files"`
}

// File is one recorded path.
type File struct {
	ID        string    `json:"id" yaml:"id"`
	Path      string    `json:"path" yaml:"path"`
	Size      int64     `json:"size" yaml:"size"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Build groups the session's files by category in display order. Empty
// categories are left out; files keep their recorded order.
func Build(s session.Session, now time.Time) *Report {
	r := &Report{
		Session: SessionMeta{
			ID:            s.ID,
			Name:          s.Name,
			StartTime:     s.StartTime,
			EndTime:       s.EndTime,
			Active:        s.Active,
			Duration:      s.Duration(now).Round(time.Second).String(),
			FileCount:     len(s.Files),
			TotalSize:     s.TotalSize(),
			FormattedSize: s.FormattedSize(),
		},
		Groups: []Group{},
	}

	for _, cat := range session.AllCategories() {
		g := Group{Category: cat, Title: cat.DisplayName()}
		for _, f := range s.Files {
			if f.Category != cat {
				continue
			}
			g.Files = append(g.Files, File{ID: f.ID, Path: f.Path, Size: f.Size, CreatedAt: f.CreatedAt})
			g.Size += f.Size
		}
		if len(g.Files) > 0 {
			r.Groups = append(r.Groups, g)
		}
	}
	return r
}

// ToSession rebuilds the session a report was made from. Files come back
// grouped by category rather than in their original order.
func (r *Report) ToSession() session.Session {
	s := session.Session{
		ID:        r.Session.ID,
		Name:      r.Session.Name,
		StartTime: r.Session.StartTime,
		EndTime:   r.Session.EndTime,
		Active:    r.Session.Active,
		Files:     []session.MonitoredFile{},
	}
	for _, g := range r.Groups {
		for _, f := range g.Files {
			s.Files = append(s.Files, session.MonitoredFile{
				ID:        f.ID,
				Path:      f.Path,
				Size:      f.Size,
				CreatedAt: f.CreatedAt,
				Category:  g.Category,
			})
		}
	}
	return s
}
