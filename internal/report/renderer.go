package report

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/residue/internal/session"
)

// ErrUnknownFormat is returned for a format name with no renderer.
var ErrUnknownFormat = zerr.New("unknown report format")

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
	// Ext is the file extension, including the dot.
	Ext() string
}

// RendererFor returns the renderer for "markdown", "json" or "yaml".
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "yaml", "yml":
		return &YAMLRenderer{}, nil
	}
	return nil, errors.Join(ErrUnknownFormat, fmt.Errorf("format %q", format))
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (*JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func (*JSONRenderer) Ext() string { return ".json" }

// YAMLRenderer renders a Report as YAML.
type YAMLRenderer struct{}

func (*YAMLRenderer) Render(r *Report) ([]byte, error) {
	return yaml.Marshal(r)
}

func (*YAMLRenderer) Ext() string { return ".yaml" }

const (
	versionSentinel = "<!-- residue-report-version: 1 -->"
	dataPrefix      = "<!-- residue-data: "
	dataSuffix      = " -->"
	timeLayout      = "2006-01-02 15:04:05"
)

// MarkdownRenderer renders a Report as human-readable Markdown with
// an embedded base64 JSON payload for lossless round-trip parsing.
type MarkdownRenderer struct{}

func (*MarkdownRenderer) Ext() string { return ".md" }

func (*MarkdownRenderer) Render(r *Report) ([]byte, error) {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder

	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	fmt.Fprintf(&sb, "# residue: %s\n\n", r.Session.Name)

	// ## Summary
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Session: `%s`\n", r.Session.ID)
	fmt.Fprintf(&sb, "- Status: %s\n", status(r.Session.Active))
	fmt.Fprintf(&sb, "- Started: %s\n", r.Session.StartTime.Format(timeLayout))
	if r.Session.EndTime != nil {
		fmt.Fprintf(&sb, "- Ended: %s\n", r.Session.EndTime.Format(timeLayout))
	}
	fmt.Fprintf(&sb, "- Duration: %s\n", r.Session.Duration)
	fmt.Fprintf(&sb, "- Files: %d (%s)\n", r.Session.FileCount, r.Session.FormattedSize)
	sb.WriteString("\n")

	// ## Files
	sb.WriteString("## Files\n\n")
	if len(r.Groups) == 0 {
		sb.WriteString("_No files recorded._\n\n")
	}
	for _, g := range r.Groups {
		fmt.Fprintf(&sb, "### %s (%d, %s)\n\n", g.Title, len(g.Files), session.FormatBytes(g.Size))
		sb.WriteString("| Path | Size | Recorded |\n")
		sb.WriteString("|------|------|----------|\n")
		for _, f := range g.Files {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n",
				escapeCell(f.Path),
				session.FormatBytes(f.Size),
				f.CreatedAt.Format(timeLayout),
			)
		}
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

func status(active bool) string {
	if active {
		return "monitoring"
	}
	return "stopped"
}

// escapeCell keeps a path from breaking the table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
