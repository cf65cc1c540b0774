package report_test

import (
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/residue/internal/report"
	"github.com/fakeyudi/residue/internal/session"
)

// generateTime produces an arbitrary time.Time value truncated to second
// precision (matches JSON round-trip fidelity via RFC3339).
func generateTime(t *rapid.T, label string) time.Time {
	sec := rapid.Int64Range(1_000_000_000, 1_700_000_000).Draw(t, label+"_unix_sec")
	return time.Unix(sec, 0).UTC()
}

// generateSession produces a stopped session with at least one file.
func generateSession(t *rapid.T) session.Session {
	start := generateTime(t, "start")
	end := start.Add(time.Duration(rapid.IntRange(0, 7200).Draw(t, "secs")) * time.Second)
	s := session.Session{
		ID:        rapid.StringMatching(`[a-f0-9-]{36}`).Draw(t, "id"),
		Name:      rapid.StringMatching(`[a-zA-Z0-9 ._-]{1,40}`).Draw(t, "name"),
		StartTime: start,
		EndTime:   &end,
	}
	n := rapid.IntRange(1, 10).Draw(t, "num_files")
	for i := 0; i < n; i++ {
		s.Files = append(s.Files, session.MonitoredFile{
			ID:        rapid.StringMatching(`[a-f0-9]{8}`).Draw(t, "file_id"),
			Path:      "/" + rapid.StringMatching(`[a-zA-Z0-9 ._/-]{1,40}`).Draw(t, "path"),
			Size:      rapid.Int64Range(0, 1<<30).Draw(t, "size"),
			CreatedAt: generateTime(t, "created"),
			Category:  rapid.SampledFrom(session.AllCategories()).Draw(t, "category"),
		})
	}
	return s
}

func sampleSession() session.Session {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	return session.Session{
		ID:        "3f1c2a9e-0000-4000-8000-000000000001",
		Name:      "Foo installer",
		StartTime: start,
		EndTime:   &end,
		Files: []session.MonitoredFile{
			{ID: "a", Path: "/tmp/foo.pkg", Size: 2048, CreatedAt: start, Category: session.CategoryTemporary},
			{ID: "b", Path: "/Applications/Foo.app", Size: 1024, CreatedAt: start, Category: session.CategoryApplication},
			{ID: "c", Path: "/Users/u/Library/Caches/foo", Size: 10, CreatedAt: start, Category: session.CategoryCache},
		},
	}
}

func TestBuildGroupsInDisplayOrder(t *testing.T) {
	r := report.Build(sampleSession(), time.Now())

	if len(r.Groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(r.Groups))
	}
	want := []session.Category{session.CategoryApplication, session.CategoryCache, session.CategoryTemporary}
	for i, c := range want {
		if r.Groups[i].Category != c {
			t.Errorf("group %d: got %s, want %s", i, r.Groups[i].Category, c)
		}
	}
	if r.Session.FileCount != 3 || r.Session.TotalSize != 3082 {
		t.Errorf("unexpected totals: %+v", r.Session)
	}
	if r.Session.Duration != "1m30s" {
		t.Errorf("Duration: got %q", r.Session.Duration)
	}
}

func TestMarkdownRendererSections(t *testing.T) {
	out, err := (&report.MarkdownRenderer{}).Render(report.Build(sampleSession(), time.Now()))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	md := string(out)
	for _, want := range []string{
		"<!-- residue-report-version: 1 -->",
		"# residue: Foo installer",
		"## Summary",
		"- Status: stopped",
		"### Applications (1, 1.0 kB)",
		"### Temporary Files (1, 2.0 kB)",
		"| /Applications/Foo.app | 1.0 kB |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownRendererEmptySession(t *testing.T) {
	s := session.NewSession("empty", time.Now())
	out, err := (&report.MarkdownRenderer{}).Render(report.Build(s, time.Now()))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(out), "_No files recorded._") {
		t.Error("expected empty-state text")
	}
}

// Feature: residue, Property 7: Report round-trip through every format
func TestReportRoundTrip(t *testing.T) {
	formats := []string{"markdown", "json", "yaml"}

	rapid.Check(t, func(t *rapid.T) {
		s := generateSession(t)
		format := rapid.SampledFrom(formats).Draw(t, "format")

		renderer, err := report.RendererFor(format)
		if err != nil {
			t.Fatalf("RendererFor(%s): %v", format, err)
		}
		data, err := renderer.Render(report.Build(s, time.Now()))
		if err != nil {
			t.Fatalf("Render: %v", err)
		}

		parsed, err := report.ParserFor("report"+renderer.Ext(), data).Parse(data)
		if err != nil {
			t.Fatalf("Parse(%s): %v", format, err)
		}
		got := parsed.ToSession()

		if got.ID != s.ID || got.Name != s.Name {
			t.Fatalf("identity mismatch: got %q/%q, want %q/%q", got.ID, got.Name, s.ID, s.Name)
		}
		if !got.StartTime.Equal(s.StartTime) || got.EndTime == nil || !got.EndTime.Equal(*s.EndTime) {
			t.Fatalf("time mismatch: got %v-%v", got.StartTime, got.EndTime)
		}
		if len(got.Files) != len(s.Files) || got.TotalSize() != s.TotalSize() {
			t.Fatalf("files mismatch: got %d (%d bytes), want %d (%d bytes)",
				len(got.Files), got.TotalSize(), len(s.Files), s.TotalSize())
		}

		counts := map[string]int{}
		for _, f := range s.Files {
			counts[f.ID+"|"+f.Path+"|"+string(f.Category)]++
		}
		for _, f := range got.Files {
			counts[f.ID+"|"+f.Path+"|"+string(f.Category)]--
		}
		for k, v := range counts {
			if v != 0 {
				t.Fatalf("file %q count off by %d", k, v)
			}
		}
	})
}

func TestRendererForUnknown(t *testing.T) {
	if _, err := report.RendererFor("pdf"); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestParserForSniffsContent(t *testing.T) {
	if _, ok := report.ParserFor("r.txt", []byte("  {\"session\":{}}")).(*report.JSONParser); !ok {
		t.Error("expected JSON parser for a brace-prefixed body")
	}
	if _, ok := report.ParserFor("r", []byte("<!-- residue-report-version: 1 -->\n")).(*report.MarkdownParser); !ok {
		t.Error("expected Markdown parser for the sentinel")
	}
	if _, ok := report.ParserFor("r", []byte("session:\n  id: x\n")).(*report.YAMLParser); !ok {
		t.Error("expected YAML parser as the fallback")
	}
}
