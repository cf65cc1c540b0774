package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"pgregory.net/rapid"

	"github.com/fakeyudi/residue/internal/session"
)

// generateTime produces an arbitrary time.Time value.
// Truncated to second precision and UTC so equality survives the JSON round-trip.
func generateTime(t *rapid.T, label string) time.Time {
	sec := rapid.Int64Range(0, 1_700_000_000).Draw(t, label)
	return time.Unix(sec, 0).UTC()
}

// generateFile produces an arbitrary MonitoredFile.
func generateFile(t *rapid.T, label string) session.MonitoredFile {
	cats := session.AllCategories()
	return session.MonitoredFile{
		ID:        rapid.StringMatching(`[a-f0-9]{8}`).Draw(t, label+"_id"),
		Path:      "/" + rapid.StringN(1, 100, -1).Draw(t, label+"_path"),
		Size:      rapid.Int64Range(0, 1<<40).Draw(t, label+"_size"),
		CreatedAt: generateTime(t, label+"_created"),
		Category:  rapid.SampledFrom(cats).Draw(t, label+"_category"),
	}
}

// generateSession produces an arbitrary Session value.
func generateSession(t *rapid.T, label string) session.Session {
	s := session.Session{
		ID:        rapid.StringN(1, 36, -1).Draw(t, label+"_id"),
		Name:      rapid.StringN(0, 60, -1).Draw(t, label+"_name"),
		StartTime: generateTime(t, label+"_start"),
		Active:    rapid.Bool().Draw(t, label+"_active"),
	}
	if !s.Active && rapid.Bool().Draw(t, label+"_has_end") {
		end := generateTime(t, label+"_end")
		s.EndTime = &end
	}
	n := rapid.IntRange(0, 5).Draw(t, label+"_num_files")
	s.Files = make([]session.MonitoredFile, n)
	for i := range s.Files {
		s.Files[i] = generateFile(t, label+"_file")
	}
	return s
}

func newTestStore(t *testing.T) session.Store {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store, err := session.NewSessionStore()
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	return store
}

// Feature: residue, Property 1: Session collection persistence round-trip
func TestSessionPersistenceRoundTrip(t *testing.T) {
	store := newTestStore(t)

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 4).Draw(t, "num_sessions")
		original := make([]session.Session, n)
		for i := range original {
			original[i] = generateSession(t, "session")
		}

		if err := store.Save(original); err != nil {
			t.Fatalf("Save: %v", err)
		}
		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}

		if len(loaded) != len(original) {
			t.Fatalf("session count mismatch: got %d, want %d", len(loaded), len(original))
		}
		for i, want := range original {
			got := loaded[i]
			if got.ID != want.ID || got.Name != want.Name || got.Active != want.Active {
				t.Errorf("session[%d] identity mismatch: got %+v, want %+v", i, got, want)
			}
			if !got.StartTime.Equal(want.StartTime) {
				t.Errorf("session[%d] StartTime mismatch: got %v, want %v", i, got.StartTime, want.StartTime)
			}
			if (got.EndTime == nil) != (want.EndTime == nil) {
				t.Errorf("session[%d] EndTime nil mismatch: got %v, want %v", i, got.EndTime, want.EndTime)
			} else if got.EndTime != nil && !got.EndTime.Equal(*want.EndTime) {
				t.Errorf("session[%d] EndTime mismatch: got %v, want %v", i, *got.EndTime, *want.EndTime)
			}
			if len(got.Files) != len(want.Files) {
				t.Fatalf("session[%d] file count mismatch: got %d, want %d", i, len(got.Files), len(want.Files))
			}
			if got.TotalSize() != want.TotalSize() {
				t.Errorf("session[%d] TotalSize mismatch: got %d, want %d", i, got.TotalSize(), want.TotalSize())
			}
			for j, wf := range want.Files {
				gf := got.Files[j]
				if gf.ID != wf.ID || gf.Path != wf.Path || gf.Size != wf.Size || gf.Category != wf.Category {
					t.Errorf("session[%d].Files[%d] mismatch: got %+v, want %+v", i, j, gf, wf)
				}
			}
		}
	})
}

// TestRoundTripTwoFileSession covers the concrete two-file case: id, name,
// active flag, file count and total size survive a save/load cycle.
func TestRoundTripTwoFileSession(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	s := session.NewSession("Foo installer", now)
	s.Files = append(s.Files,
		session.NewMonitoredFile("/Applications/Foo.app", 1024, session.CategoryApplication, now),
		session.NewMonitoredFile("/tmp/foo.pkg", 2048, session.CategoryTemporary, now),
	)

	if err := store.Save([]session.Session{s}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 session, got %d", len(loaded))
	}
	got := loaded[0]
	if got.ID != s.ID || got.Name != s.Name || got.Active != s.Active {
		t.Errorf("identity mismatch: got %+v, want %+v", got, s)
	}
	if len(got.Files) != 2 {
		t.Errorf("file count: got %d, want 2", len(got.Files))
	}
	if got.TotalSize() != 3072 {
		t.Errorf("TotalSize: got %d, want 3072", got.TotalSize())
	}
}

// TestLoadMissingFileReturnsEmpty verifies that Load on a fresh directory
// returns an empty collection and no error.
func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	sessions, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sessions == nil || len(sessions) != 0 {
		t.Errorf("expected empty non-nil collection, got %v", sessions)
	}
}

// TestLoadCorruptFileQuarantines verifies that a corrupt file yields an empty
// collection plus a *CorruptError, and that the original bytes are preserved.
func TestLoadCorruptFileQuarantines(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := session.NewStoreAt(fs, "/data")
	if err != nil {
		t.Fatalf("NewStoreAt: %v", err)
	}
	if err := afero.WriteFile(fs, "/data/sessions.json", []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	sessions, err := store.Load()
	if len(sessions) != 0 {
		t.Errorf("expected empty collection, got %d sessions", len(sessions))
	}
	var ce *session.CorruptError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CorruptError, got %T: %v", err, err)
	}
	if !strings.HasPrefix(ce.QuarantinePath, "/data/sessions.json.corrupt-") {
		t.Errorf("unexpected quarantine path %q", ce.QuarantinePath)
	}
	data, err := afero.ReadFile(fs, ce.QuarantinePath)
	if err != nil {
		t.Fatalf("reading quarantined file: %v", err)
	}
	if string(data) != "{not json" {
		t.Errorf("quarantined content changed: %q", data)
	}

	// The store is usable again after quarantine.
	if err := store.Save([]session.Session{session.NewSession("after", time.Now())}); err != nil {
		t.Fatalf("Save after quarantine: %v", err)
	}
}

// TestLoadUnknownCategoryIsCorrupt verifies that the closed category set is
// enforced when decoding.
func TestLoadUnknownCategoryIsCorrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := session.NewStoreAt(fs, "/data")
	if err != nil {
		t.Fatalf("NewStoreAt: %v", err)
	}
	raw := `[{"id":"a","name":"x","start_time":"2024-01-01T00:00:00Z","active":false,` +
		`"files":[{"id":"f","path":"/x","size":1,"created_at":"2024-01-01T00:00:00Z","category":"bogus"}]}]`
	if err := afero.WriteFile(fs, "/data/sessions.json", []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = store.Load()
	var ce *session.CorruptError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CorruptError, got %T: %v", err, err)
	}
}

// TestSaveLeavesNoTempFiles verifies the atomic write cleans up after itself.
func TestSaveLeavesNoTempFiles(t *testing.T) {
	tmp := t.TempDir()
	store, err := session.NewStoreAt(afero.NewOsFs(), tmp)
	if err != nil {
		t.Fatalf("NewStoreAt: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Save([]session.Session{session.NewSession("s", time.Now())}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "sessions.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only sessions.json, got %v", names)
	}
}

// TestNewStoreUnwritableDirectory verifies that creating a store under an
// unwritable directory fails.
func TestNewStoreUnwritableDirectory(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root; permission checks are ineffective")
	}

	tmp := t.TempDir()
	if err := os.Chmod(tmp, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(tmp, 0o755) })

	_, err := session.NewStoreAt(afero.NewOsFs(), filepath.Join(tmp, "residue"))
	if err == nil {
		t.Fatal("expected error creating store in unwritable directory, got nil")
	}
	if !errors.Is(err, session.ErrStoreCreateFailed) {
		t.Errorf("expected ErrStoreCreateFailed, got %v", err)
	}
}
