package baseline

import (
	"strings"
	"testing"
	"time"

	"driftwatch/internal/ledger"

	"github.com/spf13/afero"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newMemStore() *Store {
	return NewStoreWithFs(afero.NewMemMapFs(), "store")
}

func TestStore_SaveAndRoundTrip(t *testing.T) {
	s := newMemStore()

	path, err := s.Save("", "monday content", date("2025-06-02"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(path, "2025-06-02_Intelligence.md") {
		t.Errorf("unexpected snapshot path %s", path)
	}

	// A value saved under D must come back via FindNearestBefore(D') for
	// any D' > D with no intervening snapshot.
	snap, err := s.FindNearestBefore("", date("2025-06-09"))
	if err != nil {
		t.Fatalf("FindNearestBefore: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a baseline")
	}
	got, err := s.Read(*snap)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "monday content" {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestStore_SaveOverwritesSameDate(t *testing.T) {
	s := newMemStore()

	if _, err := s.Save("", "first", date("2025-06-02")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save("", "second", date("2025-06-02")); err != nil {
		t.Fatal(err)
	}

	snaps, err := s.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot after overwrite, got %d", len(snaps))
	}
	got, _ := s.Read(snaps[0])
	if got != "second" {
		t.Errorf("expected last writer to win, got %q", got)
	}
}

func TestStore_FindNearestBefore(t *testing.T) {
	s := newMemStore()
	for _, d := range []string{"2025-05-01", "2025-05-15", "2025-06-01"} {
		if _, err := s.Save("", "content "+d, date(d)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		ref  string
		want string // expected snapshot date, "" for none
	}{
		{"2025-06-10", "2025-06-01"},
		{"2025-06-01", "2025-05-15"}, // strictly before: same date excluded
		{"2025-05-15", "2025-05-01"},
		{"2025-05-01", ""},
		{"2025-04-01", ""},
	}
	for _, tc := range tests {
		snap, err := s.FindNearestBefore("", date(tc.ref))
		if err != nil {
			t.Fatalf("FindNearestBefore(%s): %v", tc.ref, err)
		}
		if tc.want == "" {
			if snap != nil {
				t.Errorf("FindNearestBefore(%s) = %v, want none", tc.ref, snap)
			}
			continue
		}
		if snap == nil {
			t.Errorf("FindNearestBefore(%s) = none, want %s", tc.ref, tc.want)
			continue
		}
		if snap.Date.Format("2006-01-02") != tc.want {
			t.Errorf("FindNearestBefore(%s) = %s, want %s", tc.ref, snap.Date.Format("2006-01-02"), tc.want)
		}
	}
}

func TestStore_FindNearestBeforeEmptyStore(t *testing.T) {
	s := newMemStore()
	snap, err := s.FindNearestBefore("", date("2025-06-01"))
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Errorf("expected none on empty store, got %v", snap)
	}
}

func TestStore_IgnoresNonMatchingFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStoreWithFs(fs, "store")

	if _, err := s.Save("", "real", date("2025-06-01")); err != nil {
		t.Fatal(err)
	}
	// Junk that must never be treated as a snapshot.
	afero.WriteFile(fs, "store/notes.txt", []byte("x"), 0644)
	afero.WriteFile(fs, "store/2025-06-02_Errors.json", []byte("{}"), 0644)
	afero.WriteFile(fs, "store/2025-13-99_Intelligence.md", []byte("bad date"), 0644)

	snaps, err := s.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d: %v", len(snaps), snaps)
	}
}

func TestStore_EntityNamespace(t *testing.T) {
	s := newMemStore()

	path, err := s.Save("Acme Corp", "acme text", date("2025-06-01"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(path, "Acme_Corp") {
		t.Errorf("entity dir should replace spaces: %s", path)
	}

	// Entity scopes are isolated from the shared store and each other.
	if snap, _ := s.FindNearestBefore("", date("2025-06-09")); snap != nil {
		t.Error("shared scope must not see entity snapshots")
	}
	if snap, _ := s.FindNearestBefore("Globex", date("2025-06-09")); snap != nil {
		t.Error("Globex scope must not see Acme snapshots")
	}
	snap, err := s.FindNearestBefore("Acme Corp", date("2025-06-09"))
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil {
		t.Fatal("expected Acme baseline")
	}
	if snap.Entity != "Acme Corp" {
		t.Errorf("snapshot entity = %q", snap.Entity)
	}
}

func TestStore_SaveErrorSummary(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStoreWithFs(fs, "store")

	sum := ledger.Summary{
		Total:     2,
		ByKind:    map[ledger.Kind]int{ledger.KindNetwork: 2},
		BySubject: map[string]int{"Acme Corp": 2},
	}
	path, err := s.SaveErrorSummary(sum, date("2025-06-01"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "2025-06-01_Errors.json") {
		t.Errorf("unexpected summary path %s", path)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"total": 2`, `"network": 2`, `"Acme Corp": 2`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("summary missing %q:\n%s", want, data)
		}
	}
}

func TestBaselineText(t *testing.T) {
	report := `# Competitive Intelligence Report

**Run date:** 2025-06-01
**Entities:** 2

## Acme Corp

Acme launched a new pricing page.

## Globex

No baseline available.
`
	got := BaselineText(report)
	if strings.Contains(got, "#") {
		t.Errorf("headings not stripped:\n%s", got)
	}
	if strings.Contains(got, "Run date") {
		t.Errorf("metadata not stripped:\n%s", got)
	}
	if !strings.Contains(got, "Acme launched a new pricing page.") {
		t.Errorf("body lost:\n%s", got)
	}
	if !strings.Contains(got, "No baseline available.") {
		t.Errorf("later sections lost:\n%s", got)
	}
}

func TestBaselineText_PlainContentPassesThrough(t *testing.T) {
	plain := "Just some fetched page text.\nSecond line."
	if got := BaselineText(plain); got != plain {
		t.Errorf("plain text mutated: %q", got)
	}
}

func TestBaselineText_FrontMatter(t *testing.T) {
	content := "---\ntitle: report\n---\n# Title\n\nBody line."
	got := BaselineText(content)
	if got != "Body line." {
		t.Errorf("BaselineText = %q, want %q", got, "Body line.")
	}
}
