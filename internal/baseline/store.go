// Package baseline persists dated intelligence snapshots and retrieves the
// most recent snapshot strictly before a reference date.
//
// The filename is the index: snapshots are named <YYYY-MM-DD>_Intelligence.md
// with a fixed-width zero-padded date, so lexicographic order equals
// chronological order. Lookups still go through an explicit parsed sort key
// rather than raw string comparison, so a format change cannot silently
// break ordering.
package baseline

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"driftwatch/internal/ledger"
	"driftwatch/internal/logging"

	"github.com/spf13/afero"
)

const (
	// SnapshotSuffix is the fixed suffix for dated report snapshots.
	SnapshotSuffix = "_Intelligence.md"

	// summarySuffix names the error-summary artifact saved next to a report.
	// It deliberately does not match the snapshot pattern, so summaries are
	// never picked up as baselines.
	summarySuffix = "_Errors.json"

	dateLayout = "2006-01-02"
)

// snapshotName matches <YYYY-MM-DD>_Intelligence.md exactly.
var snapshotName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_Intelligence\.md$`)

// Snapshot is one dated, immutable unit of persisted text.
type Snapshot struct {
	Date   time.Time
	Path   string
	Entity string // empty for the shared (run-level) store
}

// Store owns all persisted snapshot data. It is the only reader and writer
// of the file-backed store.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore creates a store rooted at the given directory on the OS
// filesystem.
func NewStore(root string) *Store {
	return NewStoreWithFs(afero.NewOsFs(), root)
}

// NewStoreWithFs creates a store over an arbitrary filesystem. Tests use
// an in-memory filesystem.
func NewStoreWithFs(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// dir returns the directory for an entity scope. Entity names keep their
// readable form in reports; on disk, spaces become underscores.
func (s *Store) dir(entity string) string {
	if entity == "" {
		return s.root
	}
	return filepath.Join(s.root, strings.ReplaceAll(entity, " ", "_"))
}

// Save writes content under the given date, creating missing directories
// and overwriting idempotently if a snapshot for the same date exists.
// Entity may be empty for the shared store. Returns the written path.
func (s *Store) Save(entity, content string, date time.Time) (string, error) {
	dir := s.dir(entity)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, date.Format(dateLayout)+SnapshotSuffix)
	if err := afero.WriteFile(s.fs, path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}

	logging.Store("Saved snapshot: %s (%d bytes)", path, len(content))
	return path, nil
}

// SaveErrorSummary persists the error-summary artifact for a run date.
func (s *Store) SaveErrorSummary(summary ledger.Summary, date time.Time) (string, error) {
	if err := s.fs.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("failed to create store directory %s: %w", s.root, err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode error summary: %w", err)
	}

	path := filepath.Join(s.root, date.Format(dateLayout)+summarySuffix)
	if err := afero.WriteFile(s.fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write error summary %s: %w", path, err)
	}

	logging.Store("Saved error summary: %s", path)
	return path, nil
}

// List returns all snapshots in an entity scope, oldest first.
// Files not matching the snapshot pattern are ignored.
func (s *Store) List(entity string) ([]Snapshot, error) {
	dir := s.dir(entity)
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if exists, _ := afero.DirExists(s.fs, dir); !exists {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read store directory %s: %w", dir, err)
	}

	var snaps []Snapshot
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		m := snapshotName.FindStringSubmatch(info.Name())
		if m == nil {
			continue
		}
		date, err := time.Parse(dateLayout, m[1])
		if err != nil {
			// Matched the pattern but not a real calendar date (e.g. month 13).
			logging.StoreDebug("Skipping snapshot with invalid date: %s", info.Name())
			continue
		}
		snaps = append(snaps, Snapshot{
			Date:   date,
			Path:   filepath.Join(dir, info.Name()),
			Entity: entity,
		})
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Date.Before(snaps[j].Date) })
	return snaps, nil
}

// FindNearestBefore returns the snapshot with the largest date strictly
// less than the reference date, or nil if none qualifies.
func (s *Store) FindNearestBefore(entity string, reference time.Time) (*Snapshot, error) {
	snaps, err := s.List(entity)
	if err != nil {
		return nil, err
	}

	refDay := reference.Format(dateLayout)
	ref, _ := time.Parse(dateLayout, refDay)

	var best *Snapshot
	for i := range snaps {
		if !snaps[i].Date.Before(ref) {
			continue
		}
		if best == nil || snaps[i].Date.After(best.Date) {
			best = &snaps[i]
		}
	}

	if best != nil {
		logging.StoreDebug("Nearest baseline before %s: %s", refDay, best.Path)
	} else {
		logging.StoreDebug("No baseline before %s in %s", refDay, s.dir(entity))
	}
	return best, nil
}

// Read returns the raw content of a snapshot.
func (s *Store) Read(snap Snapshot) (string, error) {
	data, err := afero.ReadFile(s.fs, snap.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot %s: %w", snap.Path, err)
	}
	return string(data), nil
}

// BaselineText extracts the comparison-relevant payload from stored
// content. The persisted artifact is usually the previous run's full
// report, so the leading metadata block and all heading lines are
// structural markup, not content.
func BaselineText(content string) string {
	lines := strings.Split(content, "\n")
	i := 0

	// YAML front matter, if any.
	if i < len(lines) && strings.TrimSpace(lines[i]) == "---" {
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "---" {
				i = j + 1
				break
			}
		}
	}

	// Title section: the leading heading plus its metadata lines.
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || isMetadataLine(trimmed) {
			i++
			continue
		}
		break
	}

	// Body: everything after the title section, minus heading lines.
	var body []string
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		body = append(body, lines[i])
	}

	return strings.TrimSpace(strings.Join(body, "\n"))
}

// isMetadataLine recognizes the emphasized key-value lines that open a
// report, e.g. "**Run date:** 2025-06-01".
func isMetadataLine(line string) bool {
	return strings.HasPrefix(line, "**") || strings.HasPrefix(line, "*") ||
		strings.HasPrefix(line, "---")
}
