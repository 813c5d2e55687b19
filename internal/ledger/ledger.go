// Package ledger is the process-scoped, append-only failure record for one
// orchestrator run. Every failure path in the pipeline appends exactly one
// record; nothing fails silently.
package ledger

import (
	"sync"
	"time"
)

// Kind buckets failures by where in the pipeline they occurred.
type Kind string

const (
	// KindConfiguration is bad or missing run input. Aborts the whole run
	// before any entity work starts.
	KindConfiguration Kind = "configuration"

	// KindNetwork is a fetch or extraction failure, scoped to one entity.
	KindNetwork Kind = "network"

	// KindExecution is any other unexpected per-entity failure, caught and
	// converted into a failed entity result.
	KindExecution Kind = "execution"

	// KindReport is a failure to persist the compiled report. The in-memory
	// report is still returned to the caller.
	KindReport Kind = "report"
)

// Record is one immutable failure entry.
type Record struct {
	Timestamp time.Time         `json:"timestamp"`
	Kind      Kind              `json:"kind"`
	Message   string            `json:"message"`
	Subject   string            `json:"subject,omitempty"` // entity name, when scoped
	Context   map[string]string `json:"context,omitempty"`
}

// Summary aggregates ledger contents for the error-summary artifact.
type Summary struct {
	Total     int            `json:"total"`
	ByKind    map[Kind]int   `json:"by_kind"`
	BySubject map[string]int `json:"by_subject"`
}

// Filter narrows Query results. Zero values match everything.
type Filter struct {
	Kind    Kind
	Subject string
}

// Ledger is an append-only error record. Safe for concurrent appends; the
// orchestrator may fan entities out in parallel.
type Ledger struct {
	mu      sync.Mutex
	records []Record

	now func() time.Time // test seam
}

// New creates an empty ledger scoped to one orchestrator instance.
func New() *Ledger {
	return &Ledger{now: time.Now}
}

// Append records a failure. It always succeeds.
func (l *Ledger) Append(kind Kind, message, subject string, context map[string]string) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Timestamp: l.now(),
		Kind:      kind,
		Message:   message,
		Subject:   subject,
		Context:   context,
	}
	l.records = append(l.records, rec)
	return rec
}

// Query returns matching records in insertion order.
func (l *Ledger) Query(f Filter) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Record
	for _, rec := range l.records {
		if f.Kind != "" && rec.Kind != f.Kind {
			continue
		}
		if f.Subject != "" && rec.Subject != f.Subject {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// All returns every record in insertion order.
func (l *Ledger) All() []Record {
	return l.Query(Filter{})
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Summarize counts records grouped by kind and by subject.
func (l *Ledger) Summarize() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{
		Total:     len(l.records),
		ByKind:    make(map[Kind]int),
		BySubject: make(map[string]int),
	}
	for _, rec := range l.records {
		s.ByKind[rec.Kind]++
		if rec.Subject != "" {
			s.BySubject[rec.Subject]++
		}
	}
	return s
}

// Clear resets the ledger. The only mutation besides Append; intended for
// reuse between independent runs and in tests.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}
