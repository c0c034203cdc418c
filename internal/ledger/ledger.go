// Package ledger records, per field and test, whether a test's check held
// and rolls the outcomes up into one state per field.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Serdar715/xssdetective/internal/page"
)

// ErrStaleRun is returned when a result arrives for a run that was reset.
var ErrStaleRun = errors.New("result belongs to a previous run")

// ErrUnknownField is returned when recording for a field outside the run.
var ErrUnknownField = errors.New("field is not part of the run")

// State is a field's aggregate outcome.
type State int

const (
	// Pending means some dispatched test has not reported yet.
	Pending State = iota
	// Passed means every dispatched test reported true.
	Passed
	// Failed means at least one test reported false.
	Failed
)

func (s State) String() string {
	switch s {
	case Passed:
		return "PASSED"
	case Failed:
		return "FAILED"
	default:
		return "PENDING"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Generation identifies one run. Results carry the generation they were
// dispatched under.
type Generation uint64

// Notifier receives one line per recorded result.
type Notifier interface {
	AppendLogLine(line string)
}

// Entry is one recorded outcome.
type Entry struct {
	TestIndex int  `json:"test"`
	Passed    bool `json:"passed"`
}

// FieldResult is a field's outcomes in a snapshot.
type FieldResult struct {
	ID      page.FieldID `json:"id"`
	Name    string       `json:"name"`
	State   State        `json:"state"`
	Entries []Entry      `json:"entries"`
}

type fieldEntries struct {
	name    string
	results map[int]bool
}

// Ledger stores results of the current run. It is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	gen      Generation
	total    int
	order    []page.FieldID
	fields   map[page.FieldID]*fieldEntries
	notifier Notifier
}

// New creates an empty ledger reporting to notifier, which may be nil.
func New(notifier Notifier) *Ledger {
	return &Ledger{
		fields:   make(map[page.FieldID]*fieldEntries),
		notifier: notifier,
	}
}

// Reset clears every entry and starts a new run over targets with total
// dispatched tests per field. The returned generation must accompany every
// Record of the run.
func (l *Ledger) Reset(targets []page.Field, total int) Generation {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gen++
	l.total = total
	l.order = make([]page.FieldID, 0, len(targets))
	l.fields = make(map[page.FieldID]*fieldEntries, len(targets))
	for _, t := range targets {
		if _, dup := l.fields[t.ID]; dup {
			continue
		}
		l.order = append(l.order, t.ID)
		l.fields[t.ID] = &fieldEntries{name: t.DisplayName(), results: make(map[int]bool, total)}
	}
	return l.gen
}

// Generation returns the current run's generation.
func (l *Ledger) Generation() Generation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Record stores the outcome of test testIndex on field id and emits
// "<field-name> <PASSED|FAILED> test <index>". A repeated record overwrites
// the earlier one.
func (l *Ledger) Record(gen Generation, id page.FieldID, testIndex int, passed bool) error {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return fmt.Errorf("%w: generation %d, current %d", ErrStaleRun, gen, l.gen)
	}
	f, ok := l.fields[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	f.results[testIndex] = passed
	line := fmt.Sprintf("%s %s test %d", f.name, outcome(passed), testIndex)
	// lines go out in record order without holding mu during the call
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	if l.notifier != nil {
		l.notifier.AppendLogLine(line)
	}
	return nil
}

func outcome(passed bool) string {
	if passed {
		return Passed.String()
	}
	return Failed.String()
}

// Aggregate derives the state of field id from its entries.
func (l *Ledger) Aggregate(id page.FieldID) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.fields[id]
	if !ok {
		return Pending
	}
	return l.aggregateLocked(f)
}

func (l *Ledger) aggregateLocked(f *fieldEntries) State {
	for _, passed := range f.results {
		if !passed {
			return Failed
		}
	}
	if l.total > 0 && len(f.results) >= l.total {
		return Passed
	}
	return Pending
}

// Complete reports whether every field has an entry for every test.
func (l *Ledger) Complete() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.fields {
		if len(f.results) < l.total {
			return false
		}
	}
	return true
}

// Snapshot returns the run's results in target order.
func (l *Ledger) Snapshot() []FieldResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]FieldResult, 0, len(l.order))
	for _, id := range l.order {
		f := l.fields[id]
		entries := make([]Entry, 0, len(f.results))
		for idx, passed := range f.results {
			entries = append(entries, Entry{TestIndex: idx, Passed: passed})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].TestIndex < entries[j].TestIndex })
		out = append(out, FieldResult{
			ID:      id,
			Name:    f.name,
			State:   l.aggregateLocked(f),
			Entries: entries,
		})
	}
	return out
}
