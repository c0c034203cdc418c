// Package selection tracks which fields and tests the next run covers.
package selection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Serdar715/xssdetective/internal/catalog"
	"github.com/Serdar715/xssdetective/internal/page"
)

var (
	// ErrNoInputs is returned by SelectAll on a page without usable fields
	ErrNoInputs = errors.New("No inputs found!")

	// ErrNoSession is returned when selecting before Begin
	ErrNoSession = errors.New("no page to select from")

	// ErrNotTarget is returned for controls that cannot carry a payload
	ErrNotTarget = errors.New("field cannot carry a payload")
)

// Manager holds the target set and the test selection. It is safe for
// concurrent use.
type Manager struct {
	registry *catalog.Registry

	mu       sync.Mutex
	page     *page.Page
	targets  []page.Field
	tests    []int
	allTests bool
}

// NewManager creates a manager choosing tests from registry.
func NewManager(registry *catalog.Registry) *Manager {
	return &Manager{registry: registry}
}

// Begin starts a selection session on p and clears the target set. The test
// selection is kept.
func (m *Manager) Begin(p *page.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.page = p
	m.targets = nil
}

// Select adds fields by identity, in order. Fields already selected are
// skipped. Nothing is added if any identity is invalid.
func (m *Manager) Select(ids ...page.FieldID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page == nil {
		return ErrNoSession
	}

	fields := make([]page.Field, 0, len(ids))
	for _, id := range ids {
		f, err := m.page.Field(id)
		if err != nil {
			return err
		}
		if !f.IsValidTarget() {
			return fmt.Errorf("%w: %s (%s)", ErrNotTarget, id, f.Type)
		}
		fields = append(fields, f)
	}
	m.addLocked(fields)
	return nil
}

// SelectByName adds every valid target carrying one of names.
func (m *Manager) SelectByName(names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page == nil {
		return ErrNoSession
	}

	var fields []page.Field
	for _, name := range names {
		found := false
		for _, f := range m.page.FieldsByName(name) {
			if f.IsValidTarget() {
				fields = append(fields, f)
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%w: %q", page.ErrUnknownField, name)
		}
	}
	m.addLocked(fields)
	return nil
}

// SelectAll replaces the target set with every valid target of every form,
// hidden inputs included.
func (m *Manager) SelectAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page == nil {
		return ErrNoSession
	}

	all := m.page.Targets()
	if len(all) == 0 {
		return ErrNoInputs
	}
	m.targets = nil
	m.addLocked(all)
	return nil
}

// Deselect removes fields from the target set.
func (m *Manager) Deselect(ids ...page.FieldID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[page.FieldID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.targets[:0]
	for _, f := range m.targets {
		if !drop[f.ID] {
			kept = append(kept, f)
		}
	}
	m.targets = kept
}

func (m *Manager) addLocked(fields []page.Field) {
	for _, f := range fields {
		if m.hasLocked(f.ID) {
			continue
		}
		m.targets = append(m.targets, f)
	}
}

func (m *Manager) hasLocked(id page.FieldID) bool {
	for _, f := range m.targets {
		if f.ID == id {
			return true
		}
	}
	return false
}

// SelectTests chooses tests by registry index, in the given order, and turns
// select-all off.
func (m *Manager) SelectTests(indices ...int) error {
	n := m.registry.Len()
	seen := make(map[int]bool, len(indices))
	tests := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: %d", catalog.ErrUnknownTest, i)
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		tests = append(tests, i)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tests = tests
	m.allTests = false
	return nil
}

// SelectAllTests toggles select-all. While on, every registered test is
// selected, including tests registered later.
func (m *Manager) SelectAllTests(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allTests = on
}

// SelectedFieldTargets returns a snapshot of the target set.
func (m *Manager) SelectedFieldTargets() []page.Field {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]page.Field(nil), m.targets...)
}

// SelectedTestIndices returns the chosen test indices.
func (m *Manager) SelectedTestIndices() []int {
	m.mu.Lock()
	all := m.allTests
	tests := append([]int(nil), m.tests...)
	m.mu.Unlock()

	if !all {
		return tests
	}
	n := m.registry.Len()
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
