// Package catalog holds the attack vectors a run can submit and the checks
// that decide, from the response document, whether a vector took effect.
package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Serdar715/xssdetective/internal/page"
)

var (
	// ErrInvalidTest indicates a test without name, vector or check
	ErrInvalidTest = errors.New("invalid test definition")

	// ErrUnknownTest indicates a test index outside the registry
	ErrUnknownTest = errors.New("unknown test")
)

// Check decides from a response document whether a vector's effect occurred.
type Check func(doc *page.Document) bool

// Test is one catalog entry. It is immutable once registered.
type Test struct {
	Name        string
	Vector      string
	Description string
	Check       Check
}

// Listener is told about every successful registration.
type Listener func(added []Test, total int)

// Registry is an append-only, ordered collection of tests. A test's index is
// its position and never changes.
type Registry struct {
	mu        sync.RWMutex
	tests     []Test
	listeners []Listener
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends tests in order and notifies listeners. Nothing is added
// if any test is invalid.
func (r *Registry) Register(tests ...Test) error {
	for i, t := range tests {
		if t.Name == "" || t.Vector == "" || t.Check == nil {
			return fmt.Errorf("%w: entry %d (%q)", ErrInvalidTest, i, t.Name)
		}
	}
	if len(tests) == 0 {
		return nil
	}

	r.mu.Lock()
	r.tests = append(r.tests, tests...)
	total := len(r.tests)
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	added := append([]Test(nil), tests...)
	for _, l := range listeners {
		l(added, total)
	}
	return nil
}

// OnRegister adds a listener.
func (r *Registry) OnRegister(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// Len returns the number of registered tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tests)
}

// Get returns the test at index i.
func (r *Registry) Get(i int) (Test, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.tests) {
		return Test{}, fmt.Errorf("%w: %d", ErrUnknownTest, i)
	}
	return r.tests[i], nil
}

// All returns a copy of the registered tests.
func (r *Registry) All() []Test {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Test(nil), r.tests...)
}
