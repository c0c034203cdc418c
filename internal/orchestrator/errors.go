package orchestrator

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for inject validation and pair processing
var (
	// ErrNoTargets indicates inject was triggered with no field selected
	ErrNoTargets = errors.New("You need to select an input first!")

	// ErrNoTests indicates inject was triggered with no test selected
	ErrNoTests = errors.New("You need to select at least one test!")

	// ErrCheckPanicked indicates a test's check function panicked
	ErrCheckPanicked = errors.New("check panicked")
)

// PairError ties a failure to the (field, test) pair it aborted.
type PairError struct {
	Field     string // Field display name
	FieldID   string // "form;element"
	Test      string // Test name
	TestIndex int    // Registry index
	Cause     error  // The underlying error
}

// Error implements the error interface
func (e *PairError) Error() string {
	return fmt.Sprintf("test %d (%s) on field '%s' [%s]: %v",
		e.TestIndex, e.Test, e.Field, e.FieldID, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *PairError) Unwrap() error {
	return e.Cause
}

// ErrorAggregator collects errors from multiple goroutines safely.
// Pair chains settle on their own goroutines and report here.
type ErrorAggregator struct {
	errors []error
	mu     sync.Mutex
}

// NewErrorAggregator creates a new error aggregator instance.
func NewErrorAggregator() *ErrorAggregator {
	return &ErrorAggregator{
		errors: make([]error, 0),
	}
}

// Add appends an error to the aggregator if it's not nil.
func (ea *ErrorAggregator) Add(err error) {
	if err == nil {
		return
	}
	ea.mu.Lock()
	ea.errors = append(ea.errors, err)
	ea.mu.Unlock()
}

// Errors returns a copy of all collected errors.
// Returns nil if no errors were collected.
func (ea *ErrorAggregator) Errors() []error {
	ea.mu.Lock()
	defer ea.mu.Unlock()

	if len(ea.errors) == 0 {
		return nil
	}

	result := make([]error, len(ea.errors))
	copy(result, ea.errors)
	return result
}

// Count returns the number of collected errors.
func (ea *ErrorAggregator) Count() int {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	return len(ea.errors)
}

// Combined returns a single error wrapping all collected errors.
// Returns nil if no errors were collected.
func (ea *ErrorAggregator) Combined() error {
	errs := ea.Errors()
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
