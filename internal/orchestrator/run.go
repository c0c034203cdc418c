package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Serdar715/xssdetective/internal/catalog"
	"github.com/Serdar715/xssdetective/internal/ledger"
	"github.com/Serdar715/xssdetective/internal/page"
)

// Run is one inject action. Its pairs settle independently; nothing inside
// the engine waits on a Run. Wait exists for callers that need a barrier.
type Run struct {
	Generation  ledger.Generation
	Targets     []page.Field
	TestIndices []int
	Tests       []catalog.Test
	Started     time.Time

	remaining atomic.Int64
	passed    atomic.Int64
	failed    atomic.Int64
	errs      *ErrorAggregator

	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	finished time.Time
}

func newRun(gen ledger.Generation, targets []page.Field, indices []int, tests []catalog.Test) *Run {
	r := &Run{
		Generation:  gen,
		Targets:     targets,
		TestIndices: indices,
		Tests:       tests,
		Started:     time.Now(),
		errs:        NewErrorAggregator(),
		done:        make(chan struct{}),
	}
	r.remaining.Store(int64(len(targets) * len(tests)))
	if r.remaining.Load() == 0 {
		r.finish()
	}
	return r
}

// pairSettled counts one pair as finished.
func (r *Run) pairSettled(passed bool, err error) {
	switch {
	case err != nil:
		r.errs.Add(err)
	case passed:
		r.passed.Add(1)
	default:
		r.failed.Add(1)
	}
	if r.remaining.Add(-1) == 0 {
		r.finish()
	}
}

func (r *Run) finish() {
	r.once.Do(func() {
		r.mu.Lock()
		r.finished = time.Now()
		r.mu.Unlock()
		close(r.done)
	})
}

// Dispatched is the number of (test, field) pairs the run submitted.
func (r *Run) Dispatched() int {
	return len(r.Targets) * len(r.Tests)
}

// Pending is the number of pairs not yet settled.
func (r *Run) Pending() int {
	return int(r.remaining.Load())
}

// Passed counts pairs whose check held.
func (r *Run) Passed() int { return int(r.passed.Load()) }

// Failed counts pairs whose check did not hold.
func (r *Run) Failed() int { return int(r.failed.Load()) }

// Errors returns the errors that aborted pairs.
func (r *Run) Errors() []error {
	return r.errs.Errors()
}

// ErrorCount is the number of pairs aborted by an error.
func (r *Run) ErrorCount() int {
	return r.errs.Count()
}

// Err joins every pair error, or returns nil when no pair was aborted.
func (r *Run) Err() error {
	return r.errs.Combined()
}

// Done is closed when every pair has settled.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until every pair settled or ctx ends.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Duration is the wall time of the run so far, or in total once done.
func (r *Run) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.finished.Sub(r.Started)
}
