// Package deferred implements a small single-shot future used to sequence the
// submit -> check -> record -> report pipeline of a test pair.
//
// Continuations run in attachment order on the goroutine that settles the
// Deferred. A continuation attached after settlement runs immediately, or is
// queued behind the callbacks currently draining so ordering is preserved.
// An error returned by a step skips every later step and settles the rest of
// the chain with that error. There is no cancellation.
package deferred

import (
	"context"
	"errors"
	"sync"
)

// ErrNilDeferred is returned when a flattening step produces no deferred.
var ErrNilDeferred = errors.New("step returned a nil deferred")

// Deferred is a value of type T that becomes available later, exactly once.
type Deferred[T any] struct {
	mu        sync.Mutex
	callbacks []func(T, error)
	fired     bool
	draining  bool
	value     T
	err       error
	done      chan struct{}
}

// New returns an unsettled Deferred.
func New[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

// Resolved returns a Deferred already settled with v.
func Resolved[T any](v T) *Deferred[T] {
	d := New[T]()
	d.Resolve(v)
	return d
}

// Failed returns a Deferred already settled with err.
func Failed[T any](err error) *Deferred[T] {
	d := New[T]()
	d.Reject(err)
	return d
}

// Resolve settles d with v and runs the pending callbacks. It reports false
// if d was already settled, in which case nothing happens.
func (d *Deferred[T]) Resolve(v T) bool {
	return d.settle(v, nil)
}

// Reject settles d with err.
func (d *Deferred[T]) Reject(err error) bool {
	var zero T
	if err == nil {
		err = errors.New("deferred rejected with nil error")
	}
	return d.settle(zero, err)
}

func (d *Deferred[T]) settle(v T, err error) bool {
	d.mu.Lock()
	if d.fired {
		d.mu.Unlock()
		return false
	}
	d.fired = true
	d.value, d.err = v, err
	close(d.done)
	d.drainLocked()
	return true
}

// drainLocked runs queued callbacks in order. It is entered with d.mu held and
// returns with it released. A panicking callback propagates to the caller;
// the callbacks behind it stay queued and run, in order, with the next one
// attached.
func (d *Deferred[T]) drainLocked() {
	d.draining = true
	unwinding := true
	defer func() {
		if unwinding {
			// the panic left the callback with d.mu released
			d.mu.Lock()
			d.draining = false
			d.mu.Unlock()
		}
	}()
	for len(d.callbacks) > 0 {
		cb := d.callbacks[0]
		d.callbacks = d.callbacks[1:]
		v, err := d.value, d.err
		d.mu.Unlock()
		cb(v, err)
		d.mu.Lock()
	}
	d.draining = false
	unwinding = false
	d.mu.Unlock()
}

func (d *Deferred[T]) addCallback(cb func(T, error)) {
	d.mu.Lock()
	if !d.fired || d.draining {
		d.callbacks = append(d.callbacks, cb)
		d.mu.Unlock()
		return
	}
	d.callbacks = append(d.callbacks, cb)
	d.drainLocked()
}

// Then appends a step whose return value becomes the input of the next step.
func Then[T, U any](d *Deferred[T], fn func(T) (U, error)) *Deferred[U] {
	next := New[U]()
	d.addCallback(func(v T, err error) {
		if err != nil {
			next.Reject(err)
			return
		}
		u, err := fn(v)
		if err != nil {
			next.Reject(err)
			return
		}
		next.Resolve(u)
	})
	return next
}

// Flatten appends a step that itself returns a Deferred. Steps chained on the
// result wait for that nested Deferred, so an asynchronous continuation keeps
// its place in the pipeline.
func Flatten[T, U any](d *Deferred[T], fn func(T) *Deferred[U]) *Deferred[U] {
	next := New[U]()
	d.addCallback(func(v T, err error) {
		if err != nil {
			next.Reject(err)
			return
		}
		inner := fn(v)
		if inner == nil {
			next.Reject(ErrNilDeferred)
			return
		}
		inner.addCallback(func(u U, err error) {
			next.settle(u, err)
		})
	})
	return next
}

// Tap appends a side-effect step. The value flows through unchanged unless fn
// fails.
func (d *Deferred[T]) Tap(fn func(T) error) *Deferred[T] {
	return Then(d, func(v T) (T, error) {
		if err := fn(v); err != nil {
			var zero T
			return zero, err
		}
		return v, nil
	})
}

// Finally observes the outcome of d without extending the chain.
func (d *Deferred[T]) Finally(fn func(T, error)) {
	d.addCallback(fn)
}

// Done is closed once d is settled.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Settled reports whether d has a value or error.
func (d *Deferred[T]) Settled() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Wait blocks until d settles or ctx ends.
func (d *Deferred[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.value, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
