package deferred

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThen_RunsStepsInOrder(t *testing.T) {
	d := New[int]()
	var trace []string

	doubled := Then(d, func(v int) (int, error) {
		trace = append(trace, "double")
		return v * 2, nil
	})
	labelled := Then(doubled, func(v int) (string, error) {
		trace = append(trace, "label")
		if v == 42 {
			return "answer", nil
		}
		return "other", nil
	})

	assert.Empty(t, trace, "steps must not run before resolution")
	require.True(t, d.Resolve(21))

	got, err := labelled.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
	assert.Equal(t, []string{"double", "label"}, trace)
}

func TestResolve_IsSingleShot(t *testing.T) {
	d := New[string]()
	calls := 0
	d.Finally(func(string, error) { calls++ })

	assert.True(t, d.Resolve("first"))
	assert.False(t, d.Resolve("second"))
	assert.False(t, d.Reject(errors.New("late")))

	v, err := d.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", v)
	assert.Equal(t, 1, calls)
}

func TestTap_PreservesValue(t *testing.T) {
	d := New[int]()
	seen := 0
	out := d.Tap(func(v int) error {
		seen = v
		return nil
	})
	d.Resolve(7)

	v, err := out.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 7, seen)
}

func TestErrorSkipsRemainingSteps(t *testing.T) {
	boom := errors.New("boom")
	d := New[int]()
	ran := false

	failed := Then(d, func(int) (int, error) { return 0, boom })
	after := Then(failed, func(v int) (int, error) {
		ran = true
		return v, nil
	})
	d.Resolve(1)

	_, err := after.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}

func TestCallbackAfterResolutionRunsImmediately(t *testing.T) {
	d := Resolved(3)
	ran := false
	Then(d, func(v int) (int, error) {
		ran = true
		return v, nil
	})
	assert.True(t, ran)
}

func TestFlatten_WaitsForNestedDeferred(t *testing.T) {
	d := New[int]()
	inner := New[string]()
	var trace []string

	flat := Flatten(d, func(v int) *Deferred[string] {
		trace = append(trace, "outer")
		return inner
	})
	final := Then(flat, func(s string) (string, error) {
		trace = append(trace, "after:"+s)
		return s, nil
	})

	d.Resolve(1)
	assert.Equal(t, []string{"outer"}, trace)
	assert.False(t, final.Settled())

	inner.Resolve("nested")
	v, err := final.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nested", v)
	assert.Equal(t, []string{"outer", "after:nested"}, trace)
}

func TestFlatten_NilDeferred(t *testing.T) {
	d := New[int]()
	flat := Flatten(d, func(int) *Deferred[int] { return nil })
	d.Resolve(1)

	_, err := flat.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNilDeferred)
}

func TestReentrantCallbackKeepsOrder(t *testing.T) {
	d := New[int]()
	var trace []int
	d.Finally(func(int, error) {
		trace = append(trace, 1)
		d.Finally(func(int, error) { trace = append(trace, 3) })
	})
	d.Finally(func(int, error) { trace = append(trace, 2) })

	d.Resolve(0)
	assert.Equal(t, []int{1, 2, 3}, trace)
}

func TestWait_ContextEnds(t *testing.T) {
	d := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolveFromAnotherGoroutine(t *testing.T) {
	d := New[int]()
	out := Then(d, func(v int) (int, error) { return v + 1, nil })
	go d.Resolve(41)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := out.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPanickingCallbackLeavesChainUsable(t *testing.T) {
	d := New[int]()
	var trace []string
	d.Finally(func(int, error) {
		trace = append(trace, "boom")
		panic("boom")
	})
	d.Finally(func(int, error) { trace = append(trace, "queued") })

	assert.PanicsWithValue(t, "boom", func() { d.Resolve(1) })
	assert.Equal(t, []string{"boom"}, trace)

	var got int
	d.Finally(func(v int, _ error) {
		got = v
		trace = append(trace, "late")
	})
	assert.Equal(t, 1, got)
	assert.Equal(t, []string{"boom", "queued", "late"}, trace)
}
