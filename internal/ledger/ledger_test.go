package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Serdar715/xssdetective/internal/page"
)

type lines struct {
	mu  sync.Mutex
	out []string
}

func (l *lines) AppendLogLine(s string) {
	l.mu.Lock()
	l.out = append(l.out, s)
	l.mu.Unlock()
}

func field(form, el int, name string) page.Field {
	return page.Field{ID: page.FieldID{Form: form, Element: el}, Name: name}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		records []bool
		want    State
	}{
		{"nothing yet", 3, nil, Pending},
		{"partial true", 3, []bool{true, true}, Pending},
		{"all true", 3, []bool{true, true, true}, Passed},
		{"one false early", 3, []bool{false}, Failed},
		{"mixed", 3, []bool{true, false, true}, Failed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(nil)
			q := field(0, 0, "q")
			gen := l.Reset([]page.Field{q}, tt.total)
			for i, passed := range tt.records {
				require.NoError(t, l.Record(gen, q.ID, i, passed))
			}
			assert.Equal(t, tt.want, l.Aggregate(q.ID))
		})
	}
}

func TestRecord_EmitsLines(t *testing.T) {
	out := &lines{}
	l := New(out)
	q := field(0, 0, "q")
	gen := l.Reset([]page.Field{q}, 3)

	for i, passed := range []bool{true, false, true} {
		require.NoError(t, l.Record(gen, q.ID, i, passed))
	}

	assert.Equal(t, []string{"q PASSED test 0", "q FAILED test 1", "q PASSED test 2"}, out.out)
	assert.Equal(t, Failed, l.Aggregate(q.ID))
}

func TestRecord_UnnamedFieldUsesIdentity(t *testing.T) {
	out := &lines{}
	l := New(out)
	f := field(1, 4, "")
	gen := l.Reset([]page.Field{f}, 1)
	require.NoError(t, l.Record(gen, f.ID, 0, true))
	assert.Equal(t, []string{"#1;4 PASSED test 0"}, out.out)
}

func TestRecord_LastWriteWins(t *testing.T) {
	l := New(nil)
	q := field(0, 0, "q")
	gen := l.Reset([]page.Field{q}, 1)
	require.NoError(t, l.Record(gen, q.ID, 0, false))
	require.NoError(t, l.Record(gen, q.ID, 0, true))
	assert.Equal(t, Passed, l.Aggregate(q.ID))
}

func TestRecord_StaleRunIsDropped(t *testing.T) {
	out := &lines{}
	l := New(out)
	q := field(0, 0, "q")

	old := l.Reset([]page.Field{q}, 1)
	cur := l.Reset([]page.Field{q}, 1)
	require.NotEqual(t, old, cur)

	err := l.Record(old, q.ID, 0, false)
	assert.ErrorIs(t, err, ErrStaleRun)
	assert.Equal(t, Pending, l.Aggregate(q.ID))
	assert.Empty(t, out.out)

	require.NoError(t, l.Record(cur, q.ID, 0, true))
	assert.Equal(t, Passed, l.Aggregate(q.ID))
}

func TestRecord_UnknownField(t *testing.T) {
	l := New(nil)
	gen := l.Reset([]page.Field{field(0, 0, "q")}, 1)
	err := l.Record(gen, page.FieldID{Form: 5, Element: 5}, 0, true)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestReset_ClearsEntries(t *testing.T) {
	l := New(nil)
	q := field(0, 0, "q")
	gen := l.Reset([]page.Field{q}, 2)
	require.NoError(t, l.Record(gen, q.ID, 0, false))
	require.Equal(t, Failed, l.Aggregate(q.ID))

	l.Reset([]page.Field{q}, 2)
	assert.Equal(t, Pending, l.Aggregate(q.ID))
	assert.False(t, l.Complete())
}

func TestSnapshot_KeepsTargetOrder(t *testing.T) {
	l := New(nil)
	a, b := field(1, 0, "b"), field(0, 0, "a")
	gen := l.Reset([]page.Field{a, b, a}, 2)

	require.NoError(t, l.Record(gen, b.ID, 1, true))
	require.NoError(t, l.Record(gen, b.ID, 0, true))
	require.NoError(t, l.Record(gen, a.ID, 0, false))

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].Name)
	assert.Equal(t, Failed, snap[0].State)
	assert.Equal(t, "a", snap[1].Name)
	assert.Equal(t, Passed, snap[1].State)
	assert.Equal(t, []Entry{{0, true}, {1, true}}, snap[1].Entries)
}

func TestRecord_Concurrent(t *testing.T) {
	out := &lines{}
	l := New(out)
	targets := []page.Field{field(0, 0, "a"), field(0, 1, "b")}
	gen := l.Reset(targets, 50)

	var wg sync.WaitGroup
	for _, f := range targets {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(id page.FieldID, i int) {
				defer wg.Done()
				assert.NoError(t, l.Record(gen, id, i, true))
			}(f.ID, i)
		}
	}
	wg.Wait()

	assert.Len(t, out.out, 100)
	assert.True(t, l.Complete())
	for _, f := range targets {
		assert.Equal(t, Passed, l.Aggregate(f.ID))
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "PASSED", Passed.String())
	assert.Equal(t, "FAILED", Failed.String())
	assert.Equal(t, "PENDING", Pending.String())
}
