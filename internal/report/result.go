package report

import (
	"time"

	"github.com/Serdar715/xssdetective/internal/catalog"
	"github.com/Serdar715/xssdetective/internal/ledger"
	"github.com/Serdar715/xssdetective/internal/orchestrator"
)

// TestInfo describes one dispatched test.
type TestInfo struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Vector      string `json:"vector"`
	Description string `json:"description,omitempty"`
}

// EntryResult is one recorded (test, field) outcome.
type EntryResult struct {
	TestIndex int    `json:"test"`
	Test      string `json:"name"`
	Vector    string `json:"vector"`
	Passed    bool   `json:"passed"`
}

// FieldReport is the aggregate state of one target field.
type FieldReport struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	State   string        `json:"state"`
	Entries []EntryResult `json:"entries"`
}

// Result contains the complete results of one inject run
type Result struct {
	HostURL    string        `json:"host_url"`
	Engine     string        `json:"engine"`
	Generation uint64        `json:"run"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   string        `json:"duration"`
	Complete   bool          `json:"complete"`
	Dispatched int           `json:"dispatched"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Pending    int           `json:"pending"`
	Tests      []TestInfo    `json:"tests"`
	Fields     []FieldReport `json:"fields"`
	LogLines   []string      `json:"log"`
	ErrorCount int           `json:"error_count"`
	Errors     []string      `json:"errors,omitempty"`
}

// Build assembles a Result from a run, the ledger snapshot taken after it and
// the log lines the renderer received.
func Build(hostURL, engine string, run *orchestrator.Run, fields []ledger.FieldResult, lines []string) *Result {
	res := &Result{
		HostURL:    hostURL,
		Engine:     engine,
		Generation: uint64(run.Generation),
		StartTime:  run.Started,
		EndTime:    run.Started.Add(run.Duration()),
		Duration:   run.Duration().Round(time.Millisecond).String(),
		Dispatched: run.Dispatched(),
		Passed:     run.Passed(),
		Failed:     run.Failed(),
		Pending:    run.Pending(),
		LogLines:   append([]string(nil), lines...),
	}
	res.Complete = res.Pending == 0

	byIndex := make(map[int]catalog.Test, len(run.Tests))
	for n, t := range run.Tests {
		idx := run.TestIndices[n]
		byIndex[idx] = t
		res.Tests = append(res.Tests, TestInfo{
			Index:       idx,
			Name:        t.Name,
			Vector:      t.Vector,
			Description: t.Description,
		})
	}

	for _, f := range fields {
		fr := FieldReport{
			ID:    f.ID.String(),
			Name:  f.Name,
			State: f.State.String(),
		}
		for _, e := range f.Entries {
			t := byIndex[e.TestIndex]
			fr.Entries = append(fr.Entries, EntryResult{
				TestIndex: e.TestIndex,
				Test:      t.Name,
				Vector:    t.Vector,
				Passed:    e.Passed,
			})
		}
		res.Fields = append(res.Fields, fr)
	}

	for _, err := range run.Errors() {
		res.Errors = append(res.Errors, err.Error())
	}
	res.ErrorCount = run.ErrorCount()
	return res
}

// Finding is an entry whose check held, paired with its field.
type Finding struct {
	FieldID string
	Field   string
	EntryResult
}

// Findings lists every passed entry in field order.
func (r *Result) Findings() []Finding {
	var out []Finding
	for _, f := range r.Fields {
		for _, e := range f.Entries {
			if e.Passed {
				out = append(out, Finding{FieldID: f.ID, Field: f.Name, EntryResult: e})
			}
		}
	}
	return out
}
