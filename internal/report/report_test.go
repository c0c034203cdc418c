package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Serdar715/xssdetective/internal/catalog"
	"github.com/Serdar715/xssdetective/internal/deferred"
	"github.com/Serdar715/xssdetective/internal/ledger"
	"github.com/Serdar715/xssdetective/internal/orchestrator"
	"github.com/Serdar715/xssdetective/internal/page"
)

type lineSink struct{ lines []string }

func (s *lineSink) AppendLogLine(l string)                          { s.lines = append(s.lines, l) }
func (s *lineSink) SetFieldVisualState(page.FieldID, ledger.State) {}
func (s *lineSink) ShowPanel()                                      {}
func (s *lineSink) HidePanel()                                      {}
func (s *lineSink) Alert(string)                                    {}

type fixedSelector struct {
	fields []page.Field
	tests  []int
}

func (f fixedSelector) SelectedFieldTargets() []page.Field { return f.fields }
func (f fixedSelector) SelectedTestIndices() []int         { return f.tests }

// echoSubmitter reflects the payload only for the field named "q".
type echoSubmitter struct{}

func (echoSubmitter) Submit(_ context.Context, field page.Field, payload string) *deferred.Deferred[*page.Document] {
	body := "<p>nothing</p>"
	if field.Name == "q" {
		body = "<p>" + payload + "</p>"
	}
	doc, err := page.ParseHTML("<html><body>"+body+"</body></html>", "http://example.test/", 200)
	if err != nil {
		return deferred.Failed[*page.Document](err)
	}
	return deferred.Resolved(doc)
}

func sampleResult(t *testing.T) *Result {
	t.Helper()

	reg := catalog.NewRegistry()
	require.NoError(t, reg.Register(
		catalog.Test{Name: "Bold", Vector: "<b>xd</b>", Description: "bold tag", Check: catalog.Selector("b")},
		catalog.Test{Name: "Italic", Vector: "<i>xd|</i>", Check: catalog.Selector("i")},
	))

	fields := []page.Field{
		{ID: page.FieldID{Form: 0, Element: 0}, Name: "q", Tag: "input", Type: "text"},
		{ID: page.FieldID{Form: 0, Element: 1}, Name: "name", Tag: "input", Type: "text"},
	}
	sink := &lineSink{}
	orch := orchestrator.New(orchestrator.Config{
		Registry:  reg,
		Submitter: echoSubmitter{},
		Selector:  fixedSelector{fields: fields, tests: []int{0, 1}},
		Renderer:  sink,
	})

	run, err := orch.Inject(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, run.Wait(ctx))

	return Build("http://example.test/", "http", run, orch.Ledger().Snapshot(), sink.lines)
}

func TestBuild(t *testing.T) {
	res := sampleResult(t)

	assert.True(t, res.Complete)
	assert.Equal(t, 4, res.Dispatched)
	assert.Equal(t, 2, res.Passed)
	assert.Equal(t, 2, res.Failed)
	assert.Zero(t, res.ErrorCount)
	assert.Len(t, res.LogLines, 4)

	require.Len(t, res.Tests, 2)
	assert.Equal(t, "Bold", res.Tests[0].Name)
	assert.Equal(t, "bold tag", res.Tests[0].Description)

	require.Len(t, res.Fields, 2)
	assert.Equal(t, "0;0", res.Fields[0].ID)
	assert.Equal(t, "PASSED", res.Fields[0].State)
	assert.Equal(t, "FAILED", res.Fields[1].State)
	require.Len(t, res.Fields[0].Entries, 2)
	assert.Equal(t, "Italic", res.Fields[0].Entries[1].Test)
	assert.Equal(t, "<i>xd|</i>", res.Fields[0].Entries[1].Vector)

	findings := res.Findings()
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, "q", f.Field)
		assert.True(t, f.Passed)
	}
}

func TestRender(t *testing.T) {
	res := sampleResult(t)

	tests := []struct {
		format string
		want   []string
	}{
		{"json", []string{`"host_url": "http://example.test/"`, `"state": "PASSED"`}},
		{"md", []string{"# xssdetective Report", "### q `0;0`: PASSED", `<i>xd\|</i>`, "q PASSED test 0"}},
		{"html", []string{"<title>xssdetective Report", "&lt;b&gt;xd&lt;/b&gt;", `class="field passed"`}},
		{"unknown", []string{`"dispatched": 4`}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, New(tt.format).Render(&buf, res))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestRenderHTMLEscapesVectors(t *testing.T) {
	res := sampleResult(t)
	var buf bytes.Buffer
	require.NoError(t, New("html").Render(&buf, res))
	assert.NotContains(t, buf.String(), "<b>xd</b>")
}

func TestGenerateJSONFile(t *testing.T) {
	res := sampleResult(t)
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, New("JSON").Generate(res, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, res.HostURL, decoded.HostURL)
	assert.Len(t, decoded.Fields, 2)
}

func TestSendWebhook(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := sampleResult(t)
	require.NoError(t, SendWebhook(context.Background(), srv.Client(), srv.URL, res))
	assert.True(t, strings.Contains(body["content"], "Passed checks: **2** of 4"))
	assert.Contains(t, body["content"], "q (0;0) test 0: Bold")
}

func TestSendWebhookSkips(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	res := sampleResult(t)
	require.NoError(t, SendWebhook(context.Background(), srv.Client(), "", res))

	res.Fields = nil
	require.NoError(t, SendWebhook(context.Background(), srv.Client(), srv.URL, res))
	assert.Zero(t, calls)
}

func TestSendWebhookStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := SendWebhook(context.Background(), srv.Client(), srv.URL, sampleResult(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
