package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Serdar715/xssdetective/internal/page"
)

func doc(t *testing.T, html string) *page.Document {
	t.Helper()
	d, err := page.ParseHTML(html, "http://h.example/", 200)
	require.NoError(t, err)
	return d
}

func pass(*page.Document) bool { return true }

func TestRegistry_AppendsInOrder(t *testing.T) {
	r := NewRegistry()
	var calls []int
	r.OnRegister(func(added []Test, total int) {
		calls = append(calls, total)
	})

	require.NoError(t, r.Register(Test{Name: "a", Vector: "va", Check: pass}))
	require.NoError(t, r.Register(Test{Name: "b", Vector: "vb", Check: pass}, Test{Name: "c", Vector: "vc", Check: pass}))

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{1, 3}, calls)
	got, err := r.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "c", got.Name)

	_, err = r.Get(3)
	assert.ErrorIs(t, err, ErrUnknownTest)
}

func TestRegistry_RejectsInvalidBatch(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name  string
		batch []Test
	}{
		{"no check", []Test{{Name: "ok", Vector: "v", Check: pass}, {Name: "nocheck", Vector: "v"}}},
		{"no vector", []Test{{Name: "ok", Vector: "v", Check: pass}, {Name: "novector", Check: pass}}},
		{"no name", []Test{{Vector: "v", Check: pass}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.batch...)
			assert.ErrorIs(t, err, ErrInvalidTest)
			assert.Equal(t, 0, r.Len())
		})
	}
}

func TestDetectReflection(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		probe      string
		wantFound  bool
		wantFormat string
	}{
		{"Raw reflection", "Hello xss_probe_123 World", "xss_probe_123", true, FormatRaw},
		{"URL encoded reflection", "Hello %3Cscript%3E World", "<script>", true, FormatURLEncoded},
		{"HTML encoded reflection", "Hello &lt;script&gt; World", "<script>", true, FormatHTMLEncoded},
		{"Double encoded", "Hello %253Cscript%253E World", "<script>", true, FormatDoubleEncoded},
		{"Decoded", "Hello <b> World", "%3Cb%3E", true, FormatDecoded},
		{"Not found", "Hello World", "xss_probe", false, ""},
		{"Empty probe", "Hello World", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, format := DetectReflection(tt.body, tt.probe)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantFormat, format)
		})
	}
}

func TestEscapedChars(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		vector      string
		wantEscaped []string
		wantFound   bool
	}{
		{"raw", `<p><b>"x</p>`, `<b>"x`, nil, true},
		{"brackets escaped in full page", `<html><body><p>&lt;b&gt;"x</p></body></html>`, `<b>"x`, []string{"<", ">"}, true},
		{"everything escaped", `<p>&lt;b&gt;&quot;x&#39;</p>`, `<b>"x'`, []string{"<", ">", "'", "\""}, true},
		{"url encoded quote", `<a href="/?q=x%22y">`, `x"y`, []string{"\""}, true},
		{"entity case", `<p>&LT;i&GT;</p>`, `<i>`, []string{"<", ">"}, true},
		{"least escaped occurrence wins", `&lt;i&gt; then <i>`, `<i>`, nil, true},
		{"not reflected", `<p>nothing</p>`, `<b>`, nil, false},
		{"empty vector", `<p></p>`, ``, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			escaped, found := EscapedChars(tt.body, tt.vector)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantEscaped, escaped)
		})
	}
}

func TestEncodedAndUnescapedChecks(t *testing.T) {
	encoded := doc(t, `<html><body><p>&lt;b&gt;x&lt;/b&gt;</p></body></html>`)
	raw := doc(t, `<html><body><p><b>x</b></p></body></html>`)

	assert.True(t, Encoded("<b>x</b>")(encoded))
	assert.True(t, Encoded("<b>x</b>", FormatHTMLEncoded)(encoded))
	assert.False(t, Encoded("<b>x</b>", FormatURLEncoded)(encoded))
	assert.False(t, Encoded("<b>x</b>")(raw), "raw reflection is not an encoded one")

	attr := doc(t, `<html><body><input value="q"'&lt;&gt;"></body></html>`)
	assert.True(t, Unescaped(`q"'<>`, `"'`)(attr))
	assert.False(t, Unescaped(`q"'<>`, "")(attr))
	assert.True(t, Unescaped(`q"'<>`, "")(doc(t, `<p>q"'<></p>`)))
	assert.False(t, Unescaped(`q"'<>`, `"`)(doc(t, `<p>nothing</p>`)))
	assert.False(t, Unescaped(`q"`, `"`)(nil))
}

func TestFuzzyMatcher(t *testing.T) {
	fm := NewFuzzyMatcher(0.8)

	assert.InDelta(t, 1.0, fm.Similarity("abc", "abc"), 0.0001)
	assert.InDelta(t, 0.75, fm.Similarity("abcd", "abxd"), 0.0001)

	body := `<p>you said: <svg onload=alert(XD)></p>`
	_, idx := fm.Find(body, `<svg onload=alert('XD')>`)
	assert.GreaterOrEqual(t, idx, 0, "stripped quotes should still match")

	_, idx = fm.Find(`<p>nothing to see</p>`, `<svg onload=alert('XD')>`)
	assert.Equal(t, -1, idx)

	_, idx = fm.Find(`<P>ONLY CASE CHANGED <SCRIPT>`, `<script>`)
	assert.Equal(t, 21, idx)
}

func TestFuzzyMatcher_OffsetsStayInOriginalBody(t *testing.T) {
	fm := NewFuzzyMatcher(0.8)
	tests := []struct {
		name string
		body string
	}{
		// Latin-1 bytes are invalid UTF-8 and would widen under ToLower
		{"latin-1 page", "<body>\xe9t\xe9 caf\xe9 \xe0 la cr\xe8me <b>xdmark</b></body>"},
		// İ lowercases to a longer sequence
		{"dotted capital I", "<p>İİİİİİİİ</p><i>x</i><b>xdmark</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, idx := fm.Find(tt.body, "<b>xdmark</b>")
			require.GreaterOrEqual(t, idx, 0)
			assert.Equal(t, "<b>xdmark</b>", match)
			assert.Equal(t, match, tt.body[idx:idx+len(match)])

			match, idx = fm.Find(tt.body, "<B>xdmarc</B>")
			require.GreaterOrEqual(t, idx, 0)
			assert.Equal(t, tt.body[idx:idx+len(match)], match)
			assert.True(t, strings.HasPrefix(match, "<b>xdmar"))

			assert.True(t, Fuzzy("<b>xdmark</b>", 0)(doc(t, tt.body)))
		})
	}
}

func TestBuiltinChecks(t *testing.T) {
	tests := Builtin()
	byName := make(map[string]Test, len(tests))
	for _, tc := range tests {
		require.NotNil(t, tc.Check, tc.Name)
		byName[tc.Name] = tc
	}

	cases := []struct {
		test string
		html string
		want bool
	}{
		{"Script tag", "<p><script>alert('XD')</script></p>", true},
		{"Script tag", "<p>&lt;script&gt;alert('XD')&lt;/script&gt;</p>", false},
		{"Image onerror", "<p><img src=x onerror=alert('XD')></p>", true},
		{"Image onerror", "<p>&lt;img src=x onerror=alert('XD')&gt;</p>", false},
		{"Double quote breakout", `<input value=""><svg onload=alert('XD')>">`, true},
		{"Double quote breakout", `<input value="&quot;&gt;&lt;svg onload=alert('XD')&gt;">`, false},
		{"Autofocus handler", `<input value="" autofocus onfocus="alert('XD')">`, true},
		{"JavaScript URI", `<a href="javascript:alert('XD')">x</a>`, true},
		{"JavaScript URI", `<a href="/safe">javascript:alert('XD')</a>`, false},
		{"Textarea breakout", `<textarea></textarea><script>alert('XD')</script></textarea>`, true},
		{"Textarea breakout", `<textarea>&lt;/textarea&gt;&lt;script&gt;alert('XD')&lt;/script&gt;</textarea>`, false},
		{"Echo probe", "<p>xdprobe7f3a</p>", true},
		{"Quote survival", `<input value="xdq7f3a"'&lt;&gt;">`, true},
		{"Quote survival", `<input value="xdq7f3a&quot;&#39;&lt;&gt;">`, false},
	}
	for _, c := range cases {
		t.Run(c.test, func(t *testing.T) {
			tc, ok := byName[c.test]
			require.True(t, ok)
			assert.Equal(t, c.want, tc.Check(doc(t, c.html)))
		})
	}
}

func TestChecks_NilDocument(t *testing.T) {
	for _, tc := range Builtin() {
		assert.False(t, tc.Check(nil), tc.Name)
	}
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
tests:
  - name: Reflected bold
    vector: "<b>x</b>"
  - name: Svg
    vector: "<svg onload=alert(1)>"
    match: any
    checks:
      - kind: selector
        value: "svg[onload]"
      - kind: fuzzy
        threshold: 0.9
  - name: Pattern
    vector: "zzz"
    checks:
      - kind: regex
        value: "z{3}"
  - name: Encoded only
    vector: "<u>e</u>"
    checks:
      - kind: encoded
        formats: [html-encoded]
  - name: Quote breakout
    vector: "k\"<>"
    checks:
      - kind: unescaped
        chars: "\""
`)
	tests, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, tests, 5)

	assert.True(t, tests[3].Check(doc(t, "<p>&lt;u&gt;e&lt;/u&gt;</p>")))
	assert.False(t, tests[3].Check(doc(t, "<p><u>e</u></p>")))
	assert.True(t, tests[4].Check(doc(t, `<input value="k"&lt;&gt;">`)))
	assert.False(t, tests[4].Check(doc(t, `<input value="k&quot;&lt;&gt;">`)))

	assert.True(t, tests[0].Check(doc(t, "<p><b>x</b></p>")))
	assert.False(t, tests[0].Check(doc(t, "<p>&lt;b&gt;x&lt;/b&gt;</p>")))
	assert.True(t, tests[1].Check(doc(t, "<svg onload=alert(1)>")))
	assert.True(t, tests[2].Check(doc(t, "<p>zzz</p>")))
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "tests: []"},
		{"no name", "tests:\n  - vector: x"},
		{"no vector", "tests:\n  - name: x"},
		{"bad kind", "tests:\n  - name: x\n    vector: y\n    checks:\n      - kind: magic"},
		{"bad regex", "tests:\n  - name: x\n    vector: y\n    checks:\n      - kind: regex\n        value: '('"},
		{"bad match", "tests:\n  - name: x\n    vector: y\n    match: some"},
		{"not yaml", "tests: [:"},
		{"bad selector", "tests:\n  - name: x\n    vector: y\n    checks:\n      - kind: selector\n        value: 'svg[onload'"},
		{"bad format", "tests:\n  - name: x\n    vector: y\n    checks:\n      - kind: encoded\n        formats: [base64]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tests:\n  - name: a\n    vector: b\n"), 0o644))

	tests, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "a", tests[0].Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
