package render

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/Serdar715/xssdetective/internal/ledger"
	"github.com/Serdar715/xssdetective/internal/page"
)

func init() {
	color.NoColor = true
}

func TestConsole_HiddenPanelKeepsLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.AppendLogLine("q PASSED test 0")
	assert.Empty(t, buf.String())

	c.ShowPanel()
	c.AppendLogLine("q FAILED test 1")
	assert.Equal(t, "[*] Result log\n  q PASSED test 0\n  q FAILED test 1\n", buf.String())
	assert.Equal(t, []string{"q PASSED test 0", "q FAILED test 1"}, c.Lines())
}

func TestConsole_StateChangesOnly(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	q := page.Field{ID: page.FieldID{Form: 0, Element: 1}, Name: "q"}
	c.Label(q)
	c.ShowPanel()
	buf.Reset()

	c.SetFieldVisualState(q.ID, ledger.Pending)
	c.SetFieldVisualState(q.ID, ledger.Pending)
	c.SetFieldVisualState(q.ID, ledger.Failed)

	assert.Equal(t, "[~] q (0;1) is PENDING\n[~] q (0;1) is FAILED\n", buf.String())
	s, ok := c.State(q.ID)
	assert.True(t, ok)
	assert.Equal(t, ledger.Failed, s)
}

func TestConsole_ToggleAndAlert(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	assert.True(t, c.Toggle())
	assert.False(t, c.Toggle())
	assert.False(t, c.Visible())

	buf.Reset()
	c.Alert("You need to select an input first!")
	assert.Equal(t, "[!] You need to select an input first!\n", buf.String())
}
