// Package render paints run progress on the terminal: the result log panel,
// per-field state and blocking alerts.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/Serdar715/xssdetective/internal/ledger"
	"github.com/Serdar715/xssdetective/internal/page"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.FgRed, color.Bold)
)

// Console renders to a writer. The log panel starts hidden; lines appended
// while it is hidden are kept and shown when it opens.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	visible bool
	printed int
	lines   []string
	names   map[page.FieldID]string
	states  map[page.FieldID]ledger.State
}

// NewConsole creates a console writing to out, or stdout when out is nil.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		out:    out,
		names:  make(map[page.FieldID]string),
		states: make(map[page.FieldID]ledger.State),
	}
}

// Label gives a field a readable name for state lines.
func (c *Console) Label(f page.Field) {
	c.mu.Lock()
	c.names[f.ID] = f.DisplayName()
	c.mu.Unlock()
}

// AppendLogLine adds a line to the result log.
func (c *Console) AppendLogLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	if c.visible {
		c.flushLocked()
	}
}

func (c *Console) flushLocked() {
	for ; c.printed < len(c.lines); c.printed++ {
		line := c.lines[c.printed]
		switch {
		case strings.Contains(line, " "+ledger.Failed.String()+" "):
			red.Fprintf(c.out, "  %s\n", line)
		case strings.Contains(line, " "+ledger.Passed.String()+" "):
			green.Fprintf(c.out, "  %s\n", line)
		default:
			fmt.Fprintf(c.out, "  %s\n", line)
		}
	}
}

// SetFieldVisualState repaints a field. Only changes are written.
func (c *Console) SetFieldVisualState(id page.FieldID, state ledger.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, seen := c.states[id]
	c.states[id] = state
	if !c.visible || (seen && prev == state) {
		return
	}
	name := c.names[id]
	if name == "" {
		name = "#" + id.String()
	}
	stateColor(state).Fprintf(c.out, "[~] %s (%s) is %s\n", name, id, state)
}

func stateColor(s ledger.State) *color.Color {
	switch s {
	case ledger.Passed:
		return green
	case ledger.Failed:
		return red
	default:
		return yellow
	}
}

// ShowPanel opens the log panel and prints what was logged while hidden.
func (c *Console) ShowPanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		c.visible = true
		cyan.Fprintln(c.out, "[*] Result log")
	}
	c.flushLocked()
}

// HidePanel stops printing. Lines keep accumulating.
func (c *Console) HidePanel() {
	c.mu.Lock()
	c.visible = false
	c.mu.Unlock()
}

// Toggle flips the panel and reports whether it is now visible.
func (c *Console) Toggle() bool {
	c.mu.Lock()
	visible := c.visible
	c.mu.Unlock()
	if visible {
		c.HidePanel()
		return false
	}
	c.ShowPanel()
	return true
}

// Alert is the blocking notification for user errors. It is printed even
// while the panel is hidden.
func (c *Console) Alert(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bold.Fprintf(c.out, "[!] %s\n", msg)
}

// Lines returns the result log.
func (c *Console) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// State returns the last state painted for id.
func (c *Console) State(id page.FieldID) (ledger.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[id]
	return s, ok
}

// Visible reports whether the panel is open.
func (c *Console) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}
