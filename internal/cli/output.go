package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Serdar715/xssdetective/internal/catalog"
	"github.com/Serdar715/xssdetective/internal/config"
	"github.com/Serdar715/xssdetective/internal/page"
	"github.com/Serdar715/xssdetective/internal/report"
)

var (
	cyan   = color.New(color.FgCyan)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	white  = color.New(color.FgWhite)
)

// printConfigSummary prints the run configuration
func printConfigSummary(w io.Writer, cfg *config.ScanConfig) {
	yellow.Fprintln(w, "\n┌─────────────────────────────────────────────────┐")
	yellow.Fprintln(w, "│               RUN CONFIGURATION                 │")
	yellow.Fprintln(w, "└─────────────────────────────────────────────────┘")

	white.Fprintf(w, "  🌐 Host page:   %s\n", truncate(cfg.HostURL, 60))
	white.Fprintf(w, "  🧭 Engine:      %s\n", cfg.Engine)
	white.Fprintf(w, "  ⏱️  Timeout:     %s per frame\n", cfg.Timeout)
	if cfg.MaxInFlight > 0 {
		white.Fprintf(w, "  🧵 In flight:   %d frames max\n", cfg.MaxInFlight)
	}

	switch {
	case cfg.AllInputs:
		white.Fprintln(w, "  🎯 Fields:      all inputs")
	default:
		white.Fprintf(w, "  🎯 Fields:      %s\n", strings.Join(cfg.Fields, ", "))
	}
	switch {
	case cfg.AllTests:
		white.Fprintln(w, "  🧪 Tests:       all")
	default:
		white.Fprintf(w, "  🧪 Tests:       %s\n", joinInts(cfg.Tests))
	}

	if cfg.ProxyURL != "" {
		white.Fprintf(w, "  🔀 Proxy:       %s\n", cfg.ProxyURL)
	}
	if cfg.Cookies != "" {
		white.Fprintf(w, "  🍪 Cookies:     %s\n", truncate(cfg.Cookies, 30))
	}
	if cfg.AuthHeader != "" {
		white.Fprintf(w, "  🔑 Auth:        %s\n", truncate(cfg.AuthHeader, 30))
	}
	if len(cfg.Headers) > 0 {
		white.Fprintf(w, "  📝 Headers:     %d custom header(s)\n", len(cfg.Headers))
	}

	yellow.Fprintln(w, "─────────────────────────────────────────────────")
}

// printFindings lists every (field, test) pair whose check held.
func printFindings(w io.Writer, findings []report.Finding) {
	for i, f := range findings {
		fmt.Fprintf(w, "\n%s Finding #%d %s\n",
			red.Sprint("══════════════════"), i+1, red.Sprint("══════════════════"))
		fmt.Fprintf(w, "  Field:   %s (%s)\n", yellow.Sprint(f.Field), f.FieldID)
		fmt.Fprintf(w, "  Test:    %d %s\n", f.TestIndex, f.Test)
		fmt.Fprintf(w, "  Vector:  %s\n", cyan.Sprint(f.Vector))
	}
}

// printSummary prints the final run summary
func printSummary(w io.Writer, res *report.Result) {
	yellow.Fprintln(w, "\n┌─────────────────────────────────────────────────┐")
	yellow.Fprintln(w, "│                  RUN SUMMARY                    │")
	yellow.Fprintln(w, "└─────────────────────────────────────────────────┘")

	white.Fprintf(w, "  🎯 Fields:           %d\n", len(res.Fields))
	white.Fprintf(w, "  🧪 Submissions:      %d\n", res.Dispatched)
	white.Fprintf(w, "  ⏱️  Duration:         %s\n", res.Duration)

	if res.Passed > 0 {
		red.Fprintf(w, "  ⚠️  Passed checks:    %d\n", res.Passed)
	} else {
		green.Fprintln(w, "  ✅ Passed checks:    0 (Clean)")
	}
	white.Fprintf(w, "  ➖ Failed checks:    %d\n", res.Failed)

	if res.ErrorCount > 0 {
		yellow.Fprintf(w, "  ❌ Errors:           %d\n", res.ErrorCount)
	}
	if !res.Complete {
		yellow.Fprintf(w, "  ⏸️  Unsettled:        %d\n", res.Pending)
	}

	for _, f := range res.Fields {
		c := yellow
		switch f.State {
		case "PASSED":
			c = green
		case "FAILED":
			c = red
		}
		c.Fprintf(w, "     %-20s %-8s %s\n", truncate(f.Name, 20), f.ID, f.State)
	}

	yellow.Fprintln(w, "─────────────────────────────────────────────────")
}

// printFields lists the forms of a host page and their controls.
func printFields(w io.Writer, p *page.Page) {
	if len(p.Forms) == 0 {
		yellow.Fprintln(w, "[!] No forms found")
		return
	}
	for _, form := range p.Forms {
		label := form.Name
		if label == "" {
			label = form.HTMLID
		}
		action := ""
		if form.Action != nil {
			action = form.Action.String()
		}
		cyan.Fprintf(w, "[*] Form %d %s (%s %s)\n", form.Index, label, form.Method, action)

		for _, f := range form.Elements {
			line := fmt.Sprintf("    %-6s %-20s %-16s", f.ID, truncate(f.DisplayName(), 20), f.Type)
			if f.IsValidTarget() {
				green.Fprintf(w, "%s target\n", line)
			} else {
				fmt.Fprintf(w, "%s -\n", line)
			}
		}
	}
}

// printTests lists the catalog. detail picks the column shown next to each
// name: "description" or "vector".
func printTests(w io.Writer, tests []catalog.Test, detail string) {
	if len(tests) == 0 {
		yellow.Fprintln(w, "[!] No tests registered")
		return
	}
	for i, t := range tests {
		extra := t.Description
		if detail == "vector" || extra == "" {
			extra = t.Vector
		}
		fmt.Fprintf(w, "  %s %-28s %s\n", cyan.Sprintf("%3d", i), t.Name, extra)
	}
}

func joinInts(ns []int) string {
	if len(ns) == 0 {
		return "none"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
