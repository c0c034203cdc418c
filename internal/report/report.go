package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"
)

// Reporter generates run reports in various formats
type Reporter struct {
	format string
}

// New creates a new reporter with the specified format
func New(format string) *Reporter {
	return &Reporter{format: strings.ToLower(format)}
}

// Generate writes the report to outputPath.
func (r *Reporter) Generate(result *Result, outputPath string) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, result); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Render writes the report to w. Unknown formats fall back to JSON.
func (r *Reporter) Render(w io.Writer, result *Result) error {
	switch r.format {
	case "html":
		return renderHTML(w, result)
	case "md", "markdown":
		_, err := io.WriteString(w, markdown(result))
		return err
	default:
		return renderJSON(w, result)
	}
}

func renderJSON(w io.Writer, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func markdown(result *Result) string {
	var b strings.Builder
	b.WriteString("# xssdetective Report\n\n")
	fmt.Fprintf(&b, "**Host page:** %s\n", result.HostURL)
	fmt.Fprintf(&b, "**Engine:** %s\n", result.Engine)
	fmt.Fprintf(&b, "**Date:** %s\n", result.StartTime.Format(time.RFC1123))
	fmt.Fprintf(&b, "**Duration:** %s\n", result.Duration)
	fmt.Fprintf(&b, "**Submissions:** %d (%d passed, %d failed, %d errors)\n",
		result.Dispatched, result.Passed, result.Failed, result.ErrorCount)
	if !result.Complete {
		fmt.Fprintf(&b, "**Interrupted:** %d submissions never settled\n", result.Pending)
	}

	b.WriteString("\n## Fields\n\n")
	if len(result.Fields) == 0 {
		b.WriteString("_No fields tested._\n")
	}
	for _, f := range result.Fields {
		fmt.Fprintf(&b, "### %s `%s`: %s\n\n", f.Name, f.ID, f.State)
		if len(f.Entries) == 0 {
			b.WriteString("_No results recorded._\n\n")
			continue
		}
		b.WriteString("| Test | Name | Result | Vector |\n|---|---|---|---|\n")
		for _, e := range f.Entries {
			outcome := "FAILED"
			if e.Passed {
				outcome = "PASSED"
			}
			fmt.Fprintf(&b, "| %d | %s | %s | `%s` |\n", e.TestIndex, e.Test, outcome, mdCell(e.Vector))
		}
		b.WriteString("\n")
	}

	if len(result.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Log\n\n```\n")
	for _, l := range result.LogLines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	return b.String()
}

// mdCell keeps a vector inside one table cell.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "`", "'")
	return strings.ReplaceAll(s, "\n", " ")
}

func renderHTML(w io.Writer, result *Result) error {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"now": func() time.Time {
			return time.Now()
		},
	}

	t, err := template.New("report").Funcs(funcMap).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := t.Execute(w, result); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>xssdetective Report - {{.HostURL}}</title>
    <style>
        :root {
            --bg-primary: #0f0f1a;
            --bg-card: #16213e;
            --accent-primary: #00d4ff;
            --text-primary: #ffffff;
            --text-secondary: #a0a0b0;
            --success: #228b22;
            --warning: #ffcc00;
            --danger: #ff4444;
            --border-color: rgba(255, 255, 255, 0.1);
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
        }
        .container { max-width: 1200px; margin: 0 auto; padding: 40px 20px; }
        .header {
            text-align: center;
            padding: 40px;
            border-radius: 16px;
            margin-bottom: 30px;
            border: 1px solid var(--border-color);
        }
        .header h1 { font-size: 2.4rem; color: var(--accent-primary); }
        .host-url { font-family: 'Monaco', 'Consolas', monospace; word-break: break-all; }
        .meta { color: var(--text-secondary); margin-top: 10px; }
        .stats-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
            gap: 16px;
            margin-bottom: 30px;
        }
        .stat-card {
            background: var(--bg-card);
            padding: 20px;
            border-radius: 12px;
            text-align: center;
            border: 1px solid var(--border-color);
        }
        .stat-card .value { font-size: 2rem; font-weight: 700; }
        .stat-card .label { color: var(--text-secondary); text-transform: uppercase; font-size: 0.85rem; }
        .section {
            background: var(--bg-card);
            border-radius: 16px;
            padding: 24px;
            margin-bottom: 24px;
            border: 1px solid var(--border-color);
        }
        .section h2 { margin-bottom: 16px; }
        .field { border-left: 4px solid var(--warning); padding: 12px 16px; margin-bottom: 16px; }
        .field.passed { border-color: var(--success); }
        .field.failed { border-color: var(--danger); }
        .state-passed { color: var(--success); }
        .state-failed { color: var(--danger); }
        .state-pending { color: var(--warning); }
        table { width: 100%; border-collapse: collapse; margin-top: 8px; }
        td, th { text-align: left; padding: 6px 8px; border-bottom: 1px solid var(--border-color); }
        code, pre {
            font-family: 'Monaco', 'Consolas', monospace;
            font-size: 0.85rem;
            word-break: break-all;
            white-space: pre-wrap;
        }
        .footer { text-align: center; color: var(--text-secondary); margin-top: 30px; }
    </style>
</head>
<body>
    <div class="container">
        <header class="header">
            <h1>xssdetective Report</h1>
            <div class="host-url">{{.HostURL}}</div>
            <div class="meta">
                {{.StartTime.Format "2006-01-02 15:04:05"}} &middot; Duration: {{.Duration}} &middot; Engine: {{.Engine}}
                {{if not .Complete}}&middot; <span class="state-pending">interrupted, {{.Pending}} pending</span>{{end}}
            </div>
        </header>

        <div class="stats-grid">
            <div class="stat-card"><div class="value">{{.Dispatched}}</div><div class="label">Submissions</div></div>
            <div class="stat-card"><div class="value state-passed">{{.Passed}}</div><div class="label">Passed</div></div>
            <div class="stat-card"><div class="value state-failed">{{.Failed}}</div><div class="label">Failed</div></div>
            <div class="stat-card"><div class="value state-pending">{{.ErrorCount}}</div><div class="label">Errors</div></div>
        </div>

        <section class="section">
            <h2>Fields</h2>
            {{range .Fields}}
            <div class="field {{.State | lower}}">
                <strong>{{.Name}}</strong> <code>{{.ID}}</code>
                <span class="state-{{.State | lower}}">{{.State}}</span>
                {{if .Entries}}
                <table>
                    <tr><th>Test</th><th>Name</th><th>Result</th><th>Vector</th></tr>
                    {{range .Entries}}
                    <tr>
                        <td>{{.TestIndex}}</td>
                        <td>{{.Test}}</td>
                        <td>{{if .Passed}}<span class="state-passed">PASSED</span>{{else}}<span class="state-failed">FAILED</span>{{end}}</td>
                        <td><code>{{.Vector}}</code></td>
                    </tr>
                    {{end}}
                </table>
                {{end}}
            </div>
            {{else}}
            <p>No fields tested.</p>
            {{end}}
        </section>

        {{if .Errors}}
        <section class="section">
            <h2>Errors</h2>
            <ul>{{range .Errors}}<li><code>{{.}}</code></li>{{end}}</ul>
        </section>
        {{end}}

        <section class="section">
            <h2>Log</h2>
            <pre>{{range .LogLines}}{{.}}
{{end}}</pre>
        </section>

        <footer class="footer">
            <p>Report generated by <strong>xssdetective</strong> &middot; {{now.Format "2006-01-02 15:04:05 MST"}}</p>
        </footer>
    </div>
</body>
</html>`
