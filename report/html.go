//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/status"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

// HTMLWriter renders the run as a single self-contained page: one
// collapsible section per test with the turn table, nested check tables and
// the raw backend responses.
type HTMLWriter struct {
	path string
}

// NewHTMLWriter creates a writer targeting path.
func NewHTMLWriter(path string) *HTMLWriter {
	return &HTMLWriter{path: path}
}

// Write implements Writer.
func (w *HTMLWriter) Write(ctx context.Context, run *Run) error {
	_ = ctx
	data := struct {
		Run     *Run
		Summary Summary
	}{Run: run, Summary: run.Summarize()}
	if err := writeAtomic(w.path, func(f io.Writer) error {
		if err := htmlTemplate.Execute(f, data); err != nil {
			return errs.Wrap(errs.KindGeneric, "render html report", err)
		}
		return nil
	}); err != nil {
		return err
	}
	return nil
}

var htmlFuncs = template.FuncMap{
	"inc":         func(i int) int { return i + 1 },
	"join":        func(l suite.StringOrList) string { return strings.Join(l, ", ") },
	"markdown":    renderMarkdown,
	"prettyJSON":  prettyJSON,
	"rawResponse": rawResponse,
	"fmtDuration": fmtDuration,
	"testClass":   testClass,
	"testLabel":   testLabel,
	"turnClass":   turnClass,
	"turnLabel":   turnLabel,
}

// renderMarkdown converts a test description to HTML. Descriptions come from
// the suite author, the same trust domain as the tests themselves.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

// prettyJSON re-indents a raw backend response; malformed bodies pass
// through unchanged.
func prettyJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return s
	}
	return buf.String()
}

// rawResponse returns the body the turn saw: the retained response on a
// passed turn, the response captured by the failure otherwise.
func rawResponse(a *suite.Assertion) string {
	if a.Result.RawResponse != "" {
		return a.Result.RawResponse
	}
	if a.Result.Err != nil {
		return a.Result.Err.RawResponse
	}
	return ""
}

func fmtDuration(d time.Duration) string { return d.Round(timeRounding).String() }

func testClass(s status.TestStatus) string { return s.String() }

func testLabel(s status.TestStatus) string { return strings.ToUpper(s.String()) }

func turnClass(s status.AssertionStatus) string {
	switch s {
	case status.AssertionStatusOK:
		return "ok"
	case status.AssertionStatusKOIntentMismatch, status.AssertionStatusKOResponseCheck:
		return "ko"
	default:
		return "unset"
	}
}

func turnLabel(s status.AssertionStatus) string {
	switch s {
	case status.AssertionStatusOK:
		return "OK"
	case status.AssertionStatusKOIntentMismatch:
		return "KO (intent)"
	case status.AssertionStatusKOResponseCheck:
		return "KO (check)"
	default:
		return "not run"
	}
}

var htmlTemplate = template.Must(template.New("report").Funcs(htmlFuncs).Parse(htmlReportTemplate))

const htmlReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Run.SuiteName}} · dialog test report</title>
<style>
body { font: 14px/1.5 -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; color: #1f2328; max-width: 64rem; margin: 2rem auto; padding: 0 1rem; }
h1 { font-size: 1.4rem; margin-bottom: .2rem; }
h1 .type { font-size: .8rem; font-weight: 400; color: #57606a; border: 1px solid #d0d7de; border-radius: 999px; padding: .1rem .6rem; vertical-align: middle; }
p.meta { color: #57606a; margin-top: 0; }
p.verdict { font-weight: 600; }
p.verdict.ok { color: #1a7f37; }
p.verdict.ko { color: #cf222e; }
details.test { border: 1px solid #d0d7de; border-radius: 6px; margin: .6rem 0; padding: .2rem .8rem .6rem; }
details.test > summary { cursor: pointer; font-weight: 600; padding: .4rem 0; }
.badge { display: inline-block; min-width: 2.6rem; font-weight: 700; }
details.ok > summary .badge { color: #1a7f37; }
details.ko > summary .badge { color: #cf222e; }
.desc { color: #57606a; border-left: 3px solid #d0d7de; padding-left: .8rem; margin: .4rem 0; }
table { border-collapse: collapse; width: 100%; margin: .4rem 0; }
th, td { border: 1px solid #d0d7de; padding: .3rem .6rem; text-align: left; vertical-align: top; }
th { background: #f6f8fa; }
tr.ok td.status { color: #1a7f37; font-weight: 600; }
tr.ko td.status { color: #cf222e; font-weight: 600; }
tr.unset td.status { color: #57606a; }
table.checks th { background: #fafbfc; font-weight: 500; }
details.raw summary { cursor: pointer; color: #57606a; }
pre { background: #f6f8fa; padding: .6rem; border-radius: 6px; overflow-x: auto; margin: .4rem 0 0; }
code { background: #f6f8fa; padding: .1rem .3rem; border-radius: 4px; }
</style>
</head>
<body>
<h1>{{.Run.SuiteName}} <span class="type">{{.Run.SuiteType}}</span></h1>
<p class="meta">run {{.Run.RunID}} · started {{.Run.StartedAt.Format "2006-01-02 15:04:05 MST"}} · took {{fmtDuration .Run.Duration}}</p>
<p class="verdict {{if .Summary.AllPassed}}ok{{else}}ko{{end}}">{{.Summary.Total}} tests: {{.Summary.Passed}} passed, {{.Summary.Failed}} failed{{if .Summary.NotExecuted}}, {{.Summary.NotExecuted}} not executed{{end}}</p>
{{range .Run.Tests}}
<details class="test {{testClass .Result}}"{{if eq (testClass .Result) "ko"}} open{{end}}>
<summary><span class="badge">{{testLabel .Result}}</span> #{{inc .ExecIndex}} {{.Name}}</summary>
{{if .Description}}<div class="desc">{{markdown .Description}}</div>{{end}}
<table>
<thead><tr><th>#</th><th>User says</th><th>Accepted intents</th><th>Status</th><th>Detail</th></tr></thead>
{{range $i, $a := .Assertions}}
<tbody>
<tr class="{{turnClass $a.Result.Status}}">
<td>{{inc $i}}</td>
<td>{{$a.UserSays}}</td>
<td>{{join $a.BotRespondsWith}}</td>
<td class="status">{{turnLabel $a.Result.Status}}</td>
<td>{{with $a.Result.Err}}{{.Message}}{{end}}</td>
</tr>
{{if $a.ResponseChecks}}
<tr><td></td><td colspan="4">
<table class="checks">
<thead><tr><th>Expression</th><th>Operator</th><th>Expected</th></tr></thead>
<tbody>
{{range $a.ResponseChecks}}<tr><td><code>{{.Expression}}</code></td><td>{{.Operator}}</td><td><code>{{.Value}}</code></td></tr>
{{end}}</tbody>
</table>
</td></tr>
{{end}}
{{with rawResponse $a}}
<tr><td></td><td colspan="4">
<details class="raw"><summary>raw response</summary><pre>{{prettyJSON .}}</pre></details>
</td></tr>
{{end}}
</tbody>
{{end}}
</table>
</details>
{{end}}
</body>
</html>
`
