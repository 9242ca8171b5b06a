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
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"trpc.group/trpc-go/trpc-dialogtest-go/status"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

// timeRounding keeps durations in summaries readable.
const timeRounding = 10 * time.Millisecond

// Color palette for the console table.
var (
	// colorCyan marks identifiable nouns: suite and test names.
	colorCyan = lipgloss.Color("14")
	// colorGreen marks passed tests.
	colorGreen = lipgloss.Color("82")
	// colorRed marks failed tests.
	colorRed = lipgloss.Color("196")
	// colorDimGray is used for borders and structural chrome.
	colorDimGray = lipgloss.Color("240")
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleBorder  = lipgloss.NewStyle().Foreground(colorDimGray)
	styleSummary = lipgloss.NewStyle().Bold(true)
	stylePassed  = lipgloss.NewStyle().Foreground(colorGreen)
	styleFailed  = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
)

// maxDetailWidth caps the failure message column so one long backend error
// does not blow up the table.
const maxDetailWidth = 72

// ConsoleWriter renders the run as a bordered table followed by a one-line
// summary. Styling is applied only when the destination is a terminal.
type ConsoleWriter struct {
	out    io.Writer
	styled bool
}

// NewConsoleWriter creates a writer targeting out, usually os.Stdout.
func NewConsoleWriter(out io.Writer) *ConsoleWriter {
	w := &ConsoleWriter{out: out}
	if f, ok := out.(*os.File); ok {
		w.styled = term.IsTerminal(int(f.Fd()))
	}
	return w
}

// Write implements Writer.
func (w *ConsoleWriter) Write(ctx context.Context, run *Run) error {
	_ = ctx
	var b strings.Builder

	title := fmt.Sprintf("Suite %q (%s)", run.SuiteName, run.SuiteType)
	b.WriteString(w.style(styleSummary, title))
	b.WriteString("\n\n")

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(w.tableStyle(styleBorder)).
		Headers("#", "TEST", "TURNS", "STATUS", "DETAIL").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return w.tableStyle(styleHeader)
			}
			return lipgloss.NewStyle()
		})
	for _, t := range run.Tests {
		tbl.Row(
			fmt.Sprintf("%d", t.ExecIndex+1),
			t.Name,
			turnTally(t),
			w.statusCell(t.Result),
			truncate(failureDetail(t), maxDetailWidth),
		)
	}
	b.WriteString(tbl.String())
	b.WriteString("\n\n")
	b.WriteString(w.summaryLine(run.Summarize()))
	b.WriteString("\n")

	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return fmt.Errorf("write console report: %w", err)
	}
	return nil
}

func (w *ConsoleWriter) summaryLine(s Summary) string {
	parts := []string{fmt.Sprintf("%d passed", s.Passed)}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failed))
	}
	if s.NotExecuted > 0 {
		parts = append(parts, fmt.Sprintf("%d not executed", s.NotExecuted))
	}
	line := fmt.Sprintf("%d tests: %s in %s", s.Total, strings.Join(parts, ", "), s.Duration.Round(timeRounding))
	if s.AllPassed() {
		return w.style(stylePassed, "✔") + " " + w.style(styleSummary, line)
	}
	return w.style(styleFailed, "✘") + " " + w.style(styleSummary, line)
}

func (w *ConsoleWriter) statusCell(s status.TestStatus) string {
	label := strings.ToUpper(s.String())
	switch s {
	case status.TestStatusOK:
		return w.style(stylePassed, label)
	case status.TestStatusKO:
		return w.style(styleFailed, label)
	default:
		return label
	}
}

// style applies st only when the destination is a terminal so piped output
// stays free of escape sequences.
func (w *ConsoleWriter) style(st lipgloss.Style, s string) string {
	if !w.styled {
		return s
	}
	return st.Render(s)
}

func (w *ConsoleWriter) tableStyle(st lipgloss.Style) lipgloss.Style {
	if !w.styled {
		return lipgloss.NewStyle()
	}
	return st
}

// turnTally renders executed turns over declared turns, e.g. "2/3".
func turnTally(t *suite.Test) string {
	executed := 0
	for _, a := range t.Assertions {
		if a.Result.Status != status.AssertionStatusUnset {
			executed++
		}
	}
	return fmt.Sprintf("%d/%d", executed, len(t.Assertions))
}

// failureDetail extracts the message of the turn that failed the test.
func failureDetail(t *suite.Test) string {
	for _, a := range t.Assertions {
		if a.Result.Err != nil {
			return a.Result.Err.Message
		}
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
