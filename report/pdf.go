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
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

// PDFWriter renders the run as a printable document: suite header, summary
// line and one turn table per test. Raw responses stay in the HTML report;
// the PDF keeps row content short.
type PDFWriter struct {
	path string
}

// NewPDFWriter creates a writer targeting path.
func NewPDFWriter(path string) *PDFWriter {
	return &PDFWriter{path: path}
}

// Write implements Writer.
func (w *PDFWriter) Write(ctx context.Context, run *Run) error {
	_ = ctx
	doc := buildPDF(run)
	if err := writeAtomic(w.path, func(f io.Writer) error {
		if err := doc.Output(f); err != nil {
			return errs.Wrap(errs.KindGeneric, "render pdf report", err)
		}
		return nil
	}); err != nil {
		return err
	}
	return nil
}

func buildPDF(run *Run) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(run.SuiteName+" dialog test report", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 9, tr(fmt.Sprintf("Suite %q (%s)", run.SuiteName, run.SuiteType)))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(87, 96, 106)
	meta := fmt.Sprintf("run %s, started %s, took %s",
		run.RunID, run.StartedAt.Format("2006-01-02 15:04:05 MST"), run.Duration.Round(timeRounding))
	pdf.Cell(0, 5, tr(meta))
	pdf.Ln(8)

	s := run.Summarize()
	pdf.SetFont("Helvetica", "B", 11)
	if s.AllPassed() {
		pdf.SetTextColor(26, 127, 55)
	} else {
		pdf.SetTextColor(207, 34, 46)
	}
	verdict := fmt.Sprintf("%d tests: %d passed, %d failed", s.Total, s.Passed, s.Failed)
	if s.NotExecuted > 0 {
		verdict += fmt.Sprintf(", %d not executed", s.NotExecuted)
	}
	pdf.Cell(0, 6, tr(verdict))
	pdf.Ln(10)

	for _, t := range run.Tests {
		writeTestBlock(pdf, tr, t)
	}
	return pdf
}

// turnColumns lays out the per-test table on an A4 page with 10mm margins.
var turnColumns = []struct {
	width float64
	title string
	chars int
}{
	{8, "#", 3},
	{52, "User says", 34},
	{50, "Accepted intents", 32},
	{22, "Status", 12},
	{58, "Detail", 38},
}

func writeTestBlock(pdf *fpdf.Fpdf, tr func(string) string, t *suite.Test) {
	pdf.SetTextColor(31, 35, 40)
	pdf.SetFont("Helvetica", "B", 11)
	title := fmt.Sprintf("#%d %s [%s]", t.ExecIndex+1, t.Name, strings.ToUpper(t.Result.String()))
	pdf.Cell(0, 7, tr(title))
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(246, 248, 250)
	for _, c := range turnColumns {
		pdf.CellFormat(c.width, 6, c.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for i, a := range t.Assertions {
		detail := ""
		if a.Result.Err != nil {
			detail = a.Result.Err.Message
		}
		cells := []string{
			strconv.Itoa(i + 1),
			a.UserSays,
			strings.Join(a.BotRespondsWith, ", "),
			turnLabel(a.Result.Status),
			detail,
		}
		for j, c := range turnColumns {
			pdf.CellFormat(c.width, 6, tr(truncate(cells[j], c.chars)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}
