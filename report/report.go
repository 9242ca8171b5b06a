//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package report renders the outcome of a suite run. A Run snapshots the
// suite identity plus the test records the orchestrator collected; writers
// turn one Run into a console table, a JSON file, an HTML page or a PDF.
package report

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/status"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

// Run is one completed (or interrupted) suite execution. Tests holds the
// records the orchestrator received, sorted by execution index; on an
// interrupted run it is shorter than Total.
type Run struct {
	// RunID uniquely identifies this execution.
	RunID string `json:"runId"`
	// SuiteName is the name of the executed suite.
	SuiteName string `json:"suiteName"`
	// SuiteType is the backend the suite ran against.
	SuiteType suite.Type `json:"suiteType"`
	// StartedAt is when the run was dispatched.
	StartedAt time.Time `json:"startedAt"`
	// Duration is the wall-clock time of the whole run.
	Duration time.Duration `json:"duration"`
	// Tests are the collected records sorted by execution index.
	Tests []*suite.Test `json:"tests"`

	// total is the number of tests the suite declared, which exceeds
	// len(Tests) when the run was interrupted.
	total int
}

// NewRun snapshots a finished execution. The tests slice is the set of
// records received from the runner; completion order does not matter, the
// run sorts them by execution index.
func NewRun(s *suite.Suite, tests []*suite.Test, startedAt time.Time, duration time.Duration) *Run {
	sorted := make([]*suite.Test, len(tests))
	copy(sorted, tests)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ExecIndex < sorted[j].ExecIndex })
	return &Run{
		RunID:     uuid.New().String(),
		SuiteName: s.Name,
		SuiteType: s.Type,
		StartedAt: startedAt,
		Duration:  duration,
		Tests:     sorted,
		total:     len(s.Tests),
	}
}

// Summary aggregates one run for the console footer, the HTML header and
// the MySQL run row.
type Summary struct {
	// Total is the number of tests the suite declared.
	Total int `json:"total"`
	// Passed counts tests with status Ok.
	Passed int `json:"passed"`
	// Failed counts tests with status Ko.
	Failed int `json:"failed"`
	// NotExecuted counts tests with no received record, non-zero only
	// when the run was interrupted.
	NotExecuted int `json:"notExecuted"`
	// Duration is the wall-clock time of the whole run.
	Duration time.Duration `json:"duration"`
}

// AllPassed reports whether every declared test ran and passed.
func (s Summary) AllPassed() bool {
	return s.Total == s.Passed
}

// Summarize counts the run's outcomes.
func (r *Run) Summarize() Summary {
	s := Summary{Total: r.total, Duration: r.Duration}
	for _, t := range r.Tests {
		switch t.Result {
		case status.TestStatusOK:
			s.Passed++
		case status.TestStatusKO:
			s.Failed++
		}
	}
	s.NotExecuted = s.Total - len(r.Tests)
	return s
}

// Writer renders one run to a destination.
type Writer interface {
	// Write renders run. Implementations must not mutate it.
	Write(ctx context.Context, run *Run) error
}

// WriteAll invokes every writer and aggregates their failures so one broken
// destination does not mask the others.
func WriteAll(ctx context.Context, run *Run, writers ...Writer) error {
	var result *multierror.Error
	for _, w := range writers {
		if err := w.Write(ctx, run); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// EncodeTests serializes the run's test records the way the JSON report
// file lays them out.
func EncodeTests(run *Run) ([]byte, *errs.Error) {
	data, err := json.MarshalIndent(run.Tests, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.KindJSONSerDeser, "encode test records", err)
	}
	return data, nil
}

// writeAtomic renders into path via a temp file plus rename so readers never
// observe a half-written report.
func writeAtomic(path string, render func(io.Writer) error) *errs.Error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(errs.KindIO, "create report directory "+dir, err)
		}
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(errs.KindIO, "create report file "+tmp, err)
	}
	if err := render(f); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return errs.Convert(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.KindIO, "close report file "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Wrap(errs.KindIO, "publish report file "+path, err)
	}
	return nil
}
