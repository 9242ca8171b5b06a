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
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/status"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

var runStart = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func trackingSuite(tests ...*suite.Test) *suite.Suite {
	return &suite.Suite{Name: "Tracking dialogs", Type: suite.TypeDialogflow, Tests: tests}
}

func passedTest(name string, idx int) *suite.Test {
	t := &suite.Test{
		Name:      name,
		Lang:      suite.DefaultLang,
		ExecIndex: idx,
		Result:    status.TestStatusOK,
		Assertions: []*suite.Assertion{
			{UserSays: "hello", BotRespondsWith: suite.StringOrList{"Welcome"}},
			{UserSays: "track my parcel", BotRespondsWith: suite.StringOrList{"Tracking"}},
		},
	}
	for _, a := range t.Assertions {
		a.MarkOK(`{"queryResult":{"intent":{"displayName":"Tracking"},"action":"input.welcome"}}`)
	}
	return t
}

func failedTest(name string, idx int) *suite.Test {
	t := &suite.Test{
		Name:      name,
		Lang:      suite.DefaultLang,
		ExecIndex: idx,
		Result:    status.TestStatusKO,
		Assertions: []*suite.Assertion{
			{
				UserSays:        "where is my order",
				BotRespondsWith: suite.StringOrList{"Tracking"},
				ResponseChecks: []*suite.ResponseCheck{{
					Expression: "queryResult.action",
					Operator:   suite.OperatorEquals,
					Value:      suite.StringValue("input.tracking"),
				}},
			},
			{UserSays: "thanks", BotRespondsWith: suite.StringOrList{"Smalltalk"}},
		},
	}
	err := errs.New(errs.KindInvalidResponseCheck,
		"Expected value 'input.tracking' does not match real value: 'input.welcome' for expression: queryResult.action")
	err = err.WithRawResponse(`{"queryResult":{"action":"input.welcome"}}`)
	t.Assertions[0].MarkResponseCheckFailure(err)
	return t
}

func TestNewRunSortsByExecIndex(t *testing.T) {
	first := passedTest("first", 0)
	second := passedTest("second", 1)
	third := failedTest("third", 2)
	s := trackingSuite(first, second, third)

	run := NewRun(s, []*suite.Test{third, first, second}, runStart, 1500*time.Millisecond)

	_, err := uuid.Parse(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "Tracking dialogs", run.SuiteName)
	assert.Equal(t, suite.TypeDialogflow, run.SuiteType)
	assert.Equal(t, runStart, run.StartedAt)
	require.Len(t, run.Tests, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{run.Tests[0].Name, run.Tests[1].Name, run.Tests[2].Name})
}

func TestSummarizeCountsOutcomes(t *testing.T) {
	s := trackingSuite(passedTest("a", 0), failedTest("b", 1), passedTest("c", 2))
	run := NewRun(s, []*suite.Test{s.Tests[0], s.Tests[1]}, runStart, 2*time.Second)

	sum := run.Summarize()
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Passed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.NotExecuted)
	assert.Equal(t, 2*time.Second, sum.Duration)
	assert.False(t, sum.AllPassed())
}

func TestSummaryAllPassed(t *testing.T) {
	s := trackingSuite(passedTest("a", 0), passedTest("b", 1))
	run := NewRun(s, s.Tests, runStart, time.Second)

	sum := run.Summarize()
	assert.True(t, sum.AllPassed())
	assert.Zero(t, sum.Failed)
	assert.Zero(t, sum.NotExecuted)
}

type stubWriter struct {
	err   error
	calls int
}

func (w *stubWriter) Write(ctx context.Context, run *Run) error {
	w.calls++
	return w.err
}

func TestWriteAllAggregatesFailures(t *testing.T) {
	s := trackingSuite(passedTest("a", 0))
	run := NewRun(s, s.Tests, runStart, time.Second)

	ok := &stubWriter{}
	bad1 := &stubWriter{err: errors.New("disk full")}
	bad2 := &stubWriter{err: errors.New("connection refused")}

	err := WriteAll(context.Background(), run, bad1, ok, bad2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad1.calls)
	assert.Equal(t, 1, bad2.calls)
}

func TestWriteAllNoFailures(t *testing.T) {
	s := trackingSuite(passedTest("a", 0))
	run := NewRun(s, s.Tests, runStart, time.Second)

	w1, w2 := &stubWriter{}, &stubWriter{}
	assert.NoError(t, WriteAll(context.Background(), run, w1, w2))
	assert.Equal(t, 1, w1.calls)
	assert.Equal(t, 1, w2.calls)
}

func TestEncodeTests(t *testing.T) {
	s := trackingSuite(passedTest("greeting", 0), failedTest("tracking", 1))
	run := NewRun(s, s.Tests, runStart, time.Second)

	data, encErr := EncodeTests(run)
	require.Nil(t, encErr)

	text := string(data)
	assert.True(t, len(text) > 0 && text[0] == '[')
	assert.Contains(t, text, `"name": "greeting"`)
	assert.Contains(t, text, `"testResult": "ok"`)
	assert.Contains(t, text, `"testResult": "ko"`)
	assert.Contains(t, text, `"status": "ko_response_check"`)
}
