//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package runner executes a suite: it owns one executor per test, drives them
// over a fixed-size worker pool and streams completed test records back to
// the caller over a buffered result channel.
package runner

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-dialogtest-go/backend"
	"trpc.group/trpc-go/trpc-dialogtest-go/check"
	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/status"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
	"trpc.group/trpc-go/trpc-dialogtest-go/telemetry"
)

// executor owns exactly one test record and the backend conversation it runs
// against. The cursor only moves forward; a failed turn jumps it past the end
// so later turns keep their unset result.
type executor struct {
	test      *suite.Test
	backend   backend.Backend
	results   chan<- *suite.Test
	cursor    int
	published bool
}

func newExecutor(test *suite.Test, b backend.Backend, results chan<- *suite.Test) *executor {
	return &executor{
		test:    test,
		backend: b,
		results: results,
	}
}

// run drives the test to completion on the calling worker goroutine.
func (e *executor) run(ctx context.Context) {
	ctx, span := telemetry.Tracer.Start(ctx, "dialogtest.test",
		trace.WithAttributes(
			attribute.String(telemetry.KeyTestName, e.test.Name),
			attribute.Int(telemetry.KeyTestExecIndex, e.test.ExecIndex),
			attribute.String(telemetry.KeyConversationID, e.backend.ConversationID()),
		))
	defer span.End()

	for !e.executeNextAssertion(ctx) {
	}
	span.SetAttributes(attribute.String(telemetry.KeyTestStatus, e.test.Result.String()))
}

// executeNextAssertion runs the turn under the cursor and reports whether the
// test is finished. Once all turns passed, or the first one failed, it stamps
// the terminal test result and publishes the record exactly once.
func (e *executor) executeNextAssertion(ctx context.Context) (done bool) {
	if e.cursor >= len(e.test.Assertions) {
		e.finish(status.TestStatusOK)
		return true
	}

	a := e.test.Assertions[e.cursor]
	turn := e.cursor

	raw, err := e.invoke(ctx, turn, a.UserSays)
	if err != nil {
		a.MarkIntentMismatch(err)
		e.fail()
		return true
	}
	if err := backend.MatchIntent(raw, e.backend.IntentPath(), a.BotRespondsWith); err != nil {
		a.MarkIntentMismatch(err)
		e.fail()
		return true
	}
	for _, c := range a.ResponseChecks {
		if err := check.Evaluate(c, raw); err != nil {
			a.MarkResponseCheckFailure(err)
			e.fail()
			return true
		}
	}

	a.MarkOK(raw)
	e.cursor++
	return false
}

func (e *executor) invoke(ctx context.Context, turn int, utterance string) (string, *errs.Error) {
	start := time.Now()
	raw, err := e.backend.Invoke(ctx, utterance, e.test.Lang)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.TurnDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(
			attribute.Int(telemetry.KeyTurnIndex, turn),
			attribute.String("outcome", outcome),
		))
	return raw, err
}

// fail stamps the KO result and moves the cursor past the end so every later
// assertion stays unset.
func (e *executor) fail() {
	e.cursor = len(e.test.Assertions) + 1
	e.finish(status.TestStatusKO)
}

// abort force-finishes the test after a worker-level failure such as a
// panicking turn. The current assertion receives the error so the record
// still carries exactly one KO turn.
func (e *executor) abort(err *errs.Error) {
	if e.published {
		return
	}
	if e.cursor < len(e.test.Assertions) {
		e.test.Assertions[e.cursor].MarkIntentMismatch(err)
	}
	e.fail()
}

func (e *executor) finish(result status.TestStatus) {
	if e.published {
		return
	}
	e.test.Result = result
	e.published = true
	e.results <- e.test
}
