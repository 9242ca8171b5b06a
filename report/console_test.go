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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleWriterRendersTable(t *testing.T) {
	s := trackingSuite(passedTest("greeting flow", 0), failedTest("tracking flow", 1))
	run := NewRun(s, s.Tests, runStart, 1230*time.Millisecond)

	var buf bytes.Buffer
	w := NewConsoleWriter(&buf)
	require.NoError(t, w.Write(context.Background(), run))

	out := buf.String()
	assert.Contains(t, out, `Suite "Tracking dialogs" (DialogFlow)`)
	assert.Contains(t, out, "TEST")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "greeting flow")
	assert.Contains(t, out, "tracking flow")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "KO")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "does not match real value")
	assert.Contains(t, out, "2 tests: 1 passed, 1 failed in 1.23s")
	assert.Contains(t, out, "✘")
	assert.NotContains(t, out, "\x1b[", "piped output must stay free of escape sequences")
}

func TestConsoleWriterAllPassed(t *testing.T) {
	s := trackingSuite(passedTest("a", 0), passedTest("b", 1))
	run := NewRun(s, s.Tests, runStart, 500*time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, NewConsoleWriter(&buf).Write(context.Background(), run))

	assert.Contains(t, buf.String(), "✔")
	assert.Contains(t, buf.String(), "2 tests: 2 passed in 500ms")
}

func TestConsoleWriterNotExecuted(t *testing.T) {
	s := trackingSuite(passedTest("a", 0), passedTest("b", 1), passedTest("c", 2))
	run := NewRun(s, s.Tests[:1], runStart, time.Second)

	var buf bytes.Buffer
	require.NoError(t, NewConsoleWriter(&buf).Write(context.Background(), run))

	assert.Contains(t, buf.String(), "2 not executed")
}

func TestTurnTally(t *testing.T) {
	full := passedTest("a", 0)
	assert.Equal(t, "2/2", turnTally(full))

	partial := failedTest("b", 1)
	assert.Equal(t, "1/2", turnTally(partial))
}

func TestFailureDetail(t *testing.T) {
	assert.Empty(t, failureDetail(passedTest("a", 0)))
	assert.Contains(t, failureDetail(failedTest("b", 1)), "Expected value 'input.tracking'")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("x", 100)
	got := truncate(long, 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
