//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil error",
			err:  nil,
			want: ExitSuccess,
		},
		{
			name: "exit error",
			err:  NewExitError(errors.New("2 of 4 tests failed"), ExitTestFailure),
			want: ExitTestFailure,
		},
		{
			name: "wrapped exit error",
			err:  fmt.Errorf("outer: %w", NewExitError(errors.New("boom"), ExitRunError)),
			want: ExitRunError,
		},
		{
			name: "plain error",
			err:  errors.New("unknown flag: --nope"),
			want: ExitRunError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFromError(tt.err))
		})
	}
}

func TestExitErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewExitError(cause, ExitRunError)

	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
