//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package cli implements the dialogtest command line interface.
package cli

import "errors"

// Exit codes of the dialogtest binary.
const (
	// ExitSuccess means every test of every matched suite passed.
	ExitSuccess = 0

	// ExitTestFailure means the run completed but at least one test failed.
	ExitTestFailure = 1

	// ExitRunError covers everything that kept the run from completing:
	// usage errors, suite-load and backend-construction failures, report
	// writing failures and interrupted runs.
	ExitRunError = 2
)

// ExitError wraps an error with the process exit code it should produce.
type ExitError struct {
	Err  error
	Code int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given error and exit code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// ExitCodeFromError determines the exit code for an error. Errors without a
// code of their own, cobra usage errors included, map to ExitRunError.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitRunError
}
