//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package status provides the terminal states of tests and assertions.
package status

import "fmt"

// TestStatus represents the outcome of one test.
type TestStatus int

const (
	// TestStatusUnset means the test has not reached a terminal state yet.
	TestStatusUnset TestStatus = iota
	// TestStatusOK means every assertion of the test passed.
	TestStatusOK
	// TestStatusKO means one assertion of the test failed.
	TestStatusKO
)

// String returns the string representation of the test status.
func (s TestStatus) String() string {
	switch s {
	case TestStatusOK:
		return "ok"
	case TestStatusKO:
		return "ko"
	default:
		return "unset"
	}
}

// MarshalJSON serializes the status by name so reports stay readable.
func (s TestStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON restores a status from its name.
func (s *TestStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"ok"`:
		*s = TestStatusOK
	case `"ko"`:
		*s = TestStatusKO
	case `"unset"`:
		*s = TestStatusUnset
	default:
		return fmt.Errorf("unknown test status %s", data)
	}
	return nil
}

// AssertionStatus represents the outcome of one dialog turn.
type AssertionStatus int

const (
	// AssertionStatusUnset means the turn was never executed.
	AssertionStatusUnset AssertionStatus = iota
	// AssertionStatusOK means the intent matched and every response check passed.
	AssertionStatusOK
	// AssertionStatusKOIntentMismatch means the backend returned no intent
	// name or one outside the accepted set.
	AssertionStatusKOIntentMismatch
	// AssertionStatusKOResponseCheck means a response check failed.
	AssertionStatusKOResponseCheck
)

// String returns the string representation of the assertion status.
func (s AssertionStatus) String() string {
	switch s {
	case AssertionStatusOK:
		return "ok"
	case AssertionStatusKOIntentMismatch:
		return "ko_intent_mismatch"
	case AssertionStatusKOResponseCheck:
		return "ko_response_check"
	default:
		return "unset"
	}
}

// MarshalJSON serializes the status by name so reports stay readable.
func (s AssertionStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON restores a status from its name.
func (s *AssertionStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"ok"`:
		*s = AssertionStatusOK
	case `"ko_intent_mismatch"`:
		*s = AssertionStatusKOIntentMismatch
	case `"ko_response_check"`:
		*s = AssertionStatusKOResponseCheck
	case `"unset"`:
		*s = AssertionStatusUnset
	default:
		return fmt.Errorf("unknown assertion status %s", data)
	}
	return nil
}
