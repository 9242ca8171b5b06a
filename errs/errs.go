//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package errs defines the structured error type shared by suite loading,
// backend invocation and assertion evaluation.
package errs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names the failure category of an Error. The set is closed: reporters
// and exit-code mapping switch on it.
type Kind string

// All error kinds produced by the runner.
const (
	// KindGDFTokenRetrieval indicates the OAuth jwt-bearer exchange failed.
	KindGDFTokenRetrieval Kind = "GDFTokenRetrievalError"
	// KindGDFInvocation indicates a detectIntent call failed at protocol level.
	KindGDFInvocation Kind = "GDFInvocationError"
	// KindHTTPInvocation indicates a transport failure; the cause is retained.
	KindHTTPInvocation Kind = "HttpInvocationError"
	// KindYamlParsing indicates a suite load or validation failure.
	KindYamlParsing Kind = "YamlParsingError"
	// KindJSONParsing indicates a JSON decode failure.
	KindJSONParsing Kind = "JsonParsingError"
	// KindJSONSerDeser indicates a JSON encode/re-serialization failure.
	KindJSONSerDeser Kind = "JsonSerDeser"
	// KindIO indicates a filesystem failure (credentials file, report writes).
	KindIO Kind = "IOError"
	// KindJWTCreation indicates the service-account JWT could not be signed.
	KindJWTCreation Kind = "JWTCreation"
	// KindInvalidAssertion indicates the backend returned no intent name or
	// one outside the accepted set.
	KindInvalidAssertion Kind = "InvalidTestAssertionEvaluation"
	// KindInvalidResponseCheck indicates a response check failed or was
	// malformed.
	KindInvalidResponseCheck Kind = "InvalidTestAssertionResponseCheckEvaluation"
	// KindGeneric covers configuration validation failures.
	KindGeneric Kind = "GenericError"
)

// Error carries the failure category plus everything reporters need: the
// display message, an optional short code and the raw backend response
// captured at failure time.
type Error struct {
	Kind        Kind   `json:"kind"`
	Message     string `json:"message"`
	Code        string `json:"code,omitempty"`
	RawResponse string `json:"rawResponse,omitempty"`

	cause error
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind that retains cause for
// errors.Is/As chains and for reporter rendering.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithCode attaches a short code, typically an HTTP status.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithRawResponse attaches the backend body observed at failure time.
func (e *Error) WithRawResponse(raw string) *Error {
	e.RawResponse = raw
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// MarshalJSON includes the cause chain so JSON reports keep the full story.
func (e *Error) MarshalJSON() ([]byte, error) {
	type alias Error
	out := struct {
		*alias
		Cause string `json:"cause,omitempty"`
	}{alias: (*alias)(e)}
	if e.cause != nil {
		out.Cause = e.cause.Error()
	}
	return json.Marshal(out)
}

// From extracts an *Error from an error chain.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, or KindGeneric when err carries none.
func KindOf(err error) Kind {
	if e, ok := From(err); ok {
		return e.Kind
	}
	return KindGeneric
}

// Convert returns err as *Error, wrapping foreign errors as KindGeneric.
func Convert(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := From(err); ok {
		return e
	}
	return Wrap(KindGeneric, err.Error(), err)
}
