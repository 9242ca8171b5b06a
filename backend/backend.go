//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package backend defines the NLP backend capability the executor drives.
// Adapters live in the dialogflow and vap subpackages.
package backend

import (
	"context"
	"encoding/json"
	"strings"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/jsonpath"
)

// Backend sends one utterance per turn and returns the raw response JSON in
// canonical pretty form. Implementations mint their credentials at
// construction; Invoke only performs turn calls.
type Backend interface {
	// Invoke sends the utterance with the given language tag and returns
	// the canonical response body.
	Invoke(ctx context.Context, utterance, lang string) (string, *errs.Error)
	// ConversationID returns the dialog session identifier, constant for
	// the lifetime of the adapter.
	ConversationID() string
	// IntentPath returns the path expression of the intent display name
	// inside a turn response.
	IntentPath() string
}

// MatchIntent extracts the intent display name at intentPath and verifies it
// against the accepted set. Both failure messages carry the full response.
func MatchIntent(responseJSON, intentPath string, accepted []string) *errs.Error {
	expectedList := strings.Join(accepted, ",")

	node, err := jsonpath.Search(responseJSON, intentPath)
	if err != nil {
		return errs.
			Wrap(errs.KindInvalidAssertion, "No intent name received. Expected: '"+expectedList+"'", err).
			WithRawResponse(responseJSON)
	}
	name, ok := node.AsString()
	if !ok || name == "" {
		return errs.
			Newf(errs.KindInvalidAssertion, "No intent name received. Expected: '%s'", expectedList).
			WithRawResponse(responseJSON)
	}
	for _, candidate := range accepted {
		if candidate == name {
			return nil
		}
	}
	return errs.
		Newf(errs.KindInvalidAssertion, "Wrong intent name received. Expected one of: '%s', got: '%s'",
			expectedList, name).
		WithRawResponse(responseJSON)
}

// CanonicalJSON re-serializes a response body in canonical pretty form
// (two-space indent, sorted keys) so structural diffs over retained
// responses stay stable.
func CanonicalJSON(body []byte) (string, *errs.Error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", errs.Wrap(errs.KindJSONParsing, "cannot parse backend response", err).
			WithRawResponse(string(body))
	}
	pretty, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return "", errs.Wrap(errs.KindJSONSerDeser, "cannot re-serialize backend response", err).
			WithRawResponse(string(body))
	}
	return string(pretty), nil
}
