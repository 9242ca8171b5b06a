//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package suite defines the declarative test suite model and its YAML loader.
package suite

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/status"
)

// Type names the backend a suite runs against.
type Type string

const (
	// TypeDialogflow targets Google Dialogflow directly.
	TypeDialogflow Type = "DialogFlow"
	// TypeVAP targets the DHL VAP gateway.
	TypeVAP Type = "DHLVAP"
)

// DefaultLang is applied to tests that do not set a language tag.
const DefaultLang = "en"

// Suite is the immutable input of one run.
type Suite struct {
	// Name identifies the suite in reports.
	Name string `yaml:"name" json:"name"`
	// Type selects the backend adapter.
	Type Type `yaml:"type" json:"type"`
	// Config carries backend-specific key/value settings.
	Config map[string]string `yaml:"-" json:"config,omitempty"`
	// Tests is the ordered list of tests to execute.
	Tests []*Test `yaml:"-" json:"tests"`
}

// ConfigValue returns the config value for key. A missing key yields a
// GenericError with the exact message reporters and tests rely on.
func (s *Suite) ConfigValue(key string) (string, *errs.Error) {
	v, ok := s.Config[key]
	if !ok || v == "" {
		return "", errs.New(errs.KindGeneric, key+" config value not found")
	}
	return v, nil
}

// Test is one multi-turn dialog and its expectations. It is mutated by the
// executor that owns it and published exactly once on completion.
type Test struct {
	// Name identifies the test in reports.
	Name string `yaml:"name" json:"name"`
	// Description is optional markdown shown in the HTML report.
	Description string `yaml:"desc" json:"desc,omitempty"`
	// Lang is the BCP-47 language tag sent with every turn.
	Lang string `yaml:"lang" json:"lang"`
	// Assertions is the ordered list of dialog turns.
	Assertions []*Assertion `yaml:"assertions" json:"assertions"`
	// ExecIndex is the stable dispatch position assigned by the runner.
	ExecIndex int `yaml:"-" json:"execIndex"`
	// Result is the terminal outcome, written exactly once.
	Result status.TestStatus `yaml:"-" json:"testResult"`
}

// Clone deep-copies the test so the executor can mutate it while the
// original suite stays untouched.
func (t *Test) Clone() *Test {
	out := &Test{
		Name:        t.Name,
		Description: t.Description,
		Lang:        t.Lang,
		ExecIndex:   t.ExecIndex,
		Result:      t.Result,
		Assertions:  make([]*Assertion, len(t.Assertions)),
	}
	for i, a := range t.Assertions {
		out.Assertions[i] = a.clone()
	}
	return out
}

// Assertion is one dialog turn: an utterance, the accepted intent names and
// the structured checks applied to the response.
type Assertion struct {
	// UserSays is the utterance sent to the backend.
	UserSays string `yaml:"userSays" json:"userSays"`
	// BotRespondsWith lists the accepted intent display names.
	BotRespondsWith StringOrList `yaml:"botRespondsWith" json:"botRespondsWith"`
	// ResponseChecks are evaluated in order after the intent matches.
	ResponseChecks []*ResponseCheck `yaml:"responseChecks" json:"responseChecks,omitempty"`
	// Result records the turn outcome.
	Result AssertionResult `yaml:"-" json:"assertionResult"`
}

func (a *Assertion) clone() *Assertion {
	out := &Assertion{
		UserSays:        a.UserSays,
		BotRespondsWith: append(StringOrList(nil), a.BotRespondsWith...),
		Result:          a.Result,
	}
	if a.ResponseChecks != nil {
		out.ResponseChecks = make([]*ResponseCheck, len(a.ResponseChecks))
		for i, c := range a.ResponseChecks {
			cc := *c
			out.ResponseChecks[i] = &cc
		}
	}
	return out
}

// MarkOK records a passed turn and retains the raw backend response.
func (a *Assertion) MarkOK(rawResponse string) {
	a.Result = AssertionResult{Status: status.AssertionStatusOK, RawResponse: rawResponse}
}

// MarkIntentMismatch records a failed intent match.
func (a *Assertion) MarkIntentMismatch(err *errs.Error) {
	a.Result = AssertionResult{Status: status.AssertionStatusKOIntentMismatch, Err: err}
}

// MarkResponseCheckFailure records a failed response check.
func (a *Assertion) MarkResponseCheckFailure(err *errs.Error) {
	a.Result = AssertionResult{Status: status.AssertionStatusKOResponseCheck, Err: err}
}

// AssertionResult is the tagged outcome of one turn: OK keeps the raw
// response, the KO variants keep the failure.
type AssertionResult struct {
	Status      status.AssertionStatus `json:"status"`
	RawResponse string                 `json:"rawResponse,omitempty"`
	Err         *errs.Error            `json:"error,omitempty"`
}

// StringOrList accepts either a scalar string or a sequence of strings.
type StringOrList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringOrList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringOrList(v)
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// Operator names a response check comparison.
type Operator string

const (
	// OperatorEquals compares for equality.
	OperatorEquals Operator = "equals"
	// OperatorNotEquals compares for inequality.
	OperatorNotEquals Operator = "!equals"
	// OperatorIncludes checks substring containment.
	OperatorIncludes Operator = "includes"
	// OperatorJSONEquals deep-compares JSON structures.
	OperatorJSONEquals Operator = "jsonequals"
	// OperatorLength compares an array length.
	OperatorLength Operator = "length"
)

var operators = map[Operator]bool{
	OperatorEquals:     true,
	OperatorNotEquals:  true,
	OperatorIncludes:   true,
	OperatorJSONEquals: true,
	OperatorLength:     true,
}

// ResponseCheck is one structured expectation over a turn response.
type ResponseCheck struct {
	// Expression addresses the checked value inside the response JSON.
	Expression string `yaml:"expression" json:"expression"`
	// Operator selects the comparison.
	Operator Operator `yaml:"operator" json:"operator"`
	// Value is the expected value.
	Value Value `yaml:"value" json:"value"`
}

// ValueKind names the type a check value was written as.
type ValueKind int

const (
	// ValueUnset means no value was given.
	ValueUnset ValueKind = iota
	// ValueBool is a YAML boolean.
	ValueBool
	// ValueNumber is a YAML integer or float.
	ValueNumber
	// ValueString is a YAML string.
	ValueString
)

// Value is the expected value of a response check: a bool, a float64 or a
// string, fixed at load time.
type Value struct {
	kind ValueKind
	b    bool
	f    float64
	s    string
}

// BoolValue builds a boolean check value.
func BoolValue(b bool) Value { return Value{kind: ValueBool, b: b} }

// NumberValue builds a numeric check value.
func NumberValue(f float64) Value { return Value{kind: ValueNumber, f: f} }

// StringValue builds a string check value.
func StringValue(s string) Value { return Value{kind: ValueString, s: s} }

// Kind reports how the value was written in the suite file.
func (v Value) Kind() ValueKind { return v.kind }

// AsBool returns the boolean value, or false when the value is not a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == ValueBool }

// AsNumber returns the numeric value, or false when the value is not a number.
func (v Value) AsNumber() (float64, bool) { return v.f, v.kind == ValueNumber }

// AsString returns the string value, or false when the value is not a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == ValueString }

// String renders the value the way failure messages quote it.
func (v Value) String() string {
	switch v.kind {
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case ValueString:
		return v.s
	default:
		return ""
	}
}

// UnmarshalYAML implements yaml.Unmarshaler, keeping the scalar type the
// suite author wrote.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: response check value must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = NumberValue(f)
	case "!!str":
		*v = StringValue(node.Value)
	case "!!null":
		*v = Value{}
	default:
		return fmt.Errorf("line %d: unsupported response check value type %s", node.Line, node.Tag)
	}
	return nil
}

// MarshalJSON writes the value as its native JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueBool:
		return json.Marshal(v.b)
	case ValueNumber:
		return json.Marshal(v.f)
	case ValueString:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON restores the value from its native JSON type.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Value{}
	case bool:
		*v = BoolValue(x)
	case float64:
		*v = NumberValue(x)
	case string:
		*v = StringValue(x)
	default:
		return fmt.Errorf("unsupported response check value %s", data)
	}
	return nil
}
