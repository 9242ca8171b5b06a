//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package check applies response checks to backend responses. Failure
// messages are stable contract: reports and downstream tooling match on
// their wording.
package check

import (
	"strconv"
	"strings"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/jsonpath"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

// Evaluate applies one response check to the raw response JSON. It returns
// nil on success; every failure has kind
// InvalidTestAssertionResponseCheckEvaluation and carries the response.
//
// The (operator, value type) pairs outside the supported matrix are rejected
// before any path evaluation happens.
func Evaluate(c *suite.ResponseCheck, responseJSON string) *errs.Error {
	switch c.Operator {
	case suite.OperatorEquals, suite.OperatorNotEquals:
		negate := c.Operator == suite.OperatorNotEquals
		switch c.Value.Kind() {
		case suite.ValueBool:
			return evalBool(c, responseJSON, negate)
		case suite.ValueString:
			return evalString(c, responseJSON, negate)
		case suite.ValueNumber:
			return evalNumber(c, responseJSON, negate)
		}
	case suite.OperatorIncludes:
		if c.Value.Kind() == suite.ValueString {
			return evalIncludes(c, responseJSON)
		}
	case suite.OperatorJSONEquals:
		if c.Value.Kind() == suite.ValueString {
			return evalJSONEquals(c, responseJSON)
		}
	case suite.OperatorLength:
		if c.Value.Kind() == suite.ValueNumber {
			return evalLength(c, responseJSON)
		}
	}
	return rejectShape(c, responseJSON)
}

// rejectShape reports an (operator, value type) pair outside the matrix.
func rejectShape(c *suite.ResponseCheck, responseJSON string) *errs.Error {
	msg := "Operator " + string(c.Operator) + " not allowed for " +
		valueKindName(c.Value.Kind()) + " value of expression: " + c.Expression
	if c.Operator == suite.OperatorLength && c.Value.Kind() == suite.ValueString {
		v := c.Value.String()
		msg += ". If value is '" + v + "' use " + v + " instead."
	}
	return errs.New(errs.KindInvalidResponseCheck, msg).WithRawResponse(responseJSON)
}

func valueKindName(k suite.ValueKind) string {
	switch k {
	case suite.ValueBool:
		return "bool"
	case suite.ValueNumber:
		return "number"
	case suite.ValueString:
		return "string"
	default:
		return "unset"
	}
}

// searchNode evaluates the expression and normalizes any failure to the
// response-check error kind with the response attached.
func searchNode(c *suite.ResponseCheck, responseJSON string) (jsonpath.Node, *errs.Error) {
	node, err := jsonpath.Search(responseJSON, c.Expression)
	if err != nil {
		return jsonpath.Node{}, errs.
			Wrap(errs.KindInvalidResponseCheck, err.Message, err).
			WithRawResponse(responseJSON)
	}
	return node, nil
}

func evalBool(c *suite.ResponseCheck, responseJSON string, negate bool) *errs.Error {
	node, err := searchNode(c, responseJSON)
	if err != nil {
		return err
	}
	actual, ok := node.AsBool()
	if !ok {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Unable to retrieve boolean value (%s) for expression: %s", node.JSON(), c.Expression).
			WithRawResponse(responseJSON)
	}
	expected, _ := c.Value.AsBool()
	if !negate && actual != expected {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Expected value (%s) does not match real value: (%s) for expression: %s",
			strconv.FormatBool(expected), strconv.FormatBool(actual), c.Expression).
			WithRawResponse(responseJSON)
	}
	if negate && actual == expected {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Expected value (%s), got instead value: (%s) for expression: %s",
			strconv.FormatBool(expected), strconv.FormatBool(actual), c.Expression).
			WithRawResponse(responseJSON)
	}
	return nil
}

func evalNumber(c *suite.ResponseCheck, responseJSON string, negate bool) *errs.Error {
	node, err := searchNode(c, responseJSON)
	if err != nil {
		return err
	}
	actual, ok := node.AsNumber()
	if !ok {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Unable to retrieve numerical value (%s) for expression: %s", node.JSON(), c.Expression).
			WithRawResponse(responseJSON)
	}
	expected, _ := c.Value.AsNumber()
	if !negate && actual != expected {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Expected value (%s) does not match real value: (%s) for expression: %s",
			formatNumber(expected), formatNumber(actual), c.Expression).
			WithRawResponse(responseJSON)
	}
	if negate && actual == expected {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Expected value (%s), got instead value: (%s) for expression: %s",
			formatNumber(expected), formatNumber(actual), c.Expression).
			WithRawResponse(responseJSON)
	}
	return nil
}

func evalString(c *suite.ResponseCheck, responseJSON string, negate bool) *errs.Error {
	node, err := searchNode(c, responseJSON)
	if err != nil {
		return err
	}
	actual, ok := node.AsString()
	if !ok {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Unable to retrieve string value (%s) for expression: %s", node.JSON(), c.Expression).
			WithRawResponse(responseJSON)
	}
	expected, _ := c.Value.AsString()
	if !negate && actual != expected {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Expected value '%s' does not match real value: '%s' for expression: %s",
			expected, actual, c.Expression).
			WithRawResponse(responseJSON)
	}
	if negate && actual == expected {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Expected value '%s', got instead value: '%s' for expression: %s",
			expected, actual, c.Expression).
			WithRawResponse(responseJSON)
	}
	return nil
}

func evalIncludes(c *suite.ResponseCheck, responseJSON string) *errs.Error {
	node, err := searchNode(c, responseJSON)
	if err != nil {
		return err
	}
	actual, ok := node.AsString()
	if !ok {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Unable to retrieve string value (%s) for expression: %s", node.JSON(), c.Expression).
			WithRawResponse(responseJSON)
	}
	expected, _ := c.Value.AsString()
	if !strings.Contains(actual, expected) {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Expected value '%s' not included in real value: '%s' for expression: %s",
			expected, actual, c.Expression).
			WithRawResponse(responseJSON)
	}
	return nil
}

func evalLength(c *suite.ResponseCheck, responseJSON string) *errs.Error {
	node, err := searchNode(c, responseJSON)
	if err != nil {
		return err
	}
	items, ok := node.AsArray()
	if !ok {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Operator length allowed for array expressions only. Expression: %s", c.Expression).
			WithRawResponse(responseJSON)
	}
	value, _ := c.Value.AsNumber()
	// Legacy rounding: the YAML schema writes lengths as numbers and the
	// comparison truncates toward zero.
	expected := int(value)
	if len(items) != expected {
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Expected array length %d, got %d for expression: %s",
			expected, len(items), c.Expression).
			WithRawResponse(responseJSON)
	}
	return nil
}

func evalJSONEquals(c *suite.ResponseCheck, responseJSON string) *errs.Error {
	node, err := searchNode(c, responseJSON)
	if err != nil {
		return err
	}
	expectedText, _ := c.Value.AsString()
	switch node.Kind() {
	case jsonpath.NodeArray:
		diff, err := jsonpath.CompareJSON(node, expectedText)
		if err != nil {
			return errs.Wrap(errs.KindInvalidResponseCheck, err.Message, err).
				WithRawResponse(responseJSON)
		}
		if diff != "" {
			return errs.Newf(errs.KindInvalidResponseCheck,
				"Arrays not matching for expression '%s'. Error: %s", c.Expression, diff).
				WithRawResponse(responseJSON)
		}
	case jsonpath.NodeObject:
		diff, err := jsonpath.CompareJSON(node, expectedText)
		if err != nil {
			return errs.Wrap(errs.KindInvalidResponseCheck, err.Message, err).
				WithRawResponse(responseJSON)
		}
		if diff != "" {
			return errs.Newf(errs.KindInvalidResponseCheck,
				"Objects not matching for expression '%s'. Error: %s", c.Expression, diff).
				WithRawResponse(responseJSON)
		}
	default:
		return errs.Newf(errs.KindInvalidResponseCheck,
			"Unable to retrieve array or object value (%s) for expression: %s", node.JSON(), c.Expression).
			WithRawResponse(responseJSON)
	}
	return nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
