//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package jsonpath

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
)

// CompareJSON deep-compares a node against expected JSON text. The node is
// the left-hand side, the expected text the right-hand side. It returns an
// empty diff when the structures are equal; otherwise the diff names every
// path at which atoms differ or keys are missing on either side. Array
// element order is significant.
func CompareJSON(actual Node, expectedText string) (string, *errs.Error) {
	var expected any
	if err := json.Unmarshal([]byte(expectedText), &expected); err != nil {
		return "", errs.Wrap(errs.KindJSONParsing, "invalid expected JSON", err)
	}
	if reflect.DeepEqual(actual.value, expected) {
		return "", nil
	}
	var lines []string
	diffValues("", actual.value, expected, &lines)
	return strings.Join(lines, "\n"), nil
}

func diffValues(path string, lhs, rhs any, lines *[]string) {
	switch l := lhs.(type) {
	case map[string]any:
		r, ok := rhs.(map[string]any)
		if !ok {
			appendUnequal(path, lhs, rhs, lines)
			return
		}
		diffObjects(path, l, r, lines)
	case []any:
		r, ok := rhs.([]any)
		if !ok {
			appendUnequal(path, lhs, rhs, lines)
			return
		}
		diffArrays(path, l, r, lines)
	default:
		if !atomsEqual(lhs, rhs) {
			appendUnequal(path, lhs, rhs, lines)
		}
	}
}

func diffObjects(path string, lhs, rhs map[string]any, lines *[]string) {
	keys := make([]string, 0, len(lhs)+len(rhs))
	seen := make(map[string]bool, len(lhs)+len(rhs))
	for key := range lhs {
		keys = append(keys, key)
		seen[key] = true
	}
	for key := range rhs {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		keyPath := path + "." + key
		lv, inLHS := lhs[key]
		rv, inRHS := rhs[key]
		switch {
		case inLHS && !inRHS:
			*lines = append(*lines, fmt.Sprintf("json atom at path %q is missing from rhs", keyPath))
		case !inLHS && inRHS:
			*lines = append(*lines, fmt.Sprintf("json atom at path %q is missing from lhs", keyPath))
		default:
			diffValues(keyPath, lv, rv, lines)
		}
	}
}

func diffArrays(path string, lhs, rhs []any, lines *[]string) {
	shared := len(lhs)
	if len(rhs) < shared {
		shared = len(rhs)
	}
	for i := 0; i < shared; i++ {
		diffValues(fmt.Sprintf("%s[%d]", path, i), lhs[i], rhs[i], lines)
	}
	for i := shared; i < len(lhs); i++ {
		*lines = append(*lines, fmt.Sprintf("json atom at path %q is missing from rhs", fmt.Sprintf("%s[%d]", path, i)))
	}
	for i := shared; i < len(rhs); i++ {
		*lines = append(*lines, fmt.Sprintf("json atom at path %q is missing from lhs", fmt.Sprintf("%s[%d]", path, i)))
	}
}

func appendUnequal(path string, lhs, rhs any, lines *[]string) {
	*lines = append(*lines, fmt.Sprintf("json atoms at path %q are not equal: %s != %s",
		path, renderJSON(lhs), renderJSON(rhs)))
}

// atomsEqual compares two scalar values. The caller guarantees lhs is a
// scalar; rhs may still be a container, which never equals a scalar and
// must not reach the == below (maps and slices are not comparable).
func atomsEqual(lhs, rhs any) bool {
	switch rhs.(type) {
	case map[string]any, []any:
		return false
	}
	if lhs == nil || rhs == nil {
		return lhs == nil && rhs == nil
	}
	return lhs == rhs
}

func renderJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
