//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package jsonpath evaluates JMESPath expressions against JSON documents and
// compares JSON structures for the response-check evaluator.
package jsonpath

import (
	"encoding/json"

	"github.com/jmespath/go-jmespath"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
)

// NodeKind names the JSON type a search landed on.
type NodeKind int

const (
	// NodeNull is a JSON null or an expression that matched nothing.
	NodeNull NodeKind = iota
	// NodeBool is a JSON boolean.
	NodeBool
	// NodeNumber is a JSON number.
	NodeNumber
	// NodeString is a JSON string.
	NodeString
	// NodeArray is a JSON array.
	NodeArray
	// NodeObject is a JSON object.
	NodeObject
	// NodeReference is a non-JSON Go value reached through a search over a
	// document that was not decoded from JSON text.
	NodeReference
)

// String returns the node kind name used in failure messages.
func (k NodeKind) String() string {
	switch k {
	case NodeNull:
		return "null"
	case NodeBool:
		return "boolean"
	case NodeNumber:
		return "numerical"
	case NodeString:
		return "string"
	case NodeArray:
		return "array"
	case NodeObject:
		return "object"
	default:
		return "reference"
	}
}

// Node is the result of a search: one position in a JSON document.
type Node struct {
	value any
}

// Kind reports the JSON type of the node.
func (n Node) Kind() NodeKind {
	switch n.value.(type) {
	case nil:
		return NodeNull
	case bool:
		return NodeBool
	case float64:
		return NodeNumber
	case string:
		return NodeString
	case []any:
		return NodeArray
	case map[string]any:
		return NodeObject
	default:
		return NodeReference
	}
}

// IsNull reports whether the search matched nothing.
func (n Node) IsNull() bool {
	return n.value == nil
}

// AsString returns the string value, or false when the node is not a string.
func (n Node) AsString() (string, bool) {
	s, ok := n.value.(string)
	return s, ok
}

// AsNumber returns the numeric value, or false when the node is not a number.
func (n Node) AsNumber() (float64, bool) {
	f, ok := n.value.(float64)
	return f, ok
}

// AsBool returns the boolean value, or false when the node is not a boolean.
func (n Node) AsBool() (bool, bool) {
	b, ok := n.value.(bool)
	return b, ok
}

// AsArray returns the elements, or false when the node is not an array.
func (n Node) AsArray() ([]Node, bool) {
	items, ok := n.value.([]any)
	if !ok {
		return nil, false
	}
	nodes := make([]Node, len(items))
	for i, item := range items {
		nodes[i] = Node{value: item}
	}
	return nodes, true
}

// AsObject returns the members, or false when the node is not an object.
func (n Node) AsObject() (map[string]Node, bool) {
	members, ok := n.value.(map[string]any)
	if !ok {
		return nil, false
	}
	nodes := make(map[string]Node, len(members))
	for key, member := range members {
		nodes[key] = Node{value: member}
	}
	return nodes, true
}

// Value exposes the underlying decoded value.
func (n Node) Value() any {
	return n.value
}

// JSON renders the node compactly for failure messages.
func (n Node) JSON() string {
	raw, err := json.Marshal(n.value)
	if err != nil {
		return "null"
	}
	return string(raw)
}

// Document is a decoded JSON document ready for repeated searches.
type Document struct {
	root any
}

// Parse decodes a JSON document.
func Parse(text string) (Document, *errs.Error) {
	var root any
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return Document{}, errs.Wrap(errs.KindJSONParsing, "invalid JSON document", err)
	}
	return Document{root: root}, nil
}

// Search evaluates a JMESPath expression against the document.
func (d Document) Search(expression string) (Node, *errs.Error) {
	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return Node{}, errs.Wrap(errs.KindInvalidResponseCheck,
			"invalid path expression: "+expression, err)
	}
	value, err := compiled.Search(d.root)
	if err != nil {
		return Node{}, errs.Wrap(errs.KindInvalidResponseCheck,
			"path expression evaluation failed: "+expression, err)
	}
	return Node{value: value}, nil
}

// Root returns the whole document as a node.
func (d Document) Root() Node {
	return Node{value: d.root}
}

// Search parses text and evaluates one expression against it.
func Search(text, expression string) (Node, *errs.Error) {
	doc, err := Parse(text)
	if err != nil {
		return Node{}, err
	}
	return doc.Search(expression)
}
