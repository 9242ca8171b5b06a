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
	"context"
	"encoding/json"
	"io"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
)

// JSONWriter writes the test records as a pretty-printed JSON array. The
// file holds only the records, not the run envelope, so downstream tooling
// can diff two runs of the same suite directly.
type JSONWriter struct {
	path string
}

// NewJSONWriter creates a writer targeting path.
func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// Write implements Writer.
func (w *JSONWriter) Write(ctx context.Context, run *Run) error {
	_ = ctx
	err := writeAtomic(w.path, func(f io.Writer) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run.Tests); err != nil {
			return errs.Wrap(errs.KindJSONSerDeser, "encode test records", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}
