//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"

	"trpc.group/trpc-go/trpc-dialogtest-go/backend"
	"trpc.group/trpc-go/trpc-dialogtest-go/backend/dialogflow"
	"trpc.group/trpc-go/trpc-dialogtest-go/backend/vap"
	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
)

// DefaultParallelism is the pool size used when none is configured.
const DefaultParallelism = 4

// BackendFactory builds one backend adapter per test. Construction mints
// credentials, so a factory error aborts the run before any worker starts.
type BackendFactory func(ctx context.Context, s *suite.Suite) (backend.Backend, *errs.Error)

// Options configures a suite run.
type Options struct {
	// Parallelism is the worker pool size.
	Parallelism int
	// Factory builds the per-test backend adapter.
	Factory BackendFactory
	// Progress, when set, observes every test record as it completes.
	Progress func(*suite.Test)
}

// Option configures Options.
type Option func(*Options)

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) *Options {
	options := &Options{
		Parallelism: DefaultParallelism,
		Factory:     defaultBackendFactory,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithParallelism sets the worker pool size.
func WithParallelism(n int) Option {
	return func(o *Options) {
		o.Parallelism = n
	}
}

// WithBackendFactory replaces the backend construction, mainly for tests.
func WithBackendFactory(factory BackendFactory) Option {
	return func(o *Options) {
		o.Factory = factory
	}
}

// WithProgress registers a callback invoked for every completed test, in
// completion order.
func WithProgress(fn func(*suite.Test)) Option {
	return func(o *Options) {
		o.Progress = fn
	}
}

func defaultBackendFactory(ctx context.Context, s *suite.Suite) (backend.Backend, *errs.Error) {
	switch s.Type {
	case suite.TypeDialogflow:
		return dialogflow.New(ctx, s)
	case suite.TypeVAP:
		return vap.New(ctx, s)
	default:
		return nil, errs.New(errs.KindGeneric, "Unknown suite type found: "+string(s.Type))
	}
}
