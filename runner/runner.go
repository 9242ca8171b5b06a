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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/log"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
	"trpc.group/trpc-go/trpc-dialogtest-go/telemetry"
)

// Runner coordinates one suite run: one executor per test, a worker pool and
// a result channel sized to the number of tests so publishing never blocks.
type Runner struct {
	suite   *suite.Suite
	opts    *Options
	pool    *workerPool
	execs   []*executor
	results chan *suite.Test
}

// New prepares a run. Every test gets a deep copy of its record, a stable
// execution index and a fresh backend adapter. Adapters mint credentials at
// construction, so any authentication failure aborts the suite here, before
// a single test starts.
func New(ctx context.Context, s *suite.Suite, opts ...Option) (*Runner, *errs.Error) {
	options := NewOptions(opts...)

	results := make(chan *suite.Test, len(s.Tests))
	execs := make([]*executor, 0, len(s.Tests))
	for i, t := range s.Tests {
		b, err := options.Factory(ctx, s)
		if err != nil {
			return nil, err
		}
		clone := t.Clone()
		clone.ExecIndex = i
		execs = append(execs, newExecutor(clone, b, results))
	}

	pool, err := newWorkerPool(options.Parallelism)
	if err != nil {
		return nil, errs.Wrap(errs.KindGeneric, "cannot create worker pool", err)
	}

	return &Runner{
		suite:   s,
		opts:    options,
		pool:    pool,
		execs:   execs,
		results: results,
	}, nil
}

// Interrupt drains the run: tests currently executing finish, queued tests
// are dropped. Run then returns the partial results with an error.
func (r *Runner) Interrupt() {
	r.pool.Interrupt()
}

// Run dispatches every executor to the pool and blocks until one record per
// test arrived. Records come back in completion order; ExecIndex restores
// suite order. When the run is interrupted the partial records collected so
// far are returned together with the error.
func (r *Runner) Run(ctx context.Context) ([]*suite.Test, *errs.Error) {
	ctx, span := telemetry.Tracer.Start(ctx, "dialogtest.suite",
		trace.WithAttributes(
			attribute.String(telemetry.KeySuiteName, r.suite.Name),
			attribute.String(telemetry.KeySuiteType, string(r.suite.Type)),
		))
	defer span.End()
	defer r.pool.Release()

	log.Infof("running suite %q: %d tests on %d workers",
		r.suite.Name, len(r.execs), r.opts.Parallelism)

	go func() {
		for _, e := range r.execs {
			if err := r.pool.Submit(ctx, e); err != nil {
				log.Errorf("cannot submit test %q: %v", e.test.Name, err)
			}
		}
		r.pool.Wait()
		close(r.results)
	}()

	received := make([]*suite.Test, 0, len(r.execs))
	for t := range r.results {
		telemetry.TestCount.Add(ctx, 1,
			metric.WithAttributes(attribute.String(telemetry.KeyTestStatus, t.Result.String())))
		log.Debugf("test %q finished: %s", t.Name, t.Result)
		if r.opts.Progress != nil {
			r.opts.Progress(t)
		}
		received = append(received, t)
		if len(received) == len(r.execs) {
			break
		}
	}

	if len(received) < len(r.execs) {
		err := errs.Newf(errs.KindGeneric,
			"result channel closed early: received %d of %d test results",
			len(received), len(r.execs))
		telemetry.SpanError(span, err)
		return received, err
	}
	return received, nil
}
