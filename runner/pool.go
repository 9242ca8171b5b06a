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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
	"trpc.group/trpc-go/trpc-dialogtest-go/log"
)

type testRunParam struct {
	ctx  context.Context
	exec *executor
	wg   *sync.WaitGroup
}

func (p *testRunParam) reset() {
	p.ctx = nil
	p.exec = nil
	p.wg = nil
}

var testRunParamPool = &sync.Pool{
	New: func() any { return new(testRunParam) },
}

// workerPool runs test executors on a fixed number of ants workers. A
// cooperative stop flag lets a signal handler drain the pool: workers check
// it before starting a job and drop the job without publishing, so the
// orchestrator sees the result channel close early.
type workerPool struct {
	inner       *ants.PoolWithFunc
	running     atomic.Bool
	wg          sync.WaitGroup
	releaseOnce sync.Once
}

func newWorkerPool(size int) (*workerPool, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	p := &workerPool{}
	p.running.Store(true)
	inner, err := ants.NewPoolWithFunc(size, p.runJob)
	if err != nil {
		return nil, fmt.Errorf("create test run pool: %w", err)
	}
	p.inner = inner
	return p, nil
}

func (p *workerPool) runJob(args any) {
	param, ok := args.(*testRunParam)
	if !ok {
		panic("test run pool args type error")
	}
	exec, ctx, wg := param.exec, param.ctx, param.wg
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("test %q panicked: %v", exec.test.Name, r)
			exec.abort(errs.Newf(errs.KindGeneric, "test run panicked: %v", r))
		}
		wg.Done()
		param.reset()
		testRunParamPool.Put(param)
	}()
	if !p.running.Load() {
		log.Debugf("skipping test %q: run interrupted", exec.test.Name)
		return
	}
	exec.run(ctx)
}

// Submit schedules one executor and blocks while all workers are busy.
func (p *workerPool) Submit(ctx context.Context, exec *executor) error {
	param := testRunParamPool.Get().(*testRunParam)
	param.ctx = ctx
	param.exec = exec
	param.wg = &p.wg
	p.wg.Add(1)
	if err := p.inner.Invoke(param); err != nil {
		p.wg.Done()
		param.reset()
		testRunParamPool.Put(param)
		return fmt.Errorf("submit test run: %w", err)
	}
	return nil
}

// Interrupt stops the pool from picking up queued jobs. Jobs already running
// finish their current test.
func (p *workerPool) Interrupt() {
	p.running.Store(false)
}

// Interrupted reports whether Interrupt was called.
func (p *workerPool) Interrupted() bool {
	return !p.running.Load()
}

// Wait blocks until every submitted job has either run or been skipped.
func (p *workerPool) Wait() {
	p.wg.Wait()
}

// Release tears down the pool workers. Safe to call more than once.
func (p *workerPool) Release() {
	p.releaseOnce.Do(func() {
		p.inner.Release()
	})
}
