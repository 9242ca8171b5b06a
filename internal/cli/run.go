//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-dialogtest-go/log"
	"trpc.group/trpc-go/trpc-dialogtest-go/report"
	"trpc.group/trpc-go/trpc-dialogtest-go/report/cos"
	"trpc.group/trpc-go/trpc-dialogtest-go/report/mysql"
	"trpc.group/trpc-go/trpc-dialogtest-go/runner"
	"trpc.group/trpc-go/trpc-dialogtest-go/suite"
	"trpc.group/trpc-go/trpc-dialogtest-go/telemetry"
)

// runOptions holds the flags of the run command.
type runOptions struct {
	suitePatterns []string
	htmlReport    string
	jsonReport    string
	pdfReport     string
	disableStdout bool
	parallel      int
	watch         bool
	mysqlDSN      string
	cosUpload     bool
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	opts := &runOptions{}

	c := &cobra.Command{
		Use:   "run",
		Short: "Run test suites",
		Long: `Runs every suite file matched by the -f patterns. Tests within a suite
execute in parallel, suites execute one after another. Exit code 0 means
every test passed, 1 means at least one test failed and 2 means the run
itself failed.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runRun(c.Context(), c.OutOrStdout(), opts)
		},
	}

	c.Flags().StringArrayVarP(&opts.suitePatterns, "suite-file", "f", nil,
		"Suite file path or doublestar glob, repeatable")
	c.Flags().StringVar(&opts.htmlReport, "html-report", "",
		"Write an HTML report to this file")
	c.Flags().StringVar(&opts.jsonReport, "json-report", "",
		"Write a JSON report to this file")
	c.Flags().StringVar(&opts.pdfReport, "pdf-report", "",
		"Write a PDF report to this file")
	c.Flags().BoolVar(&opts.disableStdout, "disable-stdout-report", false,
		"Suppress the stdout result table")
	c.Flags().IntVarP(&opts.parallel, "parallel", "p", runner.DefaultParallelism,
		"Number of tests running in parallel")
	c.Flags().BoolVar(&opts.watch, "watch", false,
		"Stay resident and re-run a suite when its file changes")
	c.Flags().StringVar(&opts.mysqlDSN, "mysql-dsn", "",
		"Record run history in this MySQL database")
	c.Flags().BoolVar(&opts.cosUpload, "cos-upload", false,
		"Upload the JSON report to COS (COS_BUCKET_URL, COS_SECRETID, COS_SECRETKEY)")
	_ = c.MarkFlagRequired("suite-file")

	return c
}

func runRun(ctx context.Context, out io.Writer, opts *runOptions) error {
	if opts.parallel < 1 {
		return NewExitError(fmt.Errorf("parallel must be at least 1, got %d", opts.parallel), ExitRunError)
	}
	files, err := expandSuitePatterns(opts.suitePatterns)
	if err != nil {
		return NewExitError(err, ExitRunError)
	}

	sess, err := newSession(ctx, out, opts, len(files))
	if err != nil {
		return NewExitError(err, ExitRunError)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warnf("session teardown: %v", err)
		}
	}()

	if telemetryConfigured() {
		clean, err := telemetry.Start(ctx, telemetry.WithProtocol(otelProtocol()))
		if err != nil {
			log.Warnf("telemetry disabled: %v", err)
		} else {
			defer func() {
				if err := clean(context.Background()); err != nil {
					log.Warnf("telemetry shutdown: %v", err)
				}
			}()
		}
	}

	// The first signal drains the run in flight instead of cancelling its
	// context, so backend calls already on the wire finish and their records
	// land in the report. A second signal hard-aborts those calls. watchCtx
	// only controls the loops of this function.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	defer close(done)
	go func() {
		drained := false
		for {
			select {
			case <-sigCh:
				if !drained {
					drained = true
					log.Warn("interrupt received: draining the current run")
					sess.interrupt()
					cancelWatch()
					continue
				}
				log.Warn("second interrupt: aborting in-flight backend calls")
				cancelRun()
			case <-done:
				return
			}
		}
	}()

	if opts.watch {
		return runWatch(watchCtx, runCtx, sess, files)
	}

	var total report.Summary
	for i, f := range files {
		if sess.interrupted() {
			return NewExitError(errors.New("run interrupted"), ExitRunError)
		}
		sum, err := sess.runSuite(runCtx, f, i+1)
		if err != nil {
			return NewExitError(err, ExitRunError)
		}
		total.Total += sum.Total
		total.Passed += sum.Passed
		total.Failed += sum.Failed
		total.NotExecuted += sum.NotExecuted
	}
	if total.Failed > 0 {
		return NewExitError(fmt.Errorf("%d of %d tests failed", total.Failed, total.Total), ExitTestFailure)
	}
	return nil
}

// expandSuitePatterns resolves every -f pattern through doublestar, dedupes
// the matches and returns them sorted. Directories are skipped so patterns
// like "suites/**" stay usable.
func expandSuitePatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid suite pattern %q: %w", p, err)
		}
		for _, m := range matches {
			clean := filepath.Clean(m)
			if seen[clean] {
				continue
			}
			info, err := os.Stat(clean)
			if err != nil || info.IsDir() {
				continue
			}
			seen[clean] = true
			files = append(files, clean)
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no suite files match %s", strings.Join(patterns, ", "))
	}
	return files, nil
}

// reportPath returns the file report path for one suite. A single matched
// suite uses the configured path as is; several matched suites get their
// 1-based ordinal inserted before the extension so their reports do not
// overwrite each other.
func reportPath(path string, ordinal, suiteCount int) string {
	if path == "" || suiteCount <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), ordinal, ext)
}

// session carries the state shared by every suite run of one invocation:
// the report destinations and the runner currently in flight.
type session struct {
	opts       *runOptions
	suiteCount int

	console  report.Writer
	history  *mysql.Writer
	uploader report.Writer

	mu      sync.Mutex
	current *runner.Runner
	stopped atomic.Bool
}

func newSession(ctx context.Context, out io.Writer, opts *runOptions, suiteCount int) (*session, error) {
	s := &session{opts: opts, suiteCount: suiteCount}
	if !opts.disableStdout {
		s.console = report.NewConsoleWriter(out)
	}
	if opts.mysqlDSN != "" {
		w, err := mysql.NewWriter(ctx, opts.mysqlDSN)
		if err != nil {
			return nil, err
		}
		s.history = w
	}
	if opts.cosUpload {
		u, err := cos.NewUploader("")
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.uploader = u
	}
	return s, nil
}

// Close releases the MySQL connection, if any.
func (s *session) Close() error {
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}

func (s *session) interrupt() {
	s.stopped.Store(true)
	s.mu.Lock()
	if s.current != nil {
		s.current.Interrupt()
	}
	s.mu.Unlock()
}

func (s *session) interrupted() bool {
	return s.stopped.Load()
}

func (s *session) setCurrent(r *runner.Runner) {
	s.mu.Lock()
	s.current = r
	s.mu.Unlock()
}

// writers assembles the report destinations for the suite at ordinal. The
// file writers are rebuilt per suite because their paths depend on it; the
// MySQL connection and the COS client are reused across suites.
func (s *session) writers(ordinal int) []report.Writer {
	var ws []report.Writer
	if s.console != nil {
		ws = append(ws, s.console)
	}
	if p := reportPath(s.opts.jsonReport, ordinal, s.suiteCount); p != "" {
		ws = append(ws, report.NewJSONWriter(p))
	}
	if p := reportPath(s.opts.htmlReport, ordinal, s.suiteCount); p != "" {
		ws = append(ws, report.NewHTMLWriter(p))
	}
	if p := reportPath(s.opts.pdfReport, ordinal, s.suiteCount); p != "" {
		ws = append(ws, report.NewPDFWriter(p))
	}
	if s.history != nil {
		ws = append(ws, s.history)
	}
	if s.uploader != nil {
		ws = append(ws, s.uploader)
	}
	return ws
}

// runSuite loads and executes one suite file and writes its reports. The
// reports are written even when the run was interrupted, so the records
// collected up to that point are not lost.
func (s *session) runSuite(ctx context.Context, path string, ordinal int) (report.Summary, error) {
	sp, lerr := suite.Load(path)
	if lerr != nil {
		return report.Summary{}, fmt.Errorf("load suite %s: %w", path, lerr)
	}
	r, nerr := runner.New(ctx, sp, runner.WithParallelism(s.opts.parallel))
	if nerr != nil {
		return report.Summary{}, fmt.Errorf("prepare suite %q: %w", sp.Name, nerr)
	}
	s.setCurrent(r)
	defer s.setCurrent(nil)

	started := time.Now()
	tests, runErr := r.Run(ctx)
	run := report.NewRun(sp, tests, started, time.Since(started))

	if err := report.WriteAll(ctx, run, s.writers(ordinal)...); err != nil {
		return run.Summarize(), fmt.Errorf("write reports for suite %q: %w", sp.Name, err)
	}
	if runErr != nil {
		return run.Summarize(), fmt.Errorf("suite %q: %w", sp.Name, runErr)
	}
	return run.Summarize(), nil
}

func telemetryConfigured() bool {
	for _, key := range []string{
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
		"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT",
	} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func otelProtocol() string {
	if strings.Contains(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"), "http") {
		return telemetry.ProtocolHTTP
	}
	return telemetry.ProtocolGRPC
}
