//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package mysql records run history in MySQL: one row per run plus one row
// per test record, so regressions across runs of the same suite can be
// queried after the fact.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"trpc.group/trpc-go/trpc-dialogtest-go/report"
)

// Table names of the run history schema.
const (
	TableRuns    = "dialogtest_runs"
	TableResults = "dialogtest_results"
)

// ClientInterface is the slice of database/sql the writer needs, kept small
// so tests can inject sqlmock connections.
type ClientInterface interface {
	// ExecContext executes a query without returning any rows.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)

	// QueryContext executes a query that returns rows.
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// Ping verifies a connection to the database is still alive.
	Ping() error

	// Close closes the database connection.
	Close() error
}

type clientBuilder func(dsn string) (ClientInterface, error)

var globalBuilder clientBuilder = DefaultClientBuilder

// SetClientBuilder replaces the connection builder, used by tests to inject
// mock connections.
func SetClientBuilder(builder clientBuilder) {
	globalBuilder = builder
}

// GetClientBuilder returns the current connection builder.
func GetClientBuilder() clientBuilder {
	return globalBuilder
}

// DefaultClientBuilder opens a MySQL connection and verifies it.
func DefaultClientBuilder(dsn string) (ClientInterface, error) {
	if dsn == "" {
		return nil, errors.New("mysql: dsn is empty")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open connection: %w", err)
	}
	db.SetConnMaxLifetime(time.Hour)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping failed: %w", err)
	}
	return db, nil
}

// Writer stores runs in the history tables. It implements report.Writer.
type Writer struct {
	db ClientInterface
}

// NewWriter connects to dsn and ensures the history tables exist.
func NewWriter(ctx context.Context, dsn string) (*Writer, error) {
	db, err := globalBuilder(dsn)
	if err != nil {
		return nil, fmt.Errorf("create mysql client: %w", err)
	}
	w := &Writer{db: db}
	if err := w.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the database connection.
func (w *Writer) Close() error {
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	for _, query := range []string{sqlCreateRunsTable, sqlCreateResultsTable} {
		if _, err := w.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("ensure run history schema: %w", err)
		}
	}
	return nil
}

// Write implements report.Writer: one row into the runs table, one per test
// record into the results table with the pretty JSON record as detail.
func (w *Writer) Write(ctx context.Context, run *report.Run) error {
	s := run.Summarize()
	finishedAt := run.StartedAt.Add(run.Duration)
	if _, err := w.db.ExecContext(ctx, sqlInsertRun,
		run.RunID, run.SuiteName, string(run.SuiteType),
		s.Total, s.Passed, s.Failed, run.StartedAt, finishedAt); err != nil {
		return fmt.Errorf("store run %s: %w", run.RunID, err)
	}
	for _, t := range run.Tests {
		detail, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return fmt.Errorf("encode test record %s: %w", t.Name, err)
		}
		if _, err := w.db.ExecContext(ctx, sqlInsertResult,
			run.RunID, t.ExecIndex, t.Name, t.Result.String(), detail); err != nil {
			return fmt.Errorf("store test record %s: %w", t.Name, err)
		}
	}
	return nil
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID      string
	SuiteName  string
	SuiteType  string
	Total      int
	Passed     int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runs returns the most recent runs of a suite, newest first.
func (w *Writer) Runs(ctx context.Context, suiteName string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := w.db.QueryContext(ctx, sqlSelectRuns, suiteName, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs of %s: %w", suiteName, err)
	}
	defer rows.Close()
	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.SuiteName, &r.SuiteType,
			&r.Total, &r.Passed, &r.Failed, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return records, nil
}

const (
	sqlCreateRunsTable = `
		CREATE TABLE IF NOT EXISTS ` + TableRuns + ` (
			run_id VARCHAR(64) NOT NULL,
			suite_name VARCHAR(255) NOT NULL,
			suite_type VARCHAR(32) NOT NULL,
			total INT NOT NULL,
			passed INT NOT NULL,
			failed INT NOT NULL,
			started_at TIMESTAMP(6) NOT NULL,
			finished_at TIMESTAMP(6) NOT NULL,
			PRIMARY KEY (run_id),
			KEY idx_runs_suite_started (suite_name, started_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

	sqlCreateResultsTable = `
		CREATE TABLE IF NOT EXISTS ` + TableResults + ` (
			id BIGINT NOT NULL AUTO_INCREMENT,
			run_id VARCHAR(64) NOT NULL,
			exec_index INT NOT NULL,
			test_name VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL,
			detail_json JSON NOT NULL,
			PRIMARY KEY (id),
			UNIQUE KEY uniq_results_run_exec (run_id, exec_index)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

	sqlInsertRun = `
		INSERT INTO ` + TableRuns + ` (run_id, suite_name, suite_type, total, passed, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqlInsertResult = `
		INSERT INTO ` + TableResults + ` (run_id, exec_index, test_name, status, detail_json)
		VALUES (?, ?, ?, ?, ?)`

	sqlSelectRuns = `
		SELECT run_id, suite_name, suite_type, total, passed, failed, started_at, finished_at
		FROM ` + TableRuns + ` WHERE suite_name = ? ORDER BY started_at DESC LIMIT ?`
)
