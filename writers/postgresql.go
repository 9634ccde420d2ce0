//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoZonal.
//
// GoZonal is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoZonal is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoZonal. If not, see https://www.gnu.org/licenses/.
//

package writers

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/aaronlmathis/gozonal/core"
)

// PostgresWriterError wraps PostgreSQL-specific write errors with context about the operation.
type PostgresWriterError struct {
	Op  string
	Err error
}

func (e *PostgresWriterError) Error() string {
	return fmt.Sprintf("postgres writer %s: %v", e.Op, e.Err)
}

func (e *PostgresWriterError) Unwrap() error {
	return e.Err
}

// PostgresWriterStats holds PostgreSQL write statistics.
type PostgresWriterStats struct {
	RecordsWritten   int64
	BatchesWritten   int64
	TransactionCount int64
	LastWriteTime    time.Time
	WriteDuration    time.Duration
	ConnectionTime   time.Duration
}

// PostgresWriterOptions configures the PostgreSQL writer.
type PostgresWriterOptions struct {
	DSN             string
	TableName       string
	Columns         []string
	BatchSize       int
	CreateTable     bool
	TruncateTable   bool
	TransactionMode bool
	MaxOpenConns    int
	QueryTimeout    time.Duration
}

// PostgresWriterOption configures PostgresWriterOptions.
type PostgresWriterOption func(*PostgresWriterOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.DSN = dsn
	}
}

// WithTableName sets the target table name.
func WithTableName(tableName string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TableName = tableName
	}
}

// WithColumns sets the columns to write, in order.
func WithColumns(columns []string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.Columns = append([]string(nil), columns...)
	}
}

// WithPostgresBatchSize sets the batch size for writes.
func WithPostgresBatchSize(size int) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCreateTable enables or disables table creation.
func WithCreateTable(create bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.CreateTable = create
	}
}

// WithTruncateTable enables or disables table truncation before writing.
func WithTruncateTable(truncate bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TruncateTable = truncate
	}
}

// WithTransactionMode wraps every batch in a transaction.
func WithTransactionMode(enabled bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TransactionMode = enabled
	}
}

// WithPostgresQueryTimeout sets the query timeout.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.QueryTimeout = timeout
	}
}

// PostgresWriter implements core.DataSink for a PostgreSQL table.
type PostgresWriter struct {
	db          *sql.DB
	options     PostgresWriterOptions
	columns     []string
	recordBuf   []core.Record
	stats       PostgresWriterStats
	insert      string
	initialized bool
	errorState  bool
	mu          sync.Mutex
}

// NewPostgresWriter connects to PostgreSQL and returns a writer.
func NewPostgresWriter(opts ...PostgresWriterOption) (*PostgresWriter, error) {
	options := PostgresWriterOptions{
		BatchSize:       1000,
		QueryTimeout:    30 * time.Second,
		MaxOpenConns:    10,
		CreateTable:     true,
		TransactionMode: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.DSN == "" {
		return nil, &PostgresWriterError{Op: "validate", Err: fmt.Errorf("dsn is required")}
	}
	if options.TableName == "" {
		return nil, &PostgresWriterError{Op: "validate", Err: fmt.Errorf("table name is required")}
	}

	w := &PostgresWriter{
		options:   options,
		columns:   append([]string(nil), options.Columns...),
		recordBuf: make([]core.Record, 0, options.BatchSize),
	}
	if err := w.connect(); err != nil {
		return nil, &PostgresWriterError{Op: "connect", Err: err}
	}
	return w, nil
}

// Stats returns a copy of the current write statistics.
func (w *PostgresWriter) Stats() PostgresWriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Write implements core.DataSink.
func (w *PostgresWriter) Write(ctx context.Context, record core.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.errorState {
		return &PostgresWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	w.recordBuf = append(w.recordBuf, record)
	w.stats.RecordsWritten++

	if len(w.recordBuf) >= w.options.BatchSize {
		if err := w.flushBufferUnsafe(ctx); err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "flush_batch", Err: err}
		}
	}
	return nil
}

// Flush implements core.DataSink.
func (w *PostgresWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.options.QueryTimeout)
	defer cancel()

	if err := w.flushBufferUnsafe(ctx); err != nil {
		return &PostgresWriterError{Op: "flush", Err: err}
	}
	return nil
}

// Close implements core.DataSink.
func (w *PostgresWriter) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}
	return w.db.Close()
}

func (w *PostgresWriter) connect() error {
	start := time.Now()
	db, err := sql.Open("postgres", w.options.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(w.options.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), w.options.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	w.db = db
	w.stats.ConnectionTime = time.Since(start)
	return nil
}

// initializeUnsafe creates the table and the insert statement from the
// buffered batch (must hold mutex).
func (w *PostgresWriter) initializeUnsafe(ctx context.Context) error {
	if len(w.columns) == 0 {
		seen := make(map[string]bool)
		for _, r := range w.recordBuf {
			for k := range r {
				if !seen[k] {
					seen[k] = true
					w.columns = append(w.columns, k)
				}
			}
		}
		sort.Strings(w.columns)
	}

	table := pq.QuoteIdentifier(w.options.TableName)
	if w.options.CreateTable {
		defs := make([]string, len(w.columns))
		for i, col := range w.columns {
			defs[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(col), SQLType(firstValue(w.recordBuf, col)))
		}
		query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
		if _, err := w.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	if w.options.TruncateTable {
		if _, err := w.db.ExecContext(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("failed to truncate table: %w", err)
		}
	}
	w.insert = InsertStatement(w.options.TableName, w.columns)
	w.initialized = true
	return nil
}

// InsertStatement builds a parameterized INSERT for table and columns.
func InsertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// flushBufferUnsafe writes buffered records (must hold mutex).
func (w *PostgresWriter) flushBufferUnsafe(ctx context.Context) error {
	if len(w.recordBuf) == 0 {
		return nil
	}
	if !w.initialized {
		if err := w.initializeUnsafe(ctx); err != nil {
			return err
		}
	}
	start := time.Now()

	if w.options.TransactionMode {
		tx, err := w.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := w.insertAll(ctx, tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		w.stats.TransactionCount++
	} else if err := w.insertAll(ctx, w.db); err != nil {
		return err
	}

	w.stats.BatchesWritten++
	w.stats.LastWriteTime = time.Now()
	w.stats.WriteDuration += time.Since(start)
	w.recordBuf = w.recordBuf[:0]
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (w *PostgresWriter) insertAll(ctx context.Context, exec execer) error {
	for _, record := range w.recordBuf {
		values := make([]interface{}, len(w.columns))
		for i, col := range w.columns {
			values[i] = SQLValue(record[col])
		}
		if _, err := exec.ExecContext(ctx, w.insert, values...); err != nil {
			return fmt.Errorf("failed to execute insert: %w", err)
		}
	}
	return nil
}

func firstValue(records []core.Record, col string) interface{} {
	for _, r := range records {
		if v := r[col]; v != nil {
			return v
		}
	}
	return nil
}

// SQLType maps a Go value to a PostgreSQL column type. Columns without any
// value hold statistics and default to DOUBLE PRECISION.
func SQLType(value interface{}) string {
	switch value.(type) {
	case nil:
		return "DOUBLE PRECISION"
	case bool:
		return "BOOLEAN"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "BIGINT"
	case float32, float64:
		return "DOUBLE PRECISION"
	case time.Time:
		return "TIMESTAMP"
	case []byte:
		return "BYTEA"
	case []float64:
		return "DOUBLE PRECISION[]"
	default:
		return "TEXT"
	}
}

// SQLValue converts a value into a driver-compatible argument.
func SQLValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil, time.Time, bool, int64, float64, string, []byte:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case []float64:
		return pq.Array(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
