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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/gozonal/core"
)

// ParquetWriterError wraps Parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string
	Err error
}

func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// ParquetWriter implements core.DataSink for Parquet files.
//
// The Arrow schema is inferred from the first batch: each column takes the
// type of its first non-nil value. Statistic columns that are nil throughout
// the batch default to float64.
type ParquetWriter struct {
	file         *os.File
	writer       *pqarrow.FileWriter
	schema       *arrow.Schema
	closed       bool
	recordBuffer []core.Record
	fieldOrder   []string
	stats        WriterStats
	errorState   bool
	allocator    memory.Allocator
	opts         *ParquetWriterOptions
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize    int64
	Compression  compress.Compression
	FieldOrder   []string
	RowGroupSize int64
	Metadata     map[string]string
}

// WriterStats holds statistics about the Parquet writer.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64
}

// WriterOption configures ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records to buffer before writing a batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the Parquet compression algorithm.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithFieldOrder sets the column order of the Parquet schema.
func WithFieldOrder(fields []string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.FieldOrder = append([]string(nil), fields...)
	}
}

// WithRowGroupSize sets the maximum row group length.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithMetadata sets key/value metadata stored in the Arrow schema.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			opts.Metadata[k] = v
		}
	}
}

// NewParquetWriter creates a new Parquet writer for a file.
func NewParquetWriter(filename string, options ...WriterOption) (*ParquetWriter, error) {
	opts := &ParquetWriterOptions{}
	for _, option := range options {
		option(opts)
	}
	opts.withDefaults()

	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &ParquetWriterError{Op: "create_directory", Err: err}
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, &ParquetWriterError{
			Op:  "open_file",
			Err: fmt.Errorf("failed to create parquet file %s: %w", filename, err),
		}
	}

	return &ParquetWriter{
		file:         file,
		fieldOrder:   opts.FieldOrder,
		recordBuffer: make([]core.Record, 0, opts.BatchSize),
		stats:        WriterStats{NullValueCounts: make(map[string]int64)},
		allocator:    memory.NewGoAllocator(),
		opts:         opts,
	}, nil
}

func (opts *ParquetWriterOptions) withDefaults() {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.RowGroupSize <= 0 {
		opts.RowGroupSize = 10000
	}
	if opts.Compression == 0 {
		opts.Compression = compress.Codecs.Snappy
	}
}

// Stats returns the current statistics of the Parquet writer.
func (p *ParquetWriter) Stats() WriterStats {
	return p.stats
}

// Write implements core.DataSink.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("parquet writer is closed")}
	}
	if p.errorState {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	p.recordBuffer = append(p.recordBuffer, record)
	p.stats.RecordsWritten++

	if int64(len(p.recordBuffer)) >= p.opts.BatchSize {
		if err := p.flushBatch(); err != nil {
			p.errorState = true
			return err
		}
	}
	return nil
}

// Flush implements core.DataSink.
func (p *ParquetWriter) Flush() error {
	return p.flushBatch()
}

// Close implements core.DataSink. A writer that never received a record
// still produces a valid file with the configured columns.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.flushBatch(); err != nil {
		p.file.Close()
		return err
	}
	if p.writer == nil {
		if err := p.initializeSchema(nil); err != nil {
			p.file.Close()
			return err
		}
	}
	if err := p.writer.Close(); err != nil {
		return &ParquetWriterError{Op: "close_writer", Err: err}
	}
	p.writer = nil
	p.file = nil
	return nil
}

// initializeSchema builds the Arrow schema from a batch and opens the
// underlying parquet writer.
func (p *ParquetWriter) initializeSchema(batch []core.Record) error {
	if len(p.fieldOrder) == 0 {
		seen := make(map[string]bool)
		for _, r := range batch {
			for name := range r {
				if !seen[name] {
					seen[name] = true
					p.fieldOrder = append(p.fieldOrder, name)
				}
			}
		}
		sort.Strings(p.fieldOrder)
	}

	fields := make([]arrow.Field, len(p.fieldOrder))
	for i, name := range p.fieldOrder {
		var dataType arrow.DataType = arrow.PrimitiveTypes.Float64
		for _, r := range batch {
			if v, ok := r[name]; ok && v != nil {
				t, err := inferArrowType(v)
				if err != nil {
					return &ParquetWriterError{
						Op:  "schema",
						Err: fmt.Errorf("failed to infer arrow type for field %s: %w", name, err),
					}
				}
				dataType = t
				break
			}
		}
		fields[i] = arrow.Field{Name: name, Type: dataType, Nullable: true}
	}

	var md *arrow.Metadata
	if len(p.opts.Metadata) > 0 {
		m := arrow.MetadataFrom(p.opts.Metadata)
		md = &m
	}
	p.schema = arrow.NewSchema(fields, md)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(p.opts.Compression),
		parquet.WithMaxRowGroupLength(p.opts.RowGroupSize),
	)
	writer, err := pqarrow.NewFileWriter(p.schema, p.file, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return &ParquetWriterError{
			Op:  "create_writer",
			Err: fmt.Errorf("failed to create parquet file writer: %w", err),
		}
	}
	p.writer = writer
	return nil
}

func inferArrowType(value interface{}) (arrow.DataType, error) {
	switch value.(type) {
	case bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return arrow.PrimitiveTypes.Int64, nil
	case float32, float64:
		return arrow.PrimitiveTypes.Float64, nil
	case string:
		return arrow.BinaryTypes.String, nil
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}

func (p *ParquetWriter) flushBatch() error {
	if len(p.recordBuffer) == 0 {
		return nil
	}
	start := time.Now()

	if p.writer == nil {
		if err := p.initializeSchema(p.recordBuffer); err != nil {
			return err
		}
	}

	record, err := p.createArrowRecord(p.recordBuffer)
	if err != nil {
		return &ParquetWriterError{Op: "create_arrow_record", Err: err}
	}
	defer record.Release()

	if err := p.writer.Write(record); err != nil {
		return &ParquetWriterError{Op: "write_batch", Err: err}
	}

	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()
	p.recordBuffer = p.recordBuffer[:0]
	return nil
}

// createArrowRecord converts buffered records into one Arrow record batch.
func (p *ParquetWriter) createArrowRecord(records []core.Record) (arrow.Record, error) {
	builders := make([]array.Builder, len(p.fieldOrder))
	for i, f := range p.schema.Fields() {
		builders[i] = array.NewBuilder(p.allocator, f.Type)
		defer builders[i].Release()
	}

	for _, record := range records {
		for i, name := range p.fieldOrder {
			value, ok := record[name]
			if !ok || value == nil {
				builders[i].AppendNull()
				p.stats.NullValueCounts[name]++
				continue
			}
			if err := appendValue(builders[i], value); err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
		}
	}

	arrays := make([]arrow.Array, len(builders))
	for i, b := range builders {
		arrays[i] = b.NewArray()
		defer arrays[i].Release()
	}
	return array.NewRecord(p.schema, arrays, int64(len(records))), nil
}

func appendValue(builder array.Builder, value interface{}) error {
	switch b := builder.(type) {
	case *array.BooleanBuilder:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		b.Append(v)
	case *array.Int64Builder:
		switch v := value.(type) {
		case int:
			b.Append(int64(v))
		case int8:
			b.Append(int64(v))
		case int16:
			b.Append(int64(v))
		case int32:
			b.Append(int64(v))
		case int64:
			b.Append(v)
		case uint8:
			b.Append(int64(v))
		case uint16:
			b.Append(int64(v))
		case uint32:
			b.Append(int64(v))
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("float %v in integer column", v)
			}
			b.Append(int64(v))
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float64:
			b.Append(v)
		case float32:
			b.Append(float64(v))
		case int:
			b.Append(float64(v))
		case int64:
			b.Append(float64(v))
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case *array.StringBuilder:
		if v, ok := value.(string); ok {
			b.Append(v)
		} else {
			b.Append(fmt.Sprintf("%v", value))
		}
	case *array.TimestampBuilder:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("expected time.Time, got %T", value)
		}
		b.Append(arrow.Timestamp(v.UnixMicro()))
	default:
		return fmt.Errorf("unsupported builder %T", builder)
	}
	return nil
}
