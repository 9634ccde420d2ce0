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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/aaronlmathis/gozonal/core"
)

// JSONWriter implements core.DataSink for line-delimited JSON.
type JSONWriter struct {
	writer  io.Writer
	closer  io.Closer
	columns []string
}

// JSONOption configures a JSONWriter.
type JSONOption func(*JSONWriter)

// WithJSONColumns fixes the key order of every written object.
func WithJSONColumns(columns []string) JSONOption {
	return func(j *JSONWriter) {
		j.columns = append([]string(nil), columns...)
	}
}

// NewJSONWriter creates a new JSON lines writer.
func NewJSONWriter(w io.WriteCloser, opts ...JSONOption) *JSONWriter {
	j := &JSONWriter{
		writer: w,
		closer: w,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Write implements core.DataSink.
func (j *JSONWriter) Write(ctx context.Context, record core.Record) error {
	data, err := marshalRecord(record, j.columns)
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}
	data = append(data, '\n')
	if _, err := j.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON data: %w", err)
	}
	return nil
}

// Flush implements core.DataSink.
func (j *JSONWriter) Flush() error {
	if flusher, ok := j.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close implements core.DataSink.
func (j *JSONWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// marshalRecord encodes record as a JSON object. With columns set, keys are
// written in that order and absent keys become null. NaN and infinities are
// not representable in JSON and are written as null.
func marshalRecord(record core.Record, columns []string) ([]byte, error) {
	if len(columns) == 0 {
		return json.Marshal(sanitize(record))
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(sanitizeValue(record[c]))
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func sanitize(record core.Record) core.Record {
	out := make(core.Record, len(record))
	for k, v := range record {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case []float64:
		out := make([]interface{}, len(x))
		for i, f := range x {
			out[i] = sanitizeValue(f)
		}
		return out
	}
	return v
}
