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

package readers

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/gozonal/core"
)

// TableReaderError wraps errors raised while loading a tabular result.
type TableReaderError struct {
	Op  string
	Err error
}

func (e *TableReaderError) Error() string {
	return fmt.Sprintf("table reader %s: %v", e.Op, e.Err)
}

func (e *TableReaderError) Unwrap() error {
	return e.Err
}

// ReadTable loads a tabular result file, choosing the reader by extension.
func ReadTable(ctx context.Context, path string) (*core.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, &TableReaderError{Op: "open", Err: err}
		}
		defer f.Close()
		return ReadCSVTable(ctx, f)
	case ".json", ".jsonl":
		f, err := os.Open(path)
		if err != nil {
			return nil, &TableReaderError{Op: "open", Err: err}
		}
		defer f.Close()
		return ReadJSONTable(ctx, f)
	case ".parquet":
		return ReadParquetTable(ctx, path)
	default:
		return nil, &TableReaderError{Op: "open", Err: fmt.Errorf("unsupported table format %q", path)}
	}
}

// ReadCSVTable reads a CSV file with a header row. Empty cells are nil and
// other cells are typed as int64, float64, bool or string in that order.
func ReadCSVTable(ctx context.Context, r io.Reader) (*core.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	headers, err := cr.Read()
	if err != nil {
		return nil, &TableReaderError{Op: "read_headers", Err: err}
	}
	t := core.NewTable(headers...)
	for {
		if err := ctx.Err(); err != nil {
			return nil, &TableReaderError{Op: "read", Err: err}
		}
		row, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, &TableReaderError{Op: "read_record", Err: err}
		}
		rec := make(core.Record, len(headers))
		for i, val := range row {
			if i < len(headers) {
				rec[headers[i]] = ParseValue(val)
			}
		}
		t.Append(rec)
	}
}

// ParseValue infers int64, float64, bool or string from text. Blank text is nil.
func ParseValue(value string) interface{} {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

// ReadJSONTable reads line-delimited JSON objects. Column order follows the
// key order of the first object; integral numbers become int64.
func ReadJSONTable(ctx context.Context, r io.Reader) (*core.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	t := core.NewTable()
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, &TableReaderError{Op: "read", Err: err}
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(t.Columns) == 0 {
			keys, err := objectKeys([]byte(line))
			if err != nil {
				return nil, &TableReaderError{Op: "decode", Err: err}
			}
			t.Columns = keys
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var raw map[string]interface{}
		if err := dec.Decode(&raw); err != nil {
			return nil, &TableReaderError{Op: "decode", Err: err}
		}
		rec := make(core.Record, len(raw))
		for k, v := range raw {
			rec[k] = normalizeJSON(v)
		}
		t.Append(rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &TableReaderError{Op: "scan", Err: err}
	}
	return t, nil
}

func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func normalizeJSON(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = normalizeJSON(e)
		}
		return out
	case map[string]interface{}:
		for k, e := range x {
			x[k] = normalizeJSON(e)
		}
		return x
	default:
		return v
	}
}

// ReadParquetTable loads a whole Parquet file into memory.
func ReadParquetTable(ctx context.Context, path string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &TableReaderError{Op: "open_file", Err: err}
	}
	pr, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, &TableReaderError{Op: "create_reader", Err: err}
	}
	defer pr.Close()

	ar, err := pqarrow.NewFileReader(pr, pqarrow.ArrowReadProperties{BatchSize: 1024}, memory.NewGoAllocator())
	if err != nil {
		return nil, &TableReaderError{Op: "create_arrow_reader", Err: err}
	}
	schema, err := ar.Schema()
	if err != nil {
		return nil, &TableReaderError{Op: "get_schema", Err: err}
	}
	t := core.NewTable()
	for _, field := range schema.Fields() {
		t.Columns = append(t.Columns, field.Name)
	}

	rr, err := ar.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, &TableReaderError{Op: "create_record_reader", Err: err}
	}
	defer rr.Release()

	for rr.Next() {
		batch := rr.Record()
		for row := 0; row < int(batch.NumRows()); row++ {
			rec := make(core.Record, batch.NumCols())
			for i := 0; i < int(batch.NumCols()); i++ {
				rec[schema.Field(i).Name] = columnValue(batch.Column(i), row)
			}
			t.Append(rec)
		}
	}
	return t, nil
}

func columnValue(col arrow.Array, row int) interface{} {
	if col.IsNull(row) {
		return nil
	}
	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(row)
	case *array.Int32:
		return int64(arr.Value(row))
	case *array.Int64:
		return arr.Value(row)
	case *array.Float32:
		return float64(arr.Value(row))
	case *array.Float64:
		return arr.Value(row)
	case *array.String:
		return arr.Value(row)
	case *array.Timestamp:
		return arr.Value(row).ToTime(arrow.Microsecond)
	default:
		return fmt.Sprintf("%v", col.GetOneForMarshal(row))
	}
}
