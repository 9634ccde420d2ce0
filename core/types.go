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

package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-spatial/geom"
)

// Package core defines the shared data model of GoZonal: records, features,
// tables, layers and the partial and merged results flowing between units.

// Record is one row of attribute or statistic values keyed by column name.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// TransformFunc is a function adapter for the Transformer interface.
type TransformFunc func(ctx context.Context, record Record) (Record, error)

// Transform implements Transformer.
func (f TransformFunc) Transform(ctx context.Context, record Record) (Record, error) {
	return f(ctx, record)
}

// FilterFunc is a function adapter for the Filter interface.
type FilterFunc func(ctx context.Context, record Record) (bool, error)

// ShouldInclude implements Filter.
func (f FilterFunc) ShouldInclude(ctx context.Context, record Record) (bool, error) {
	return f(ctx, record)
}

// Kind is the dtype of a column.
type Kind int

const (
	KindUnknown Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// ParseKind maps a dtype name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int", "int32", "int64", "integer":
		return KindInt, nil
	case "float", "float32", "float64", "double", "real":
		return KindFloat, nil
	case "string", "str", "text", "object":
		return KindString, nil
	case "bool", "boolean":
		return KindBool, nil
	case "", "unknown":
		return KindUnknown, nil
	default:
		return KindUnknown, fmt.Errorf("unknown dtype %q", name)
	}
}

// KindOf reports the Kind of a single value. Nil values are KindUnknown.
func KindOf(value interface{}) Kind {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case string:
		return KindString
	case bool:
		return KindBool
	case []float64, []interface{}:
		return KindArray
	default:
		return KindUnknown
	}
}

// Feature is one input polygon with its attributes.
type Feature struct {
	Attributes Record
	Geometry   geom.Geometry
}

// FeatureCollection is an ordered, materialized set of features.
type FeatureCollection struct {
	Name     string
	CRS      string
	Columns  []string
	Features []Feature
}

// Len returns the number of features.
func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// ColumnIndex returns the position of a column or -1.
func (fc *FeatureCollection) ColumnIndex(name string) int {
	for i, c := range fc.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ColumnKind returns the Kind of the first non-nil value of a column.
func (fc *FeatureCollection) ColumnKind(name string) Kind {
	for _, f := range fc.Features {
		if v, ok := f.Attributes[name]; ok && v != nil {
			return KindOf(v)
		}
	}
	return KindUnknown
}

// Table is an ordered set of rows with an explicit column order.
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Append adds a row.
func (t *Table) Append(row Record) {
	t.Rows = append(t.Rows, row)
}

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []interface{} {
	out := make([]interface{}, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// Layer is a geometry-preserving result: attribute fields plus geometry and CRS.
type Layer struct {
	Name     string
	CRS      string
	Fields   []string
	Features []Feature
}

// Len returns the number of features in the layer.
func (l *Layer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Features)
}

// OutputMode selects tabular or geospatial results.
type OutputMode int

const (
	Tabular OutputMode = iota
	Geospatial
)

func (m OutputMode) String() string {
	if m == Geospatial {
		return "geospatial"
	}
	return "tabular"
}

// Chunk is a contiguous half-open slice [Start, End) of the input collection.
type Chunk struct {
	Index    int
	Start    int
	End      int
	Features []Feature
}

// Len returns the number of features in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// PartialResult is the output of one unit: a table or a layer.
type PartialResult struct {
	Chunk int
	Table *Table
	Layer *Layer
}

// Len returns the number of rows or features in the partial result.
func (p PartialResult) Len() int {
	if p.Layer != nil {
		return p.Layer.Len()
	}
	return p.Table.Len()
}

// MergedResult is the single consolidated output of a run.
type MergedResult struct {
	Mode       OutputMode
	Table      *Table
	Layer      *Layer
	OutputPath string
}

// Len returns the number of merged rows or features.
func (m *MergedResult) Len() int {
	if m == nil {
		return 0
	}
	if m.Mode == Geospatial {
		return m.Layer.Len()
	}
	return m.Table.Len()
}
