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

package merge

import (
	"context"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/transform"
)

// ConcatTables concatenates tables in order. Columns keep their first-seen
// order across tables; rows are never re-sorted.
func ConcatTables(tables []*core.Table) *core.Table {
	out := core.NewTable()
	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// PrefixTable renames every column except keep by prepending prefix.
func PrefixTable(ctx context.Context, t *core.Table, prefix string, keep func(string) bool) (*core.Table, error) {
	mapping := transform.PrefixMapping(t.Columns, prefix, keep)
	if len(mapping) == 0 {
		return t, nil
	}
	rename := transform.Rename(mapping)
	out := &core.Table{Columns: transform.RenameColumns(t.Columns, mapping), Rows: make([]core.Record, len(t.Rows))}
	for i, row := range t.Rows {
		r, err := rename.Transform(ctx, row)
		if err != nil {
			return nil, err
		}
		out.Rows[i] = r
	}
	return out, nil
}

// CastColumn casts a column in place to kind.
func CastColumn(ctx context.Context, t *core.Table, column string, kind core.Kind) error {
	if column == "" || kind == core.KindUnknown || !t.HasColumn(column) {
		return nil
	}
	cast := transform.ConvertType(column, kind)
	for i, row := range t.Rows {
		r, err := cast.Transform(ctx, row)
		if err != nil {
			return err
		}
		t.Rows[i] = r
	}
	return nil
}

func (m *Merger) mergeTables(ctx context.Context, partials []core.PartialResult) (*core.MergedResult, error) {
	tables := make([]*core.Table, 0, len(partials))
	for _, p := range partials {
		tables = append(tables, p.Table)
	}
	merged := ConcatTables(tables)

	id := m.cfg.IDColumn
	merged, err := PrefixTable(ctx, merged, m.cfg.Prefix, func(c string) bool { return id != "" && c == id })
	if err != nil {
		return nil, &core.MergeError{Op: "prefix", Err: err}
	}
	if err := CastColumn(ctx, merged, id, m.cfg.IDKind); err != nil {
		return nil, &core.MergeError{Op: "cast_identifier", Err: err}
	}

	result := &core.MergedResult{Mode: core.Tabular, Table: merged, OutputPath: m.cfg.OutputPath}
	if m.cfg.OutputPath == "" {
		return result, nil
	}
	if err := m.writeTable(ctx, merged); err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Merger) writeTable(ctx context.Context, t *core.Table) error {
	sink, err := m.sinks.NewTableSink(ctx, m.cfg.OutputPath, t.Columns)
	if err != nil {
		return &core.MergeError{Op: "open_sink", Err: err}
	}
	for _, row := range t.Rows {
		if err := sink.Write(ctx, row); err != nil {
			sink.Close()
			return &core.MergeError{Op: "write", Err: err}
		}
	}
	if err := sink.Flush(); err != nil {
		sink.Close()
		return &core.MergeError{Op: "flush", Err: err}
	}
	if err := sink.Close(); err != nil {
		return &core.MergeError{Op: "close", Err: err}
	}
	return nil
}
