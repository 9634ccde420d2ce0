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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	cli "gopkg.in/src-d/go-cli.v0"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/readers"
)

type inspectCmd struct {
	cli.PlainCommand `name:"inspect" short-description:"print a merged statistics table" long-description:""`
	Limit            int `long:"limit" short:"n" default:"20" description:"maximum number of rows to print, 0 prints all"`
}

func (c *inspectCmd) ExecuteContext(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected output file path, got %q instead", strings.Join(args, " "))
	}

	t, err := load(ctx, args[0])
	if err != nil {
		return err
	}

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader(t.Columns)
	for i, row := range t.Rows {
		if c.Limit > 0 && i >= c.Limit {
			break
		}
		line := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			if v := row[col]; v != nil {
				line[j] = fmt.Sprint(v)
			}
		}
		w.Append(line)
	}
	w.SetCaption(true, fmt.Sprintf("%d rows", t.Len()))
	w.Render()
	return nil
}

// load reads a tabular output, or the attributes of a geospatial one.
func load(ctx context.Context, location string) (*core.Table, error) {
	path, _ := core.SplitLayerPath(location)
	switch {
	case strings.HasSuffix(path, ".geojson"), strings.HasSuffix(path, ".gpkg"):
		src, err := readers.Open(ctx, location)
		if err != nil {
			return nil, err
		}
		fc, err := readers.Collect(ctx, src)
		if err != nil {
			return nil, err
		}
		t := core.NewTable(fc.Columns...)
		for _, f := range fc.Features {
			t.Append(f.Attributes)
		}
		return t, nil
	default:
		return readers.ReadTable(ctx, path)
	}
}

func init() {
	app.AddCommand(new(inspectCmd))
}
