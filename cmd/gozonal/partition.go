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
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	cli "gopkg.in/src-d/go-cli.v0"

	"github.com/aaronlmathis/gozonal/partition"
)

type partitionCmd struct {
	cli.PlainCommand `name:"partition" short-description:"preview the chunk bounds of a run" long-description:""`
	ParallelJobs     int `long:"parallel-jobs" short:"j" default:"1" description:"number of parallel jobs"`
}

func (c *partitionCmd) ExecuteContext(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected feature count, got %q instead", strings.Join(args, " "))
	}
	features, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid feature count %q", args[0])
	}

	ranges, err := partition.Bounds(features, c.ParallelJobs)
	if err != nil {
		return err
	}

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"chunk", "start", "end", "features"})
	for i, r := range ranges {
		w.Append([]string{
			fmt.Sprint(i + 1),
			fmt.Sprint(r.Start),
			fmt.Sprint(r.End),
			fmt.Sprint(r.Len()),
		})
	}
	w.Render()
	return nil
}

func init() {
	app.AddCommand(new(partitionCmd))
}
