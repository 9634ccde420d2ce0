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
	"time"

	"github.com/olekukonko/tablewriter"
	cli "gopkg.in/src-d/go-cli.v0"

	"github.com/aaronlmathis/gozonal"
	"github.com/aaronlmathis/gozonal/config"
	"github.com/aaronlmathis/gozonal/logging"
	"github.com/aaronlmathis/gozonal/unit"
)

type runCmd struct {
	cli.PlainCommand `name:"run" short-description:"run zonal statistics described by a run file" long-description:""`
	ParallelJobs     int           `long:"parallel-jobs" short:"j" default:"0" description:"override the number of parallel jobs of the run file"`
	Output           string        `long:"output" short:"o" description:"override the output location of the run file"`
	Where            string        `long:"where" description:"only process features matching a condition such as \"landuse=forest\""`
	UnitTimeout      time.Duration `long:"unit-timeout" default:"0s" description:"maximum time a single unit may spend extracting statistics"`
	LogLevel         string        `long:"log-level" default:"info" description:"log level (debug, info, warning, error)"`
	Quiet            bool          `long:"quiet" short:"q" description:"do not print the unit status table"`
}

func (c *runCmd) ExecuteContext(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected run file path, got %q instead", strings.Join(args, " "))
	}

	rf, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if c.ParallelJobs > 0 {
		rf.ParallelJobs = c.ParallelJobs
	}
	if c.Output != "" {
		rf.OutputFilePath, rf.OutputLayerName = c.Output, ""
	}
	if c.Where != "" {
		rf.Where = c.Where
	}

	level := c.LogLevel
	if rf.LogLevel != "" && level == "info" {
		level = rf.LogLevel
	}
	logger := logging.New(os.Stderr, level)

	rb, err := rf.Builder(ctx, logger)
	if err != nil {
		return err
	}
	run, err := rb.WithUnitTimeout(c.UnitTimeout).BuildContext(ctx)
	if err != nil {
		return err
	}

	result, err := run.Execute(ctx)
	if result != nil && !c.Quiet {
		renderUnits(result)
	}
	if err != nil {
		return fmt.Errorf("run failed: %s", err)
	}

	dest := rf.OutputLocation()
	if dest == "" {
		dest = "memory"
	}
	logger.Infof("wrote %d rows to %s in %s", result.Merged.Len(), dest, result.Duration().Round(time.Millisecond))
	return nil
}

func renderUnits(result *gozonal.Result) {
	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"unit", "features", "rows", "status", "duration", "error"})
	for _, m := range result.Units {
		errText := ""
		if m.Error != nil {
			errText = m.Error.Error()
		}
		w.Append([]string{
			m.ID,
			fmt.Sprint(m.Features),
			fmt.Sprint(m.RowsOut),
			m.Status.String(),
			m.GetExecutionTime().Round(time.Millisecond).String(),
			errText,
		})
	}
	w.SetFooter([]string{"run " + shortID(result.RunID), "", "", summary(result), result.Duration().Round(time.Millisecond).String(), ""})
	w.Render()
}

func summary(result *gozonal.Result) string {
	return fmt.Sprintf("%d %s / %d %s", result.Succeeded, unit.Succeeded, result.Failed, unit.Failed)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	app.AddCommand(new(runCmd))
}
