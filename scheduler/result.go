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

package scheduler

import (
	"time"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/unit"
)

// Result summarizes one run.
type Result struct {
	RunID     string
	Success   bool
	StartTime time.Time
	EndTime   time.Time
	Units     []unit.Metadata
	Succeeded int
	Failed    int
	Merged    *core.MergedResult
	Error     error
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Partial reports whether some units failed but the merge still ran.
func (r *Result) Partial() bool {
	return r.Success && r.Failed > 0
}

func (s *Scheduler) newResult(start time.Time, merged *core.MergedResult, err error) *Result {
	res := &Result{
		RunID:     s.runID,
		Success:   err == nil,
		StartTime: start,
		EndTime:   time.Now(),
		Units:     make([]unit.Metadata, 0, len(s.units)),
		Merged:    merged,
		Error:     err,
	}
	for _, u := range s.units {
		m := u.Metadata()
		switch m.Status {
		case unit.Succeeded:
			res.Succeeded++
		case unit.Failed:
			res.Failed++
		}
		res.Units = append(res.Units, m)
	}
	return res
}
