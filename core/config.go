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
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/aaronlmathis/gozonal/raster"
)

// WorkConfiguration is the immutable configuration shared by every unit of a run.
type WorkConfiguration struct {
	Rasters  []*raster.Grid
	Weights  *raster.Grid
	Stats    []string
	Reducers []Reducer
	// IncludeColumns maps an input column name to its field index in the source collection.
	IncludeColumns map[string]int
	IDColumn       string
	IDKind         Kind
	Mode           OutputMode
	Prefix         string
	OutputPath     string
	CRS            string
}

// IncludeNames returns the include columns ordered by source field index.
func (c *WorkConfiguration) IncludeNames() []string {
	names := make([]string, 0, len(c.IncludeColumns))
	for name := range c.IncludeColumns {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := c.IncludeColumns[names[i]], c.IncludeColumns[names[j]]
		if a == b {
			return names[i] < names[j]
		}
		return a < b
	})
	return names
}

// IsIncluded reports whether name is an include column.
func (c *WorkConfiguration) IsIncluded(name string) bool {
	_, ok := c.IncludeColumns[name]
	return ok
}

// Operations returns built-in statistic names followed by custom reducer names.
func (c *WorkConfiguration) Operations() []string {
	ops := make([]string, 0, len(c.Stats)+len(c.Reducers))
	ops = append(ops, c.Stats...)
	for _, r := range c.Reducers {
		ops = append(ops, r.Name())
	}
	return ops
}

// Validate checks the structural invariants of the configuration. All problems
// are reported together in one ConfigurationError.
func (c *WorkConfiguration) Validate() error {
	var result *multierror.Error
	if len(c.Rasters) == 0 {
		result = multierror.Append(result, errors.New("at least one raster is required"))
	}
	for i, r := range c.Rasters {
		if r == nil {
			result = multierror.Append(result, fmt.Errorf("raster %d is nil", i))
		}
	}
	if len(c.Operations()) == 0 {
		result = multierror.Append(result, errors.New("no statistics selected"))
	}
	seen := make(map[string]bool)
	for _, op := range c.Operations() {
		if seen[op] {
			result = multierror.Append(result, fmt.Errorf("statistic %q selected twice", op))
		}
		seen[op] = true
	}
	if c.IDColumn != "" && !c.IsIncluded(c.IDColumn) {
		result = multierror.Append(result, fmt.Errorf("identifier column %q must be an include column", c.IDColumn))
	}
	if err := result.ErrorOrNil(); err != nil {
		return &ConfigurationError{Op: "validate", Err: err}
	}
	return nil
}
