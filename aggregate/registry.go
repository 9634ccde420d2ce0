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

package aggregate

import (
	"fmt"
	"sort"
)

// Statistic describes a built-in statistic.
type Statistic struct {
	New func() Aggregator
	// Weighted statistics need a weight raster.
	Weighted bool
	// Array statistics produce one []float64 per feature.
	Array bool
}

var builtins = map[string]Statistic{
	"count":         {New: func() Aggregator { return &CountAggregator{} }},
	"sum":           {New: func() Aggregator { return &SumAggregator{} }},
	"mean":          {New: func() Aggregator { return &MeanAggregator{} }},
	"min":           {New: func() Aggregator { return &MinAggregator{} }},
	"max":           {New: func() Aggregator { return &MaxAggregator{} }},
	"median":        {New: func() Aggregator { return &MedianAggregator{} }},
	"variance":      {New: func() Aggregator { return &VarianceAggregator{} }},
	"stdev":         {New: func() Aggregator { return &VarianceAggregator{Stdev: true} }},
	"majority":      {New: func() Aggregator { return &FrequencyAggregator{Mode: "majority"} }},
	"minority":      {New: func() Aggregator { return &FrequencyAggregator{Mode: "minority"} }},
	"variety":       {New: func() Aggregator { return &FrequencyAggregator{Mode: "variety"} }},
	"weighted_sum":  {New: func() Aggregator { return &WeightedSumAggregator{} }, Weighted: true},
	"weighted_mean": {New: func() Aggregator { return &WeightedMeanAggregator{} }, Weighted: true},
	"values": {New: func() Aggregator {
		return &ArrayAggregator{Pick: func(c Cell) float64 { return c.Value }}
	}, Array: true},
	"coverage": {New: func() Aggregator {
		return &ArrayAggregator{Pick: func(c Cell) float64 { return c.Coverage }}
	}, Array: true},
	"weights": {New: func() Aggregator {
		return &ArrayAggregator{Pick: func(c Cell) float64 { return c.Weight }}
	}, Weighted: true, Array: true},
}

// Lookup returns the definition of a built-in statistic.
func Lookup(name string) (Statistic, bool) {
	s, ok := builtins[name]
	return s, ok
}

// New creates a fresh aggregator for a built-in statistic.
func New(name string) (Aggregator, error) {
	s, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown statistic %q", name)
	}
	return s.New(), nil
}

// IsBuiltin reports whether name is a built-in statistic.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Names lists the built-in statistics in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
