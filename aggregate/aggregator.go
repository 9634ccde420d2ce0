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
	"math"
	"sort"
)

// Package aggregate implements the built-in zonal statistics. Each statistic is
// an Aggregator fed with the cells a polygon covers, one Cell at a time.

// Cell is one raster cell seen by a polygon: its value, the fraction of the
// cell covered by the polygon and, when a weight raster is set, its weight.
type Cell struct {
	Value    float64
	Coverage float64
	Weight   float64
}

// Aggregator accumulates cells and produces one statistic value.
type Aggregator interface {
	// Add processes a covered cell.
	Add(cell Cell)
	// Result returns the statistic; nil when it is undefined (no cells).
	Result() interface{}
	// Reset clears the aggregator state for reuse.
	Reset()
}

// CountAggregator sums coverage fractions.
type CountAggregator struct {
	count float64
}

func (c *CountAggregator) Add(cell Cell)       { c.count += cell.Coverage }
func (c *CountAggregator) Result() interface{} { return c.count }
func (c *CountAggregator) Reset()              { c.count = 0 }

// SumAggregator sums coverage-weighted values.
type SumAggregator struct {
	sum float64
}

func (s *SumAggregator) Add(cell Cell)       { s.sum += cell.Value * cell.Coverage }
func (s *SumAggregator) Result() interface{} { return s.sum }
func (s *SumAggregator) Reset()              { s.sum = 0 }

// MeanAggregator computes the coverage-weighted mean.
type MeanAggregator struct {
	sum, weight float64
}

func (m *MeanAggregator) Add(cell Cell) {
	m.sum += cell.Value * cell.Coverage
	m.weight += cell.Coverage
}

func (m *MeanAggregator) Result() interface{} {
	if m.weight == 0 {
		return nil
	}
	return m.sum / m.weight
}

func (m *MeanAggregator) Reset() { m.sum, m.weight = 0, 0 }

// MinAggregator finds the minimum covered value.
type MinAggregator struct {
	min float64
	set bool
}

func (m *MinAggregator) Add(cell Cell) {
	if !m.set || cell.Value < m.min {
		m.min, m.set = cell.Value, true
	}
}

func (m *MinAggregator) Result() interface{} {
	if !m.set {
		return nil
	}
	return m.min
}

func (m *MinAggregator) Reset() { m.min, m.set = 0, false }

// MaxAggregator finds the maximum covered value.
type MaxAggregator struct {
	max float64
	set bool
}

func (m *MaxAggregator) Add(cell Cell) {
	if !m.set || cell.Value > m.max {
		m.max, m.set = cell.Value, true
	}
}

func (m *MaxAggregator) Result() interface{} {
	if !m.set {
		return nil
	}
	return m.max
}

func (m *MaxAggregator) Reset() { m.max, m.set = 0, false }

// VarianceAggregator computes the coverage-weighted population variance, or
// its square root when Stdev is set.
type VarianceAggregator struct {
	Stdev  bool
	cells  []Cell
	weight float64
}

func (v *VarianceAggregator) Add(cell Cell) {
	v.cells = append(v.cells, cell)
	v.weight += cell.Coverage
}

func (v *VarianceAggregator) Result() interface{} {
	if v.weight == 0 {
		return nil
	}
	var mean float64
	for _, c := range v.cells {
		mean += c.Value * c.Coverage
	}
	mean /= v.weight
	var ss float64
	for _, c := range v.cells {
		d := c.Value - mean
		ss += c.Coverage * d * d
	}
	variance := ss / v.weight
	if v.Stdev {
		return math.Sqrt(variance)
	}
	return variance
}

func (v *VarianceAggregator) Reset() { v.cells, v.weight = nil, 0 }

// MedianAggregator computes the coverage-weighted median.
type MedianAggregator struct {
	cells  []Cell
	weight float64
}

func (m *MedianAggregator) Add(cell Cell) {
	m.cells = append(m.cells, cell)
	m.weight += cell.Coverage
}

func (m *MedianAggregator) Result() interface{} {
	if m.weight == 0 {
		return nil
	}
	sorted := append([]Cell(nil), m.cells...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })
	half := m.weight / 2
	var acc float64
	for _, c := range sorted {
		acc += c.Coverage
		if acc >= half {
			return c.Value
		}
	}
	return sorted[len(sorted)-1].Value
}

func (m *MedianAggregator) Reset() { m.cells, m.weight = nil, 0 }

// FrequencyAggregator tracks covered area per distinct value. It backs the
// majority, minority and variety statistics.
type FrequencyAggregator struct {
	Mode  string
	areas map[float64]float64
}

func (f *FrequencyAggregator) Add(cell Cell) {
	if f.areas == nil {
		f.areas = make(map[float64]float64)
	}
	f.areas[cell.Value] += cell.Coverage
}

func (f *FrequencyAggregator) Result() interface{} {
	if len(f.areas) == 0 {
		if f.Mode == "variety" {
			return int64(0)
		}
		return nil
	}
	if f.Mode == "variety" {
		return int64(len(f.areas))
	}
	values := make([]float64, 0, len(f.areas))
	for v := range f.areas {
		values = append(values, v)
	}
	sort.Float64s(values)
	best := values[0]
	for _, v := range values[1:] {
		if f.Mode == "minority" && f.areas[v] < f.areas[best] {
			best = v
		}
		if f.Mode != "minority" && f.areas[v] > f.areas[best] {
			best = v
		}
	}
	return best
}

func (f *FrequencyAggregator) Reset() { f.areas = nil }

// WeightedSumAggregator sums value * coverage * weight.
type WeightedSumAggregator struct {
	sum float64
}

func (w *WeightedSumAggregator) Add(cell Cell)       { w.sum += cell.Value * cell.Coverage * cell.Weight }
func (w *WeightedSumAggregator) Result() interface{} { return w.sum }
func (w *WeightedSumAggregator) Reset()              { w.sum = 0 }

// WeightedMeanAggregator divides the weighted sum by the summed coverage * weight.
type WeightedMeanAggregator struct {
	sum, weight float64
}

func (w *WeightedMeanAggregator) Add(cell Cell) {
	w.sum += cell.Value * cell.Coverage * cell.Weight
	w.weight += cell.Coverage * cell.Weight
}

func (w *WeightedMeanAggregator) Result() interface{} {
	if w.weight == 0 {
		return nil
	}
	return w.sum / w.weight
}

func (w *WeightedMeanAggregator) Reset() { w.sum, w.weight = 0, 0 }

// ArrayAggregator collects one attribute of every covered cell.
type ArrayAggregator struct {
	Pick   func(Cell) float64
	values []float64
}

func (a *ArrayAggregator) Add(cell Cell) { a.values = append(a.values, a.Pick(cell)) }

func (a *ArrayAggregator) Result() interface{} {
	out := make([]float64, len(a.values))
	copy(out, a.values)
	return out
}

func (a *ArrayAggregator) Reset() { a.values = nil }
