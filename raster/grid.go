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

package raster

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Package raster provides the in-memory grid model read by the extractor.
// A Grid is north-up: row 0 is the northern edge and columns grow eastwards.

// Grid is a north-up raster with one or more bands of equal shape.
type Grid struct {
	Name      string
	Cols      int
	Rows      int
	XMin      float64
	YMax      float64
	CellSize  float64
	NoData    float64
	HasNoData bool
	Bands     [][]float64
}

// NewGrid builds a grid from row-major band data.
func NewGrid(name string, cols, rows int, xmin, ymax, cellSize float64, bands ...[]float64) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("raster %s: invalid shape %dx%d", name, cols, rows)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("raster %s: cell size must be positive, got %v", name, cellSize)
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("raster %s: at least one band is required", name)
	}
	for i, b := range bands {
		if len(b) != cols*rows {
			return nil, fmt.Errorf("raster %s: band %d has %d values, want %d", name, i+1, len(b), cols*rows)
		}
	}
	return &Grid{
		Name:     name,
		Cols:     cols,
		Rows:     rows,
		XMin:     xmin,
		YMax:     ymax,
		CellSize: cellSize,
		Bands:    bands,
	}, nil
}

// WithNoData marks a nodata value and returns the grid.
func (g *Grid) WithNoData(v float64) *Grid {
	g.NoData = v
	g.HasNoData = true
	return g
}

// BandCount returns the number of bands.
func (g *Grid) BandCount() int {
	return len(g.Bands)
}

// XMax is the eastern edge.
func (g *Grid) XMax() float64 {
	return g.XMin + float64(g.Cols)*g.CellSize
}

// YMin is the southern edge.
func (g *Grid) YMin() float64 {
	return g.YMax - float64(g.Rows)*g.CellSize
}

// Value returns the value of a cell (band is 1-based). The second result is
// false for nodata, NaN and out-of-range cells.
func (g *Grid) Value(band, col, row int) (float64, bool) {
	if band < 1 || band > len(g.Bands) || col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return 0, false
	}
	v := g.Bands[band-1][row*g.Cols+col]
	if math.IsNaN(v) || (g.HasNoData && v == g.NoData) {
		return 0, false
	}
	return v, true
}

// CellBounds returns the extent of a cell as minx, miny, maxx, maxy.
func (g *Grid) CellBounds(col, row int) (float64, float64, float64, float64) {
	minx := g.XMin + float64(col)*g.CellSize
	maxy := g.YMax - float64(row)*g.CellSize
	return minx, maxy - g.CellSize, minx + g.CellSize, maxy
}

// CellWindow returns the inclusive column and row range of the cells that
// intersect the given extent, clipped to the grid. ok is false when the extent
// lies outside the grid.
func (g *Grid) CellWindow(minx, miny, maxx, maxy float64) (c0, r0, c1, r1 int, ok bool) {
	if maxx <= g.XMin || minx >= g.XMax() || maxy <= g.YMin() || miny >= g.YMax {
		return 0, 0, 0, 0, false
	}
	c0 = clamp(int(math.Floor((minx-g.XMin)/g.CellSize)), 0, g.Cols-1)
	c1 = clamp(int(math.Ceil((maxx-g.XMin)/g.CellSize))-1, 0, g.Cols-1)
	r0 = clamp(int(math.Floor((g.YMax-maxy)/g.CellSize)), 0, g.Rows-1)
	r1 = clamp(int(math.Ceil((g.YMax-miny)/g.CellSize))-1, 0, g.Rows-1)
	return c0, r0, c1, r1, true
}

// Aligned reports whether two grids share shape, origin and resolution.
func (g *Grid) Aligned(o *Grid) bool {
	const eps = 1e-9
	return g.Cols == o.Cols && g.Rows == o.Rows &&
		math.Abs(g.XMin-o.XMin) < eps && math.Abs(g.YMax-o.YMax) < eps &&
		math.Abs(g.CellSize-o.CellSize) < eps
}

// NameFromPath derives a raster name from a file path: the base name without extension.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
