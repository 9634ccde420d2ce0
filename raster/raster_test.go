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
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demASC = `ncols 3
nrows 2
xllcorner 10
yllcorner 20
cellsize 5
NODATA_value -9999
1 2 3
4 -9999 6
`

func TestReadASCII(t *testing.T) {
	g, err := ReadASCII(strings.NewReader(demASC), "dem")
	require.NoError(t, err)

	assert.Equal(t, 3, g.Cols)
	assert.Equal(t, 2, g.Rows)
	assert.Equal(t, 10.0, g.XMin)
	assert.Equal(t, 30.0, g.YMax)
	assert.Equal(t, 25.0, g.XMax())
	assert.Equal(t, 20.0, g.YMin())
	assert.Equal(t, 1, g.BandCount())

	v, ok := g.Value(1, 2, 0)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	_, ok = g.Value(1, 1, 1)
	assert.False(t, ok, "nodata")
	_, ok = g.Value(2, 0, 0)
	assert.False(t, ok, "band out of range")
	_, ok = g.Value(1, 3, 0)
	assert.False(t, ok, "column out of range")
}

func TestReadASCIICenter(t *testing.T) {
	in := "ncols 1\nnrows 1\nxllcenter 0.5\nyllcenter 0.5\ncellsize 1\n7\n"
	g, err := ReadASCII(strings.NewReader(in), "one")
	require.NoError(t, err)
	assert.Equal(t, 0.0, g.XMin)
	assert.Equal(t, 1.0, g.YMax)
}

func TestReadASCIIErrors(t *testing.T) {
	tests := map[string]string{
		"missing cellsize": "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\n1\n",
		"missing corner":   "ncols 1\nnrows 1\ncellsize 1\n1\n",
		"short data":       "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n",
		"bad cell":         "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\nx\n",
		"truncated header": "ncols",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadASCII(strings.NewReader(in), "bad")
			assert.Error(t, err)
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "elevation.asc")
	require.NoError(t, os.WriteFile(path, []byte(demASC), 0644))

	g, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "elevation", g.Name)

	_, err = Open(filepath.Join(dir, "elevation.tif"))
	assert.Error(t, err)
	_, err = Open(filepath.Join(dir, "missing.asc"))
	assert.Error(t, err)
}

func TestNewGridErrors(t *testing.T) {
	_, err := NewGrid("x", 0, 1, 0, 0, 1, []float64{})
	assert.Error(t, err)
	_, err = NewGrid("x", 1, 1, 0, 0, 0, []float64{1})
	assert.Error(t, err)
	_, err = NewGrid("x", 1, 1, 0, 0, 1)
	assert.Error(t, err)
	_, err = NewGrid("x", 2, 1, 0, 0, 1, []float64{1})
	assert.Error(t, err)
}

func TestCellWindow(t *testing.T) {
	g, err := NewGrid("w", 4, 4, 0, 4, 1, make([]float64, 16))
	require.NoError(t, err)

	c0, r0, c1, r1, ok := g.CellWindow(0.5, 0.5, 2, 2)
	require.True(t, ok)
	assert.Equal(t, []int{0, 2, 1, 3}, []int{c0, r0, c1, r1})

	c0, r0, c1, r1, ok = g.CellWindow(-10, -10, 10, 10)
	require.True(t, ok)
	assert.Equal(t, []int{0, 0, 3, 3}, []int{c0, r0, c1, r1})

	_, _, _, _, ok = g.CellWindow(5, 5, 6, 6)
	assert.False(t, ok)

	minx, miny, maxx, maxy := g.CellBounds(1, 0)
	assert.Equal(t, []float64{1, 3, 2, 4}, []float64{minx, miny, maxx, maxy})
}

func TestStack(t *testing.T) {
	a, err := NewGrid("a", 2, 1, 0, 1, 1, []float64{1, 2})
	require.NoError(t, err)
	b, err := NewGrid("b", 2, 1, 0, 1, 1, []float64{math.NaN(), 4})
	require.NoError(t, err)

	s, err := Stack("ab", a, b)
	require.NoError(t, err)
	assert.Equal(t, 2, s.BandCount())
	_, ok := s.Value(2, 0, 0)
	assert.False(t, ok, "NaN cells are missing")

	c, err := NewGrid("c", 2, 1, 0.5, 1, 1, []float64{1, 2})
	require.NoError(t, err)
	_, err = Stack("ac", a, c)
	assert.Error(t, err)
	_, err = Stack("none")
	assert.Error(t, err)
}
