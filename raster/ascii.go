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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadASCII parses an ESRI ASCII grid (.asc). Only single band grids exist in
// this format; stack several files with Stack for multi-band inputs.
func ReadASCII(r io.Reader, name string) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)

	header := make(map[string]float64, 6)
	var pending string
	for scanner.Scan() {
		key := strings.ToLower(scanner.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			pending = key
			break
		}
		if !scanner.Scan() {
			return nil, fmt.Errorf("raster %s: truncated header at %q", name, key)
		}
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("raster %s: header %s: %w", name, key, err)
		}
		header[key] = v
	}

	cols, rows := int(header["ncols"]), int(header["nrows"])
	cell, ok := header["cellsize"]
	if !ok || cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("raster %s: header must define ncols, nrows and cellsize", name)
	}
	xmin, hasCorner := header["xllcorner"]
	if !hasCorner {
		xc, ok := header["xllcenter"]
		if !ok {
			return nil, fmt.Errorf("raster %s: missing xllcorner/xllcenter", name)
		}
		xmin = xc - cell/2
	}
	ymin, hasCorner := header["yllcorner"]
	if !hasCorner {
		yc, ok := header["yllcenter"]
		if !ok {
			return nil, fmt.Errorf("raster %s: missing yllcorner/yllcenter", name)
		}
		ymin = yc - cell/2
	}

	values := make([]float64, 0, cols*rows)
	appendValue := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("raster %s: cell %d: %w", name, len(values), err)
		}
		values = append(values, v)
		return nil
	}
	if pending != "" {
		if err := appendValue(pending); err != nil {
			return nil, err
		}
	}
	for scanner.Scan() {
		if err := appendValue(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("raster %s: %w", name, err)
	}

	g, err := NewGrid(name, cols, rows, xmin, ymin+float64(rows)*cell, cell, values)
	if err != nil {
		return nil, err
	}
	if nd, ok := header["nodata_value"]; ok {
		g.WithNoData(nd)
	}
	return g, nil
}

// Open loads a raster file. The raster is named after the file.
func Open(path string) (*Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc":
	default:
		return nil, fmt.Errorf("raster %s: unsupported format %q", path, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadASCII(f, NameFromPath(path))
}

// Stack combines aligned single band grids into one multi-band grid.
func Stack(name string, grids ...*Grid) (*Grid, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("raster %s: nothing to stack", name)
	}
	first := grids[0]
	bands := make([][]float64, 0, len(grids))
	for _, g := range grids {
		if !first.Aligned(g) {
			return nil, fmt.Errorf("raster %s: grid %s is not aligned with %s", name, g.Name, first.Name)
		}
		bands = append(bands, g.Bands...)
	}
	out, err := NewGrid(name, first.Cols, first.Rows, first.XMin, first.YMax, first.CellSize, bands...)
	if err != nil {
		return nil, err
	}
	out.NoData, out.HasNoData = first.NoData, first.HasNoData
	return out, nil
}
