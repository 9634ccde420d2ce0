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

package extract

import (
	"context"
	"fmt"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/raster"
)

// Package extract defines the extraction call consumed by statistics units and
// ships a reference implementation over in-memory grids.

// ProgressFunc receives fractional progress in [0,1] and a short message. It
// must not block.
type ProgressFunc func(fraction float64, message string)

// Request carries everything one extraction call needs.
type Request struct {
	Features  []core.Feature
	Rasters   []*raster.Grid
	Weights   *raster.Grid
	Stats     []string
	Reducers  []core.Reducer
	Include   []string
	Mode      core.OutputMode
	CRS       string
	LayerName string
}

// Operations returns the built-in statistic names followed by reducer names.
func (r Request) Operations() []string {
	ops := append([]string(nil), r.Stats...)
	for _, red := range r.Reducers {
		ops = append(ops, red.Name())
	}
	return ops
}

// Extractor computes zonal statistics for a set of features. Implementations
// return a *core.ExtractionIncompatibilityError when they cannot accept the
// shape of the request.
type Extractor interface {
	Extract(ctx context.Context, req Request, progress ProgressFunc) (core.PartialResult, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, req Request, progress ProgressFunc) (core.PartialResult, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, req Request, progress ProgressFunc) (core.PartialResult, error) {
	return f(ctx, req, progress)
}

// ColumnName names the output column of one operation on one band. A single
// raster yields "<op>_band<N>"; several rasters are told apart by name.
func ColumnName(rasterName string, multiRaster bool, op string, band int) string {
	if multiRaster {
		return fmt.Sprintf("%s_%s_band%d", rasterName, op, band)
	}
	return fmt.Sprintf("%s_band%d", op, band)
}

// Columns lists the output columns of a request in order: include columns,
// then one column per raster, band and operation.
func Columns(req Request) []string {
	cols := append([]string(nil), req.Include...)
	multi := len(req.Rasters) > 1
	for _, r := range req.Rasters {
		for band := 1; band <= r.BandCount(); band++ {
			for _, op := range req.Operations() {
				cols = append(cols, ColumnName(r.Name, multi, op, band))
			}
		}
	}
	return cols
}
