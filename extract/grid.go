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
	"errors"
	"fmt"

	"github.com/aaronlmathis/gozonal/aggregate"
	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/raster"
)

// GridExtractor is the reference extractor over raster.Grid inputs. Coverage
// fractions are estimated by point sampling inside each cell.
type GridExtractor struct {
	samples int
}

// GridOption configures a GridExtractor.
type GridOption func(*GridExtractor)

// WithSamples sets the number of sample points per cell side.
func WithSamples(n int) GridOption {
	return func(e *GridExtractor) {
		if n > 0 {
			e.samples = n
		}
	}
}

// NewGridExtractor creates a grid extractor. The default is 10x10 samples per cell.
func NewGridExtractor(opts ...GridOption) *GridExtractor {
	e := &GridExtractor{samples: 10}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract implements Extractor.
func (e *GridExtractor) Extract(ctx context.Context, req Request, progress ProgressFunc) (core.PartialResult, error) {
	if err := e.check(req); err != nil {
		return core.PartialResult{}, err
	}

	cols := Columns(req)
	var result core.PartialResult
	if req.Mode == core.Geospatial {
		result.Layer = &core.Layer{Name: req.LayerName, CRS: req.CRS, Fields: cols}
	} else {
		result.Table = core.NewTable(cols...)
	}

	total := len(req.Features)
	for i, f := range req.Features {
		select {
		case <-ctx.Done():
			return core.PartialResult{}, ctx.Err()
		default:
		}

		rec, err := e.feature(f, req)
		if err != nil {
			return core.PartialResult{}, err
		}
		if result.Layer != nil {
			result.Layer.Features = append(result.Layer.Features, core.Feature{Attributes: rec, Geometry: f.Geometry})
		} else {
			result.Table.Append(rec)
		}
		if progress != nil {
			progress(float64(i+1)/float64(total), fmt.Sprintf("processed %d of %d features", i+1, total))
		}
	}
	return result, nil
}

// check rejects requests whose shape this extractor cannot serve.
func (e *GridExtractor) check(req Request) error {
	if len(req.Rasters) == 0 {
		return &core.ExtractionIncompatibilityError{Op: "rasters", Err: errors.New("no raster given")}
	}
	for _, name := range req.Stats {
		stat, ok := aggregate.Lookup(name)
		if !ok {
			return &core.ExtractionIncompatibilityError{Op: "operations", Err: fmt.Errorf("unsupported operation %q", name)}
		}
		if stat.Weighted && req.Weights == nil {
			return &core.ExtractionIncompatibilityError{Op: "operations", Err: fmt.Errorf("operation %q requires a weight raster", name)}
		}
	}
	if req.Weights != nil {
		for _, r := range req.Rasters {
			if !r.Aligned(req.Weights) {
				return &core.ExtractionIncompatibilityError{
					Op:  "weights",
					Err: fmt.Errorf("weight raster %s is not aligned with %s", req.Weights.Name, r.Name),
				}
			}
		}
	}
	return nil
}

func (e *GridExtractor) feature(f core.Feature, req Request) (core.Record, error) {
	polys, err := polygonsOf(f.Geometry)
	if err != nil {
		return nil, &core.ExtractionIncompatibilityError{Op: "geometry", Err: err}
	}

	rec := make(core.Record, len(req.Include)+len(req.Rasters)*len(req.Operations()))
	for _, name := range req.Include {
		rec[name] = f.Attributes[name]
	}

	multi := len(req.Rasters) > 1
	for _, r := range req.Rasters {
		cells := coverage(r, polys, e.samples)
		for band := 1; band <= r.BandCount(); band++ {
			if err := e.band(rec, r, band, cells, multi, req); err != nil {
				return nil, err
			}
		}
	}
	return rec, nil
}

func (e *GridExtractor) band(rec core.Record, r *raster.Grid, band int, cells []covered, multi bool, req Request) error {
	aggs := make([]aggregate.Aggregator, len(req.Stats))
	for i, name := range req.Stats {
		agg, err := aggregate.New(name)
		if err != nil {
			return err
		}
		aggs[i] = agg
	}

	weightBand := 1
	if req.Weights != nil && req.Weights.BandCount() == r.BandCount() {
		weightBand = band
	}

	values := make([]float64, 0, len(cells))
	fractions := make([]float64, 0, len(cells))
	for _, c := range cells {
		v, ok := r.Value(band, c.col, c.row)
		if !ok {
			continue
		}
		cell := aggregate.Cell{Value: v, Coverage: c.fraction, Weight: 1}
		if req.Weights != nil {
			w, ok := req.Weights.Value(weightBand, c.col, c.row)
			if !ok {
				w = 0
			}
			cell.Weight = w
		}
		for _, agg := range aggs {
			agg.Add(cell)
		}
		values = append(values, v)
		fractions = append(fractions, c.fraction)
	}

	for i, name := range req.Stats {
		rec[ColumnName(r.Name, multi, name, band)] = aggs[i].Result()
	}
	for _, red := range req.Reducers {
		col := ColumnName(r.Name, multi, red.Name(), band)
		if len(values) == 0 {
			rec[col] = nil
			continue
		}
		v, err := red.Reduce(values, fractions)
		if err != nil {
			return fmt.Errorf("custom function %s: %w", red.Name(), err)
		}
		rec[col] = v
	}
	return nil
}
