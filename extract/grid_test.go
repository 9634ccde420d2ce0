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
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/raster"
)

// testGrid is a 4x4 grid over [0,4]x[0,4] holding 1..16 row by row from the north.
func testGrid(t *testing.T, name string) *raster.Grid {
	t.Helper()
	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(i + 1)
	}
	g, err := raster.NewGrid(name, 4, 4, 0, 4, 1, values)
	require.NoError(t, err)
	return g
}

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

type sumReducer struct{}

func (sumReducer) Name() string { return "total" }
func (sumReducer) Reduce(values, coverage []float64) (float64, error) {
	var s float64
	for _, v := range values {
		s += v
	}
	return s, nil
}

func TestGridExtractorTabular(t *testing.T) {
	req := Request{
		Features: []core.Feature{
			{Attributes: core.Record{"id": int64(1)}, Geometry: square(0, 0, 2, 2)},
			{Attributes: core.Record{"id": int64(2)}, Geometry: &geom.Polygon{{{3, 3}, {4, 3}, {4, 4}, {3, 4}, {3, 3}}}},
		},
		Rasters:  []*raster.Grid{testGrid(t, "dem")},
		Stats:    []string{"count", "mean", "max"},
		Reducers: []core.Reducer{sumReducer{}},
		Include:  []string{"id"},
	}

	var progress []float64
	res, err := NewGridExtractor().Extract(context.Background(), req, func(f float64, _ string) {
		progress = append(progress, f)
	})
	require.NoError(t, err)
	require.NotNil(t, res.Table)

	assert.Equal(t, []string{"id", "count_band1", "mean_band1", "max_band1", "total_band1"}, res.Table.Columns)
	require.Equal(t, 2, res.Table.Len())

	first := res.Table.Rows[0]
	assert.Equal(t, int64(1), first["id"])
	assert.InDelta(t, 4.0, first["count_band1"], 1e-9)
	assert.InDelta(t, 11.5, first["mean_band1"], 1e-9)
	assert.Equal(t, 14.0, first["max_band1"])
	assert.Equal(t, 46.0, first["total_band1"])

	assert.Equal(t, 4.0, res.Table.Rows[1]["max_band1"])
	assert.Equal(t, []float64{0.5, 1}, progress)
}

func TestGridExtractorMultipleRasters(t *testing.T) {
	req := Request{
		Features: []core.Feature{{Attributes: core.Record{}, Geometry: square(0, 3, 1, 4)}},
		Rasters:  []*raster.Grid{testGrid(t, "a"), testGrid(t, "b")},
		Stats:    []string{"min"},
	}
	res, err := NewGridExtractor().Extract(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_min_band1", "b_min_band1"}, res.Table.Columns)
	assert.Equal(t, 1.0, res.Table.Rows[0]["a_min_band1"])
}

func TestGridExtractorGeospatial(t *testing.T) {
	poly := square(0, 0, 1, 1)
	req := Request{
		Features:  []core.Feature{{Attributes: core.Record{"name": "x"}, Geometry: poly}},
		Rasters:   []*raster.Grid{testGrid(t, "dem")},
		Stats:     []string{"sum"},
		Include:   []string{"name"},
		Mode:      core.Geospatial,
		CRS:       "EPSG:3857",
		LayerName: "unit-1",
	}
	res, err := NewGridExtractor().Extract(context.Background(), req, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Layer)
	assert.Equal(t, "unit-1", res.Layer.Name)
	assert.Equal(t, "EPSG:3857", res.Layer.CRS)
	assert.Equal(t, poly, res.Layer.Features[0].Geometry)
	assert.Equal(t, 13.0, res.Layer.Features[0].Attributes["sum_band1"])
}

func TestGridExtractorWeights(t *testing.T) {
	weights, err := raster.NewGrid("w", 4, 4, 0, 4, 1, make([]float64, 16))
	require.NoError(t, err)
	for i := range weights.Bands[0] {
		weights.Bands[0][i] = 2
	}
	req := Request{
		Features: []core.Feature{{Attributes: core.Record{}, Geometry: square(0, 0, 2, 2)}},
		Rasters:  []*raster.Grid{testGrid(t, "dem")},
		Weights:  weights,
		Stats:    []string{"weighted_sum", "weighted_mean"},
	}
	res, err := NewGridExtractor().Extract(context.Background(), req, nil)
	require.NoError(t, err)
	assert.InDelta(t, 92.0, res.Table.Rows[0]["weighted_sum_band1"], 1e-9)
	assert.InDelta(t, 11.5, res.Table.Rows[0]["weighted_mean_band1"], 1e-9)
}

func TestGridExtractorIncompatible(t *testing.T) {
	misaligned, err := raster.NewGrid("w", 2, 2, 0, 4, 1, make([]float64, 4))
	require.NoError(t, err)

	tests := []struct {
		name string
		req  Request
	}{
		{"no raster", Request{Stats: []string{"mean"}}},
		{"unknown operation", Request{Rasters: []*raster.Grid{testGrid(t, "dem")}, Stats: []string{"mode"}}},
		{"weights missing", Request{Rasters: []*raster.Grid{testGrid(t, "dem")}, Stats: []string{"weighted_sum"}}},
		{"misaligned weights", Request{Rasters: []*raster.Grid{testGrid(t, "dem")}, Weights: misaligned, Stats: []string{"weighted_sum"}}},
		{"point geometry", Request{
			Features: []core.Feature{{Attributes: core.Record{}, Geometry: geom.Point{1, 1}}},
			Rasters:  []*raster.Grid{testGrid(t, "dem")},
			Stats:    []string{"mean"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGridExtractor().Extract(context.Background(), tt.req, nil)
			require.Error(t, err)
			assert.True(t, core.IsIncompatible(err), "got %v", err)
		})
	}
}

func TestGridExtractorEmptyCells(t *testing.T) {
	req := Request{
		Features: []core.Feature{{Attributes: core.Record{}, Geometry: square(10, 10, 11, 11)}},
		Rasters:  []*raster.Grid{testGrid(t, "dem")},
		Stats:    []string{"mean", "count"},
		Reducers: []core.Reducer{sumReducer{}},
	}
	res, err := NewGridExtractor().Extract(context.Background(), req, nil)
	require.NoError(t, err)
	row := res.Table.Rows[0]
	assert.Nil(t, row["mean_band1"])
	assert.Equal(t, 0.0, row["count_band1"])
	assert.Nil(t, row["total_band1"])
}

func TestGridExtractorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := Request{
		Features: []core.Feature{{Attributes: core.Record{}, Geometry: square(0, 0, 1, 1)}},
		Rasters:  []*raster.Grid{testGrid(t, "dem")},
		Stats:    []string{"mean"},
	}
	_, err := NewGridExtractor().Extract(ctx, req, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestColumns(t *testing.T) {
	req := Request{
		Include:  []string{"id"},
		Rasters:  []*raster.Grid{testGrid(t, "dem")},
		Stats:    []string{"mean"},
		Reducers: []core.Reducer{sumReducer{}},
	}
	assert.Equal(t, []string{"id", "mean_band1", "total_band1"}, Columns(req))
	assert.Equal(t, "dem_mean_band2", ColumnName("dem", true, "mean", 2))
}
