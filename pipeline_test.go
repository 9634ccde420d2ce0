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

package gozonal_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gozonal"
	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/filter"
	"github.com/aaronlmathis/gozonal/raster"
	"github.com/aaronlmathis/gozonal/readers"
)

// dem is a 4x4 grid over [0,4]x[0,4] holding 1..16 row by row from the north.
func dem(t *testing.T) *raster.Grid {
	t.Helper()
	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(i + 1)
	}
	g, err := raster.NewGrid("dem", 4, 4, 0, 4, 1, values)
	require.NoError(t, err)
	return g
}

// cells returns n features, feature i covering exactly cell i of dem.
func cells(n int) *gozonal.FeatureCollection {
	fc := &gozonal.FeatureCollection{Name: "zones", CRS: "EPSG:4326", Columns: []string{"id", "landuse"}}
	for i := 0; i < n; i++ {
		col, row := float64(i%4), float64(i/4)
		landuse := "forest"
		if i%2 == 1 {
			landuse = "urban"
		}
		fc.Features = append(fc.Features, gozonal.Feature{
			Attributes: gozonal.Record{"id": int64(i), "landuse": landuse},
			Geometry: geom.Polygon{{
				{col, 3 - row}, {col + 1, 3 - row}, {col + 1, 4 - row}, {col, 4 - row}, {col, 3 - row},
			}},
		})
	}
	return fc
}

func execute(t *testing.T, rb *gozonal.RunBuilder) *gozonal.Result {
	t.Helper()
	run, err := rb.Build()
	require.NoError(t, err)
	res, err := run.Execute(context.Background())
	require.NoError(t, err)
	require.True(t, res.Success)
	return res
}

func TestRunKeepsInputOrder(t *testing.T) {
	res := execute(t, gozonal.NewRun().
		Features(cells(12)).
		Rasters(dem(t)).
		Stats("mean").
		IDColumn("id").
		Prefix("prefix_").
		ParallelJobs(3))

	assert.Equal(t, 3, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.Len(t, res.Units, 3)
	assert.NotEmpty(t, res.RunID)

	table := res.Merged.Table
	require.NotNil(t, table)
	assert.Equal(t, []string{"id", "prefix_mean_band1"}, table.Columns)
	require.Equal(t, 12, table.Len())
	for i, row := range table.Rows {
		assert.Equal(t, int64(i), row["id"])
		assert.InDelta(t, float64(i+1), row["prefix_mean_band1"], 1e-9)
	}
}

func TestRunParallelismDoesNotChangeResult(t *testing.T) {
	var tables []*core.Table
	for _, jobs := range []int{1, 3, 5, 20} {
		res := execute(t, gozonal.NewRun().
			Features(cells(13)).
			Rasters(dem(t)).
			Stats("count", "mean", "max").
			CustomFunctions("def total(values):\n    return fsum(values)").
			Include("landuse").
			IDColumn("id").
			ParallelJobs(jobs))
		assert.Len(t, res.Units, min(jobs, 13))
		tables = append(tables, res.Merged.Table)
	}
	for _, tbl := range tables[1:] {
		assert.Equal(t, tables[0], tbl)
	}
	assert.Equal(t, []string{"id", "landuse", "count_band1", "mean_band1", "max_band1", "total_band1"}, tables[0].Columns)
}

func TestRunEmptyInput(t *testing.T) {
	res := execute(t, gozonal.NewRun().
		Features(cells(0)).
		Rasters(dem(t)).
		Stats("mean").
		IDColumn("id").
		ParallelJobs(4))

	assert.Len(t, res.Units, 1)
	assert.Zero(t, res.Merged.Len())
}

func TestRunWhere(t *testing.T) {
	res := execute(t, gozonal.NewRun().
		Features(cells(8)).
		Rasters(dem(t)).
		Stats("max").
		IDColumn("id").
		Where(filter.Equals("landuse", "forest")).
		ParallelJobs(2))

	assert.Equal(t, []interface{}{int64(0), int64(2), int64(4), int64(6)}, res.Merged.Table.Column("id"))
}

func TestRunGeospatial(t *testing.T) {
	res := execute(t, gozonal.NewRun().
		Features(cells(6)).
		Rasters(dem(t)).
		Stats("mean").
		IDColumn("id").
		Prefix("z_").
		Mode(gozonal.Geospatial).
		ParallelJobs(4))

	layer := res.Merged.Layer
	require.NotNil(t, layer)
	assert.Equal(t, "zonal_stats", layer.Name)
	assert.Equal(t, "EPSG:4326", layer.CRS)
	assert.Equal(t, []string{"id", "z_mean_band1"}, layer.Fields)
	require.Equal(t, 6, layer.Len())
	for i, f := range layer.Features {
		assert.Equal(t, int64(i), f.Attributes["id"])
		assert.NotNil(t, f.Geometry)
	}
}

func TestRunWritesOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	var (
		mu      sync.Mutex
		updates = map[string]float64{}
	)
	res := execute(t, gozonal.NewRun().
		Features(cells(5)).
		Rasters(dem(t)).
		Stats("mean").
		IDColumn("id").
		Prefix("dem_").
		Output(path).
		WithProgressHook(func(unitID string, fraction float64, _ string) {
			mu.Lock()
			updates[unitID] = fraction
			mu.Unlock()
		}).
		ParallelJobs(2))
	assert.Equal(t, path, res.Merged.OutputPath)

	table, err := readers.ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "dem_mean_band1"}, table.Columns)
	assert.Equal(t, []interface{}{int64(0), int64(1), int64(2), int64(3), int64(4)}, table.Column("id"))
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0, 4.0, 5.0}, table.Column("dem_mean_band1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, updates, 2)
	for id, fraction := range updates {
		assert.Equal(t, 1.0, fraction, id)
	}
}

func TestRunStartsOnce(t *testing.T) {
	run, err := gozonal.NewRun().Features(cells(2)).Rasters(dem(t)).Stats("mean").Build()
	require.NoError(t, err)

	sched, err := run.Start(context.Background())
	require.NoError(t, err)
	_, err = run.Start(context.Background())
	assert.ErrorIs(t, err, gozonal.ErrAlreadyStarted)

	res, err := sched.Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Merged.Len())
}

func TestBuildErrors(t *testing.T) {
	duplicate := cells(3)
	duplicate.Features[2].Attributes["id"] = int64(0)

	tests := []struct {
		name    string
		builder *gozonal.RunBuilder
		want    []string
	}{
		{
			name:    "missing features",
			builder: gozonal.NewRun().Rasters(dem(t)).Stats("mean"),
			want:    []string{"a feature collection is required"},
		},
		{
			name:    "unknown statistic",
			builder: gozonal.NewRun().Features(cells(2)).Rasters(dem(t)).Stats("mean", "modal"),
			want:    []string{`unknown statistic "modal"`},
		},
		{
			name:    "weighted without weights",
			builder: gozonal.NewRun().Features(cells(2)).Rasters(dem(t)).Stats("weighted_mean"),
			want:    []string{`statistic "weighted_mean" requires a weight raster`},
		},
		{
			name:    "duplicate identifiers",
			builder: gozonal.NewRun().Features(duplicate).Rasters(dem(t)).Stats("mean").IDColumn("id"),
			want:    []string{"feature 2 repeats identifier 0 of feature 0"},
		},
		{
			name:    "missing include column",
			builder: gozonal.NewRun().Features(cells(2)).Rasters(dem(t)).Stats("mean").Include("owner"),
			want:    []string{`column "owner" not found`},
		},
		{
			name:    "unsupported output",
			builder: gozonal.NewRun().Features(cells(2)).Rasters(dem(t)).Stats("mean").Output("stats.xlsx"),
			want:    []string{`unsupported output "stats.xlsx"`},
		},
		{
			name:    "arrays in csv",
			builder: gozonal.NewRun().Features(cells(2)).Rasters(dem(t)).Stats("values").Output("stats.csv"),
			want:    []string{"array statistics cannot be written as csv"},
		},
		{
			name:    "several problems at once",
			builder: gozonal.NewRun().Features(cells(2)).Rasters(dem(t)).Stats("modal").ParallelJobs(0),
			want:    []string{"parallel jobs must be at least 1", `unknown statistic "modal"`},
		},
		{
			name:    "no rasters",
			builder: gozonal.NewRun().Features(cells(2)).Stats("mean"),
			want:    []string{"at least one raster is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			assert.True(t, core.IsConfiguration(err), "%T: %v", err, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestBuildAggregatesErrors(t *testing.T) {
	_, err := gozonal.NewRun().
		Features(cells(2)).
		Rasters(dem(t)).
		Stats("modal", "weighted_sum").
		Include("owner").
		Build()

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.GreaterOrEqual(t, merr.Len(), 3)
}

func TestBuildCompilationError(t *testing.T) {
	_, err := gozonal.NewRun().
		Features(cells(2)).
		Rasters(dem(t)).
		Stats("modal").
		CustomFunctions("def broken(values):\n    return fsum(values) +").
		Build()

	var cerr *core.CompilationError
	require.True(t, errors.As(err, &cerr), "%T: %v", err, err)
	assert.Equal(t, "broken", cerr.Function)
	assert.False(t, core.IsConfiguration(err))
}
