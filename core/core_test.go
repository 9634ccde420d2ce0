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
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gozonal/raster"
)

func TestResultSlots(t *testing.T) {
	slots := NewResultSlots(3)
	assert.Equal(t, 3, slots.Len())
	assert.Empty(t, slots.Collect())

	require.NoError(t, slots.Set(2, PartialResult{Table: NewTable("id")}))
	require.NoError(t, slots.Set(0, PartialResult{Table: NewTable("id")}))

	got := slots.Collect()
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Chunk)
	assert.Equal(t, 2, got[1].Chunk)

	assert.Error(t, slots.Set(0, PartialResult{}))
	assert.Error(t, slots.Set(3, PartialResult{}))
	assert.Error(t, slots.Set(-1, PartialResult{}))
}

func TestSplitLayerPath(t *testing.T) {
	tests := []struct {
		in, path, layer string
	}{
		{"zones.gpkg", "zones.gpkg", ""},
		{"zones.gpkg|layername=parcels", "zones.gpkg", "parcels"},
		{"out/stats.gpkg|layername= zonal ", "out/stats.gpkg", "zonal"},
	}
	for _, tt := range tests {
		path, layer := SplitLayerPath(tt.in)
		assert.Equal(t, tt.path, path, tt.in)
		assert.Equal(t, tt.layer, layer, tt.in)
	}
	assert.Equal(t, "zones.gpkg|layername=parcels", JoinLayerPath("zones.gpkg", "parcels"))
	assert.Equal(t, "zones.gpkg", JoinLayerPath("zones.gpkg", ""))
}

func TestNormalizeCRS(t *testing.T) {
	tests := map[string]string{
		"":                              "",
		"epsg:3857":                     "EPSG:3857",
		" EPSG:4326 ":                   "EPSG:4326",
		"urn:ogc:def:crs:EPSG::2154":    "EPSG:2154",
		"urn:ogc:def:crs:OGC:1.3:CRS84": "EPSG:4326",
		"+proj=longlat":                 "+proj=longlat",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCRS(in), in)
	}

	code, ok := EPSGCode("epsg:3857")
	assert.True(t, ok)
	assert.Equal(t, 3857, code)
	_, ok = EPSGCode("+proj=longlat")
	assert.False(t, ok)
	_, ok = EPSGCode("EPSG:abc")
	assert.False(t, ok)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindInt, KindOf(int32(1)))
	assert.Equal(t, KindFloat, KindOf(1.5))
	assert.Equal(t, KindString, KindOf("a"))
	assert.Equal(t, KindBool, KindOf(false))
	assert.Equal(t, KindArray, KindOf([]float64{1}))
	assert.Equal(t, KindUnknown, KindOf(nil))

	k, err := ParseKind("Integer")
	require.NoError(t, err)
	assert.Equal(t, KindInt, k)
	_, err = ParseKind("decimal")
	assert.Error(t, err)

	fc := &FeatureCollection{
		Columns: []string{"id", "name"},
		Features: []Feature{
			{Attributes: Record{"id": nil, "name": "a"}},
			{Attributes: Record{"id": int64(2), "name": "b"}},
		},
	}
	assert.Equal(t, KindInt, fc.ColumnKind("id"))
	assert.Equal(t, KindUnknown, fc.ColumnKind("missing"))
	assert.Equal(t, 1, fc.ColumnIndex("name"))
	assert.Equal(t, -1, fc.ColumnIndex("missing"))
}

func TestWorkConfiguration(t *testing.T) {
	grid, err := raster.NewGrid("dem", 2, 2, 0, 2, 1, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	cfg := &WorkConfiguration{
		Rasters:        []*raster.Grid{grid},
		Stats:          []string{"mean", "max"},
		IncludeColumns: map[string]int{"name": 2, "id": 0, "area": 2},
		IDColumn:       "id",
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"id", "area", "name"}, cfg.IncludeNames())
	assert.Equal(t, []string{"mean", "max"}, cfg.Operations())
	assert.True(t, cfg.IsIncluded("area"))
	assert.False(t, cfg.IsIncluded("mean"))

	bad := &WorkConfiguration{
		Rasters:        []*raster.Grid{nil},
		Stats:          []string{"mean", "mean"},
		IncludeColumns: map[string]int{},
		IDColumn:       "id",
	}
	err = bad.Validate()
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.Contains(t, err.Error(), "raster 0 is nil")
	assert.Contains(t, err.Error(), `statistic "mean" selected twice`)
	assert.Contains(t, err.Error(), `identifier column "id" must be an include column`)

	empty := &WorkConfiguration{}
	err = empty.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one raster is required")
	assert.Contains(t, err.Error(), "no statistics selected")
}

func TestErrorClassification(t *testing.T) {
	inner := errors.New("band count mismatch")
	err := fmt.Errorf("unit 2: %w", &ExtractionIncompatibilityError{Op: "extract", Err: inner})
	assert.True(t, IsIncompatible(err))
	assert.False(t, IsConfiguration(err))
	assert.ErrorIs(t, err, inner)

	merr := &MergeError{Op: "write", Err: inner}
	assert.Equal(t, "merge write: band count mismatch", merr.Error())
	assert.Equal(t, "compile custom function: band count mismatch", (&CompilationError{Err: inner}).Error())
}

func TestFilterFunc(t *testing.T) {
	f := FilterFunc(func(ctx context.Context, r Record) (bool, error) {
		return r["keep"] == true, nil
	})
	ok, err := f.ShouldInclude(context.Background(), Record{"keep": true})
	require.NoError(t, err)
	assert.True(t, ok)

	r := Record{"a": 1}
	c := r.Clone()
	c["a"] = 2
	assert.Equal(t, 1, r["a"])
}
