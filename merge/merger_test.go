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

package merge

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gozonal/core"
)

// memorySinks records what the merger writes.
type memorySinks struct {
	path      string
	columns   []string
	rows      []core.Record
	layer     *core.Layer
	layerName string
	closed    bool
	failWrite bool
}

func (m *memorySinks) NewTableSink(ctx context.Context, path string, columns []string) (core.DataSink, error) {
	m.path, m.columns = path, columns
	return &memoryTable{m}, nil
}

func (m *memorySinks) NewLayerSink(ctx context.Context, path string, layerName string) (core.LayerSink, error) {
	m.path, m.layerName = path, layerName
	return &memoryLayer{m}, nil
}

type memoryTable struct{ m *memorySinks }

func (s *memoryTable) Write(ctx context.Context, r core.Record) error {
	if s.m.failWrite {
		return errors.New("disk full")
	}
	s.m.rows = append(s.m.rows, r)
	return nil
}
func (s *memoryTable) Flush() error { return nil }
func (s *memoryTable) Close() error { s.m.closed = true; return nil }

type memoryLayer struct{ m *memorySinks }

func (s *memoryLayer) WriteLayer(ctx context.Context, l *core.Layer) error {
	if s.m.failWrite {
		return errors.New("disk full")
	}
	s.m.layer = l
	return nil
}
func (s *memoryLayer) Close() error { s.m.closed = true; return nil }

func table(rows ...core.Record) *core.Table {
	t := core.NewTable("id", "mean")
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func TestMergeTabularPrefixAndOrder(t *testing.T) {
	cfg := &core.WorkConfiguration{
		IncludeColumns: map[string]int{"id": 0},
		IDColumn:       "id",
		IDKind:         core.KindInt,
		Prefix:         "p_",
		OutputPath:     "out.csv",
	}
	sinks := &memorySinks{}
	partials := []core.PartialResult{
		{Chunk: 0, Table: table(core.Record{"id": 1.0, "mean": 10.0}, core.Record{"id": 2.0, "mean": 20.0})},
		{Chunk: 1, Table: table(core.Record{"id": 3.0, "mean": nil})},
	}

	res, err := New(cfg, WithSinkFactory(sinks)).Merge(context.Background(), partials)
	require.NoError(t, err)

	assert.Equal(t, core.Tabular, res.Mode)
	assert.Equal(t, []string{"id", "p_mean"}, res.Table.Columns)
	require.Equal(t, 3, res.Len())
	for i, row := range res.Table.Rows {
		assert.Equal(t, int64(i+1), row["id"], "identifier dtype must be restored")
	}
	assert.Equal(t, 10.0, res.Table.Rows[0]["p_mean"])
	assert.Nil(t, res.Table.Rows[2]["p_mean"])

	assert.Equal(t, "out.csv", sinks.path)
	assert.Equal(t, []string{"id", "p_mean"}, sinks.columns)
	assert.Len(t, sinks.rows, 3)
	assert.True(t, sinks.closed)
}

func TestMergeTabularEmptyPrefix(t *testing.T) {
	cfg := &core.WorkConfiguration{IDColumn: "id"}
	res, err := New(cfg).Merge(context.Background(), []core.PartialResult{{Table: table(core.Record{"id": int64(1), "mean": 1.0})}})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "mean"}, res.Table.Columns)
	assert.Empty(t, res.OutputPath)
}

func TestMergeEmptyInput(t *testing.T) {
	cfg := &core.WorkConfiguration{IDColumn: "id", Prefix: "p_"}
	res, err := New(cfg).Merge(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())

	cfg.Mode = core.Geospatial
	res, err = New(cfg).Merge(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.Equal(t, "zonal_stats", res.Layer.Name)
}

func TestMergeCastFailure(t *testing.T) {
	cfg := &core.WorkConfiguration{IDColumn: "id", IDKind: core.KindInt}
	_, err := New(cfg).Merge(context.Background(), []core.PartialResult{{Table: table(core.Record{"id": 1.5})}})
	var merr *core.MergeError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "cast_identifier", merr.Op)
}

func TestMergeWriteFailure(t *testing.T) {
	cfg := &core.WorkConfiguration{OutputPath: "out.csv"}
	sinks := &memorySinks{failWrite: true}
	_, err := New(cfg, WithSinkFactory(sinks)).Merge(context.Background(), []core.PartialResult{{Table: table(core.Record{"id": 1})}})
	var merr *core.MergeError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "write", merr.Op)
	assert.True(t, sinks.closed)
}

func TestMergeGeospatial(t *testing.T) {
	cfg := &core.WorkConfiguration{
		IncludeColumns: map[string]int{"id": 0, "name": 1},
		IDColumn:       "id",
		IDKind:         core.KindInt,
		Mode:           core.Geospatial,
		Prefix:         "z_",
		CRS:            "EPSG:4326",
		OutputPath:     "out.gpkg|layername=zones",
	}
	poly := geom.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}
	partials := []core.PartialResult{
		{Layer: &core.Layer{CRS: "EPSG:4326", Fields: []string{"id", "name", "mean_band1"}, Features: []core.Feature{
			{Attributes: core.Record{"id": 1.0, "name": "a", "mean_band1": 2.0}, Geometry: poly},
		}}},
		{Layer: &core.Layer{CRS: "EPSG:4326", Fields: []string{"id", "name", "max_band1"}, Features: []core.Feature{
			{Attributes: core.Record{"id": 2.0, "name": "b", "max_band1": 3.0}, Geometry: poly},
		}}},
	}
	sinks := &memorySinks{}
	res, err := New(cfg, WithSinkFactory(sinks)).Merge(context.Background(), partials)
	require.NoError(t, err)

	l := res.Layer
	assert.Equal(t, "zones", l.Name)
	assert.Equal(t, []string{"id", "name", "z_mean_band1", "z_max_band1"}, l.Fields)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, int64(2), l.Features[1].Attributes["id"])
	assert.Equal(t, "b", l.Features[1].Attributes["name"])
	assert.Equal(t, 3.0, l.Features[1].Attributes["z_max_band1"])

	assert.Equal(t, "out.gpkg", sinks.path)
	assert.Equal(t, "zones", sinks.layerName)
	assert.Same(t, l, sinks.layer)
}

func TestMergeLayersReprojects(t *testing.T) {
	layers := []*core.Layer{{
		CRS:      "urn:ogc:def:crs:EPSG::4326",
		Fields:   []string{"id"},
		Features: []core.Feature{{Attributes: core.Record{"id": 1}, Geometry: geom.Point{90, 0}}},
	}}
	out, err := MergeLayers("l", layers, "EPSG:3857")
	require.NoError(t, err)
	p := out.Features[0].Geometry.(geom.Point)
	assert.InDelta(t, math.Pi*6378137.0/2, p[0], 1e-3)
	assert.InDelta(t, 0, p[1], 1e-3)

	back, err := MergeLayers("l", []*core.Layer{out}, "EPSG:4326")
	require.NoError(t, err)
	q := back.Features[0].Geometry.(geom.Point)
	assert.InDelta(t, 90, q[0], 1e-6)
	assert.InDelta(t, 0, q[1], 1e-6)

	_, err = MergeLayers("l", []*core.Layer{{CRS: "EPSG:2154"}}, "EPSG:4326")
	assert.Error(t, err)
}

func TestMergeLayersReprojectsPolygons(t *testing.T) {
	square := geom.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	layers := []*core.Layer{{
		CRS:      "EPSG:4326",
		Features: []core.Feature{{Attributes: core.Record{}, Geometry: &square}},
	}}
	out, err := MergeLayers("l", layers, "EPSG:3857")
	require.NoError(t, err)
	poly, ok := out.Features[0].Geometry.(*geom.Polygon)
	require.True(t, ok, "got %T", out.Features[0].Geometry)
	require.Len(t, (*poly)[0], 5)
	assert.InDelta(t, 1113194.9, (*poly)[0][1][0], 1)
	assert.InDelta(t, 1118889.97, (*poly)[0][2][1], 1)

	back, err := MergeLayers("l", []*core.Layer{out}, "EPSG:4326")
	require.NoError(t, err)
	for i, pt := range (*back.Features[0].Geometry.(*geom.Polygon))[0] {
		assert.InDelta(t, square[0][i][0], pt[0], 1e-6)
		assert.InDelta(t, square[0][i][1], pt[1], 1e-6)
	}
}

func TestMergeLayersTakesFirstCRS(t *testing.T) {
	out, err := MergeLayers("l", []*core.Layer{nil, {CRS: "epsg:3857", Fields: []string{"a"}}}, "")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:3857", out.CRS)
	assert.Equal(t, []string{"a"}, out.Fields)
}

func TestMergeLayersProjectsEarlierLayers(t *testing.T) {
	layers := []*core.Layer{
		{CRS: "", Features: []core.Feature{{Attributes: core.Record{"id": 1}, Geometry: geom.Point{1, 1}}}},
		{CRS: "EPSG:4326", Features: []core.Feature{{Attributes: core.Record{"id": 2}, Geometry: geom.Point{90, 0}}}},
		{CRS: "EPSG:3857", Features: []core.Feature{{Attributes: core.Record{"id": 3}, Geometry: geom.Point{math.Pi * 6378137.0 / 2, 0}}}},
	}
	out, err := MergeLayers("l", layers, "")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:4326", out.CRS)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, geom.Point{1, 1}, out.Features[0].Geometry)
	assert.Equal(t, geom.Point{90, 0}, out.Features[1].Geometry)
	p := out.Features[2].Geometry.(geom.Point)
	assert.InDelta(t, 90, p[0], 1e-6)
	assert.InDelta(t, 0, p[1], 1e-6)
}

func TestConcatTablesColumnUnion(t *testing.T) {
	a := &core.Table{Columns: []string{"id", "x"}, Rows: []core.Record{{"id": 1}}}
	b := &core.Table{Columns: []string{"id", "y"}, Rows: []core.Record{{"id": 2}}}
	out := ConcatTables([]*core.Table{a, nil, b})
	assert.Equal(t, []string{"id", "x", "y"}, out.Columns)
	assert.Equal(t, 2, out.Len())
}
