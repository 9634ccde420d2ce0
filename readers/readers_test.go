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

package readers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/gpkg"
	"github.com/aaronlmathis/gozonal/readers"
	"github.com/aaronlmathis/gozonal/writers"
)

const zonesGeoJSON = `{
  "type": "FeatureCollection",
  "name": "zones",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::3857"}},
  "features": [
    {"type": "Feature", "properties": {"id": 1, "name": "north", "area": 2.5},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,2],[0,0]]]}},
    {"type": "Feature", "properties": {"id": 2, "name": null, "landuse": "forest"},
     "geometry": {"type": "Polygon", "coordinates": [[[2,2],[4,2],[4,4],[2,4],[2,2]]]}},
    {"type": "Feature", "properties": {"id": 3, "area": 1e2}, "geometry": null}
  ]
}`

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"", nil},
		{"  ", nil},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"2.5", 2.5},
		{"1e3", 1000.0},
		{"true", true},
		{"forest", "forest"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, readers.ParseValue(tt.in), "ParseValue(%q)", tt.in)
	}
}

func TestReadCSVTable(t *testing.T) {
	in := "id,dem_mean_band1,name\n1,11.5,a\n2,,b\n"
	table, err := readers.ReadCSVTable(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "dem_mean_band1", "name"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, core.Record{"id": int64(1), "dem_mean_band1": 11.5, "name": "a"}, table.Rows[0])
	assert.Nil(t, table.Rows[1]["dem_mean_band1"])
}

func TestReadJSONTable(t *testing.T) {
	in := `{"id":"b","z_max_band1":4,"z_mean_band1":2.5}` + "\n\n" + `{"id":"a","z_max_band1":null,"z_mean_band1":3}` + "\n"
	table, err := readers.ReadJSONTable(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "z_max_band1", "z_mean_band1"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, int64(4), table.Rows[0]["z_max_band1"])
	assert.Equal(t, 2.5, table.Rows[0]["z_mean_band1"])
	assert.Nil(t, table.Rows[1]["z_max_band1"])

	_, err = readers.ReadJSONTable(context.Background(), strings.NewReader("{not json}\n"))
	var terr *readers.TableReaderError
	assert.ErrorAs(t, err, &terr)
}

func TestReadTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	columns := []string{"id", "dem_mean_band1", "dem_count_band1"}
	rows := []core.Record{
		{"id": int64(1), "dem_mean_band1": 11.5, "dem_count_band1": int64(4)},
		{"id": int64(2), "dem_mean_band1": nil, "dem_count_band1": int64(0)},
	}

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "stats.csv")
		f, err := os.Create(path)
		require.NoError(t, err)
		w, err := writers.NewCSVWriter(f, writers.WithHeaders(columns))
		require.NoError(t, err)
		writeAll(t, w, rows)

		table, err := readers.ReadTable(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, columns, table.Columns)
		assert.Equal(t, rows, table.Rows)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "stats.jsonl")
		f, err := os.Create(path)
		require.NoError(t, err)
		writeAll(t, writers.NewJSONWriter(f, writers.WithJSONColumns(columns)), rows)

		table, err := readers.ReadTable(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, columns, table.Columns)
		assert.Equal(t, rows, table.Rows)
	})

	t.Run("parquet", func(t *testing.T) {
		path := filepath.Join(dir, "stats.parquet")
		w, err := writers.NewParquetWriter(path, writers.WithFieldOrder(columns))
		require.NoError(t, err)
		writeAll(t, w, rows)

		table, err := readers.ReadTable(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, columns, table.Columns)
		assert.Equal(t, rows, table.Rows)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := readers.ReadTable(ctx, filepath.Join(dir, "stats.xlsx"))
		var terr *readers.TableReaderError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "open", terr.Op)
	})
}

func writeAll(t *testing.T, sink core.DataSink, rows []core.Record) {
	t.Helper()
	for _, r := range rows {
		require.NoError(t, sink.Write(context.Background(), r))
	}
	require.NoError(t, sink.Flush())
	require.NoError(t, sink.Close())
}

func TestGeoJSONReader(t *testing.T) {
	ctx := context.Background()
	src, err := readers.NewGeoJSONReader(io.NopCloser(strings.NewReader(zonesGeoJSON)), "")
	require.NoError(t, err)

	fc, err := readers.Collect(ctx, src)
	require.NoError(t, err)

	assert.Equal(t, "zones", fc.Name)
	assert.Equal(t, "EPSG:3857", fc.CRS)
	assert.Equal(t, []string{"id", "name", "area", "landuse"}, fc.Columns)
	require.Equal(t, 3, fc.Len())

	first := fc.Features[0]
	assert.Equal(t, int64(1), first.Attributes["id"])
	assert.Equal(t, 2.5, first.Attributes["area"])
	poly, ok := gpkg.Deref(first.Geometry).(geom.Polygon)
	require.True(t, ok, "got %T", first.Geometry)
	assert.Len(t, poly[0], 5)

	assert.Nil(t, fc.Features[1].Attributes["name"])
	assert.Equal(t, 100.0, fc.Features[2].Attributes["area"])
	assert.Nil(t, fc.Features[2].Geometry)
}

func TestGeoJSONReaderErrors(t *testing.T) {
	tests := map[string]string{
		"invalid":      `{"type":`,
		"not a layer":  `{"type": "Feature", "properties": {}}`,
		"bad geometry": `{"type": "FeatureCollection", "features": [{"properties": {}, "geometry": {"type": "Polygon", "coordinates": "x"}}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			src, err := readers.NewGeoJSONReader(io.NopCloser(strings.NewReader(doc)), "x")
			if err == nil {
				_, err = readers.Collect(context.Background(), src)
			}
			var verr *readers.VectorReaderError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestGeoJSONDefaultCRS(t *testing.T) {
	src, err := readers.NewGeoJSONReader(io.NopCloser(strings.NewReader(`{"type":"FeatureCollection","features":[]}`)), "empty")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:4326", src.CRS())
	assert.Equal(t, "empty", src.Name())
	_, err = src.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestGeoPackageRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.gpkg")
	layer := &core.Layer{
		Name:   "ignored",
		CRS:    "EPSG:3857",
		Fields: []string{"id", "name", "z_mean_band1"},
		Features: []core.Feature{
			{
				Attributes: core.Record{"id": int64(7), "name": "north", "z_mean_band1": 2.5},
				Geometry:   geom.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
			},
			{
				Attributes: core.Record{"id": int64(9), "name": "south", "z_mean_band1": nil},
				Geometry:   geom.Polygon{{{0, -2}, {2, -2}, {2, 0}, {0, 0}, {0, -2}}},
			},
		},
	}

	w, err := writers.NewGeoPackageWriter(ctx, path, "zones")
	require.NoError(t, err)
	require.NoError(t, w.WriteLayer(ctx, layer))
	require.NoError(t, w.Close())

	src, err := readers.Open(ctx, path+"|layername=zones")
	require.NoError(t, err)
	fc, err := readers.Collect(ctx, src)
	require.NoError(t, err)

	assert.Equal(t, "zones", fc.Name)
	assert.Equal(t, "EPSG:3857", fc.CRS)
	assert.Equal(t, []string{"id", "name", "z_mean_band1"}, fc.Columns)
	require.Equal(t, 2, fc.Len())
	assert.Equal(t, int64(7), fc.Features[0].Attributes["id"])
	assert.Equal(t, "north", fc.Features[0].Attributes["name"])
	assert.Equal(t, 2.5, fc.Features[0].Attributes["z_mean_band1"])
	assert.Nil(t, fc.Features[1].Attributes["z_mean_band1"])
	assert.Equal(t, layer.Features[1].Geometry, gpkg.Deref(fc.Features[1].Geometry))

	t.Run("first layer by default", func(t *testing.T) {
		src, err := readers.Open(ctx, path)
		require.NoError(t, err)
		defer src.Close()
		assert.Equal(t, []string{"id", "name", "z_mean_band1"}, src.(interface{ Columns() []string }).Columns())
	})

	t.Run("missing layer", func(t *testing.T) {
		_, err := readers.Open(ctx, path+"|layername=roads")
		var verr *readers.VectorReaderError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestOpenUnsupported(t *testing.T) {
	_, err := readers.Open(context.Background(), "zones.shp")
	var verr *readers.VectorReaderError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "open", verr.Op)
}

func TestHTTPFetcherRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, zonesGeoJSON)
	}))
	defer srv.Close()

	ctx := context.Background()
	src, err := readers.Open(ctx, srv.URL+"/zones.geojson")
	require.NoError(t, err)
	fc, err := readers.Collect(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 3, fc.Len())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPFetcherClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := readers.NewHTTPFetcher(readers.WithHTTPRetryTimeout(2 * time.Second))
	_, err := f.Fetch(context.Background(), srv.URL+"/missing.geojson")
	var herr *readers.HTTPReaderError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
