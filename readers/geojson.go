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

package readers

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/go-spatial/geom/encoding/geojson"
	"github.com/tidwall/gjson"

	"github.com/aaronlmathis/gozonal/core"
)

// GeoJSONReader implements core.FeatureSource over a GeoJSON
// FeatureCollection held in memory.
type GeoJSONReader struct {
	name     string
	crs      string
	columns  []string
	features []gjson.Result
	pos      int
	closer   io.Closer
}

// NewGeoJSONReader parses a FeatureCollection. Property columns are
// collected in first-seen order across all features.
func NewGeoJSONReader(r io.ReadCloser, name string) (*GeoJSONReader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		r.Close()
		return nil, &VectorReaderError{Op: "read", Err: err}
	}
	if !gjson.ValidBytes(data) {
		r.Close()
		return nil, &VectorReaderError{Op: "parse", Err: fmt.Errorf("invalid geojson")}
	}
	doc := gjson.ParseBytes(data)
	if t := doc.Get("type").String(); t != "FeatureCollection" {
		r.Close()
		return nil, &VectorReaderError{Op: "parse", Err: fmt.Errorf("expected FeatureCollection, got %q", t)}
	}

	g := &GeoJSONReader{
		name:     name,
		crs:      core.NormalizeCRS(doc.Get("crs.properties.name").String()),
		features: doc.Get("features").Array(),
		closer:   r,
	}
	if n := doc.Get("name").String(); n != "" && g.name == "" {
		g.name = n
	}
	if g.crs == "" {
		g.crs = "EPSG:4326"
	}
	seen := make(map[string]bool)
	for _, f := range g.features {
		f.Get("properties").ForEach(func(key, _ gjson.Result) bool {
			if !seen[key.String()] {
				seen[key.String()] = true
				g.columns = append(g.columns, key.String())
			}
			return true
		})
	}
	return g, nil
}

// Name returns the collection name.
func (g *GeoJSONReader) Name() string { return g.name }

// CRS returns the collection CRS. GeoJSON without a crs member is EPSG:4326.
func (g *GeoJSONReader) CRS() string { return g.crs }

// Columns returns the property names in first-seen order.
func (g *GeoJSONReader) Columns() []string { return g.columns }

// Read implements core.FeatureSource.
func (g *GeoJSONReader) Read(ctx context.Context) (core.Feature, error) {
	if err := ctx.Err(); err != nil {
		return core.Feature{}, err
	}
	if g.pos >= len(g.features) {
		return core.Feature{}, io.EOF
	}
	raw := g.features[g.pos]
	g.pos++

	attrs := make(core.Record)
	raw.Get("properties").ForEach(func(key, value gjson.Result) bool {
		attrs[key.String()] = gjsonValue(value)
		return true
	})

	var geometry geojson.Geometry
	if gr := raw.Get("geometry"); gr.Exists() && gr.Type != gjson.Null {
		if err := geometry.UnmarshalJSON([]byte(gr.Raw)); err != nil {
			return core.Feature{}, &VectorReaderError{Op: "geometry", Err: fmt.Errorf("feature %d: %w", g.pos-1, err)}
		}
	}
	return core.Feature{Attributes: attrs, Geometry: geometry.Geometry}, nil
}

// Close implements core.FeatureSource.
func (g *GeoJSONReader) Close() error {
	if g.closer != nil {
		return g.closer.Close()
	}
	return nil
}

// gjsonValue types a property value. Integral numbers without a fraction or
// exponent in the source text become int64 so identifier dtypes survive.
func gjsonValue(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		return v.Str
	case gjson.Number:
		if isIntegerLiteral(v.Raw) && v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1<<53 {
			return v.Int()
		}
		return v.Num
	default:
		if v.IsArray() {
			arr := v.Array()
			out := make([]interface{}, len(arr))
			for i, e := range arr {
				out[i] = gjsonValue(e)
			}
			return out
		}
		return v.Raw
	}
}

func isIntegerLiteral(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '-' && i == 0 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
