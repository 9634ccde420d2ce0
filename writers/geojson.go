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

package writers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-spatial/geom/encoding/geojson"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/gpkg"
)

type crsMember struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

type featureCollection struct {
	Type     string            `json:"type"`
	Name     string            `json:"name,omitempty"`
	CRS      *crsMember        `json:"crs,omitempty"`
	Features []geojson.Feature `json:"features"`
}

// GeoJSONWriter implements core.LayerSink for GeoJSON feature collections.
type GeoJSONWriter struct {
	w      io.WriteCloser
	indent bool
}

// NewGeoJSONWriter creates a GeoJSON layer writer.
func NewGeoJSONWriter(w io.WriteCloser, indent bool) *GeoJSONWriter {
	return &GeoJSONWriter{w: w, indent: indent}
}

// WriteLayer writes layer as one FeatureCollection. The CRS is recorded in
// the legacy "crs" member so it survives a round trip.
func (g *GeoJSONWriter) WriteLayer(ctx context.Context, layer *core.Layer) error {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Name:     layer.Name,
		Features: make([]geojson.Feature, 0, layer.Len()),
	}
	if layer.CRS != "" {
		fc.CRS = &crsMember{Type: "name", Properties: map[string]string{"name": core.NormalizeCRS(layer.CRS)}}
	}
	for i, f := range layer.Features {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		props := make(map[string]interface{}, len(layer.Fields))
		for _, name := range layer.Fields {
			props[name] = sanitizeValue(f.Attributes[name])
		}
		fc.Features = append(fc.Features, geojson.Feature{
			Geometry:   geojson.Geometry{Geometry: gpkg.Deref(f.Geometry)},
			Properties: props,
		})
	}

	enc := json.NewEncoder(g.w)
	if g.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}
	return nil
}

// Close releases the underlying writer.
func (g *GeoJSONWriter) Close() error {
	return g.w.Close()
}
