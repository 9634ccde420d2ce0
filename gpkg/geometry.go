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

package gpkg

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkb"
)

// Package gpkg holds the GeoPackage pieces shared by the reader and the
// writer: the binary geometry blob and the metadata table definitions.

var magic = [2]byte{'G', 'P'}

const (
	flagLittleEndian = 0x01
	flagEmpty        = 0x10
	envelopeMask     = 0x0E
)

// envelopeSizes maps the envelope indicator of the flags byte to the number
// of float64 values in the envelope.
var envelopeSizes = map[byte]int{0: 0, 1: 4, 2: 6, 3: 6, 4: 8}

// ErrNotGeoPackage is returned when a blob lacks the GP header.
var ErrNotGeoPackage = errors.New("not a GeoPackage geometry blob")

// EncodeGeometry serializes g as a GeoPackage geometry blob without an
// envelope: the "GP" header, version 0, flags, the srs id and the WKB body.
func EncodeGeometry(g geom.Geometry, srsID int32) ([]byte, error) {
	body, err := wkb.EncodeBytes(Deref(g))
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	out := make([]byte, 8, 8+len(body))
	out[0], out[1] = magic[0], magic[1]
	out[2] = 0
	out[3] = flagLittleEndian
	binary.LittleEndian.PutUint32(out[4:8], uint32(srsID))
	return append(out, body...), nil
}

// DecodeGeometry parses a GeoPackage geometry blob and returns the geometry
// and its srs id.
func DecodeGeometry(blob []byte) (geom.Geometry, int32, error) {
	if len(blob) < 8 || blob[0] != magic[0] || blob[1] != magic[1] {
		return nil, 0, ErrNotGeoPackage
	}
	flags := blob[3]
	var order binary.ByteOrder = binary.BigEndian
	if flags&flagLittleEndian != 0 {
		order = binary.LittleEndian
	}
	srsID := int32(order.Uint32(blob[4:8]))

	n, ok := envelopeSizes[(flags&envelopeMask)>>1]
	if !ok {
		return nil, 0, fmt.Errorf("invalid envelope indicator in flags 0x%02x", flags)
	}
	start := 8 + n*8
	if len(blob) < start {
		return nil, 0, fmt.Errorf("truncated geometry blob")
	}
	if flags&flagEmpty != 0 && len(blob) == start {
		return nil, srsID, nil
	}
	g, err := wkb.DecodeBytes(blob[start:])
	if err != nil {
		return nil, 0, fmt.Errorf("decode wkb: %w", err)
	}
	return g, srsID, nil
}

// Deref replaces pointer geometries with their values.
func Deref(g geom.Geometry) geom.Geometry {
	switch v := g.(type) {
	case *geom.Point:
		return *v
	case *geom.MultiPoint:
		return *v
	case *geom.LineString:
		return *v
	case *geom.MultiLineString:
		return *v
	case *geom.Polygon:
		return *v
	case *geom.MultiPolygon:
		return *v
	}
	return g
}

// TypeName returns the GeoPackage geometry type name of g.
func TypeName(g geom.Geometry) string {
	switch Deref(g).(type) {
	case geom.Point:
		return "POINT"
	case geom.MultiPoint:
		return "MULTIPOINT"
	case geom.LineString:
		return "LINESTRING"
	case geom.MultiLineString:
		return "MULTILINESTRING"
	case geom.Polygon:
		return "POLYGON"
	case geom.MultiPolygon:
		return "MULTIPOLYGON"
	default:
		return "GEOMETRY"
	}
}
