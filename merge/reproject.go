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
	"fmt"
	"math"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/proj"

	"github.com/aaronlmathis/gozonal/core"
)

// maxLat is the latitude at which web mercator reaches its square extent.
const maxLat = 85.0511287798066

// lineFunc transforms a run of points into a new slice.
type lineFunc func(pts [][2]float64) ([][2]float64, error)

func flatten(pts [][2]float64) []float64 {
	out := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, p[0], p[1])
	}
	return out
}

func unflatten(xs []float64) [][2]float64 {
	out := make([][2]float64, len(xs)/2)
	for i := range out {
		out[i] = [2]float64{xs[2*i], xs[2*i+1]}
	}
	return out
}

func toMercator(pts [][2]float64) ([][2]float64, error) {
	if len(pts) == 0 {
		return pts, nil
	}
	xs := flatten(pts)
	for i := 1; i < len(xs); i += 2 {
		xs[i] = math.Max(-maxLat, math.Min(maxLat, xs[i]))
	}
	out, err := proj.Convert(proj.EPSG3857, xs)
	if err != nil {
		return nil, err
	}
	return unflatten(out), nil
}

func fromMercator(pts [][2]float64) ([][2]float64, error) {
	if len(pts) == 0 {
		return pts, nil
	}
	out, err := proj.Inverse(proj.EPSG3857, flatten(pts))
	if err != nil {
		return nil, err
	}
	return unflatten(out), nil
}

// Transformer returns the coordinate transform between two CRS identifiers.
// Identical or empty CRS yield a nil transform. Only EPSG:4326 and EPSG:3857
// are supported.
func Transformer(from, to string) (func(geom.Geometry) (geom.Geometry, error), error) {
	src, dst := core.NormalizeCRS(from), core.NormalizeCRS(to)
	if src == "" || dst == "" || src == dst {
		return nil, nil
	}
	var fn lineFunc
	switch {
	case src == "EPSG:4326" && dst == "EPSG:3857":
		fn = toMercator
	case src == "EPSG:3857" && dst == "EPSG:4326":
		fn = fromMercator
	default:
		return nil, fmt.Errorf("unsupported reprojection %s -> %s", src, dst)
	}
	return func(g geom.Geometry) (geom.Geometry, error) {
		return reproject(g, fn)
	}, nil
}

func reproject(g geom.Geometry, fn lineFunc) (geom.Geometry, error) {
	switch v := g.(type) {
	case nil:
		return nil, nil
	case geom.Point:
		pts, err := fn([][2]float64{v})
		if err != nil {
			return nil, err
		}
		return geom.Point(pts[0]), nil
	case *geom.Point:
		pts, err := fn([][2]float64{*v})
		if err != nil {
			return nil, err
		}
		p := geom.Point(pts[0])
		return &p, nil
	case geom.MultiPoint:
		pts, err := fn(v)
		return geom.MultiPoint(pts), err
	case geom.LineString:
		pts, err := fn(v)
		return geom.LineString(pts), err
	case geom.MultiLineString:
		rs, err := rings(v, fn)
		return geom.MultiLineString(rs), err
	case geom.Polygon:
		rs, err := rings(v, fn)
		return geom.Polygon(rs), err
	case *geom.Polygon:
		rs, err := rings(*v, fn)
		if err != nil {
			return nil, err
		}
		p := geom.Polygon(rs)
		return &p, nil
	case geom.MultiPolygon:
		return multiPolygon(v, fn)
	case *geom.MultiPolygon:
		mp, err := multiPolygon(*v, fn)
		if err != nil {
			return nil, err
		}
		return &mp, nil
	default:
		return nil, fmt.Errorf("cannot reproject geometry of type %T", g)
	}
}

func multiPolygon(mp geom.MultiPolygon, fn lineFunc) (geom.MultiPolygon, error) {
	out := make(geom.MultiPolygon, len(mp))
	for i, p := range mp {
		rs, err := rings(p, fn)
		if err != nil {
			return nil, err
		}
		out[i] = rs
	}
	return out, nil
}

func rings(rs [][][2]float64, fn lineFunc) ([][][2]float64, error) {
	out := make([][][2]float64, len(rs))
	for i, r := range rs {
		pts, err := fn(r)
		if err != nil {
			return nil, err
		}
		out[i] = pts
	}
	return out, nil
}
