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
	"errors"
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/planar/intersect"

	"github.com/aaronlmathis/gozonal/raster"
)

// covered is one raster cell intersecting a polygon.
type covered struct {
	col, row int
	fraction float64
}

// polygonsOf flattens a polygonal geometry into a list of polygons, each a
// list of rings (exterior first).
func polygonsOf(g geom.Geometry) ([][][][2]float64, error) {
	switch v := g.(type) {
	case geom.Polygon:
		return [][][][2]float64{[][][2]float64(v)}, nil
	case *geom.Polygon:
		if v == nil {
			return nil, errors.New("nil polygon")
		}
		return [][][][2]float64{[][][2]float64(*v)}, nil
	case geom.MultiPolygon:
		return [][][][2]float64(v), nil
	case *geom.MultiPolygon:
		if v == nil {
			return nil, errors.New("nil multipolygon")
		}
		return [][][][2]float64(*v), nil
	case nil:
		return nil, errors.New("feature has no geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
}

// extent returns the bounding box of the exterior rings, or nil when there
// are no points.
func extent(polys [][][][2]float64) *geom.Extent {
	var ext *geom.Extent
	for _, p := range polys {
		if len(p) == 0 || len(p[0]) == 0 {
			continue
		}
		e := geom.NewExtent(p[0]...)
		if ext == nil {
			ext = e
			continue
		}
		ext.Add(e)
	}
	return ext
}

// area is one polygon ready for point queries: inside the exterior ring and
// outside every hole.
type area struct {
	exterior *intersect.Ring
	holes    []*intersect.Ring
}

func newArea(rings [][][2]float64) area {
	var a area
	for i, r := range rings {
		ring := intersect.NewRingFromPoints(openRing(r)...)
		if i == 0 {
			a.exterior = ring
			continue
		}
		a.holes = append(a.holes, ring)
	}
	return a
}

// openRing drops the closing point repeated at the end of a ring.
func openRing(r [][2]float64) [][2]float64 {
	if n := len(r); n > 1 && r[0] == r[n-1] {
		return r[:n-1]
	}
	return r
}

func (a area) contains(pt [2]float64) bool {
	if !a.exterior.ContainsPoint(pt) {
		return false
	}
	for _, h := range a.holes {
		if h.ContainsPoint(pt) {
			return false
		}
	}
	return true
}

// coverage estimates the covered fraction of every cell of g touched by the
// polygons, sampling samples x samples points per cell.
func coverage(g *raster.Grid, polys [][][][2]float64, samples int) []covered {
	if len(polys) == 0 {
		return nil
	}
	ext := extent(polys)
	if ext == nil {
		return nil
	}
	c0, r0, c1, r1, ok := g.CellWindow(ext.MinX(), ext.MinY(), ext.MaxX(), ext.MaxY())
	if !ok {
		return nil
	}
	areas := make([]area, 0, len(polys))
	for _, p := range polys {
		if len(p) > 0 {
			areas = append(areas, newArea(p))
		}
	}
	step := g.CellSize / float64(samples)
	total := float64(samples * samples)
	var out []covered
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			cx, cy, _, _ := g.CellBounds(col, row)
			hits := 0
			for sy := 0; sy < samples; sy++ {
				y := cy + (float64(sy)+0.5)*step
				for sx := 0; sx < samples; sx++ {
					x := cx + (float64(sx)+0.5)*step
					for _, a := range areas {
						if a.contains([2]float64{x, y}) {
							hits++
							break
						}
					}
				}
			}
			if hits > 0 {
				out = append(out, covered{col: col, row: row, fraction: float64(hits) / total})
			}
		}
	}
	return out
}
