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
	"net/url"

	"github.com/go-spatial/geom/encoding/wkb"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aaronlmathis/gozonal/core"
)

const (
	wkbColumn  = "gozonal_wkb"
	sridColumn = "gozonal_srid"
)

// PostGISReader implements core.FeatureSource for a PostGIS table. The
// location is a postgres:// URL carrying the table in the "table" query
// parameter and, optionally, the geometry column in "geometry" (default geom).
type PostGISReader struct {
	db      *sqlx.DB
	rows    *sqlx.Rows
	table   string
	geomCol string
	columns []string
	crs     string
	pending map[string]interface{}
}

// NewPostGISReader connects and starts streaming the table.
func NewPostGISReader(ctx context.Context, location string) (*PostGISReader, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, &VectorReaderError{Op: "parse", Err: err}
	}
	q := u.Query()
	r := &PostGISReader{table: q.Get("table"), geomCol: q.Get("geometry")}
	if r.table == "" {
		return nil, &VectorReaderError{Op: "parse", Err: fmt.Errorf("postgis location needs a table parameter")}
	}
	if r.geomCol == "" {
		r.geomCol = "geom"
	}
	q.Del("table")
	q.Del("geometry")
	u.RawQuery = q.Encode()

	r.db, err = sqlx.ConnectContext(ctx, "postgres", u.String())
	if err != nil {
		return nil, &VectorReaderError{Op: "connect", Err: err}
	}

	geom := pq.QuoteIdentifier(r.geomCol)
	query := fmt.Sprintf("SELECT *, ST_AsBinary(%s) AS %s, ST_SRID(%s) AS %s FROM %s",
		geom, wkbColumn, geom, sridColumn, pq.QuoteIdentifier(r.table))
	r.rows, err = r.db.QueryxContext(ctx, query)
	if err != nil {
		r.db.Close()
		return nil, &VectorReaderError{Op: "query", Err: err}
	}
	cols, err := r.rows.Columns()
	if err != nil {
		r.Close()
		return nil, &VectorReaderError{Op: "columns", Err: err}
	}
	for _, c := range cols {
		if c != r.geomCol && c != wkbColumn && c != sridColumn {
			r.columns = append(r.columns, c)
		}
	}

	// The CRS is taken from the first row so Collect sees it up front.
	if r.rows.Next() {
		r.pending = make(map[string]interface{})
		if err := r.rows.MapScan(r.pending); err != nil {
			r.Close()
			return nil, &VectorReaderError{Op: "scan", Err: err}
		}
		if srid, ok := r.pending[sridColumn].(int64); ok && srid > 0 {
			r.crs = fmt.Sprintf("EPSG:%d", srid)
		}
	}
	return r, nil
}

// Name returns the table name.
func (r *PostGISReader) Name() string { return r.table }

// CRS returns the CRS of the geometry column.
func (r *PostGISReader) CRS() string { return r.crs }

// Columns returns the attribute columns in table order.
func (r *PostGISReader) Columns() []string { return r.columns }

// Read implements core.FeatureSource.
func (r *PostGISReader) Read(ctx context.Context) (core.Feature, error) {
	if err := ctx.Err(); err != nil {
		return core.Feature{}, err
	}
	row := r.pending
	r.pending = nil
	if row == nil {
		if !r.rows.Next() {
			if err := r.rows.Err(); err != nil {
				return core.Feature{}, &VectorReaderError{Op: "read", Err: err}
			}
			return core.Feature{}, io.EOF
		}
		row = make(map[string]interface{})
		if err := r.rows.MapScan(row); err != nil {
			return core.Feature{}, &VectorReaderError{Op: "scan", Err: err}
		}
	}

	f := core.Feature{Attributes: make(core.Record, len(r.columns))}
	for _, c := range r.columns {
		f.Attributes[c] = sqlValue(row[c])
	}
	if b, ok := row[wkbColumn].([]byte); ok && len(b) > 0 {
		g, err := wkb.DecodeBytes(b)
		if err != nil {
			return core.Feature{}, &VectorReaderError{Op: "geometry", Err: err}
		}
		f.Geometry = g
	}
	return f, nil
}

// Close implements core.FeatureSource.
func (r *PostGISReader) Close() error {
	if r.rows != nil {
		r.rows.Close()
	}
	return r.db.Close()
}
