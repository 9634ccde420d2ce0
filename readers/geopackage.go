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
	"database/sql"
	"fmt"
	"io"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/gpkg"
)

// GeoPackageReader implements core.FeatureSource for one feature layer of a
// GeoPackage.
type GeoPackageReader struct {
	db       *sql.DB
	rows     *sql.Rows
	layer    string
	geomCol  string
	crs      string
	columns  []string
	scanCols []string
}

// NewGeoPackageReader opens layer in the GeoPackage at path. An empty layer
// selects the first feature layer in gpkg_contents.
func NewGeoPackageReader(ctx context.Context, path, layer string) (*GeoPackageReader, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	r := &GeoPackageReader{db: db, layer: layer}
	if err := r.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *GeoPackageReader) init(ctx context.Context) error {
	if r.layer == "" {
		err := r.db.QueryRowContext(ctx,
			"SELECT table_name FROM gpkg_contents WHERE data_type = 'features' ORDER BY table_name LIMIT 1").Scan(&r.layer)
		if err == sql.ErrNoRows {
			return fmt.Errorf("geopackage has no feature layers")
		}
		if err != nil {
			return err
		}
	}

	var srsID int32
	err := r.db.QueryRowContext(ctx,
		"SELECT column_name, srs_id FROM gpkg_geometry_columns WHERE table_name = ?", r.layer).Scan(&r.geomCol, &srsID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("layer %q not found", r.layer)
	}
	if err != nil {
		return err
	}
	r.crs = gpkg.CRSFor(srsID)

	info, err := r.db.QueryContext(ctx, "SELECT name, pk FROM pragma_table_info(?) ORDER BY cid", r.layer)
	if err != nil {
		return err
	}
	defer info.Close()
	for info.Next() {
		var name string
		var pk int
		if err := info.Scan(&name, &pk); err != nil {
			return err
		}
		if name == r.geomCol || pk > 0 {
			continue
		}
		r.columns = append(r.columns, name)
	}
	if err := info.Err(); err != nil {
		return err
	}

	quoted := []string{quoteIdent(r.geomCol)}
	for _, c := range r.columns {
		quoted = append(quoted, quoteIdent(c))
	}
	r.rows, err = r.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quoteIdent(r.layer)))
	return err
}

// Name returns the layer name.
func (r *GeoPackageReader) Name() string { return r.layer }

// CRS returns the layer CRS.
func (r *GeoPackageReader) CRS() string { return r.crs }

// Columns returns the attribute columns in table order.
func (r *GeoPackageReader) Columns() []string { return r.columns }

// Read implements core.FeatureSource.
func (r *GeoPackageReader) Read(ctx context.Context) (core.Feature, error) {
	if err := ctx.Err(); err != nil {
		return core.Feature{}, err
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return core.Feature{}, &VectorReaderError{Op: "read", Err: err}
		}
		return core.Feature{}, io.EOF
	}

	var blob []byte
	values := make([]interface{}, len(r.columns))
	dest := make([]interface{}, len(r.columns)+1)
	dest[0] = &blob
	for i := range values {
		dest[i+1] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return core.Feature{}, &VectorReaderError{Op: "scan", Err: err}
	}

	f := core.Feature{Attributes: make(core.Record, len(r.columns))}
	for i, c := range r.columns {
		f.Attributes[c] = sqlValue(values[i])
	}
	if len(blob) > 0 {
		g, _, err := gpkg.DecodeGeometry(blob)
		if err != nil {
			return core.Feature{}, &VectorReaderError{Op: "geometry", Err: err}
		}
		f.Geometry = g
	}
	return f, nil
}

// Close implements core.FeatureSource.
func (r *GeoPackageReader) Close() error {
	if r.rows != nil {
		r.rows.Close()
	}
	return r.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlValue normalizes driver values: byte slices become strings.
func sqlValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}
