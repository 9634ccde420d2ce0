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
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-spatial/geom"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/gpkg"
)

// GeoPackageWriter implements core.LayerSink for a GeoPackage file. Writing a
// layer replaces an existing layer of the same name; other layers in the file
// are kept.
type GeoPackageWriter struct {
	db        *sql.DB
	layerName string
}

// NewGeoPackageWriter opens or creates the GeoPackage at path.
func NewGeoPackageWriter(ctx context.Context, path, layerName string) (*GeoPackageWriter, error) {
	if layerName == "" {
		layerName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open geopackage %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	stmts := append([]string{
		fmt.Sprintf("PRAGMA application_id = %d", gpkg.ApplicationID),
		fmt.Sprintf("PRAGMA user_version = %d", gpkg.UserVersion),
	}, gpkg.Schema...)
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize geopackage: %w", err)
		}
	}
	for _, ref := range gpkg.DefaultRefs {
		if err := insertRef(ctx, db, ref); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &GeoPackageWriter{db: db, layerName: layerName}, nil
}

func insertRef(ctx context.Context, db *sql.DB, ref gpkg.SpatialRef) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition)
		 VALUES (?, ?, ?, ?, ?)`,
		ref.Name, ref.ID, ref.Organization, ref.ID, ref.Definition)
	if err != nil {
		return fmt.Errorf("register srs %d: %w", ref.ID, err)
	}
	return nil
}

// WriteLayer writes the layer in a single transaction.
func (g *GeoPackageWriter) WriteLayer(ctx context.Context, layer *core.Layer) error {
	name := g.layerName
	if name == "" {
		name = layer.Name
	}
	ref := gpkg.RefFor(layer.CRS)
	if err := insertRef(ctx, g.db, ref); err != nil {
		return err
	}

	geomType := "GEOMETRY"
	if layer.Len() > 0 {
		geomType = gpkg.TypeName(layer.Features[0].Geometry)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := g.writeLayer(ctx, tx, name, geomType, ref, layer); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (g *GeoPackageWriter) writeLayer(ctx context.Context, tx *sql.Tx, name, geomType string, ref gpkg.SpatialRef, layer *core.Layer) error {
	table := quoteSQLite(name)
	defs := []string{"fid INTEGER PRIMARY KEY AUTOINCREMENT", quoteSQLite(gpkg.GeometryColumn) + " BLOB"}
	for _, f := range layer.Fields {
		defs = append(defs, quoteSQLite(f)+" "+sqliteType(layer, f))
	}

	stmts := []struct {
		query string
		args  []interface{}
	}{
		{"DROP TABLE IF EXISTS " + table, nil},
		{"DELETE FROM gpkg_geometry_columns WHERE table_name = ?", []interface{}{name}},
		{"DELETE FROM gpkg_contents WHERE table_name = ?", []interface{}{name}},
		{fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", ")), nil},
		{"INSERT INTO gpkg_contents (table_name, data_type, identifier, srs_id) VALUES (?, 'features', ?, ?)", []interface{}{name, name, ref.ID}},
		{"INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m) VALUES (?, ?, ?, ?, 0, 0)",
			[]interface{}{name, gpkg.GeometryColumn, geomType, ref.ID}},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			return fmt.Errorf("write layer %s: %w", name, err)
		}
	}

	cols := []string{quoteSQLite(gpkg.GeometryColumn)}
	marks := []string{"?"}
	for _, f := range layer.Fields {
		cols = append(cols, quoteSQLite(f))
		marks = append(marks, "?")
	}
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return err
	}
	defer insert.Close()

	minx, miny, maxx, maxy := bounds(layer)
	for _, f := range layer.Features {
		var blob []byte
		if f.Geometry != nil {
			if blob, err = gpkg.EncodeGeometry(f.Geometry, ref.ID); err != nil {
				return err
			}
		}
		args := []interface{}{blob}
		for _, name := range layer.Fields {
			args = append(args, sqliteValue(f.Attributes[name]))
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert feature: %w", err)
		}
	}
	if layer.Len() > 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE gpkg_contents SET min_x = ?, min_y = ?, max_x = ?, max_y = ? WHERE table_name = ?",
			minx, miny, maxx, maxy, name); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (g *GeoPackageWriter) Close() error {
	return g.db.Close()
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteType(layer *core.Layer, field string) string {
	for _, f := range layer.Features {
		switch core.KindOf(f.Attributes[field]) {
		case core.KindInt:
			return "INTEGER"
		case core.KindFloat:
			return "REAL"
		case core.KindString, core.KindArray:
			return "TEXT"
		case core.KindBool:
			return "BOOLEAN"
		}
	}
	return "REAL"
}

func sqliteValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []float64, []interface{}:
		return fmt.Sprintf("%v", x)
	}
	return v
}

func bounds(layer *core.Layer) (minx, miny, maxx, maxy float64) {
	first := true
	for _, f := range layer.Features {
		if f.Geometry == nil {
			continue
		}
		ext, err := geom.NewExtentFromGeometry(gpkg.Deref(f.Geometry))
		if err != nil {
			continue
		}
		if first {
			minx, miny, maxx, maxy = ext.MinX(), ext.MinY(), ext.MaxX(), ext.MaxY()
			first = false
			continue
		}
		minx, miny = math.Min(minx, ext.MinX()), math.Min(miny, ext.MinY())
		maxx, maxy = math.Max(maxx, ext.MaxX()), math.Max(maxy, ext.MaxY())
	}
	return minx, miny, maxx, maxy
}
