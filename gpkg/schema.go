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
	"strconv"

	"github.com/aaronlmathis/gozonal/core"
)

const (
	// ApplicationID is "GPKG" as a big-endian int32.
	ApplicationID = 0x47504B47
	// UserVersion encodes GeoPackage 1.2.
	UserVersion = 10200

	// GeometryColumn is the geometry column name used for written layers.
	GeometryColumn = "geom"
)

// Metadata tables every GeoPackage carries.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS gpkg_spatial_ref_sys (
		srs_name TEXT NOT NULL,
		srs_id INTEGER NOT NULL PRIMARY KEY,
		organization TEXT NOT NULL,
		organization_coordsys_id INTEGER NOT NULL,
		definition TEXT NOT NULL,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS gpkg_contents (
		table_name TEXT NOT NULL PRIMARY KEY,
		data_type TEXT NOT NULL,
		identifier TEXT UNIQUE,
		description TEXT DEFAULT '',
		last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
		srs_id INTEGER,
		CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
	)`,
	`CREATE TABLE IF NOT EXISTS gpkg_geometry_columns (
		table_name TEXT NOT NULL,
		column_name TEXT NOT NULL,
		geometry_type_name TEXT NOT NULL,
		srs_id INTEGER NOT NULL,
		z TINYINT NOT NULL,
		m TINYINT NOT NULL,
		CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name),
		CONSTRAINT fk_gc_tn FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
		CONSTRAINT fk_gc_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
	)`,
}

// SpatialRef is one row of gpkg_spatial_ref_sys.
type SpatialRef struct {
	Name         string
	ID           int32
	Organization string
	Definition   string
}

var knownRefs = map[int32]SpatialRef{
	4326: {
		Name:         "WGS 84 geodetic",
		ID:           4326,
		Organization: "EPSG",
		Definition:   `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]`,
	},
	3857: {
		Name:         "WGS 84 / Pseudo-Mercator",
		ID:           3857,
		Organization: "EPSG",
		Definition:   `PROJCS["WGS 84 / Pseudo-Mercator",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Mercator_1SP"],PARAMETER["central_meridian",0],PARAMETER["scale_factor",1],PARAMETER["false_easting",0],PARAMETER["false_northing",0],UNIT["metre",1],AUTHORITY["EPSG","3857"]]`,
	},
}

// DefaultRefs are the two undefined systems required in every GeoPackage.
var DefaultRefs = []SpatialRef{
	{Name: "Undefined cartesian SRS", ID: -1, Organization: "NONE", Definition: "undefined"},
	{Name: "Undefined geographic SRS", ID: 0, Organization: "NONE", Definition: "undefined"},
}

// RefFor returns the spatial reference row for a CRS identifier. Unknown
// EPSG codes get an undefined definition; a missing CRS maps to srs id 0.
func RefFor(crs string) SpatialRef {
	code, ok := core.EPSGCode(crs)
	if !ok {
		return DefaultRefs[1]
	}
	if ref, ok := knownRefs[int32(code)]; ok {
		return ref
	}
	return SpatialRef{Name: core.NormalizeCRS(crs), ID: int32(code), Organization: "EPSG", Definition: "undefined"}
}

// CRSFor maps an srs id back to a CRS identifier.
func CRSFor(srsID int32) string {
	if srsID <= 0 {
		return ""
	}
	return "EPSG:" + strconv.Itoa(int(srsID))
}
