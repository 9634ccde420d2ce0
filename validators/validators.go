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

// validators.go - input feature validation run before a collection is partitioned
package validators

import (
	"context"
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/hashicorp/go-multierror"

	"github.com/aaronlmathis/gozonal/core"
)

// FeatureValidator checks an input collection before any unit is created.
// Every problem found is reported, combined into one error.
type FeatureValidator struct {
	RequiredColumns []string // Columns every feature must declare
	IDColumn        string   // Column whose values must be unique and non-nil
	RequirePolygons bool     // Reject features whose geometry is not (multi)polygonal
	MinFeatures     int      // Minimum number of features (0 allows empty inputs)
	MaxErrors       int      // Stop collecting after this many errors (0 = unlimited)
}

// Validate checks fc and returns a ConfigurationError listing every violation.
func (v *FeatureValidator) Validate(ctx context.Context, fc *core.FeatureCollection) error {
	var result *multierror.Error
	add := func(err error) bool {
		result = multierror.Append(result, err)
		return v.MaxErrors > 0 && result.Len() >= v.MaxErrors
	}

	if fc.Len() < v.MinFeatures {
		add(fmt.Errorf("insufficient features: got %d, need at least %d", fc.Len(), v.MinFeatures))
	}

	if done := v.validateColumns(fc, add); !done {
		v.validateFeatures(ctx, fc, add)
	}

	if err := result.ErrorOrNil(); err != nil {
		return &core.ConfigurationError{Op: "validate_features", Err: err}
	}
	return nil
}

// validateColumns checks that required columns are declared by the collection
func (v *FeatureValidator) validateColumns(fc *core.FeatureCollection, add func(error) bool) bool {
	for _, col := range v.RequiredColumns {
		if fc.ColumnIndex(col) < 0 {
			if add(fmt.Errorf("column %q not found in %s", col, describe(fc))) {
				return true
			}
		}
	}
	if v.IDColumn != "" && fc.ColumnIndex(v.IDColumn) < 0 {
		return add(fmt.Errorf("identifier column %q not found in %s", v.IDColumn, describe(fc)))
	}
	return false
}

// validateFeatures checks identifier uniqueness and geometry types
func (v *FeatureValidator) validateFeatures(ctx context.Context, fc *core.FeatureCollection, add func(error) bool) {
	seen := make(map[string]int, fc.Len())
	for i, f := range fc.Features {
		if ctx.Err() != nil {
			add(ctx.Err())
			return
		}
		if v.IDColumn != "" && fc.ColumnIndex(v.IDColumn) >= 0 {
			id := f.Attributes[v.IDColumn]
			if id == nil {
				if add(fmt.Errorf("feature %d has no value in identifier column %q", i, v.IDColumn)) {
					return
				}
			} else {
				key := fmt.Sprintf("%T:%v", id, id)
				if first, dup := seen[key]; dup {
					if add(fmt.Errorf("feature %d repeats identifier %v of feature %d", i, id, first)) {
						return
					}
				} else {
					seen[key] = i
				}
			}
		}
		if v.RequirePolygons && !IsPolygonal(f.Geometry) {
			if add(fmt.Errorf("feature %d has %s geometry, want polygon or multipolygon", i, geometryName(f.Geometry))) {
				return
			}
		}
	}
}

// IsPolygonal reports whether g is a Polygon or MultiPolygon.
func IsPolygonal(g geom.Geometry) bool {
	switch g.(type) {
	case geom.Polygon, *geom.Polygon, geom.MultiPolygon, *geom.MultiPolygon:
		return true
	}
	return false
}

func geometryName(g geom.Geometry) string {
	if g == nil {
		return "empty"
	}
	return fmt.Sprintf("%T", g)
}

func describe(fc *core.FeatureCollection) string {
	if fc.Name == "" {
		return "features"
	}
	return fmt.Sprintf("%q", fc.Name)
}
