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

package validators

import (
	"context"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gozonal/core"
)

var square = geom.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}

func collection(ids ...interface{}) *core.FeatureCollection {
	fc := &core.FeatureCollection{Name: "zones", Columns: []string{"id", "name"}}
	for _, id := range ids {
		fc.Features = append(fc.Features, core.Feature{
			Attributes: core.Record{"id": id, "name": "x"},
			Geometry:   square,
		})
	}
	return fc
}

func violations(t *testing.T, err error) []error {
	t.Helper()
	require.Error(t, err)
	var cerr *core.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "validate_features", cerr.Op)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	return merr.Errors
}

func TestValidateValid(t *testing.T) {
	v := &FeatureValidator{RequiredColumns: []string{"id", "name"}, IDColumn: "id", RequirePolygons: true}
	assert.NoError(t, v.Validate(context.Background(), collection(int64(1), int64(2), int64(3))))
	assert.NoError(t, v.Validate(context.Background(), collection()))
}

func TestValidateColumns(t *testing.T) {
	v := &FeatureValidator{RequiredColumns: []string{"id", "landuse", "owner"}, IDColumn: "code"}
	errs := violations(t, v.Validate(context.Background(), collection(int64(1))))
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), `column "landuse" not found in "zones"`)
	assert.Contains(t, errs[2].Error(), `identifier column "code"`)
}

func TestValidateIdentifiers(t *testing.T) {
	v := &FeatureValidator{IDColumn: "id"}
	errs := violations(t, v.Validate(context.Background(), collection(int64(1), nil, int64(1), "1", int64(2))))
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "feature 1 has no value")
	assert.Contains(t, errs[1].Error(), "feature 2 repeats identifier 1 of feature 0")
}

func TestValidateGeometry(t *testing.T) {
	fc := collection(int64(1), int64(2), int64(3))
	fc.Features[1].Geometry = geom.Point{1, 1}
	fc.Features[2].Geometry = nil

	errs := violations(t, (&FeatureValidator{RequirePolygons: true}).Validate(context.Background(), fc))
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "geom.Point")
	assert.Contains(t, errs[1].Error(), "empty")
}

func TestValidateLimits(t *testing.T) {
	v := &FeatureValidator{IDColumn: "id", MinFeatures: 10, MaxErrors: 2}
	errs := violations(t, v.Validate(context.Background(), collection(int64(1), int64(1), int64(1), int64(1))))
	assert.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "insufficient features: got 4, need at least 10")
}

func TestValidateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (&FeatureValidator{IDColumn: "id"}).Validate(ctx, collection(int64(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsPolygonal(t *testing.T) {
	assert.True(t, IsPolygonal(square))
	assert.True(t, IsPolygonal(&geom.MultiPolygon{}))
	assert.False(t, IsPolygonal(geom.LineString{}))
	assert.False(t, IsPolygonal(nil))
}
