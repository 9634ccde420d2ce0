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

package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gozonal/core"
)

func include(t *testing.T, f core.Filter, r core.Record) bool {
	t.Helper()
	ok, err := f.ShouldInclude(context.Background(), r)
	require.NoError(t, err)
	return ok
}

func TestFilters(t *testing.T) {
	r := core.Record{"id": int64(3), "name": "north field", "area": 12.5, "empty": "", "none": nil}

	assert.True(t, include(t, NotNull("name"), r))
	assert.False(t, include(t, NotNull("empty"), r))
	assert.False(t, include(t, NotNull("none"), r))
	assert.False(t, include(t, NotNull("missing"), r))

	assert.True(t, include(t, Equals("id", 3), r))
	assert.True(t, include(t, Equals("id", 3.0), r))
	assert.False(t, include(t, Equals("id", "3"), r))
	assert.True(t, include(t, Equals("name", "north field"), r))

	assert.True(t, include(t, Contains("name", "field"), r))
	assert.True(t, include(t, StartsWith("name", "north"), r))
	assert.False(t, include(t, StartsWith("id", "3"), r))

	re, err := MatchesRegex("name", `^n\w+ f`)
	require.NoError(t, err)
	assert.True(t, include(t, re, r))
	_, err = MatchesRegex("name", `(`)
	assert.Error(t, err)

	assert.True(t, include(t, GreaterThan("area", 12), r))
	assert.False(t, include(t, LessThan("area", 12), r))
	assert.True(t, include(t, Between("id", 3, 4), r))
	assert.False(t, include(t, GreaterThan("name", 0), r))

	assert.True(t, include(t, In("id", 1, 2, 3), r))
	assert.False(t, include(t, In("id", 4, "3"), r))

	assert.True(t, include(t, And(NotNull("name"), GreaterThan("area", 10)), r))
	assert.False(t, include(t, And(NotNull("name"), GreaterThan("area", 20)), r))
	assert.True(t, include(t, Or(Equals("id", 9), Equals("id", 3)), r))
	assert.False(t, include(t, Or(), r))
	assert.True(t, include(t, Not(Equals("id", 9)), r))
}

func TestFilterErrors(t *testing.T) {
	boom := core.FilterFunc(func(ctx context.Context, r core.Record) (bool, error) {
		return false, errors.New("boom")
	})
	for name, f := range map[string]core.Filter{"and": And(boom), "or": Or(boom), "not": Not(boom)} {
		_, err := f.ShouldInclude(context.Background(), core.Record{})
		assert.Error(t, err, name)
	}

	fc := &core.FeatureCollection{Features: []core.Feature{{Attributes: core.Record{}}}}
	_, err := Apply(context.Background(), fc, boom)
	assert.EqualError(t, err, "filter feature 0: boom")
}

func TestApply(t *testing.T) {
	fc := &core.FeatureCollection{Name: "zones", CRS: "EPSG:4326", Columns: []string{"id", "landuse"}}
	for i, lu := range []string{"forest", "urban", "forest", "water", "forest"} {
		fc.Features = append(fc.Features, core.Feature{Attributes: core.Record{"id": int64(i), "landuse": lu}})
	}

	out, err := Apply(context.Background(), fc, Equals("landuse", "forest"))
	require.NoError(t, err)
	assert.Equal(t, "zones", out.Name)
	assert.Equal(t, "EPSG:4326", out.CRS)
	require.Equal(t, 3, out.Len())
	for i, want := range []int64{0, 2, 4} {
		assert.Equal(t, want, out.Features[i].Attributes["id"])
	}
	assert.Equal(t, 5, fc.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Apply(ctx, fc, Equals("landuse", "forest"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse(t *testing.T) {
	tests := []struct {
		expr string
		rec  core.Record
		want bool
	}{
		{"landuse=forest", core.Record{"landuse": "forest"}, true},
		{"landuse = 'forest'", core.Record{"landuse": "forest"}, true},
		{"landuse!=forest", core.Record{"landuse": "forest"}, false},
		{"id=3", core.Record{"id": int64(3)}, true},
		{"area>10", core.Record{"area": 10.0}, false},
		{"area>=10", core.Record{"area": 10.0}, true},
		{"area<=10", core.Record{"area": 10.5}, false},
		{"area<10.5", core.Record{"area": 10}, true},
		{"area>=10 and landuse=forest", core.Record{"area": 12, "landuse": "forest"}, true},
		{"area>=10 and landuse=forest", core.Record{"area": 12, "landuse": "urban"}, false},
		{"active=true", core.Record{"active": true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, include(t, f, tt.rec))
		})
	}

	for _, bad := range []string{"landuse", "area>big", "=forest"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}
