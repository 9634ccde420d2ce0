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

package partition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gozonal/core"
)

func TestBoundsCoverage(t *testing.T) {
	for _, f := range []int{0, 1, 2, 5, 12, 13, 100} {
		for _, p := range []int{1, 2, 3, 4, 7, 200} {
			t.Run(fmt.Sprintf("f=%d/p=%d", f, p), func(t *testing.T) {
				ranges, err := Bounds(f, p)
				require.NoError(t, err)
				require.Len(t, ranges, Count(f, p))

				next, min, max := 0, f+1, -1
				for _, r := range ranges {
					assert.Equal(t, next, r.Start, "ranges must be contiguous")
					next = r.End
					if r.Len() < min {
						min = r.Len()
					}
					if r.Len() > max {
						max = r.Len()
					}
				}
				assert.Equal(t, f, next, "ranges must cover every feature")
				assert.LessOrEqual(t, max-min, 1)
			})
		}
	}
}

func TestBoundsExtraFeaturesGoFirst(t *testing.T) {
	ranges, err := Bounds(11, 3)
	require.NoError(t, err)
	assert.Equal(t, []Range{{0, 4}, {4, 8}, {8, 11}}, ranges)
}

func TestBoundsEmptyInput(t *testing.T) {
	ranges, err := Bounds(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []Range{{0, 0}}, ranges)
}

func TestBoundsInvalidParallelism(t *testing.T) {
	_, err := Bounds(10, 0)
	require.Error(t, err)
	assert.True(t, core.IsConfiguration(err))
}

func TestSplit(t *testing.T) {
	fc := &core.FeatureCollection{}
	for i := 0; i < 5; i++ {
		fc.Features = append(fc.Features, core.Feature{Attributes: core.Record{"id": int64(i)}})
	}

	chunks, err := Split(fc, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 3, chunks[0].Len())
	assert.Equal(t, int64(3), chunks[1].Features[0].Attributes["id"])

	// appending to one chunk must not overwrite the next
	chunks[0].Features = append(chunks[0].Features, core.Feature{})
	assert.Equal(t, int64(3), fc.Features[3].Attributes["id"])
}
