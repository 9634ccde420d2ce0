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

	"github.com/aaronlmathis/gozonal/core"
)

// Package partition splits an ordered feature collection into contiguous,
// near-equal chunks, one per unit of work.

// Range is a half-open interval [Start, End) of feature positions.
type Range struct {
	Start int
	End   int
}

// Len returns the number of features in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Count returns the number of chunks used for f features at parallelism p:
// min(p, max(f, 1)).
func Count(f, p int) int {
	n := f
	if n < 1 {
		n = 1
	}
	if p < n {
		n = p
	}
	return n
}

// Bounds partitions [0, f) into Count(f, p) contiguous ranges whose sizes
// differ by at most one. The first f mod n ranges hold the extra feature.
// f == 0 yields a single empty range.
func Bounds(f, p int) ([]Range, error) {
	if p < 1 {
		return nil, &core.ConfigurationError{Op: "partition", Err: fmt.Errorf("parallel jobs must be at least 1, got %d", p)}
	}
	if f < 0 {
		return nil, &core.ConfigurationError{Op: "partition", Err: fmt.Errorf("negative feature count %d", f)}
	}
	n := Count(f, p)
	size, extra := f/n, f%n
	ranges := make([]Range, n)
	start := 0
	for i := range ranges {
		end := start + size
		if i < extra {
			end++
		}
		ranges[i] = Range{Start: start, End: end}
		start = end
	}
	return ranges, nil
}

// Split materializes the chunks of a collection in index order. Each chunk
// holds a sub-slice of the collection's features.
func Split(fc *core.FeatureCollection, p int) ([]core.Chunk, error) {
	ranges, err := Bounds(fc.Len(), p)
	if err != nil {
		return nil, err
	}
	chunks := make([]core.Chunk, len(ranges))
	for i, r := range ranges {
		chunks[i] = core.Chunk{Index: i, Start: r.Start, End: r.End}
		if fc != nil {
			chunks[i].Features = fc.Features[r.Start:r.End:r.End]
		}
	}
	return chunks, nil
}
