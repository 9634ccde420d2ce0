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

package core

import (
	"context"
)

// FeatureSource streams features from a vector source (GeoJSON, GeoPackage, PostGIS, MongoDB).
type FeatureSource interface {
	// Read returns the next feature or io.EOF when no more features are available.
	Read(ctx context.Context) (Feature, error)
	// Close releases any resources held by the source.
	Close() error
}

// DataSink receives the rows of a merged table.
type DataSink interface {
	// Write outputs a single record to the sink.
	Write(ctx context.Context, record Record) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the data sink.
	Close() error
}

// LayerSink persists a whole geometry layer.
type LayerSink interface {
	WriteLayer(ctx context.Context, layer *Layer) error
	Close() error
}

// Transformer rewrites a record, e.g. renaming columns or casting values.
type Transformer interface {
	Transform(ctx context.Context, record Record) (Record, error)
}

// Filter decides whether an input feature takes part in a run.
type Filter interface {
	ShouldInclude(ctx context.Context, record Record) (bool, error)
}

// Reducer is a user-defined statistic evaluated over the cells a polygon covers.
type Reducer interface {
	Name() string
	Reduce(values, coverage []float64) (float64, error)
}
