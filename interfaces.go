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

package gozonal

import (
	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/scheduler"
	"github.com/aaronlmathis/gozonal/unit"
)

// Package gozonal computes zonal statistics of raster data over vector
// features, in parallel.
//
// A run partitions the input features into contiguous chunks, computes the
// statistics of every chunk in its own unit on a bounded worker pool and
// merges the partial results, in input order, into one table or layer.
//
// Example usage:
//
//	run, err := gozonal.NewRun().
//	    Features(collection).
//	    Rasters(elevation).
//	    Stats("mean", "max").
//	    Include("id").
//	    IDColumn("id").
//	    Prefix("dem_").
//	    ParallelJobs(4).
//	    Output("stats.csv").
//	    Build()
//	if err != nil { log.Fatal(err) }
//	result, err := run.Execute(context.Background())
//
// Output locations are picked by extension (.csv, .json, .jsonl, .parquet,
// .geojson, .gpkg) or scheme (postgres://, s3://).

// Record is one row of attribute or statistic values.
type Record = core.Record

// Feature is one input polygon with its attributes.
type Feature = core.Feature

// FeatureCollection is an ordered set of input features.
type FeatureCollection = core.FeatureCollection

// MergedResult is the consolidated output of a run.
type MergedResult = core.MergedResult

// Result summarizes a finished run: per unit metadata, counts and the merged output.
type Result = scheduler.Result

// OutputMode selects tabular or geospatial results.
type OutputMode = core.OutputMode

const (
	// Tabular produces one row per feature keyed by the identifier column.
	Tabular = core.Tabular
	// Geospatial keeps the feature geometry and writes a layer.
	Geospatial = core.Geospatial
)

// ProgressHook observes the progress of every unit of a run.
type ProgressHook = unit.ProgressHook
