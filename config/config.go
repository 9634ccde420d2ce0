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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/aaronlmathis/gozonal"
	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/filter"
	"github.com/aaronlmathis/gozonal/raster"
	"github.com/aaronlmathis/gozonal/readers"
)

// Package config decodes JSON run files and turns them into runs.

// RunFile is the on-disk description of a run.
type RunFile struct {
	RasterLayerPath  string   `json:"raster_layer_path,omitempty"`
	RasterLayerPaths []string `json:"raster_layer_paths,omitempty"`
	WeightsLayerPath string   `json:"weights_layer_path,omitempty"`
	VectorLayerPath  string   `json:"vector_layer_path"`
	ParallelJobs     int      `json:"parallel_jobs"`
	OutputFilePath   string   `json:"output_file_path,omitempty"`
	AggregatesStats  []string `json:"aggregates_stats_list,omitempty"`
	ArraysStats      []string `json:"arrays_stats_list,omitempty"`
	CustomFunctions  []string `json:"custom_functions,omitempty"`
	Prefix           string   `json:"prefix,omitempty"`
	IDColumn         string   `json:"id_column,omitempty"`
	IncludeColumns   []string `json:"include_columns,omitempty"`
	Geospatial       bool     `json:"geospatial,omitempty"`
	OutputCRS        string   `json:"output_crs,omitempty"`
	Where            string   `json:"where,omitempty"`
	LogLevel         string   `json:"log_level,omitempty"`

	// Set from a "|layername=" suffix of the vector and output paths.
	InputLayerName  string `json:"input_layername,omitempty"`
	OutputLayerName string `json:"output_layername,omitempty"`
}

// Load reads and validates a run file.
func Load(path string) (*RunFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run file: %w", err)
	}
	defer f.Close()

	var rf RunFile
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rf); err != nil {
		return nil, &core.ConfigurationError{Op: "decode", Err: fmt.Errorf("%s: %w", path, err)}
	}
	if err := rf.normalize(); err != nil {
		return nil, err
	}
	return &rf, nil
}

// normalize splits layer names off the paths and checks required fields.
func (rf *RunFile) normalize() error {
	var result *multierror.Error

	path, layer := core.SplitLayerPath(rf.VectorLayerPath)
	rf.VectorLayerPath = path
	if layer != "" {
		rf.InputLayerName = layer
	}
	path, layer = core.SplitLayerPath(rf.OutputFilePath)
	rf.OutputFilePath = path
	if layer != "" {
		rf.OutputLayerName = layer
	}

	if rf.VectorLayerPath == "" {
		result = multierror.Append(result, errors.New("vector_layer_path is required"))
	}
	if len(rf.Rasters()) == 0 {
		result = multierror.Append(result, errors.New("raster_layer_path or raster_layer_paths is required"))
	}
	if rf.ParallelJobs == 0 {
		rf.ParallelJobs = 1
	}
	if rf.ParallelJobs < 0 {
		result = multierror.Append(result, fmt.Errorf("parallel_jobs must be at least 1, got %d", rf.ParallelJobs))
	}
	if len(rf.Stats())+len(rf.CustomFunctions) == 0 {
		result = multierror.Append(result, errors.New("at least one statistic or custom function is required"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return &core.ConfigurationError{Op: "run_file", Err: err}
	}
	return nil
}

// Rasters returns every value raster path.
func (rf *RunFile) Rasters() []string {
	paths := make([]string, 0, len(rf.RasterLayerPaths)+1)
	if rf.RasterLayerPath != "" {
		paths = append(paths, rf.RasterLayerPath)
	}
	return append(paths, rf.RasterLayerPaths...)
}

// Stats returns the aggregate statistics followed by the array statistics.
func (rf *RunFile) Stats() []string {
	stats := append([]string(nil), rf.AggregatesStats...)
	return append(stats, rf.ArraysStats...)
}

// Mode returns the output mode of the run.
func (rf *RunFile) Mode() core.OutputMode {
	if rf.Geospatial {
		return core.Geospatial
	}
	return core.Tabular
}

// VectorLocation returns the vector path with its layer selection.
func (rf *RunFile) VectorLocation() string {
	return core.JoinLayerPath(rf.VectorLayerPath, rf.InputLayerName)
}

// OutputLocation returns the output path with its layer name.
func (rf *RunFile) OutputLocation() string {
	return core.JoinLayerPath(rf.OutputFilePath, rf.OutputLayerName)
}

// Builder loads the features and rasters named by the run file and returns a
// configured builder. Callers may adjust it before Build.
func (rf *RunFile) Builder(ctx context.Context, logger logrus.FieldLogger) (*gozonal.RunBuilder, error) {
	src, err := readers.Open(ctx, rf.VectorLocation())
	if err != nil {
		return nil, err
	}
	features, err := readers.Collect(ctx, src)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Infof("loaded %d features from %s", features.Len(), rf.VectorLocation())
	}

	grids := make([]*raster.Grid, 0, len(rf.Rasters()))
	for _, p := range rf.Rasters() {
		g, err := raster.Open(p)
		if err != nil {
			return nil, err
		}
		grids = append(grids, g)
	}

	rb := gozonal.NewRun().
		Features(features).
		Rasters(grids...).
		Stats(rf.Stats()...).
		CustomFunctions(rf.CustomFunctions...).
		Include(rf.IncludeColumns...).
		IDColumn(rf.IDColumn).
		Prefix(rf.Prefix).
		Mode(rf.Mode()).
		Output(rf.OutputLocation()).
		CRS(rf.OutputCRS).
		ParallelJobs(rf.ParallelJobs).
		WithLogger(logger)

	if rf.WeightsLayerPath != "" {
		w, err := raster.Open(rf.WeightsLayerPath)
		if err != nil {
			return nil, err
		}
		rb.Weights(w)
	}
	if strings.TrimSpace(rf.Where) != "" {
		f, err := filter.Parse(rf.Where)
		if err != nil {
			return nil, &core.ConfigurationError{Op: "where", Err: err}
		}
		rb.Where(f)
	}
	return rb, nil
}
