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
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/aaronlmathis/gozonal/aggregate"
	"github.com/aaronlmathis/gozonal/compiler"
	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/extract"
	"github.com/aaronlmathis/gozonal/filter"
	"github.com/aaronlmathis/gozonal/merge"
	"github.com/aaronlmathis/gozonal/partition"
	"github.com/aaronlmathis/gozonal/raster"
	"github.com/aaronlmathis/gozonal/scheduler"
	"github.com/aaronlmathis/gozonal/types"
	"github.com/aaronlmathis/gozonal/unit"
	"github.com/aaronlmathis/gozonal/validators"
)

// ErrAlreadyStarted is returned when a run is started a second time.
var ErrAlreadyStarted = errors.New("run already started")

// RunBuilder provides a fluent API for configuring a zonal statistics run.
// Use NewRun() to create a builder, chain the configuration methods and call
// Build to validate everything before any unit is created.
type RunBuilder struct {
	features  *core.FeatureCollection
	rasters   []*raster.Grid
	weights   *raster.Grid
	stats     []string
	functions []string
	include   []string
	idColumn  string
	prefix    string
	mode      core.OutputMode
	output    string
	crs       string
	parallel  int
	filters   []core.Filter
	logger    logrus.FieldLogger
	extractor extract.Extractor
	sinks     merge.SinkFactory
	hook      unit.ProgressHook
	timeout   time.Duration
	runID     string
}

// NewRun creates a new RunBuilder. Defaults: tabular mode, one parallel job,
// the grid extractor and output routed by location.
func NewRun() *RunBuilder {
	return &RunBuilder{
		mode:     core.Tabular,
		parallel: 1,
	}
}

// Features sets the input feature collection. Feature order is kept in the output.
func (rb *RunBuilder) Features(fc *core.FeatureCollection) *RunBuilder {
	rb.features = fc
	return rb
}

// Rasters adds value rasters. Every band of every raster is summarized.
func (rb *RunBuilder) Rasters(grids ...*raster.Grid) *RunBuilder {
	rb.rasters = append(rb.rasters, grids...)
	return rb
}

// Weights sets the weight raster used by weighted statistics.
func (rb *RunBuilder) Weights(grid *raster.Grid) *RunBuilder {
	rb.weights = grid
	return rb
}

// Stats adds built-in statistics by name.
func (rb *RunBuilder) Stats(names ...string) *RunBuilder {
	rb.stats = append(rb.stats, names...)
	return rb
}

// CustomFunctions adds user function sources compiled into extra statistics.
func (rb *RunBuilder) CustomFunctions(sources ...string) *RunBuilder {
	rb.functions = append(rb.functions, sources...)
	return rb
}

// Include adds input columns copied to the output unchanged.
func (rb *RunBuilder) Include(columns ...string) *RunBuilder {
	rb.include = append(rb.include, columns...)
	return rb
}

// IDColumn sets the identifier column. It is kept unprefixed and its dtype is
// restored after the merge.
func (rb *RunBuilder) IDColumn(name string) *RunBuilder {
	rb.idColumn = name
	return rb
}

// Prefix sets the prefix applied to every statistic column.
func (rb *RunBuilder) Prefix(prefix string) *RunBuilder {
	rb.prefix = prefix
	return rb
}

// Mode selects tabular or geospatial output.
func (rb *RunBuilder) Mode(mode core.OutputMode) *RunBuilder {
	rb.mode = mode
	return rb
}

// Output sets the output location. An empty location keeps the result in memory.
func (rb *RunBuilder) Output(location string) *RunBuilder {
	rb.output = location
	return rb
}

// CRS sets the CRS of the geospatial output. It defaults to the input CRS.
func (rb *RunBuilder) CRS(crs string) *RunBuilder {
	rb.crs = crs
	return rb
}

// ParallelJobs sets the number of chunks and concurrently running units.
func (rb *RunBuilder) ParallelJobs(n int) *RunBuilder {
	rb.parallel = n
	return rb
}

// Where restricts the run to features accepted by f. Several calls must all hold.
func (rb *RunBuilder) Where(f core.Filter) *RunBuilder {
	rb.filters = append(rb.filters, f)
	return rb
}

// WithLogger sets the logger handed to units, scheduler and merger.
func (rb *RunBuilder) WithLogger(logger logrus.FieldLogger) *RunBuilder {
	rb.logger = logger
	return rb
}

// WithExtractor replaces the extraction implementation.
func (rb *RunBuilder) WithExtractor(e extract.Extractor) *RunBuilder {
	rb.extractor = e
	return rb
}

// WithSinkFactory replaces the routing of output locations to sinks.
func (rb *RunBuilder) WithSinkFactory(f merge.SinkFactory) *RunBuilder {
	rb.sinks = f
	return rb
}

// WithProgressHook registers a hook receiving every unit progress update.
func (rb *RunBuilder) WithProgressHook(hook unit.ProgressHook) *RunBuilder {
	rb.hook = hook
	return rb
}

// WithUnitTimeout bounds the extraction call of each unit.
func (rb *RunBuilder) WithUnitTimeout(timeout time.Duration) *RunBuilder {
	rb.timeout = timeout
	return rb
}

// WithRunID overrides the generated run identifier.
func (rb *RunBuilder) WithRunID(id string) *RunBuilder {
	rb.runID = id
	return rb
}

// Build validates the configuration and constructs the Run.
func (rb *RunBuilder) Build() (*Run, error) {
	return rb.BuildContext(context.Background())
}

// BuildContext is Build with a context for feature filtering.
//
// Custom functions are compiled first; a CompilationError is returned as is.
// All other problems are reported together in one ConfigurationError.
func (rb *RunBuilder) BuildContext(ctx context.Context) (*Run, error) {
	fns, err := compiler.CompileAll(rb.functions...)
	if err != nil {
		return nil, err
	}

	var result *multierror.Error
	if rb.features == nil {
		return nil, &core.ConfigurationError{Op: "features", Err: errors.New("a feature collection is required")}
	}
	if rb.parallel < 1 {
		result = multierror.Append(result, fmt.Errorf("parallel jobs must be at least 1, got %d", rb.parallel))
	}

	arrays := false
	for _, name := range rb.stats {
		stat, ok := aggregate.Lookup(name)
		if !ok {
			result = multierror.Append(result, fmt.Errorf("unknown statistic %q", name))
			continue
		}
		if stat.Weighted && rb.weights == nil {
			result = multierror.Append(result, fmt.Errorf("statistic %q requires a weight raster", name))
		}
		arrays = arrays || stat.Array
	}

	if rb.output != "" {
		format, err := types.DetectFormat(rb.output, rb.mode)
		if err != nil {
			result = multierror.Append(result, err)
		} else if arrays && !format.SupportsArrays() {
			result = multierror.Append(result, fmt.Errorf("array statistics cannot be written as %s, use json or geojson", format))
		}
	}

	features := rb.features
	if len(rb.filters) > 0 {
		features, err = filter.Apply(ctx, rb.features, filter.And(rb.filters...))
		if err != nil {
			return nil, &core.ConfigurationError{Op: "filter", Err: err}
		}
	}

	include := rb.includeColumns()
	v := &validators.FeatureValidator{RequiredColumns: include, IDColumn: rb.idColumn}
	if err := v.Validate(ctx, features); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, &core.ConfigurationError{Op: "build", Err: err}
	}

	cfg := &core.WorkConfiguration{
		Rasters:        rb.rasters,
		Weights:        rb.weights,
		Stats:          append([]string(nil), rb.stats...),
		Reducers:       compiler.Reducers(fns),
		IncludeColumns: make(map[string]int, len(include)),
		IDColumn:       rb.idColumn,
		Mode:           rb.mode,
		Prefix:         rb.prefix,
		OutputPath:     rb.output,
		CRS:            core.NormalizeCRS(rb.crs),
	}
	for _, name := range include {
		cfg.IncludeColumns[name] = features.ColumnIndex(name)
	}
	if rb.idColumn != "" {
		cfg.IDKind = features.ColumnKind(rb.idColumn)
	}
	if cfg.CRS == "" {
		cfg.CRS = core.NormalizeCRS(features.CRS)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Run{
		cfg:       cfg,
		features:  features,
		parallel:  rb.parallel,
		extractor: rb.extractor,
		sinks:     rb.sinks,
		logger:    rb.logger,
		hook:      rb.hook,
		timeout:   rb.timeout,
		runID:     rb.runID,
	}
	if r.extractor == nil {
		r.extractor = extract.NewGridExtractor()
	}
	if r.sinks == nil {
		r.sinks = types.Sinks{}
	}
	if r.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		r.logger = l
	}
	return r, nil
}

// includeColumns returns the include columns with the identifier column
// first when it was not listed.
func (rb *RunBuilder) includeColumns() []string {
	seen := make(map[string]bool, len(rb.include)+1)
	out := make([]string, 0, len(rb.include)+1)
	if rb.idColumn != "" {
		out = append(out, rb.idColumn)
		seen[rb.idColumn] = true
	}
	for _, c := range rb.include {
		if !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}

// Run is a validated zonal statistics run. It can be started once.
type Run struct {
	cfg       *core.WorkConfiguration
	features  *core.FeatureCollection
	parallel  int
	extractor extract.Extractor
	sinks     merge.SinkFactory
	logger    logrus.FieldLogger
	hook      unit.ProgressHook
	timeout   time.Duration
	runID     string

	mu    sync.Mutex
	sched *scheduler.Scheduler
}

// Config returns the shared configuration of the run.
func (r *Run) Config() *core.WorkConfiguration {
	return r.cfg
}

// Features returns the input collection after filtering.
func (r *Run) Features() *core.FeatureCollection {
	return r.features
}

// Start partitions the features, creates one unit per chunk and submits them.
// The returned scheduler reports progress and can cancel the run.
func (r *Run) Start(ctx context.Context) (*scheduler.Scheduler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sched != nil {
		return nil, ErrAlreadyStarted
	}

	chunks, err := partition.Split(r.features, r.parallel)
	if err != nil {
		return nil, err
	}

	slots := core.NewResultSlots(len(chunks))
	units := make([]*unit.Unit, len(chunks))
	for i, chunk := range chunks {
		opts := []unit.Option{unit.WithLogger(r.logger), unit.WithTags(r.cfg.Mode.String())}
		if r.hook != nil {
			opts = append(opts, unit.WithProgressHook(r.hook))
		}
		if r.timeout > 0 {
			opts = append(opts, unit.WithTimeout(r.timeout))
		}
		units[i] = unit.New(chunk, r.cfg, slots, r.extractor, opts...)
	}

	merger := merge.New(r.cfg, merge.WithSinkFactory(r.sinks), merge.WithLogger(r.logger))
	r.sched = scheduler.New(units, slots,
		scheduler.WithMaxWorkers(r.parallel),
		scheduler.WithMergeFunc(merger.Merge),
		scheduler.WithLogger(r.logger),
		scheduler.WithRunID(r.runID),
	)
	r.sched.Start(ctx)
	return r.sched, nil
}

// Execute starts the run and waits for the merged result.
func (r *Run) Execute(ctx context.Context) (*scheduler.Result, error) {
	sched, err := r.Start(ctx)
	if err != nil {
		return nil, err
	}
	return sched.Wait()
}
