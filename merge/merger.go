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

package merge

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/types"
)

// Package merge consolidates the partial results of a run into one result
// and persists it to the configured output.

// SinkFactory opens the sinks a merged result is written to.
type SinkFactory interface {
	NewTableSink(ctx context.Context, path string, columns []string) (core.DataSink, error)
	NewLayerSink(ctx context.Context, path string, layerName string) (core.LayerSink, error)
}

// Merger merges partial results for one WorkConfiguration.
type Merger struct {
	cfg         *core.WorkConfiguration
	sinks       SinkFactory
	logger      logrus.FieldLogger
	description string
}

// Option configures a Merger.
type Option func(*Merger)

// WithSinkFactory replaces the output sink factory.
func WithSinkFactory(f SinkFactory) Option {
	return func(m *Merger) {
		m.sinks = f
	}
}

// WithLogger sets the observability channel.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Merger) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDescription sets the description used in log events.
func WithDescription(description string) Option {
	return func(m *Merger) {
		m.description = description
	}
}

// New creates a merger. Output is routed by types.Sinks unless another
// factory is given.
func New(cfg *core.WorkConfiguration, opts ...Option) *Merger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	m := &Merger{
		cfg:         cfg,
		sinks:       types.Sinks{},
		logger:      l,
		description: "merge partial results",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge consolidates partials, which must be in chunk order, and writes the
// result to the configured output path when one is set. An empty input
// produces an empty result.
func (m *Merger) Merge(ctx context.Context, partials []core.PartialResult) (*core.MergedResult, error) {
	m.logger.Infof("Inside MergeStatsTask Task: %s", m.description)

	var (
		result *core.MergedResult
		err    error
	)
	if m.cfg.Mode == core.Geospatial {
		result, err = m.mergeLayers(ctx, partials)
	} else {
		result, err = m.mergeTables(ctx, partials)
	}

	outcome := "Successful"
	if err != nil {
		outcome = "Failed"
		m.logger.WithError(err).Errorf("Finished MergeStatsTask Task: %s, result: %s", m.description, outcome)
		return nil, err
	}
	m.logger.WithField("rows", result.Len()).Infof("Finished MergeStatsTask Task: %s, result: %s", m.description, outcome)
	return result, nil
}
