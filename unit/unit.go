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

package unit

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/extract"
)

// Package unit implements the statistics unit: the work of computing zonal
// statistics for one chunk of features.

// Unit computes statistics for one chunk and stores the partial result in
// its own result slot.
type Unit struct {
	chunk     core.Chunk
	cfg       *core.WorkConfiguration
	slots     *core.ResultSlots
	extractor extract.Extractor
	logger    logrus.FieldLogger
	hook      ProgressHook

	mu   sync.RWMutex
	meta Metadata
}

// New creates a pending unit for a chunk.
func New(chunk core.Chunk, cfg *core.WorkConfiguration, slots *core.ResultSlots, extractor extract.Extractor, opts ...Option) *Unit {
	u := &Unit{
		chunk:     chunk,
		cfg:       cfg,
		slots:     slots,
		extractor: extractor,
		logger:    discardLogger(),
		meta: Metadata{
			ID:          fmt.Sprintf("unit-%d", chunk.Index+1),
			Description: fmt.Sprintf("zonal statistics chunk %d", chunk.Index+1),
			Chunk:       chunk.Index,
			Features:    chunk.Len(),
			Status:      Pending,
		},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ID returns the unit identifier.
func (u *Unit) ID() string {
	return u.meta.ID
}

// Chunk returns the chunk the unit works on.
func (u *Unit) Chunk() core.Chunk {
	return u.chunk
}

// Status returns the current lifecycle state.
func (u *Unit) Status() Status {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.meta.Status
}

// Progress returns the last reported progress in [0,1].
func (u *Unit) Progress() float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.meta.Progress
}

// Metadata returns a snapshot of the unit metadata.
func (u *Unit) Metadata() Metadata {
	u.mu.RLock()
	defer u.mu.RUnlock()
	m := u.meta
	m.Tags = append([]string(nil), u.meta.Tags...)
	return m
}

// Execute runs the extraction for the chunk. It returns true when the partial
// result was stored. An extraction incompatibility marks the unit Failed and
// returns (false, nil); any other error is returned to the caller.
func (u *Unit) Execute(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		u.finish(Failed, err)
		return false, err
	}
	u.start()

	log := u.logger.WithFields(logrus.Fields{"unit": u.meta.ID, "features": u.chunk.Len()})
	log.Infof("Started task: %s with %d polygons", u.meta.Description, u.chunk.Len())

	runCtx := ctx
	if u.meta.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, u.meta.Timeout)
		defer cancel()
	}

	result, err := u.extractor.Extract(runCtx, u.request(), u.progressFunc(runCtx))
	if err == nil {
		err = u.slots.Set(u.chunk.Index, result)
	}

	switch {
	case err == nil:
		u.setRowsOut(result.Len())
		u.finish(Succeeded, nil)
		log.Infof("Finished task: %s, result: Successful", u.meta.Description)
		return true, nil
	case core.IsIncompatible(err):
		u.finish(Failed, err)
		log.WithError(err).Errorf("Finished task: %s, result: Failed", u.meta.Description)
		return false, nil
	default:
		u.finish(Failed, err)
		log.WithError(err).Errorf("Finished task: %s, result: Failed", u.meta.Description)
		return false, fmt.Errorf("%s: %w", u.meta.ID, err)
	}
}

func (u *Unit) request() extract.Request {
	return extract.Request{
		Features:  u.chunk.Features,
		Rasters:   u.cfg.Rasters,
		Weights:   u.cfg.Weights,
		Stats:     u.cfg.Stats,
		Reducers:  u.cfg.Reducers,
		Include:   u.cfg.IncludeNames(),
		Mode:      u.cfg.Mode,
		CRS:       u.cfg.CRS,
		LayerName: u.meta.ID,
	}
}

// progressFunc returns the callback handed to the extractor. Updates stop once
// the unit context is cancelled.
func (u *Unit) progressFunc(ctx context.Context) extract.ProgressFunc {
	return func(fraction float64, message string) {
		if ctx.Err() != nil {
			return
		}
		p := NormalizeProgress(fraction)
		u.mu.Lock()
		if u.meta.Status == Running && p > u.meta.Progress {
			u.meta.Progress = p
		}
		u.mu.Unlock()
		if u.hook != nil {
			u.hook(u.meta.ID, p, message)
		}
	}
}

func (u *Unit) start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.meta.Status = Running
	u.meta.StartTime = time.Now()
}

func (u *Unit) setRowsOut(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.meta.RowsOut = n
}

func (u *Unit) finish(status Status, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.meta.Status = status
	u.meta.Error = err
	u.meta.EndTime = time.Now()
	if status == Succeeded || core.IsIncompatible(err) {
		u.meta.Progress = 1
	}
}

// NormalizeProgress maps a progress value onto [0,1]. Values above 1 are read
// as percentages.
func NormalizeProgress(v float64) float64 {
	if v != v || v <= 0 {
		return 0
	}
	if v > 1 {
		v /= 100
	}
	if v > 1 {
		return 1
	}
	return v
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
