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

package scheduler

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/unit"
)

// Package scheduler runs statistics units on a bounded worker pool and
// triggers the merge once every unit is terminal.

var (
	// ErrNotStarted is returned by Wait before Start.
	ErrNotStarted = errors.New("scheduler not started")
	// ErrNotComplete is returned by TriggerMerge while units are still running.
	ErrNotComplete = errors.New("units are not all terminal")
)

// MergeFunc consolidates the partial results of a run in chunk order.
type MergeFunc func(ctx context.Context, partials []core.PartialResult) (*core.MergedResult, error)

// Scheduler owns the units of one run.
type Scheduler struct {
	units      []*unit.Unit
	slots      *core.ResultSlots
	maxWorkers int
	merge      MergeFunc
	logger     logrus.FieldLogger
	runID      string

	mu        sync.Mutex
	started   bool
	unitsDone bool
	canceled  bool
	fatal     error
	cancel    context.CancelFunc
	done      chan struct{}
	result    *Result

	mergeOnce sync.Once
	merged    *core.MergedResult
	mergeErr  error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxWorkers sets the maximum number of concurrently running units.
func WithMaxWorkers(workers int) Option {
	return func(s *Scheduler) {
		if workers > 0 {
			s.maxWorkers = workers
		}
	}
}

// WithMergeFunc sets the merge step run after all units are terminal.
func WithMergeFunc(merge MergeFunc) Option {
	return func(s *Scheduler) {
		s.merge = merge
	}
}

// WithLogger sets the observability channel.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Scheduler) {
		if id != "" {
			s.runID = id
		}
	}
}

// New creates a scheduler over units writing into slots.
func New(units []*unit.Unit, slots *core.ResultSlots, opts ...Option) *Scheduler {
	s := &Scheduler{
		units:      units,
		slots:      slots,
		maxWorkers: runtime.NumCPU(),
		logger:     discardLogger(),
		runID:      uuid.New().String(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("run_id", s.runID)
	return s
}

// RunID returns the run identifier.
func (s *Scheduler) RunID() string {
	return s.runID
}

// Units returns the scheduled units in chunk order.
func (s *Scheduler) Units() []*unit.Unit {
	return s.units
}

// Start submits all units and returns immediately. Calling Start twice is a
// no-op. After an earlier Cancel every unit ends Failed without extracting.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if s.canceled {
		cancel()
	}
	s.mu.Unlock()

	go s.run(runCtx)
}

// Run starts the scheduler and waits for the outcome.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	s.Start(ctx)
	return s.Wait()
}

// Wait blocks until the run, including the merge, has finished.
func (s *Scheduler) Wait() (*Result, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}
	<-s.done
	return s.result, s.result.Error
}

// Cancel requests cancellation of every unit that is not yet terminal and
// prevents the merge.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.canceled = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsComplete reports whether every unit is terminal.
func (s *Scheduler) IsComplete() bool {
	for _, u := range s.units {
		if !u.Status().Terminal() {
			return false
		}
	}
	return true
}

// Progress returns the mean progress of all units, each weighted equally.
func (s *Scheduler) Progress() float64 {
	if len(s.units) == 0 {
		return 0
	}
	var sum float64
	for _, u := range s.units {
		sum += u.Progress()
	}
	return sum / float64(len(s.units))
}

// TriggerMerge runs the merge over the collected partial results. Only the
// first call merges; later calls return the first outcome. It refuses to merge
// a cancelled or failed run.
func (s *Scheduler) TriggerMerge(ctx context.Context) (*core.MergedResult, error) {
	s.mu.Lock()
	done, canceled, fatal := s.unitsDone, s.canceled, s.fatal
	s.mu.Unlock()
	if !done || !s.IsComplete() {
		return nil, ErrNotComplete
	}
	if canceled {
		return nil, context.Canceled
	}
	if fatal != nil {
		return nil, fatal
	}

	s.mergeOnce.Do(func() {
		if s.merge == nil {
			return
		}
		partials := s.slots.Collect()
		s.logger.Debugf("triggering merge of %d partial results from %d units", len(partials), s.slots.Len())
		s.merged, s.mergeErr = s.merge(ctx, partials)
	})
	return s.merged, s.mergeErr
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	defer s.cancel()

	start := time.Now()
	s.logger.Infof("scheduling %d units on %d workers", len(s.units), s.workers())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for _, u := range s.units {
		u := u
		g.Go(func() error {
			_, err := u.Execute(gctx)
			return err
		})
	}
	err := g.Wait()

	s.mu.Lock()
	s.unitsDone = true
	if s.canceled || ctx.Err() != nil {
		s.canceled = true
		err = context.Canceled
	} else if err != nil {
		s.fatal = err
	}
	s.mu.Unlock()

	var merged *core.MergedResult
	if err == nil {
		merged, err = s.TriggerMerge(ctx)
	}
	if err != nil {
		s.logger.WithError(err).Error("run failed")
	}

	s.result = s.newResult(start, merged, err)
}

func (s *Scheduler) workers() int {
	if len(s.units) > 0 && len(s.units) < s.maxWorkers {
		return len(s.units)
	}
	return s.maxWorkers
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
