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
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the lifecycle state of a unit.
type Status int

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Metadata describes one unit and the outcome of its execution.
type Metadata struct {
	ID          string
	Description string
	Chunk       int
	Features    int
	RowsOut     int
	Status      Status
	Progress    float64
	StartTime   time.Time
	EndTime     time.Time
	Timeout     time.Duration
	Error       error
	Tags        []string
}

// IsComplete reports whether the unit reached a terminal state.
func (m *Metadata) IsComplete() bool {
	return m.Status.Terminal()
}

// GetExecutionTime returns the wall time spent in Execute.
func (m *Metadata) GetExecutionTime() time.Duration {
	if m.StartTime.IsZero() {
		return 0
	}
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// ProgressHook observes progress events of a unit.
type ProgressHook func(unitID string, fraction float64, message string)

// Option is a functional option for configuring units.
type Option func(*Unit)

// WithDescription sets the human readable description used in log events.
func WithDescription(description string) Option {
	return func(u *Unit) {
		u.meta.Description = description
	}
}

// WithTimeout bounds the extraction call of the unit.
func WithTimeout(timeout time.Duration) Option {
	return func(u *Unit) {
		u.meta.Timeout = timeout
	}
}

// WithLogger sets the observability channel.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(u *Unit) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithProgressHook registers a hook invoked on every progress update.
func WithProgressHook(hook ProgressHook) Option {
	return func(u *Unit) {
		u.hook = hook
	}
}

// WithTags adds tags to a unit.
func WithTags(tags ...string) Option {
	return func(u *Unit) {
		u.meta.Tags = append(u.meta.Tags, tags...)
	}
}
