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
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid run configuration. It is raised before
// any unit is scheduled.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CompilationError reports custom function source that could not be compiled.
type CompilationError struct {
	Function string
	Err      error
}

func (e *CompilationError) Error() string {
	if e.Function == "" {
		return fmt.Sprintf("compile custom function: %v", e.Err)
	}
	return fmt.Sprintf("compile custom function %s: %v", e.Function, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// ExtractionIncompatibilityError is returned by an extractor that rejects the
// shape of its arguments. Units treat it as a recoverable, per-unit failure.
type ExtractionIncompatibilityError struct {
	Op  string
	Err error
}

func (e *ExtractionIncompatibilityError) Error() string {
	return fmt.Sprintf("extraction %s: incompatible arguments: %v", e.Op, e.Err)
}

func (e *ExtractionIncompatibilityError) Unwrap() error {
	return e.Err
}

// MergeError reports a failure while consolidating or persisting results.
type MergeError struct {
	Op  string
	Err error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s: %v", e.Op, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// IsIncompatible reports whether err carries an ExtractionIncompatibilityError.
func IsIncompatible(err error) bool {
	var target *ExtractionIncompatibilityError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
