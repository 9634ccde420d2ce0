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

// Package compiler turns user supplied function text into reducers. Sources
// take the form
//
//	def name(values, coverage):
//	    return <expression>
//
// The expression is compiled by a sandboxed expression engine that can only
// see the two declared parameters and a few numeric helpers.
package compiler

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aaronlmathis/gozonal/aggregate"
	"github.com/aaronlmathis/gozonal/core"
)

// Function is a compiled custom reducer. It is safe for concurrent use.
type Function struct {
	name       string
	params     []string
	expression string
	program    *vm.Program
}

var _ core.Reducer = (*Function)(nil)

// Compile compiles one function source.
func Compile(source string) (*Function, error) {
	def, err := parse(source)
	if err != nil {
		name, _ := FunctionName(source)
		return nil, &core.CompilationError{Function: name, Err: err}
	}
	if aggregate.IsBuiltin(def.name) {
		return nil, &core.CompilationError{Function: def.name, Err: fmt.Errorf("name shadows the built-in statistic %q", def.name)}
	}

	options := append([]expr.Option{expr.Env(env(def.params, nil, nil))}, helpers()...)
	program, err := expr.Compile(def.body, options...)
	if err != nil {
		return nil, &core.CompilationError{Function: def.name, Err: err}
	}
	return &Function{name: def.name, params: def.params, expression: def.body, program: program}, nil
}

// CompileAll compiles several sources. Function names must be unique.
func CompileAll(sources ...string) ([]*Function, error) {
	out := make([]*Function, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		fn, err := Compile(src)
		if err != nil {
			return nil, err
		}
		if seen[fn.name] {
			return nil, &core.CompilationError{Function: fn.name, Err: fmt.Errorf("function defined twice")}
		}
		seen[fn.name] = true
		out = append(out, fn)
	}
	return out, nil
}

// Reducers converts compiled functions to the core.Reducer interface.
func Reducers(fns []*Function) []core.Reducer {
	out := make([]core.Reducer, len(fns))
	for i, fn := range fns {
		out[i] = fn
	}
	return out
}

// Name returns the declared function name.
func (f *Function) Name() string {
	return f.name
}

// Params returns the declared parameter names.
func (f *Function) Params() []string {
	return append([]string(nil), f.params...)
}

// Expression returns the compiled return expression.
func (f *Function) Expression() string {
	return f.expression
}

// Reduce evaluates the function for the cells of one polygon.
func (f *Function) Reduce(values, coverage []float64) (float64, error) {
	out, err := expr.Run(f.program, env(f.params, values, coverage))
	if err != nil {
		return 0, err
	}
	return toFloat(out)
}

func env(params []string, values, coverage []float64) map[string]interface{} {
	if values == nil {
		values = []float64{}
	}
	if coverage == nil {
		coverage = []float64{}
	}
	e := map[string]interface{}{params[0]: values}
	if len(params) > 1 {
		e[params[1]] = coverage
	}
	return e
}

// helpers are numeric functions available to every custom function.
func helpers() []expr.Option {
	return []expr.Option{
		expr.Function("dot", func(params ...interface{}) (interface{}, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("dot expects 2 arguments, got %d", len(params))
			}
			a, err := toFloats(params[0])
			if err != nil {
				return nil, err
			}
			b, err := toFloats(params[1])
			if err != nil {
				return nil, err
			}
			if len(a) != len(b) {
				return nil, fmt.Errorf("dot: length mismatch %d != %d", len(a), len(b))
			}
			var s float64
			for i := range a {
				s += a[i] * b[i]
			}
			return s, nil
		}),
		expr.Function("fsum", func(params ...interface{}) (interface{}, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("fsum expects 1 argument, got %d", len(params))
			}
			a, err := toFloats(params[0])
			if err != nil {
				return nil, err
			}
			var s float64
			for _, v := range a {
				s += v
			}
			return s, nil
		}),
	}
}

func toFloats(v interface{}) ([]float64, error) {
	switch a := v.(type) {
	case []float64:
		return a, nil
	case []interface{}:
		out := make([]float64, len(a))
		for i, x := range a {
			f, err := toFloat(x)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an array, got %T", v)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("custom function returned %T, want a number", v)
	}
}
