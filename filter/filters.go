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

package filter

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/aaronlmathis/gozonal/core"
)

// Package filter provides composable predicates over feature attributes.
//
// A run can be restricted to the features matching a filter before it is
// partitioned. All functions return core.Filter implementations.

// NotNull creates a filter that excludes features where the attribute is nil or empty
func NotNull(field string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		value, exists := record[field]
		if !exists || value == nil {
			return false, nil
		}
		if str, ok := value.(string); ok && str == "" {
			return false, nil
		}
		return true, nil
	})
}

// Equals creates a filter that includes features where the attribute equals the value.
// Numbers compare by value, so int 3 equals int64 3 and float64 3.
func Equals(field string, expectedValue interface{}) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		value, exists := record[field]
		if !exists {
			return false, nil
		}
		return equal(value, expectedValue), nil
	})
}

// Contains creates a filter that includes features where the string attribute contains the substring
func Contains(field, substring string) core.Filter {
	return stringFilter(field, func(s string) bool { return strings.Contains(s, substring) })
}

// StartsWith creates a filter that includes features where the string attribute starts with the prefix
func StartsWith(field, prefix string) core.Filter {
	return stringFilter(field, func(s string) bool { return strings.HasPrefix(s, prefix) })
}

// MatchesRegex creates a filter that includes features where the string attribute matches the pattern.
func MatchesRegex(field, pattern string) (core.Filter, error) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return stringFilter(field, regex.MatchString), nil
}

func stringFilter(field string, match func(string) bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		if str, ok := record[field].(string); ok {
			return match(str), nil
		}
		return false, nil
	})
}

// GreaterThan creates a filter that includes features where the numeric attribute is greater than the value
func GreaterThan(field string, threshold float64) core.Filter {
	return numericFilter(field, func(n float64) bool { return n > threshold })
}

// LessThan creates a filter that includes features where the numeric attribute is less than the value
func LessThan(field string, threshold float64) core.Filter {
	return numericFilter(field, func(n float64) bool { return n < threshold })
}

// Between creates a filter that includes features where the numeric attribute is between min and max (inclusive)
func Between(field string, min, max float64) core.Filter {
	return numericFilter(field, func(n float64) bool { return n >= min && n <= max })
}

func numericFilter(field string, match func(float64) bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		num, ok := toFloat64(record[field])
		if !ok {
			return false, nil
		}
		return match(num), nil
	})
}

// In creates a filter that includes features where the attribute is one of values
func In(field string, values ...interface{}) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		value, exists := record[field]
		if !exists {
			return false, nil
		}
		for _, v := range values {
			if equal(value, v) {
				return true, nil
			}
		}
		return false, nil
	})
}

// And creates a filter that requires all provided filters to pass
func And(filters ...core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		for _, filter := range filters {
			include, err := filter.ShouldInclude(ctx, record)
			if err != nil || !include {
				return false, err
			}
		}
		return true, nil
	})
}

// Or creates a filter that requires at least one of the provided filters to pass
func Or(filters ...core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		for _, filter := range filters {
			include, err := filter.ShouldInclude(ctx, record)
			if err != nil {
				return false, err
			}
			if include {
				return true, nil
			}
		}
		return false, nil
	})
}

// Not creates a filter that negates the provided filter
func Not(filter core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		include, err := filter.ShouldInclude(ctx, record)
		if err != nil {
			return false, err
		}
		return !include, nil
	})
}

// Apply returns a new collection holding the features of fc accepted by f,
// in their original order. The input collection is not modified.
func Apply(ctx context.Context, fc *core.FeatureCollection, f core.Filter) (*core.FeatureCollection, error) {
	out := &core.FeatureCollection{Name: fc.Name, CRS: fc.CRS, Columns: fc.Columns}
	for i, feature := range fc.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		include, err := f.ShouldInclude(ctx, feature.Attributes)
		if err != nil {
			return nil, fmt.Errorf("filter feature %d: %w", i, err)
		}
		if include {
			out.Features = append(out.Features, feature)
		}
	}
	return out, nil
}

var operators = []string{">=", "<=", "!=", "=", ">", "<"}

// Parse builds a filter from a simple comparison such as "landuse=forest",
// "area>=10" or "name!=". Conditions joined with " and " must all hold.
func Parse(expression string) (core.Filter, error) {
	parts := strings.Split(expression, " and ")
	filters := make([]core.Filter, 0, len(parts))
	for _, part := range parts {
		f, err := parseComparison(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if len(filters) == 1 {
		return filters[0], nil
	}
	return And(filters...), nil
}

func parseComparison(s string) (core.Filter, error) {
	for _, op := range operators {
		i := strings.Index(s, op)
		if i <= 0 {
			continue
		}
		field := strings.TrimSpace(s[:i])
		raw := strings.Trim(strings.TrimSpace(s[i+len(op):]), `"'`)
		value := literal(raw)
		switch op {
		case "=":
			return Equals(field, value), nil
		case "!=":
			return Not(Equals(field, value)), nil
		}
		num, ok := toFloat64(value)
		if !ok {
			return nil, fmt.Errorf("filter %q: %s needs a numeric operand", s, op)
		}
		switch op {
		case ">":
			return GreaterThan(field, num), nil
		case "<":
			return LessThan(field, num), nil
		case ">=":
			return Not(LessThan(field, num)), nil
		default:
			return Not(GreaterThan(field, num)), nil
		}
	}
	return nil, fmt.Errorf("filter %q: no comparison operator", s)
}

func literal(raw string) interface{} {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func equal(a, b interface{}) bool {
	x, okA := toFloat64(a)
	y, okB := toFloat64(b)
	if okA && okB {
		return x == y
	}
	return reflect.DeepEqual(a, b)
}

// toFloat64 converts the numeric types to float64
func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
