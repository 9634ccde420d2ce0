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

package compiler

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrNoDefinition is returned when the source holds no "def" line.
var ErrNoDefinition = errors.New("no function definition found")

const keyword = "def"

// definition is the parsed form of a custom function source.
type definition struct {
	name   string
	params []string
	body   string
}

// FunctionName returns the name declared by the first line whose trimmed form
// starts with "def ": the token between the keyword and the opening parenthesis.
// Leading whitespace, extra spacing and trailing comments are ignored.
func FunctionName(source string) (string, error) {
	_, line, err := headerLine(source)
	if err != nil {
		return "", err
	}
	rest := strings.TrimSpace(line)[len(keyword):]
	open := strings.Index(rest, "(")
	if open < 0 {
		return "", fmt.Errorf("missing parameter list in %q", strings.TrimSpace(line))
	}
	name := strings.TrimSpace(rest[:open])
	if !isIdentifier(name) {
		return "", fmt.Errorf("invalid function name %q", name)
	}
	return name, nil
}

func headerLine(source string) (int, string, error) {
	for i, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, keyword) && len(trimmed) > len(keyword) && unicode.IsSpace(rune(trimmed[len(keyword)])) {
			return i, line, nil
		}
	}
	return 0, "", ErrNoDefinition
}

// parse splits a source into name, parameters and the returned expression.
// Lines before the definition are ignored.
func parse(source string) (*definition, error) {
	name, err := FunctionName(source)
	if err != nil {
		return nil, err
	}
	idx, line, _ := headerLine(source)
	header := strings.TrimSpace(line)

	open := strings.Index(header, "(")
	closing := strings.Index(header[open:], ")")
	if closing < 0 {
		return nil, fmt.Errorf("unterminated parameter list in %q", header)
	}
	closing += open

	params, err := parseParams(header[open+1 : closing])
	if err != nil {
		return nil, err
	}

	tail := header[closing+1:]
	colon := strings.Index(tail, ":")
	if colon < 0 {
		return nil, fmt.Errorf("missing ':' after parameter list in %q", header)
	}
	if annotation := strings.TrimSpace(tail[:colon]); annotation != "" && !strings.HasPrefix(annotation, "->") {
		return nil, fmt.Errorf("unexpected %q after parameter list", annotation)
	}

	lines := strings.Split(source, "\n")
	bodyText := tail[colon+1:] + "\n" + strings.Join(lines[idx+1:], "\n")
	body := strings.Join(strings.Fields(stripComments(bodyText)), " ")

	if !strings.HasPrefix(body, "return ") {
		return nil, fmt.Errorf("function %s: body must be a single return statement", name)
	}
	expression := strings.TrimSpace(strings.TrimPrefix(body, "return "))
	if expression == "" {
		return nil, fmt.Errorf("function %s: empty return expression", name)
	}
	return &definition{name: name, params: params, body: expression}, nil
}

func parseParams(list string) ([]string, error) {
	var params []string
	for _, raw := range strings.Split(list, ",") {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		if i := strings.Index(p, ":"); i >= 0 {
			p = strings.TrimSpace(p[:i])
		}
		if !isIdentifier(p) {
			return nil, fmt.Errorf("invalid parameter %q", p)
		}
		params = append(params, p)
	}
	if len(params) < 1 || len(params) > 2 {
		return nil, fmt.Errorf("expected (values) or (values, coverage) parameters, got %d", len(params))
	}
	if len(params) == 2 && params[0] == params[1] {
		return nil, fmt.Errorf("duplicate parameter %q", params[0])
	}
	return params, nil
}

// stripComments removes '#' comments that appear outside brackets and string
// literals. A '#' inside brackets is the closure argument of the expression
// language and is kept.
func stripComments(s string) string {
	var b strings.Builder
	depth := 0
	var quote rune
	skipping := false
	for _, r := range s {
		switch {
		case skipping:
			if r == '\n' {
				skipping = false
				b.WriteRune(r)
			}
			continue
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			if depth > 0 {
				depth--
			}
		case r == '#' && depth == 0:
			skipping = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
