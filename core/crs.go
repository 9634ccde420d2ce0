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
	"strconv"
	"strings"
)

// NormalizeCRS maps the common spellings of a CRS identifier (OGC URNs,
// lowercase EPSG codes, CRS84) onto "EPSG:<code>". Unknown forms are returned
// trimmed but otherwise untouched.
func NormalizeCRS(crs string) string {
	s := strings.TrimSpace(crs)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "CRS84"):
		return "EPSG:4326"
	case strings.HasPrefix(upper, "URN:OGC:DEF:CRS:EPSG:"):
		parts := strings.Split(upper, ":")
		return "EPSG:" + parts[len(parts)-1]
	case strings.HasPrefix(upper, "EPSG:"):
		return "EPSG:" + strings.TrimPrefix(upper, "EPSG:")
	}
	return s
}

// EPSGCode returns the numeric EPSG code of a CRS identifier.
func EPSGCode(crs string) (int, bool) {
	n := NormalizeCRS(crs)
	if !strings.HasPrefix(n, "EPSG:") {
		return 0, false
	}
	code, err := strconv.Atoi(strings.TrimPrefix(n, "EPSG:"))
	if err != nil {
		return 0, false
	}
	return code, true
}
