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

import "strings"

const layerOption = "|layername="

// SplitLayerPath splits a vector path of the form "file.gpkg|layername=name"
// into the file path and the layer name. Paths without the option return an
// empty layer name.
func SplitLayerPath(path string) (string, string) {
	i := strings.Index(path, layerOption)
	if i < 0 {
		return path, ""
	}
	return path[:i], strings.TrimSpace(path[i+len(layerOption):])
}

// JoinLayerPath is the inverse of SplitLayerPath.
func JoinLayerPath(path, layer string) string {
	if layer == "" {
		return path
	}
	return path + layerOption + layer
}
