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

package main

import cli "gopkg.in/src-d/go-cli.v0"

var (
	version string
	build   string
)

var app = cli.New("gozonal", version, build, "parallel zonal statistics command line interface")

func main() {
	app.RunMain()
}
