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

import "fmt"

// ResultSlots holds one pre-allocated slot per chunk. Each unit writes only
// its own slot, so no locking is needed; readers must wait until every unit
// has reached a terminal state.
type ResultSlots struct {
	slots []*PartialResult
}

// NewResultSlots allocates n empty slots.
func NewResultSlots(n int) *ResultSlots {
	return &ResultSlots{slots: make([]*PartialResult, n)}
}

// Len returns the number of slots.
func (s *ResultSlots) Len() int {
	return len(s.slots)
}

// Set stores the partial result of chunk i. A slot can be written once.
func (s *ResultSlots) Set(i int, result PartialResult) error {
	if i < 0 || i >= len(s.slots) {
		return fmt.Errorf("result slot %d out of range [0,%d)", i, len(s.slots))
	}
	if s.slots[i] != nil {
		return fmt.Errorf("result slot %d already written", i)
	}
	result.Chunk = i
	s.slots[i] = &result
	return nil
}

// Collect returns the filled slots in chunk order. Empty slots (failed units)
// are skipped.
func (s *ResultSlots) Collect() []PartialResult {
	out := make([]PartialResult, 0, len(s.slots))
	for _, r := range s.slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
