/*
	Copyright 2025 Google Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

			http://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package convert

import (
	"fmt"
	"slices"
)

// trackID places a span on the timeline: a display category plus an ordinal
// lane within it.  Spans in the same category that would overlap sit on
// different ordinals.
type trackID struct {
	category string
	ordinal  uint64
}

// String renders the track as a trace-viewer thread id, e.g. "misc-00".
func (t trackID) String() string {
	return fmt.Sprintf("%s-%02d", t.category, t.ordinal)
}

// trackAssignment records whether a span owns its track (and must release it
// on close) or borrows an ancestor's for its whole lifetime.
type trackAssignment struct {
	id        trackID
	inherited bool
}

// trackAllocator hands out the ordinals of one category.  Allocation always
// returns the smallest ordinal not currently in use, so a category's lane
// count equals the maximum concurrency of owned spans ever observed in it,
// not the total span count.
type trackAllocator struct {
	// unused holds released ordinals in increasing order.
	unused []uint64
	// lowestNeverUsed extends the ordinal space when unused is empty.
	lowestNeverUsed uint64
}

// getSmallest returns the smallest ordinal not currently in use, minting a
// fresh one if every previously issued ordinal is busy.
func (a *trackAllocator) getSmallest() uint64 {
	if len(a.unused) > 0 {
		n := a.unused[0]
		a.unused = a.unused[1:]
		return n
	}
	n := a.lowestNeverUsed
	a.lowestNeverUsed++
	return n
}

// markUnused returns an ordinal to the pool, making it eligible for reuse
// ahead of any larger ordinal.
func (a *trackAllocator) markUnused(ordinal uint64) {
	at, ok := slices.BinarySearch(a.unused, ordinal)
	if ok {
		return
	}
	a.unused = slices.Insert(a.unused, at, ordinal)
}
