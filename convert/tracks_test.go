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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTrackAllocatorPrefersSmallestReleased(t *testing.T) {
	a := &trackAllocator{}

	got := []uint64{a.getSmallest(), a.getSmallest(), a.getSmallest()}
	if diff := cmp.Diff([]uint64{0, 1, 2}, got); diff != "" {
		t.Errorf("fresh ordinals: diff (-want +got) %s", diff)
	}

	// Release out of order; reallocation must hand back the smallest first,
	// before minting anything new.
	a.markUnused(2)
	a.markUnused(0)
	got = []uint64{a.getSmallest(), a.getSmallest(), a.getSmallest()}
	if diff := cmp.Diff([]uint64{0, 2, 3}, got); diff != "" {
		t.Errorf("reused ordinals: diff (-want +got) %s", diff)
	}
}

func TestTrackAllocatorReuseScenario(t *testing.T) {
	// Allocate A, allocate B, release A, allocate C: C must receive A's
	// ordinal.
	a := &trackAllocator{}
	trackA := a.getSmallest()
	_ = a.getSmallest() // B
	a.markUnused(trackA)
	if trackC := a.getSmallest(); trackC != trackA {
		t.Errorf("got ordinal %d, want %d (A's released ordinal)", trackC, trackA)
	}
}

func TestTrackIDRendering(t *testing.T) {
	for _, test := range []struct {
		id   trackID
		want string
	}{
		{trackID{category: "uncategorized", ordinal: 0}, "uncategorized-00"},
		{trackID{category: "critical-path", ordinal: 7}, "critical-path-07"},
		{trackID{category: "uncategorized", ordinal: 123}, "uncategorized-123"},
	} {
		if got := test.id.String(); got != test.want {
			t.Errorf("trackID%v.String() = %q, want %q", test.id, got, test.want)
		}
	}
}
