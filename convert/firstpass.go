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
	"time"

	"github.com/google/buildtrace/event"
)

// Span display cutoffs: analyses and loads shorter than these never earn
// their own timeline entry (unless the critical path claims them).
const (
	longAnalysisCutoff = 50 * time.Millisecond
	longLoadCutoff     = 50 * time.Millisecond
)

// firstPass scans the whole event sequence once before any trace output is
// produced.  Track assignment needs to know, on a SpanStart, whether that
// span will appear in the final trace, but that can depend on information
// only available later in the stream:
//
//  1. short-lived analysis and load spans are filtered on the duration their
//     SpanEnd records;
//  2. action executions are filtered on whether any of their child executor
//     stages ran locally;
//  3. critical-path membership arrives in a single instant event, generally
//     near the end of the log.
//
// So this pass builds up the sets of "interesting" span ids the second pass
// consults.
type firstPass struct {
	longAnalyses           map[event.SpanID]struct{}
	longLoads              map[event.SpanID]struct{}
	localActions           map[event.SpanID]struct{}
	criticalPathActionKeys map[event.ActionKey]struct{}
	criticalPathSpanIDs    map[event.SpanID]struct{}
}

func newFirstPass() *firstPass {
	return &firstPass{
		longAnalyses:           map[event.SpanID]struct{}{},
		longLoads:              map[event.SpanID]struct{}{},
		localActions:           map[event.SpanID]struct{}{},
		criticalPathActionKeys: map[event.ActionKey]struct{}{},
		criticalPathSpanIDs:    map[event.SpanID]struct{}{},
	}
}

func (f *firstPass) handleEvent(ev event.Event) error {
	switch data := ev.Data.(type) {
	case event.SpanStart:
		if stage, ok := data.Payload.(event.ExecutorStageStart); ok {
			// A local stage means the entire action execution is worth
			// showing.
			if stage.Stage.Executor == event.ExecutorLocal {
				f.localActions[ev.Parent] = struct{}{}
			}
		}
	case event.SpanEnd:
		switch data.Payload.(type) {
		case event.AnalysisEnd:
			if data.Duration == nil {
				return &MalformedEventError{Event: ev, Reason: "analysis span end missing duration"}
			}
			if *data.Duration > longAnalysisCutoff {
				f.longAnalyses[ev.Span] = struct{}{}
			}
		case event.LoadEnd:
			if data.Duration == nil {
				return &MalformedEventError{Event: ev, Reason: "load span end missing duration"}
			}
			if *data.Duration > longLoadCutoff {
				f.longLoads[ev.Span] = struct{}{}
			}
		}
	case event.Instant:
		if info, ok := data.Payload.(event.BuildGraphInfo); ok {
			// There is one BuildGraphInfo per build; if several arrive, the
			// last one wins wholesale.
			f.criticalPathActionKeys = make(map[event.ActionKey]struct{}, len(info.CriticalPathActionKeys))
			for _, key := range info.CriticalPathActionKeys {
				f.criticalPathActionKeys[key] = struct{}{}
			}
			f.criticalPathSpanIDs = make(map[event.SpanID]struct{}, len(info.CriticalPathSpanIDs))
			for _, id := range info.CriticalPathSpanIDs {
				f.criticalPathSpanIDs[id] = struct{}{}
			}
		}
	}
	return nil
}
