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
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/google/buildtrace/event"
	"github.com/google/buildtrace/eventtest"
)

func runFirstPass(t *testing.T, events []event.Event) *firstPass {
	t.Helper()
	pass := newFirstPass()
	for _, ev := range events {
		if err := pass.handleEvent(ev); err != nil {
			t.Fatalf("handleEvent(%v): %v", ev, err)
		}
	}
	return pass
}

func TestFirstPassDurationCutoffIsStrict(t *testing.T) {
	b := eventtest.NewBuilder()
	exactly := b.Start(event.AnalysisStart{Target: "//app:exactly"})
	over := b.Start(event.AnalysisStart{Target: "//app:over"})
	load := b.Start(event.LoadStart{Module: "//lib"})
	b.At(100 * time.Millisecond)
	b.End(exactly, 50*time.Millisecond, event.AnalysisEnd{})
	b.End(over, 50*time.Millisecond+time.Microsecond, event.AnalysisEnd{})
	b.End(load, 50*time.Millisecond, event.LoadEnd{})

	pass := runFirstPass(t, b.Events())

	// The cutoff is exclusive: a span lasting exactly the cutoff stays
	// hidden.
	want := map[event.SpanID]struct{}{over: {}}
	if diff := cmp.Diff(want, pass.longAnalyses); diff != "" {
		t.Errorf("longAnalyses: diff (-want +got) %s", diff)
	}
	if len(pass.longLoads) != 0 {
		t.Errorf("longLoads = %v, want empty", pass.longLoads)
	}
}

func TestFirstPassLongLoad(t *testing.T) {
	b := eventtest.NewBuilder()
	load := b.Start(event.LoadStart{Module: "//lib"})
	b.At(time.Second)
	b.End(load, time.Second, event.LoadEnd{})

	pass := runFirstPass(t, b.Events())

	want := map[event.SpanID]struct{}{load: {}}
	if diff := cmp.Diff(want, pass.longLoads); diff != "" {
		t.Errorf("longLoads: diff (-want +got) %s", diff)
	}
}

func TestFirstPassLocalStageMarksParentAction(t *testing.T) {
	b := eventtest.NewBuilder()
	localAction := b.Start(event.ActionExecutionStart{
		Key:      event.ActionKey{Owner: "//app:bin", ID: "0"},
		Category: "cxx_link",
	})
	remoteAction := b.Start(event.ActionExecutionStart{
		Key:      event.ActionKey{Owner: "//app:lib", ID: "0"},
		Category: "cxx_compile",
	})
	b.StartChild(localAction, event.ExecutorStageStart{
		Stage: event.Stage{Executor: event.ExecutorLocal, Phase: "execute"},
	})
	b.StartChild(remoteAction, event.ExecutorStageStart{
		Stage: event.Stage{Executor: event.ExecutorRemote, Phase: "execute"},
	})

	pass := runFirstPass(t, b.Events())

	want := map[event.SpanID]struct{}{localAction: {}}
	if diff := cmp.Diff(want, pass.localActions); diff != "" {
		t.Errorf("localActions: diff (-want +got) %s", diff)
	}
}

func TestFirstPassLastBuildGraphInfoWins(t *testing.T) {
	b := eventtest.NewBuilder()
	b.Instant(event.BuildGraphInfo{
		CriticalPathActionKeys: []event.ActionKey{{Owner: "//old:target", ID: "0"}},
		CriticalPathSpanIDs:    []event.SpanID{100},
	})
	b.At(time.Second)
	b.Instant(event.BuildGraphInfo{
		CriticalPathActionKeys: []event.ActionKey{{Owner: "//new:target", ID: "1"}},
		CriticalPathSpanIDs:    []event.SpanID{200, 201},
	})

	pass := runFirstPass(t, b.Events())

	wantKeys := map[event.ActionKey]struct{}{{Owner: "//new:target", ID: "1"}: {}}
	if diff := cmp.Diff(wantKeys, pass.criticalPathActionKeys); diff != "" {
		t.Errorf("criticalPathActionKeys: diff (-want +got) %s", diff)
	}
	wantSpans := map[event.SpanID]struct{}{200: {}, 201: {}}
	if diff := cmp.Diff(wantSpans, pass.criticalPathSpanIDs); diff != "" {
		t.Errorf("criticalPathSpanIDs: diff (-want +got) %s", diff)
	}
}

func TestFirstPassMissingDurationIsMalformed(t *testing.T) {
	for _, tc := range []struct {
		name    string
		payload event.EndPayload
	}{
		{name: "analysis", payload: event.AnalysisEnd{}},
		{name: "load", payload: event.LoadEnd{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := eventtest.NewBuilder()
			span := b.Start(event.AnalysisStart{Target: "//app:lib"})
			b.At(time.Second)
			b.EndWithoutDuration(span, tc.payload)

			pass := newFirstPass()
			var err error
			for _, ev := range b.Events() {
				if err = pass.handleEvent(ev); err != nil {
					break
				}
			}
			var malformed *MalformedEventError
			if !errors.As(err, &malformed) {
				t.Fatalf("got error %v, want *MalformedEventError", err)
			}
			if malformed.Event.Span != span {
				t.Errorf("malformed event span = %d, want %d", malformed.Event.Span, span)
			}
		})
	}
}

func TestFirstPassIgnoresUnrecognizedPayloads(t *testing.T) {
	b := eventtest.NewBuilder()
	b.Start(nil)
	b.Instant(nil)
	b.Record()
	span := b.NextSpanID()
	b.EndWithoutDuration(span, nil)

	pass := runFirstPass(t, b.Events())

	if len(pass.longAnalyses)+len(pass.longLoads)+len(pass.localActions) != 0 {
		t.Errorf("unrecognized payloads classified spans: %+v", pass)
	}
}
