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

// Package convert turns a recorded build-event sequence into a Chrome Trace
// document.
//
// Conversion makes two forward passes over the same sequence.  The first
// pass classifies which spans are interesting enough to display, since that
// can depend on events later in the stream (a span's recorded duration, or
// the critical path, which is announced once near the end of the log).  The
// second pass tracks open spans, assigns them to non-overlapping display
// tracks, and accumulates resource counters, emitting one trace record per
// closed displayable span plus time-bucketed counter samples.
//
// A conversion is a pure batch transform: it owns its span tables, track
// allocators, and counter state exclusively, runs on one goroutine, and
// produces byte-identical output for identical input.
package convert

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/buildtrace/chrometrace"
	"github.com/google/buildtrace/event"
)

// Display categories.  Each category groups tracks in the viewer; membership
// also encodes why a span was deemed worth showing.
const (
	categoryUncategorized = "uncategorized"
	categoryCriticalPath  = "critical-path"
)

// fixedCategory is the `cat` field stamped on every complete event.
const fixedCategory = "buildtrace"

const bytesPerGigabyte = 1000000000.0

// MalformedEventError reports an input event that violates the event-log
// contract, such as a span end without its required duration.  The offending
// event is attached for diagnosis.
type MalformedEventError struct {
	Event  event.Event
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event (span %d at %s): %s",
		e.Event.Span, e.Event.Timestamp.Format(time.RFC3339Nano), e.Reason)
}

// Convert runs the full two-pass conversion over events and writes the
// resulting trace document to out.  Any malformed event aborts the whole
// conversion; nothing partial of value is produced.
func Convert(invocation event.Invocation, events []event.Event, out io.Writer) error {
	pass := newFirstPass()
	for _, ev := range events {
		if err := pass.handleEvent(ev); err != nil {
			return err
		}
	}
	w := newWriter(invocation, pass)
	for _, ev := range events {
		if err := w.handleEvent(ev); err != nil {
			return err
		}
	}
	return w.writeTo(out)
}

// openSpan is a span that has started and will be emitted when it ends.  If
// its end never arrives it is silently dropped; that is the accepted
// behavior for spans still open when the log stops, not an error.
type openSpan struct {
	name       string
	start      time.Time
	processID  uint64
	track      trackAssignment
	categories []string
	// args is small unstructured per-span data.
	args chrometrace.Value
}

// writer is the stateful second pass.
type writer struct {
	records    []chrometrace.Record
	openSpans  map[event.SpanID]openSpan
	invocation event.Invocation
	pass       *firstPass
	allocators map[string]*trackAllocator

	spanCounters *spanCounters
	// Gauges and rates fed by periodic resource snapshots.
	snapshotCounters *simpleCounters[uint64]
	maxRSSGigabytes  *simpleCounters[float64]
	rateOfChange     *averageRateOfChangeCounters
}

func newWriter(invocation event.Invocation, pass *firstPass) *writer {
	return &writer{
		openSpans:        map[event.SpanID]openSpan{},
		invocation:       invocation,
		pass:             pass,
		allocators:       map[string]*trackAllocator{},
		spanCounters:     newSpanCounters("spans"),
		snapshotCounters: newSimpleCounters[uint64]("snapshot_counters", 0),
		maxRSSGigabytes:  newSimpleCounters[float64]("max_rss", 0),
		rateOfChange:     newAverageRateOfChangeCounters("rate_of_change_counters"),
	}
}

// assignTrackForSpan puts the span on its parent's track when the parent is
// itself on display, and otherwise allocates the smallest free track of the
// requested category.
func (w *writer) assignTrackForSpan(trackKey string, ev event.Event) trackAssignment {
	if parent, ok := w.openSpans[ev.Parent]; ok {
		return trackAssignment{id: parent.track.id, inherited: true}
	}
	allocator, ok := w.allocators[trackKey]
	if !ok {
		allocator = &trackAllocator{}
		w.allocators[trackKey] = allocator
	}
	return trackAssignment{id: trackID{category: trackKey, ordinal: allocator.getSmallest()}}
}

func (w *writer) openNamedSpan(ev event.Event, name, trackKey string) {
	w.openSpans[ev.Span] = openSpan{
		name:       name,
		start:      ev.Timestamp,
		processID:  0,
		track:      w.assignTrackForSpan(trackKey, ev),
		categories: []string{fixedCategory},
		args: chrometrace.Object(
			chrometrace.Member{Key: "span_id", Value: chrometrace.Uint(uint64(ev.Span))},
		),
	}
}

func (w *writer) handleEvent(ev event.Event) error {
	switch data := ev.Data.(type) {
	case event.SpanStart:
		if data.Payload == nil {
			// Produced by a newer event schema than this build knows;
			// nothing to display.
			return nil
		}
		w.handleSpanStart(ev, data.Payload)
	case event.SpanEnd:
		return w.handleSpanEnd(ev, data)
	case event.Instant:
		if snapshot, ok := data.Payload.(event.Snapshot); ok {
			w.handleSnapshot(ev.Timestamp, snapshot)
		}
	case event.Record:
	}
	return nil
}

// handleSpanStart decides whether the starting span earns a timeline entry,
// and under which name and category.  The match order below is deliberate:
// critical-path membership outranks the duration heuristics.
func (w *writer) handleSpanStart(ev event.Event, payload event.StartPayload) {
	_, onCriticalPath := w.pass.criticalPathSpanIDs[ev.Span]

	var name, category string
	display := false

	switch p := payload.(type) {
	case event.CommandStart:
		// The single root span, always shown.
		name = w.invocation.CommandLine()
		category = categoryUncategorized
		display = true
	case event.AnalysisStart:
		w.spanCounters.bumpCounterWhileSpan(ev, "analysis", 1)
		if _, long := w.pass.longAnalyses[ev.Span]; onCriticalPath {
			category, display = categoryCriticalPath, true
		} else if long {
			category, display = categoryUncategorized, true
		}
		name = "analysis " + p.Target
	case event.LoadStart:
		w.spanCounters.bumpCounterWhileSpan(ev, "load", 1)
		if _, long := w.pass.longLoads[ev.Span]; onCriticalPath {
			category, display = categoryCriticalPath, true
		} else if long {
			category, display = categoryUncategorized, true
		}
		name = "load " + p.Module
	case event.ActionExecutionStart:
		if _, onKeys := w.pass.criticalPathActionKeys[p.Key]; onKeys || onCriticalPath {
			category, display = categoryCriticalPath, true
		} else if _, local := w.pass.localActions[ev.Span]; local {
			category, display = categoryUncategorized, true
		}
		name = actionIdentity(p)
	case event.ExecutorStageStart:
		stageName := p.Stage.String()
		w.spanCounters.bumpCounterWhileSpan(ev, stageName, 1)
		// A stage only shows while its parent action is on display, on the
		// parent's own track.
		if _, parentOpen := w.openSpans[ev.Parent]; parentOpen {
			name = stageName
			category = categoryUncategorized
			display = true
		}
	case event.FileWatcherStart:
		name = "file_watcher_sync"
		category = categoryCriticalPath
		display = true
	}

	if display {
		w.openNamedSpan(ev, name, category)
	}
}

func (w *writer) handleSpanEnd(ev event.Event, end event.SpanEnd) error {
	w.spanCounters.handleSpanEnd(ev)

	open, ok := w.openSpans[ev.Span]
	if !ok {
		// The span was filtered out at start, or never started; nothing to
		// emit and nothing wrong.
		return nil
	}
	delete(w.openSpans, ev.Span)

	if end.Duration == nil {
		return &MalformedEventError{Event: ev, Reason: "displayable span end missing duration"}
	}
	if !open.track.inherited {
		// Inherited tracks belong to the ancestor; only owners release.
		w.allocators[open.track.id.category].markUnused(open.track.id.ordinal)
	}
	w.records = append(w.records, chrometrace.CompleteEvent{
		Name:            open.name,
		TimestampMicros: epochMicros(open.start),
		DurationMicros:  uint64(end.Duration.Microseconds()),
		Phase:           chrometrace.PhaseComplete,
		ProcessID:       open.processID,
		ThreadID:        open.track.id.String(),
		Categories:      strings.Join(open.categories, ","),
		Args:            open.args,
	})
	return nil
}

func (w *writer) handleSnapshot(ts time.Time, snapshot event.Snapshot) {
	w.maxRSSGigabytes.set(ts, "max_rss_gigabyte", float64(snapshot.MaxRSSBytes)/bytesPerGigabyte)
	w.rateOfChange.setAverageRateOfChangePerS(ts, "average_user_cpu_in_usecs_per_s", snapshot.UserCPUMicros)
	w.rateOfChange.setAverageRateOfChangePerS(ts, "average_system_cpu_in_usecs_per_s", snapshot.SystemCPUMicros)
	w.snapshotCounters.set(ts, "blocking_executor_io_queue_size", snapshot.IOQueueDepth)

	nics := make([]string, 0, len(snapshot.NetworkInterfaces))
	for nic := range snapshot.NetworkInterfaces {
		nics = append(nics, nic)
	}
	sort.Strings(nics)
	for _, nic := range nics {
		stats := snapshot.NetworkInterfaces[nic]
		w.rateOfChange.setAverageRateOfChangePerS(ts, nic+"_send_bytes", stats.TxBytes)
		w.rateOfChange.setAverageRateOfChangePerS(ts, nic+"_receive_bytes", stats.RxBytes)
	}

	w.rateOfChange.setAverageRateOfChangePerS(ts, "re_upload_bytes", snapshot.ReUploadBytes)
	w.rateOfChange.setAverageRateOfChangePerS(ts, "re_download_bytes", snapshot.ReDownloadBytes)
}

// writeTo appends the final counter samples and serializes the document.
func (w *writer) writeTo(out io.Writer) error {
	w.spanCounters.counter.flushAllTo(&w.records)
	w.snapshotCounters.flushAllTo(&w.records)
	w.maxRSSGigabytes.flushAllTo(&w.records)
	w.rateOfChange.counters.flushAllTo(&w.records)

	doc := &chrometrace.Document{TraceEvents: w.records}
	return doc.Write(out)
}

// actionIdentity renders an action's display name from its key and kind.
func actionIdentity(action event.ActionExecutionStart) string {
	parts := []string{action.Key.Owner, action.Category}
	if action.Identifier != "" {
		parts = append(parts, action.Identifier)
	}
	return strings.Join(parts, " ")
}
