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

// Package event defines the immutable record type emitted during a build
// invocation, as produced by the event-log reader and consumed by the
// converter.
//
// Each Event carries a wall-clock timestamp and exactly one Data variant:
// the start of a span of work (SpanStart), the end of one (SpanEnd), a
// point-in-time observation (Instant), or an opaque Record.  Span starts and
// ends additionally carry the span's identifier and, where the span was
// spawned by another, its parent's identifier.
//
// Every union in this package is closed, but forward-compatible: an event
// recorded by a newer producer may carry a payload variant this build does
// not know about, which decodes to a nil payload.  Consumers must treat nil
// payloads as "nothing to do", never as errors.
package event

import (
	"time"
)

// SpanID identifies one span of work within a single build invocation.  The
// zero value means "no span"; real span identifiers are always nonzero.
type SpanID uint64

// Event is a single timestamped record from a build's event log.  Events are
// immutable once constructed.
type Event struct {
	// Timestamp is the wall-clock moment the event was recorded.  Within one
	// log, timestamps are monotonically non-decreasing.
	Timestamp time.Time
	// Span is the identifier of the span this event starts or ends, or zero
	// for Instant and Record events.
	Span SpanID
	// Parent is the identifier of the enclosing span, or zero at top level.
	Parent SpanID
	// Data is the event's payload variant.  It is never nil.
	Data Data
}

// Data is the closed union of event kinds.
type Data interface {
	isData()
}

// SpanStart marks the beginning of a span of work.
type SpanStart struct {
	// Payload describes the kind of work starting.  A nil Payload means the
	// variant was produced by a newer event schema than this build knows.
	Payload StartPayload
}

// SpanEnd marks the end of a previously started span.
type SpanEnd struct {
	// Duration is the span's total wall-clock duration as recorded by the
	// producer.  Some span kinds are contractually required to carry it; for
	// those, a nil Duration is a malformed event.
	Duration *time.Duration
	// Payload describes the kind of work ending, nil if unrecognized.
	Payload EndPayload
}

// Instant is a point-in-time observation not tied to any span.
type Instant struct {
	// Payload is the observation, nil if unrecognized.
	Payload InstantPayload
}

// Record is an opaque bookkeeping entry with no timeline meaning.
type Record struct{}

func (SpanStart) isData() {}
func (SpanEnd) isData()   {}
func (Instant) isData()   {}
func (Record) isData()    {}

// StartPayload is the closed union of known span-start kinds.
type StartPayload interface {
	isStartPayload()
}

// CommandStart begins the single root span covering the whole command.
type CommandStart struct{}

// AnalysisStart begins the analysis of one target.
type AnalysisStart struct {
	// Target is the label of the target under analysis.
	Target string
}

// LoadStart begins the load and evaluation of one build file module.
type LoadStart struct {
	// Module identifies the module being loaded.
	Module string
}

// ActionExecutionStart begins the execution of one action.
type ActionExecutionStart struct {
	// Key identifies the action within the build graph.
	Key ActionKey
	// Category is the action's kind, e.g. "cxx_compile".
	Category string
	// Identifier distinguishes the action among its owner's actions of the
	// same category, e.g. an output file name.  May be empty.
	Identifier string
}

// ExecutorStageStart begins one stage of an action execution attempt, e.g.
// queuing for a local slot or downloading from a remote cache.  Stage spans
// are always children of an ActionExecution span.
type ExecutorStageStart struct {
	Stage Stage
}

// FileWatcherStart begins a file-watcher synchronization pause.
type FileWatcherStart struct{}

func (CommandStart) isStartPayload()         {}
func (AnalysisStart) isStartPayload()        {}
func (LoadStart) isStartPayload()            {}
func (ActionExecutionStart) isStartPayload() {}
func (ExecutorStageStart) isStartPayload()   {}
func (FileWatcherStart) isStartPayload()     {}

// EndPayload is the closed union of known span-end kinds.
type EndPayload interface {
	isEndPayload()
}

// CommandEnd ends the root command span.
type CommandEnd struct{}

// AnalysisEnd ends a target analysis span.
type AnalysisEnd struct{}

// LoadEnd ends a module load span.
type LoadEnd struct{}

// ActionExecutionEnd ends an action execution span.
type ActionExecutionEnd struct{}

// ExecutorStageEnd ends an executor stage span.
type ExecutorStageEnd struct{}

// FileWatcherEnd ends a file-watcher synchronization span.
type FileWatcherEnd struct{}

func (CommandEnd) isEndPayload()         {}
func (AnalysisEnd) isEndPayload()        {}
func (LoadEnd) isEndPayload()            {}
func (ActionExecutionEnd) isEndPayload() {}
func (ExecutorStageEnd) isEndPayload()   {}
func (FileWatcherEnd) isEndPayload()     {}

// InstantPayload is the closed union of known instant kinds.
type InstantPayload interface {
	isInstantPayload()
}

// Snapshot is a periodic sample of the build process's resource usage.
// Cumulative fields (CPU time, byte counts) only ever increase within one
// invocation.
type Snapshot struct {
	// MaxRSSBytes is the process's maximum resident set size so far.
	MaxRSSBytes uint64
	// UserCPUMicros and SystemCPUMicros are cumulative CPU time.
	UserCPUMicros   uint64
	SystemCPUMicros uint64
	// IOQueueDepth is the current length of the blocking I/O executor queue.
	IOQueueDepth uint64
	// NetworkInterfaces maps interface names to cumulative traffic counts.
	NetworkInterfaces map[string]InterfaceStats
	// ReUploadBytes and ReDownloadBytes are cumulative remote-execution
	// transfer totals.
	ReUploadBytes   uint64
	ReDownloadBytes uint64
}

// InterfaceStats holds cumulative byte counts for one network interface.
type InterfaceStats struct {
	TxBytes uint64
	RxBytes uint64
}

// BuildGraphInfo announces graph-level facts computed near the end of the
// build, notably the critical path.  There is one per invocation; should a
// log contain several, the last one is authoritative.
type BuildGraphInfo struct {
	// CriticalPathActionKeys are the actions on the critical path.
	CriticalPathActionKeys []ActionKey
	// CriticalPathSpanIDs are the spans on the critical path, covering span
	// kinds (loads, analyses) that action keys cannot name.
	CriticalPathSpanIDs []SpanID
}

func (Snapshot) isInstantPayload()       {}
func (BuildGraphInfo) isInstantPayload() {}

// ActionKey identifies one action in the build graph, independent of any
// particular execution attempt.  ActionKeys are comparable and may be used
// as map keys.
type ActionKey struct {
	// Owner is the label of the configured target the action belongs to.
	Owner string
	// ID distinguishes the action among its owner's actions.
	ID string
}
