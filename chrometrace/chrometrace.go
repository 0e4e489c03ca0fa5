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

// Package chrometrace defines the subset of the Chrome Trace Event JSON
// format emitted by this module, and the free-form Value payload attached to
// records.  Any conforming trace viewer renders documents produced here
// without modification.
//
// https://docs.google.com/document/d/1CvAClvFfyA5R-PhYUmn5OOQtYMH4h6I0nSsKchNAySU
package chrometrace

import (
	"encoding/json"
	"fmt"
	"io"
)

// Phase values used by this module.
const (
	// PhaseComplete marks a complete event: one record carrying both a start
	// timestamp and a duration.
	PhaseComplete = "X"
	// PhaseCounter marks a counter sample.
	PhaseCounter = "C"
)

// CounterThread is the tid shared by all counter records.
const CounterThread = "counters"

// Record is a single element of a trace document's traceEvents array.
type Record interface {
	isRecord()
}

// CompleteEvent is one closed span on the timeline.
type CompleteEvent struct {
	Name string `json:"name"`
	// TimestampMicros is the span's start, in microseconds since the epoch.
	TimestampMicros uint64 `json:"ts"`
	// DurationMicros is the span's wall-clock duration in microseconds.
	DurationMicros uint64 `json:"dur"`
	Phase          string `json:"ph"`
	ProcessID      uint64 `json:"pid"`
	// ThreadID is the rendered track identifier, e.g. "critical-path-00".
	ThreadID string `json:"tid"`
	// Categories is a comma-joined category list.
	Categories string `json:"cat"`
	Args       Value  `json:"args"`
}

// CounterEvent is one sample of a named counter series.
type CounterEvent struct {
	Name      string `json:"name"`
	ProcessID uint64 `json:"pid"`
	ThreadID  string `json:"tid"`
	Phase     string `json:"ph"`
	// TimestampMicros is the sample time in microseconds since the epoch.
	TimestampMicros uint64 `json:"ts"`
	// Args maps counter keys to values.  Keys whose value is suppressed are
	// omitted entirely.
	Args Value `json:"args"`
}

func (CompleteEvent) isRecord() {}
func (CounterEvent) isRecord()  {}

// Document is a complete trace file: the JSON object trace viewers load.
type Document struct {
	TraceEvents []Record `json:"traceEvents"`
}

// Write serializes the document to w as a single JSON object.
func (d *Document) Write(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(d); err != nil {
		return fmt.Errorf("writing trace document: %w", err)
	}
	return nil
}
