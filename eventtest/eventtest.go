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

// Package eventtest provides a compact builder for the event sequences used
// throughout this module's tests, so that test scenarios read as a timeline
// rather than as struct-literal noise.
package eventtest

import (
	"time"

	"github.com/google/buildtrace/event"
)

// Epoch is the default start time of built sequences.  An arbitrary fixed
// moment keeps expected timestamps stable across test runs.
var Epoch = time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)

// Builder accumulates an event sequence.  The builder maintains a current
// time that only moves forward, mirroring the non-decreasing timestamp
// contract of real logs.
type Builder struct {
	now      time.Time
	nextSpan event.SpanID
	events   []event.Event
}

// NewBuilder returns a Builder whose clock starts at Epoch.
func NewBuilder() *Builder {
	return &Builder{now: Epoch, nextSpan: 1}
}

// At advances the builder's clock to d past Epoch.  It panics if that would
// move time backwards, since such a sequence would be invalid input.
func (b *Builder) At(d time.Duration) *Builder {
	t := Epoch.Add(d)
	if t.Before(b.now) {
		panic("eventtest: timestamps must be non-decreasing")
	}
	b.now = t
	return b
}

// NextSpanID reserves and returns a fresh span identifier.
func (b *Builder) NextSpanID() event.SpanID {
	id := b.nextSpan
	b.nextSpan++
	return id
}

// Start appends a SpanStart for a fresh span and returns its identifier.
func (b *Builder) Start(payload event.StartPayload) event.SpanID {
	return b.StartChild(0, payload)
}

// StartChild appends a SpanStart for a fresh span under parent and returns
// the new span's identifier.
func (b *Builder) StartChild(parent event.SpanID, payload event.StartPayload) event.SpanID {
	id := b.NextSpanID()
	b.events = append(b.events, event.Event{
		Timestamp: b.now,
		Span:      id,
		Parent:    parent,
		Data:      event.SpanStart{Payload: payload},
	})
	return id
}

// End appends a SpanEnd for span with the provided duration and payload.
func (b *Builder) End(span event.SpanID, duration time.Duration, payload event.EndPayload) {
	b.events = append(b.events, event.Event{
		Timestamp: b.now,
		Span:      span,
		Data:      event.SpanEnd{Duration: &duration, Payload: payload},
	})
}

// EndWithoutDuration appends a SpanEnd lacking its duration field, for
// malformed-input tests.
func (b *Builder) EndWithoutDuration(span event.SpanID, payload event.EndPayload) {
	b.events = append(b.events, event.Event{
		Timestamp: b.now,
		Span:      span,
		Data:      event.SpanEnd{Payload: payload},
	})
}

// Instant appends an Instant event.
func (b *Builder) Instant(payload event.InstantPayload) {
	b.events = append(b.events, event.Event{
		Timestamp: b.now,
		Data:      event.Instant{Payload: payload},
	})
}

// Record appends an opaque Record event.
func (b *Builder) Record() {
	b.events = append(b.events, event.Event{
		Timestamp: b.now,
		Data:      event.Record{},
	})
}

// Events returns the accumulated sequence.
func (b *Builder) Events() []event.Event {
	return b.events
}

// Invocation returns a fixed invocation record for tests.
func Invocation(args ...string) event.Invocation {
	return event.Invocation{CommandLineArgs: args}
}
