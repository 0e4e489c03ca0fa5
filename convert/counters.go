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
	"sort"
	"time"

	"github.com/google/buildtrace/chrometrace"
	"github.com/google/buildtrace/event"
)

// bucketDuration is the window over which counter updates coalesce into one
// emitted sample.
const bucketDuration = 10 * time.Millisecond

// number constrains the value types counter series support.
type number interface {
	int32 | uint64 | float32 | float64
}

// simpleCounters accumulates a family of numeric timeseries under one
// counter name, emitting at most one sample per bucketDuration.
//
// A key whose last emitted value equals the series' start value is
// suppressed: it is dropped from subsequent samples until it changes again,
// which keeps long idle stretches out of the output.  When a suppressed (or
// never-seen) key comes alive, its start value is first emitted one
// microsecond before the change, so that viewers do not interpolate a ramp
// from the last time the key was emitted.
type simpleCounters[T number] struct {
	name string
	// nextFlush is the timestamp the next emitted sample will carry.  The
	// zero value means no timestamp has been processed yet.
	nextFlush time.Time
	// counters holds each key's current value; nil marks a suppressed zero.
	counters   map[string]*T
	startValue T
	records    []chrometrace.Record
}

func newSimpleCounters[T number](name string, startValue T) *simpleCounters[T] {
	return &simpleCounters[T]{
		name:       name,
		counters:   map[string]*T{},
		startValue: startValue,
	}
}

// processTimestamp flushes if the incoming timestamp has moved past the
// current bucket, collapsing any idle gap rather than emitting a dense run
// of unchanged samples.
func (c *simpleCounters[T]) processTimestamp(timestamp time.Time) {
	if c.nextFlush.IsZero() {
		c.nextFlush = timestamp.Add(bucketDuration)
	}
	if timestamp.After(c.nextFlush.Add(bucketDuration)) {
		c.flush()
		c.nextFlush = timestamp.Add(-time.Microsecond)
	}
}

// initializeFirstEntryIfNeeded returns the value stored at key, first
// installing and flushing the start value if the key is new or suppressed.
func (c *simpleCounters[T]) initializeFirstEntryIfNeeded(timestamp time.Time, key string) T {
	if v, ok := c.counters[key]; ok && v != nil {
		if timestamp.After(c.nextFlush) {
			c.flush()
			c.nextFlush = timestamp.Add(bucketDuration)
		}
		return *v
	}
	// The counter is coming alive: emit its start value immediately before
	// the change so the line graph steps rather than ramps.
	c.nextFlush = timestamp.Add(-time.Microsecond)
	start := c.startValue
	c.counters[key] = &start
	c.flush()
	c.nextFlush = timestamp
	return c.startValue
}

func (c *simpleCounters[T]) set(timestamp time.Time, key string, amount T) {
	c.processTimestamp(timestamp)
	c.counters[key] = &amount
}

func (c *simpleCounters[T]) bump(timestamp time.Time, key string, amount T) {
	c.processTimestamp(timestamp)
	v := c.initializeFirstEntryIfNeeded(timestamp, key) + amount
	c.counters[key] = &v
}

func (c *simpleCounters[T]) subtract(timestamp time.Time, key string, amount T) {
	c.processTimestamp(timestamp)
	v := c.initializeFirstEntryIfNeeded(timestamp, key) - amount
	c.counters[key] = &v
}

// flush emits one counter record holding every non-suppressed key, then
// suppresses the keys that have returned to the start value.  Keys are
// emitted in sorted order so repeated conversions of the same input produce
// identical bytes.
func (c *simpleCounters[T]) flush() {
	keys := make([]string, 0, len(c.counters))
	for key := range c.counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var members []chrometrace.Member
	for _, key := range keys {
		v := c.counters[key]
		if v == nil {
			continue
		}
		members = append(members, chrometrace.Member{Key: key, Value: counterValue(*v)})
		if *v == c.startValue {
			c.counters[key] = nil
		}
	}

	c.records = append(c.records, chrometrace.CounterEvent{
		Name:            c.name,
		ProcessID:       0,
		ThreadID:        chrometrace.CounterThread,
		Phase:           chrometrace.PhaseCounter,
		TimestampMicros: epochMicros(c.nextFlush),
		Args:            chrometrace.Object(members...),
	})
	c.nextFlush = c.nextFlush.Add(bucketDuration)
}

// flushAllTo performs a final flush and appends the series' accumulated
// records to out.
func (c *simpleCounters[T]) flushAllTo(out *[]chrometrace.Record) {
	c.flush()
	*out = append(*out, c.records...)
	c.records = nil
}

func counterValue[T number](v T) chrometrace.Value {
	switch x := any(v).(type) {
	case int32:
		return chrometrace.Int(int64(x))
	case uint64:
		return chrometrace.Uint(x)
	case float32:
		return chrometrace.Float32(x)
	default:
		return chrometrace.Float(any(v).(float64))
	}
}

// epochMicros converts a timestamp to microseconds since the Unix epoch,
// clamping the uninitialized zero time to zero.
func epochMicros(t time.Time) uint64 {
	us := t.UnixMicro()
	if us < 0 {
		return 0
	}
	return uint64(us)
}

// spanCounters derives "N in flight" gauges purely from span open/close
// pairing: a bump registered when a span opens is automatically subtracted
// when that span closes.
type spanCounters struct {
	counter *simpleCounters[int32]
	// openSpans records how currently open spans contribute to the gauges.
	openSpans map[event.SpanID]spanContribution
}

type spanContribution struct {
	key    string
	amount int32
}

func newSpanCounters(name string) *spanCounters {
	return &spanCounters{
		counter:   newSimpleCounters[int32](name, 0),
		openSpans: map[event.SpanID]spanContribution{},
	}
}

// bumpCounterWhileSpan raises key by amount for the lifetime of the event's
// span.
func (s *spanCounters) bumpCounterWhileSpan(ev event.Event, key string, amount int32) {
	s.openSpans[ev.Span] = spanContribution{key: key, amount: amount}
	s.counter.bump(ev.Timestamp, key, amount)
}

// handleSpanEnd resolves any contribution registered for the ending span.
func (s *spanCounters) handleSpanEnd(ev event.Event) {
	if contribution, ok := s.openSpans[ev.Span]; ok {
		delete(s.openSpans, ev.Span)
		s.counter.subtract(ev.Timestamp, contribution.key, contribution.amount)
	}
}

// averageRateOfChangeCounters plots the per-second rate of change of
// cumulative quantities, such as total CPU microseconds or bytes
// transferred.
type averageRateOfChangeCounters struct {
	counters *simpleCounters[float32]
	previous map[string]timestampAndAmount
}

type timestampAndAmount struct {
	timestamp time.Time
	amount    uint64
}

func newAverageRateOfChangeCounters(name string) *averageRateOfChangeCounters {
	return &averageRateOfChangeCounters{
		counters: newSimpleCounters[float32](name, 0),
		previous: map[string]timestampAndAmount{},
	}
}

// setAverageRateOfChangePerS records a new cumulative sample for key.  The
// first sample of a key only establishes the reference point and emits
// nothing.
func (a *averageRateOfChangeCounters) setAverageRateOfChangePerS(timestamp time.Time, key string, amount uint64) {
	if previous, ok := a.previous[key]; ok {
		secs := timestamp.Sub(previous.timestamp).Seconds()
		if secs > 0 {
			rate := (float64(amount) - float64(previous.amount)) / secs
			a.counters.set(timestamp, key, float32(rate))
		}
	}
	a.previous[key] = timestampAndAmount{timestamp: timestamp, amount: amount}
}
