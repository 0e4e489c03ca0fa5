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

package chrometrace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a closed JSON-like value: a string, a number, a bool, an ordered
// list, or an ordered mapping.  It is used for the free-form `args` payloads
// of trace records.  Keeping the variant set closed makes serialization
// total: marshaling a Value never fails and never panics.
//
// Unlike a map[string]any, Object preserves insertion order, so marshaled
// output is deterministic and two conversions of the same input are
// byte-identical.
type Value struct {
	kind valueKind
	str  string
	i    int64
	u    uint64
	f    float64
	b    bool
	list []Value
	obj  []Member
}

type valueKind int

const (
	kindNull valueKind = iota
	kindString
	kindInt
	kindUint
	kindFloat
	kindFloat32
	kindBool
	kindArray
	kindObject
)

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// String returns a string Value.
func String(s string) Value { return Value{kind: kindString, str: s} }

// Int returns a signed integer Value.
func Int(i int64) Value { return Value{kind: kindInt, i: i} }

// Uint returns an unsigned integer Value.
func Uint(u uint64) Value { return Value{kind: kindUint, u: u} }

// Float returns a floating-point Value.
func Float(f float64) Value { return Value{kind: kindFloat, f: f} }

// Float32 returns a floating-point Value that marshals with 32-bit
// precision, producing the shortest representation that round-trips through
// a float32.
func Float32(f float32) Value { return Value{kind: kindFloat32, f: float64(f)} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: kindBool, b: b} }

// Array returns an ordered-list Value of the provided elements.
func Array(elements ...Value) Value { return Value{kind: kindArray, list: elements} }

// Object returns an ordered-mapping Value of the provided members.  Members
// marshal in the order given.
func Object(members ...Member) Value { return Value{kind: kindObject, obj: members} }

// Members returns the receiver's members if it is an Object, else nil.
func (v Value) Members() []Member {
	return v.obj
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.encode(&buf)
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) {
	switch v.kind {
	case kindString:
		b, _ := json.Marshal(v.str)
		buf.Write(b)
	case kindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case kindUint:
		buf.WriteString(strconv.FormatUint(v.u, 10))
	case kindFloat:
		b, err := json.Marshal(v.f)
		if err != nil {
			// NaN or infinity, which JSON cannot carry.  Clamp to null
			// rather than corrupting the document.
			buf.WriteString("null")
			return
		}
		buf.Write(b)
	case kindFloat32:
		b, err := json.Marshal(float32(v.f))
		if err != nil {
			buf.WriteString("null")
			return
		}
		buf.Write(b)
	case kindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case kindArray:
		buf.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.encode(buf)
		}
		buf.WriteByte(']')
	case kindObject:
		buf.WriteByte('{')
		for i, m := range v.obj {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(m.Key)
			buf.Write(k)
			buf.WriteByte(':')
			m.Value.encode(buf)
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
}

// GoString aids debugging output in test failures.
func (v Value) GoString() string {
	b, _ := v.MarshalJSON()
	return fmt.Sprintf("chrometrace.Value(%s)", b)
}
