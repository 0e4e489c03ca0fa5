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

package event

import (
	"strings"

	"github.com/google/uuid"
)

// Invocation is the metadata record accompanying each event log: one per
// recorded command.
type Invocation struct {
	// CommandLineArgs is the original argument list of the recorded command.
	CommandLineArgs []string
	// TraceID uniquely identifies the invocation.
	TraceID uuid.UUID
}

// CommandLine returns the invocation's arguments joined for display.
func (i Invocation) CommandLine() string {
	return strings.Join(i.CommandLineArgs, " ")
}
