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

// Executor enumerates where an action execution attempt ran.
type Executor int

const (
	// ExecutorUnspecified covers stages not tied to a particular executor,
	// such as input preparation.
	ExecutorUnspecified Executor = iota
	// ExecutorLocal is execution on the building machine.
	ExecutorLocal
	// ExecutorRemote is execution on a remote execution service.
	ExecutorRemote
)

// Stage describes one phase of an action execution attempt.
type Stage struct {
	// Executor is where this stage ran.
	Executor Executor
	// Phase names the stage within its executor, e.g. "queue", "exec",
	// "upload", "download".
	Phase string
}

// String returns the stage's human-readable display name, e.g. "local_exec"
// or "re_download".  Stages with no executor render as their bare phase.
func (s Stage) String() string {
	switch s.Executor {
	case ExecutorLocal:
		return "local_" + s.Phase
	case ExecutorRemote:
		return "re_" + s.Phase
	default:
		return s.Phase
	}
}
