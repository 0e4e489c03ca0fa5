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

// buildtrace converts a recorded build event log into a Chrome-Trace-format
// JSON file loadable by any standard trace viewer.
package main

import (
	"github.com/google/buildtrace/cmd/buildtrace/cmd"
)

func main() {
	cmd.Execute()
}
