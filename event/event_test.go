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

import "testing"

func TestStageString(t *testing.T) {
	for _, tc := range []struct {
		stage Stage
		want  string
	}{
		{stage: Stage{Executor: ExecutorLocal, Phase: "execute"}, want: "local_execute"},
		{stage: Stage{Executor: ExecutorRemote, Phase: "queue"}, want: "re_queue"},
		{stage: Stage{Executor: ExecutorUnspecified, Phase: "prepare"}, want: "prepare"},
	} {
		if got := tc.stage.String(); got != tc.want {
			t.Errorf("Stage%+v.String() = %q, want %q", tc.stage, got, tc.want)
		}
	}
}

func TestInvocationCommandLine(t *testing.T) {
	inv := Invocation{CommandLineArgs: []string{"buildtrace", "build", "//app:bin"}}
	if got, want := inv.CommandLine(), "buildtrace build //app:bin"; got != want {
		t.Errorf("CommandLine() = %q, want %q", got, want)
	}
	if got := (Invocation{}).CommandLine(); got != "" {
		t.Errorf("empty CommandLine() = %q, want empty", got)
	}
}
