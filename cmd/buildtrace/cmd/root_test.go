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

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/buildtrace/eventlog"
)

func TestResolveTracePath(t *testing.T) {
	dir := t.TempDir()

	got, err := resolveTracePath(filepath.Join(dir, "out.trace"), "/logs/build.json-lines")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.trace"), got)

	got, err = resolveTracePath(dir, "/logs/build"+eventlog.CompressedLogSuffix)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "build.trace"), got)

	got, err = resolveTracePath(dir, "/logs/build"+eventlog.LogSuffix)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "build.trace"), got)

	_, err = resolveTracePath(dir, "/logs/"+eventlog.LogSuffix)
	assert.Error(t, err)
}

func TestWriteTrace(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.trace")

	require.NoError(t, writeTrace(dest, &eventlog.Log{}))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"traceEvents":[`), "unexpected document: %s", data)

	// No temporary file survives a successful write.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.trace", entries[0].Name())
}
