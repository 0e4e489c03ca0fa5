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

// Package eventlog reads recorded build-event logs.
//
// A log is newline-delimited JSON: the first line is the invocation metadata
// record, and every following line is one event.  Logs with a ".gz" suffix
// are gzip-compressed.  Event payload variants are open-ended: a line whose
// variant this build does not recognize decodes to an unrecognized payload,
// which downstream consumers ignore.  Lines that are not valid JSON at all
// are reported and skipped, so one corrupt record does not lose a whole log.
package eventlog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/google/buildtrace/event"
)

// LogSuffix and CompressedLogSuffix name the file extensions event logs are
// written under.
const (
	LogSuffix           = ".json-lines"
	CompressedLogSuffix = ".json-lines.gz"
)

// maxLineBytes bounds a single log line.  Command lines and critical paths
// can get large, but not this large.
const maxLineBytes = 16 * 1024 * 1024

// Log is a fully read event log.
type Log struct {
	Invocation event.Invocation
	Events     []event.Event
}

// Reader reads event logs.
type Reader struct {
	logger *zap.Logger
}

// NewReader returns a Reader reporting skipped records to the provided
// logger.
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

// Open reads the log at path, transparently decompressing ".gz" files.
func (r *Reader) Open(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing event log %q: %w", path, err)
		}
		defer gz.Close()
		src = gz
	}
	return r.Read(src)
}

// Read reads one complete log from src.
func (r *Reader) Read(src io.Reader) (*Log, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading event log: %w", err)
		}
		return nil, fmt.Errorf("event log is empty: missing invocation record")
	}
	invocation, err := parseInvocation(scanner.Bytes())
	if err != nil {
		return nil, err
	}

	log := &Log{Invocation: invocation}
	line := 1
	for scanner.Scan() {
		line++
		ev, err := parseEvent(scanner.Bytes())
		if err != nil {
			r.logger.Warn("skipping unreadable event record",
				zap.Int("line", line),
				zap.Error(err))
			continue
		}
		log.Events = append(log.Events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading event log: %w", err)
	}
	return log, nil
}

// MostRecentLog returns the path of the newest event log under dir.
func MostRecentLog(dir string) (string, error) {
	return NthRecentLog(dir, 0)
}

// NthRecentLog returns the path of the Nth newest event log under dir;
// n = 0 is the most recent.
func NthRecentLog(dir string, n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("invalid log index %d", n)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("listing log directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var logs []candidate
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, LogSuffix) && !strings.HasSuffix(name, CompressedLogSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return "", fmt.Errorf("inspecting log %q: %w", name, err)
		}
		logs = append(logs, candidate{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].modTime.Equal(logs[j].modTime) {
			return logs[i].modTime.After(logs[j].modTime)
		}
		return logs[i].path > logs[j].path
	})
	if n >= len(logs) {
		return "", fmt.Errorf("no event log with index %d in %q (%d logs present)", n, dir, len(logs))
	}
	return logs[n].path, nil
}

type rawInvocation struct {
	CommandLineArgs []string `json:"command_line_args"`
	TraceID         string   `json:"trace_id"`
}

func parseInvocation(line []byte) (event.Invocation, error) {
	var raw rawInvocation
	if err := json.Unmarshal(line, &raw); err != nil {
		return event.Invocation{}, fmt.Errorf("parsing invocation record: %w", err)
	}
	inv := event.Invocation{CommandLineArgs: raw.CommandLineArgs}
	if raw.TraceID != "" {
		id, err := uuid.Parse(raw.TraceID)
		if err != nil {
			return event.Invocation{}, fmt.Errorf("parsing invocation trace id: %w", err)
		}
		inv.TraceID = id
	}
	return inv, nil
}
