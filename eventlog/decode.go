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

package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/buildtrace/event"
)

// oneof is a single-key JSON object naming a payload variant.  Unknown keys
// are tolerated: the variant simply decodes to nil.
type oneof map[string]json.RawMessage

type rawEvent struct {
	TimestampMicros int64  `json:"ts_us"`
	SpanID          uint64 `json:"span_id"`
	ParentID        uint64 `json:"parent_id"`
	SpanStart       oneof  `json:"span_start"`
	SpanEnd         oneof  `json:"span_end"`
	Instant         oneof  `json:"instant"`
	Record          oneof  `json:"record"`
}

func parseEvent(line []byte) (event.Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return event.Event{}, fmt.Errorf("parsing event record: %w", err)
	}

	ev := event.Event{
		Timestamp: time.UnixMicro(raw.TimestampMicros).UTC(),
		Span:      event.SpanID(raw.SpanID),
		Parent:    event.SpanID(raw.ParentID),
	}

	switch {
	case raw.SpanStart != nil:
		payload, err := decodeStartPayload(raw.SpanStart)
		if err != nil {
			return event.Event{}, err
		}
		ev.Data = event.SpanStart{Payload: payload}
	case raw.SpanEnd != nil:
		data, err := decodeSpanEnd(raw.SpanEnd)
		if err != nil {
			return event.Event{}, err
		}
		ev.Data = data
	case raw.Instant != nil:
		payload, err := decodeInstantPayload(raw.Instant)
		if err != nil {
			return event.Event{}, err
		}
		ev.Data = event.Instant{Payload: payload}
	case raw.Record != nil:
		ev.Data = event.Record{}
	default:
		return event.Event{}, fmt.Errorf("event record carries no kind")
	}
	return ev, nil
}

func decodeStartPayload(variants oneof) (event.StartPayload, error) {
	if has(variants, "command") {
		return event.CommandStart{}, nil
	}
	if raw, ok := variants["analysis"]; ok {
		var p struct {
			Target string `json:"target"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parsing analysis start: %w", err)
		}
		return event.AnalysisStart{Target: p.Target}, nil
	}
	if raw, ok := variants["load"]; ok {
		var p struct {
			Module string `json:"module"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parsing load start: %w", err)
		}
		return event.LoadStart{Module: p.Module}, nil
	}
	if raw, ok := variants["action_execution"]; ok {
		var p struct {
			Key        rawActionKey `json:"key"`
			Category   string       `json:"category"`
			Identifier string       `json:"identifier"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parsing action execution start: %w", err)
		}
		return event.ActionExecutionStart{
			Key:        event.ActionKey{Owner: p.Key.Owner, ID: p.Key.ID},
			Category:   p.Category,
			Identifier: p.Identifier,
		}, nil
	}
	if raw, ok := variants["executor_stage"]; ok {
		var p struct {
			Executor string `json:"executor"`
			Phase    string `json:"phase"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parsing executor stage start: %w", err)
		}
		return event.ExecutorStageStart{Stage: event.Stage{
			Executor: parseExecutor(p.Executor),
			Phase:    p.Phase,
		}}, nil
	}
	if has(variants, "file_watcher") {
		return event.FileWatcherStart{}, nil
	}
	// Newer schema than this build; nothing to decode.
	return nil, nil
}

func decodeSpanEnd(variants oneof) (event.SpanEnd, error) {
	end := event.SpanEnd{}
	if raw, ok := variants["duration_us"]; ok {
		var us int64
		if err := json.Unmarshal(raw, &us); err != nil {
			return event.SpanEnd{}, fmt.Errorf("parsing span end duration: %w", err)
		}
		d := time.Duration(us) * time.Microsecond
		end.Duration = &d
	}

	switch {
	case has(variants, "command"):
		end.Payload = event.CommandEnd{}
	case has(variants, "analysis"):
		end.Payload = event.AnalysisEnd{}
	case has(variants, "load"):
		end.Payload = event.LoadEnd{}
	case has(variants, "action_execution"):
		end.Payload = event.ActionExecutionEnd{}
	case has(variants, "executor_stage"):
		end.Payload = event.ExecutorStageEnd{}
	case has(variants, "file_watcher"):
		end.Payload = event.FileWatcherEnd{}
	}
	return end, nil
}

func decodeInstantPayload(variants oneof) (event.InstantPayload, error) {
	if raw, ok := variants["snapshot"]; ok {
		var p struct {
			MaxRSSBytes       uint64                 `json:"max_rss_bytes"`
			UserCPUMicros     uint64                 `json:"user_cpu_us"`
			SystemCPUMicros   uint64                 `json:"system_cpu_us"`
			IOQueueDepth      uint64                 `json:"io_queue_depth"`
			NetworkInterfaces map[string]rawNICStats `json:"network_interfaces"`
			ReUploadBytes     uint64                 `json:"re_upload_bytes"`
			ReDownloadBytes   uint64                 `json:"re_download_bytes"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parsing snapshot: %w", err)
		}
		snapshot := event.Snapshot{
			MaxRSSBytes:     p.MaxRSSBytes,
			UserCPUMicros:   p.UserCPUMicros,
			SystemCPUMicros: p.SystemCPUMicros,
			IOQueueDepth:    p.IOQueueDepth,
			ReUploadBytes:   p.ReUploadBytes,
			ReDownloadBytes: p.ReDownloadBytes,
		}
		if len(p.NetworkInterfaces) > 0 {
			snapshot.NetworkInterfaces = make(map[string]event.InterfaceStats, len(p.NetworkInterfaces))
			for nic, stats := range p.NetworkInterfaces {
				snapshot.NetworkInterfaces[nic] = event.InterfaceStats{
					TxBytes: stats.TxBytes,
					RxBytes: stats.RxBytes,
				}
			}
		}
		return snapshot, nil
	}
	if raw, ok := variants["build_graph_info"]; ok {
		var p struct {
			CriticalPathActionKeys []rawActionKey `json:"critical_path_action_keys"`
			CriticalPathSpanIDs    []uint64       `json:"critical_path_span_ids"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parsing build graph info: %w", err)
		}
		info := event.BuildGraphInfo{}
		for _, key := range p.CriticalPathActionKeys {
			info.CriticalPathActionKeys = append(info.CriticalPathActionKeys,
				event.ActionKey{Owner: key.Owner, ID: key.ID})
		}
		for _, id := range p.CriticalPathSpanIDs {
			info.CriticalPathSpanIDs = append(info.CriticalPathSpanIDs, event.SpanID(id))
		}
		return info, nil
	}
	return nil, nil
}

type rawActionKey struct {
	Owner string `json:"owner"`
	ID    string `json:"id"`
}

type rawNICStats struct {
	TxBytes uint64 `json:"tx_bytes"`
	RxBytes uint64 `json:"rx_bytes"`
}

func parseExecutor(s string) event.Executor {
	switch s {
	case "local":
		return event.ExecutorLocal
	case "remote":
		return event.ExecutorRemote
	default:
		return event.ExecutorUnspecified
	}
}

func has(variants oneof, key string) bool {
	_, ok := variants[key]
	return ok
}
