// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package message

// DeltaKind tags a StreamDelta's payload (spec.md §3).
type DeltaKind string

const (
	DeltaText      DeltaKind = "text"
	DeltaReasoning DeltaKind = "reasoning"
	DeltaToolCall  DeltaKind = "tool_call"
	DeltaUsage     DeltaKind = "usage"
	DeltaDone      DeltaKind = "done"
)

// ToolCallFragment is one incremental slice of a tool call as it streams
// in. Index is the stable correlation key within the response; ID and
// Name arrive at least once, ArgsChunk accumulates into the final JSON
// argument string.
type ToolCallFragment struct {
	Index     int
	ID        string
	Name      string
	ArgsChunk string
}

// Usage reports token accounting for the just-completed call.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	ReasoningTokens int
}

// StreamDelta is one event emitted while reading a streaming completion.
type StreamDelta struct {
	Kind DeltaKind

	Text           string
	ReasoningChunk string
	ToolCall       *ToolCallFragment
	Usage          *Usage
}

// ToolDefinition describes one tool's calling contract to the provider.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
