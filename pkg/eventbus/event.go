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

// Package eventbus is the typed event stream of spec.md §3/§8 (C8): the
// only egress channel from the inner and outer engines. Consumers (UI
// adapters, the telemetry layer) read it; the core never blocks on
// delivery beyond a best-effort send, and never lets a consumer influence
// control flow (spec.md §9).
package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Kind tags an Event's variant.
type Kind string

const (
	KindTurnStart     Kind = "turn_start"
	KindTextDelta     Kind = "text_delta"
	KindThinkingDelta Kind = "thinking_delta"
	KindUsage         Kind = "usage"
	KindToolCallStart Kind = "tool_call_start"
	KindToolCallEnd   Kind = "tool_call_end"
	KindTextComplete  Kind = "text_complete"
	KindTurnComplete  Kind = "turn_complete"
	KindCancelled     Kind = "cancelled"
	KindCoagentStart  Kind = "coagent_start"
	KindCoagentEnd    Kind = "coagent_end"
)

// CompletionReason mirrors spec.md §3's TurnResult.CompletionReason.
type CompletionReason string

const (
	ReasonTextOnly      CompletionReason = "text_only"
	ReasonTaskComplete  CompletionReason = "task_complete"
	ReasonMaxIterations CompletionReason = "max_iterations"
	ReasonCancelled     CompletionReason = "cancelled"
)

// Event is one entry in the typed event stream. Only the fields relevant
// to Kind are populated; the rest are left zero.
type Event struct {
	ID        string
	Kind      Kind
	Timestamp time.Time

	Agent string // agent name this event originates from (primary or coagent)

	Text           string // TextDelta
	ReasoningChunk string // ThinkingDelta

	Usage struct {
		InputTokens     int
		OutputTokens    int
		ReasoningTokens int
	}

	ToolCallID   string         // ToolCallStart / ToolCallEnd
	ToolName     string         // ToolCallStart / ToolCallEnd
	ToolArgs     map[string]any // ToolCallStart
	ToolOutput   string         // ToolCallEnd
	ToolIsError  bool           // ToolCallEnd
	ToolDuration time.Duration  // ToolCallEnd

	CompletionReason CompletionReason // TurnComplete
	Summary          string           // TurnComplete when reason == task_complete

	Primary string // CoagentStart/CoagentEnd
	Coagent string // CoagentStart/CoagentEnd
}

func newEvent(kind Kind, agent string) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Timestamp: time.Now(), Agent: agent}
}

func TurnStart(agent string) Event { return newEvent(KindTurnStart, agent) }

func TextDelta(agent, text string) Event {
	e := newEvent(KindTextDelta, agent)
	e.Text = text
	return e
}

func ThinkingDelta(agent, chunk string) Event {
	e := newEvent(KindThinkingDelta, agent)
	e.ReasoningChunk = chunk
	return e
}

func UsageEvent(agent string, input, output, reasoning int) Event {
	e := newEvent(KindUsage, agent)
	e.Usage.InputTokens = input
	e.Usage.OutputTokens = output
	e.Usage.ReasoningTokens = reasoning
	return e
}

func ToolCallStart(agent, id, name string, args map[string]any) Event {
	e := newEvent(KindToolCallStart, agent)
	e.ToolCallID, e.ToolName, e.ToolArgs = id, name, args
	return e
}

func ToolCallEnd(agent, id, name, output string, isErr bool, dur time.Duration) Event {
	e := newEvent(KindToolCallEnd, agent)
	e.ToolCallID, e.ToolName, e.ToolOutput, e.ToolIsError, e.ToolDuration = id, name, output, isErr, dur
	return e
}

func TextComplete(agent string) Event { return newEvent(KindTextComplete, agent) }

func TurnComplete(agent string, reason CompletionReason, summary string) Event {
	e := newEvent(KindTurnComplete, agent)
	e.CompletionReason = reason
	e.Summary = summary
	return e
}

func Cancelled(agent string) Event { return newEvent(KindCancelled, agent) }

func CoagentStart(primary, coagent string) Event {
	e := newEvent(KindCoagentStart, primary)
	e.Primary, e.Coagent = primary, coagent
	return e
}

func CoagentEnd(primary, coagent string) Event {
	e := newEvent(KindCoagentEnd, primary)
	e.Primary, e.Coagent = primary, coagent
	return e
}
