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

// Package react is the inner ReAct engine of spec.md §4.5 (C6): one
// bounded turn of stream-then-act iterations against a message history,
// a tool registry, an event sink and a trace guard. Grounded on the
// teacher's reasoning.ChainOfThoughtStrategy iteration hooks
// (pkg/reasoning/chain_of_thought_strategy.go: PrepareIteration/
// ShouldStop/AfterIteration driving a capped loop around one LLM call
// plus tool execution) generalized from the teacher's native-function-
// calling strategy into the full streaming accumulate-then-dispatch loop
// spec.md describes, with doom-loop detection and snapshot integration
// layered on top.
package react

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kadirpekel/crow/pkg/eventbus"
	"github.com/kadirpekel/crow/pkg/message"
	"github.com/kadirpekel/crow/pkg/provider"
	"github.com/kadirpekel/crow/pkg/snapshot"
	"github.com/kadirpekel/crow/pkg/telemetry"
	"github.com/kadirpekel/crow/pkg/toolapi"
	"github.com/kadirpekel/crow/pkg/trace"
)

const defaultMaxIterations = 50

// fileModifyingTools names the tools whose successful execution should
// trigger a post-call snapshot patch (spec.md §4.4/§4.5): today only
// edit_file mutates the working tree.
var fileModifyingTools = map[string]bool{
	"edit_file": true,
}

// ToolCallRecord is one tool invocation made during a turn, kept around
// so the outer orchestrator can humanise the turn (spec.md §4.8) without
// re-deriving it from the event stream.
type ToolCallRecord struct {
	Name     string
	ArgsJSON string
	Output   string
	IsError  bool
	Duration time.Duration
}

// TurnResult is what one Run call returns (spec.md §3 TurnResult).
type TurnResult struct {
	Reason    eventbus.CompletionReason
	Text      string // final assistant text, set when Reason == text_only
	Summary   string // task_complete's summary, set when Reason == task_complete
	ToolCalls []ToolCallRecord
}

// Engine executes one turn at a time against a caller-supplied history.
// It holds no history itself: callers (the outer orchestrator, or a
// subagent spawn) own the []message.Message slice and pass it by
// pointer so the engine can append to it in place.
type Engine struct {
	Client    provider.Client
	Tools     *toolapi.Registry
	Traces    *trace.Store
	Events    eventbus.Sink
	Snapshots *snapshot.Store      // nil disables patch tracking
	Telemetry *telemetry.Telemetry // nil disables span/metric recording

	AgentName    string
	ProviderName string
	Model        string
	SessionID    string
	WorkingDir   string

	MaxIterations     int
	DoomLoopThreshold int

	// OnPatch, when set, is invoked with every patch produced by a
	// successful file-modifying tool call (spec.md §4.4: "the patch is
	// appended to the session's patch list"). Nil is a valid no-op.
	OnPatch func(snapshot.Patch)
}

func (e *Engine) emit(ev eventbus.Event) {
	if e.Events != nil {
		e.Events.Publish(ev)
	}
}

func (e *Engine) maxIterations() int {
	if e.MaxIterations > 0 {
		return e.MaxIterations
	}
	return defaultMaxIterations
}

// Run executes one turn: a bounded loop of streamed LLM calls and tool
// dispatches against history, mutating it in place (spec.md §4.5).
func (e *Engine) Run(ctx context.Context, history *[]message.Message) (TurnResult, error) {
	detector := newDoomLoopDetector(e.DoomLoopThreshold)

	var toolCalls []ToolCallRecord
	var preSnapshot string
	if e.Snapshots != nil {
		h, err := e.Snapshots.Track()
		if err == nil {
			preSnapshot = h
		}
	}

	for iter := 0; iter < e.maxIterations(); iter++ {
		if iter == 0 {
			e.emit(eventbus.TurnStart(e.AgentName))
		}

		if ctx.Err() != nil {
			e.emit(eventbus.Cancelled(e.AgentName))
			return TurnResult{Reason: eventbus.ReasonCancelled}, nil
		}

		turnCtx, turnSpan := e.Telemetry.StartTurn(ctx, e.AgentName)

		guard, err := trace.NewGuard(turnCtx, e.Traces, e.SessionID, e.AgentName, e.ProviderName, e.Model, *history, e.Tools.Specs())
		if err != nil {
			turnSpan.End()
			return TurnResult{}, fmt.Errorf("react: open trace guard: %w", err)
		}

		acc := newAccumulator()
		sink := provider.DeltaSinkFunc(func(d message.StreamDelta) {
			switch d.Kind {
			case message.DeltaText:
				acc.text += d.Text
				guard.PushText(turnCtx, d.Text)
				e.emit(eventbus.TextDelta(e.AgentName, d.Text))
			case message.DeltaReasoning:
				acc.reasoning += d.ReasoningChunk
				guard.PushThinking(turnCtx, d.ReasoningChunk)
				e.emit(eventbus.ThinkingDelta(e.AgentName, d.ReasoningChunk))
			case message.DeltaToolCall:
				acc.mergeToolCall(d.ToolCall)
				if d.ToolCall != nil {
					guard.PushToolCall(turnCtx, d.ToolCall.Index, d.ToolCall.ID, d.ToolCall.Name, d.ToolCall.ArgsChunk)
				}
			case message.DeltaUsage:
				if d.Usage != nil {
					guard.SetUsage(turnCtx, *d.Usage)
					e.emit(eventbus.UsageEvent(e.AgentName, d.Usage.InputTokens, d.Usage.OutputTokens, d.Usage.ReasoningTokens))
				}
			case message.DeltaDone:
			}
		})

		streamErr := e.Client.ChatStream(turnCtx, *history, e.Tools.Specs(), e.Model, sink)
		if streamErr != nil {
			guard.SetError(turnCtx, streamErr)
			guard.Abandon(turnCtx)
			turnSpan.End()
			if errors.Is(streamErr, provider.ErrCancelled) || ctx.Err() != nil {
				e.emit(eventbus.Cancelled(e.AgentName))
				return TurnResult{Reason: eventbus.ReasonCancelled}, nil
			}
			return TurnResult{}, fmt.Errorf("react: stream: %w", streamErr)
		}

		stubs := acc.stubs()

		if len(stubs) == 0 {
			*history = append(*history, message.NewAssistantText(acc.text))
			e.emit(eventbus.TextComplete(e.AgentName))
			e.emit(eventbus.TurnComplete(e.AgentName, eventbus.ReasonTextOnly, ""))
			e.Telemetry.RecordTurn(e.AgentName, string(eventbus.ReasonTextOnly))
			if err := guard.Finalize(turnCtx); err != nil {
				turnSpan.End()
				return TurnResult{}, fmt.Errorf("react: finalize trace: %w", err)
			}
			turnSpan.End()
			return TurnResult{Reason: eventbus.ReasonTextOnly, Text: acc.text, ToolCalls: toolCalls}, nil
		}

		*history = append(*history, message.NewAssistantToolCalls(stubs))

		for _, stub := range stubs {
			if ctx.Err() != nil {
				e.emit(eventbus.Cancelled(e.AgentName))
				guard.Abandon(turnCtx)
				turnSpan.End()
				return TurnResult{Reason: eventbus.ReasonCancelled}, nil
			}

			if detector.check(stub.Name, stub.Args) {
				msg := fmt.Sprintf("doom loop detected: %q was called with identical arguments too many times in a row; try a different approach", stub.Name)
				e.emit(eventbus.ToolCallStart(e.AgentName, stub.ID, stub.Name, nil))
				e.emit(eventbus.ToolCallEnd(e.AgentName, stub.ID, stub.Name, msg, true, 0))
				e.Telemetry.RecordDoomLoopTrip(e.AgentName, stub.Name)
				*history = append(*history, message.NewToolResult(stub.ID, stub.Name, msg, true))
				toolCalls = append(toolCalls, ToolCallRecord{Name: stub.Name, ArgsJSON: stub.Args, Output: msg, IsError: true})
				continue
			}

			args := parseArgsForEvent(stub.Args)
			e.emit(eventbus.ToolCallStart(e.AgentName, stub.ID, stub.Name, args))

			toolCtx, toolSpan := e.Telemetry.StartToolCall(turnCtx, stub.Name)
			dispatchCtx := toolapi.Context{
				Context:        toolCtx,
				WorkingDir:     e.WorkingDir,
				SessionID:      e.SessionID,
				MessageHistory: history,
				Provider:       e.Client,
			}
			start := time.Now()
			result := e.Tools.Dispatch(dispatchCtx, stub.Name, stub.Args)
			duration := time.Since(start)
			toolSpan.End()
			e.Telemetry.RecordToolCall(stub.Name, result.IsError, duration)

			e.emit(eventbus.ToolCallEnd(e.AgentName, stub.ID, stub.Name, result.Output, result.IsError, duration))
			*history = append(*history, message.NewToolResult(stub.ID, stub.Name, result.Output, result.IsError))
			toolCalls = append(toolCalls, ToolCallRecord{
				Name:     stub.Name,
				ArgsJSON: stub.Args,
				Output:   result.Output,
				IsError:  result.IsError,
				Duration: duration,
			})

			if !result.IsError && e.Snapshots != nil && fileModifyingTools[stub.Name] && e.OnPatch != nil {
				if patch, err := e.Snapshots.Patch(preSnapshot); err == nil && len(patch.Paths) > 0 {
					e.OnPatch(patch)
				}
			}

			if stub.Name == "task_complete" && !result.IsError {
				e.emit(eventbus.TurnComplete(e.AgentName, eventbus.ReasonTaskComplete, result.Output))
				e.Telemetry.RecordTurn(e.AgentName, string(eventbus.ReasonTaskComplete))
				if err := guard.Finalize(turnCtx); err != nil {
					turnSpan.End()
					return TurnResult{}, fmt.Errorf("react: finalize trace: %w", err)
				}
				turnSpan.End()
				return TurnResult{Reason: eventbus.ReasonTaskComplete, Summary: result.Output, ToolCalls: toolCalls}, nil
			}
		}

		guard.UpdateRequestMessages(turnCtx, *history)
		if err := guard.Finalize(turnCtx); err != nil {
			turnSpan.End()
			return TurnResult{}, fmt.Errorf("react: finalize trace: %w", err)
		}
		turnSpan.End()
	}

	e.emit(eventbus.TurnComplete(e.AgentName, eventbus.ReasonMaxIterations, ""))
	e.Telemetry.RecordTurn(e.AgentName, string(eventbus.ReasonMaxIterations))
	return TurnResult{Reason: eventbus.ReasonMaxIterations, ToolCalls: toolCalls}, nil
}

// parseArgsForEvent best-effort-decodes a tool call's raw argument JSON
// for the ToolCallStart event payload; a malformed string (the stream
// merged a partial/corrupt chunk) degrades to nil rather than failing
// the call, since the event is informational only.
func parseArgsForEvent(argsJSON string) map[string]any {
	var m map[string]any
	if err := toolapi.UnmarshalArgs(argsJSON, &m); err != nil {
		return nil
	}
	return m
}
