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

package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/crow/pkg/message"
)

// Status is the lifecycle state of a traced LLM call.
type Status string

const (
	StatusPending   Status = "pending"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusAbandoned Status = "abandoned"
)

// toolCallRecord is the JSON shape persisted in the tool_calls column.
type toolCallRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// Guard accumulates one LLM call's partial state and flushes it to the
// Store on every mutation, so an inspector can see in-flight calls and a
// crash mid-call leaves the last-flushed state behind rather than nothing.
// Go has no destructors, so callers are expected to pair NewGuard with a
// deferred Abandon: Finalize is a no-op once called, and Abandon after
// Finalize is also a no-op, making `defer guard.Abandon(ctx)` always safe.
type Guard struct {
	store *Store

	mu       sync.Mutex
	id       string
	status   Status
	final    bool
	sessionID, agentName, providerName, model string
	requestMessages []message.Message
	toolSpecs       []message.ToolDefinition
	responseText    string
	reasoningText   string
	toolCalls       map[int]*toolCallRecord
	toolOrder       []int
	usage           message.Usage
	errMessage      string
	startedAt       time.Time
}

// NewGuard opens a new trace row in StatusPending and returns a Guard
// bound to it. The row id is always a freshly generated UUID.
func NewGuard(ctx context.Context, store *Store, sessionID, agentName, providerName, model string, requestMessages []message.Message, toolSpecs []message.ToolDefinition) (*Guard, error) {
	g := &Guard{
		store:           store,
		id:              uuid.NewString(),
		status:          StatusPending,
		sessionID:       sessionID,
		agentName:       agentName,
		providerName:    providerName,
		model:           model,
		requestMessages: requestMessages,
		toolSpecs:       toolSpecs,
		toolCalls:       make(map[int]*toolCallRecord),
		startedAt:       time.Now(),
	}
	if err := g.flush(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// PushText appends a text delta and flushes.
func (g *Guard) PushText(ctx context.Context, chunk string) {
	g.mu.Lock()
	g.responseText += chunk
	g.mu.Unlock()
	g.flushBestEffort(ctx)
}

// PushThinking appends a reasoning delta and flushes.
func (g *Guard) PushThinking(ctx context.Context, chunk string) {
	g.mu.Lock()
	g.reasoningText += chunk
	g.mu.Unlock()
	g.flushBestEffort(ctx)
}

// PushToolCall merges a tool-call fragment by index, mirroring the
// stream merge rule in pkg/provider, and flushes.
func (g *Guard) PushToolCall(ctx context.Context, index int, id, name, argsChunk string) {
	g.mu.Lock()
	rec, ok := g.toolCalls[index]
	if !ok {
		rec = &toolCallRecord{}
		g.toolCalls[index] = rec
		g.toolOrder = append(g.toolOrder, index)
	}
	if id != "" {
		rec.ID = id
	}
	if name != "" {
		rec.Name = name
	}
	rec.Args += argsChunk
	g.mu.Unlock()
	g.flushBestEffort(ctx)
}

// SetUsage records token usage and flushes.
func (g *Guard) SetUsage(ctx context.Context, usage message.Usage) {
	g.mu.Lock()
	g.usage = usage
	g.mu.Unlock()
	g.flushBestEffort(ctx)
}

// SetError marks the call as errored and flushes.
func (g *Guard) SetError(ctx context.Context, err error) {
	g.mu.Lock()
	g.status = StatusError
	if err != nil {
		g.errMessage = err.Error()
	}
	g.mu.Unlock()
	g.flushBestEffort(ctx)
}

// UpdateRequestMessages replaces the request-message snapshot and
// flushes. react.Engine calls it once a turn's tool results are in the
// history, just before finalizing that turn's row.
func (g *Guard) UpdateRequestMessages(ctx context.Context, messages []message.Message) {
	g.mu.Lock()
	g.requestMessages = messages
	g.mu.Unlock()
	g.flushBestEffort(ctx)
}

// Finalize marks the call complete and flushes one last time. Safe to
// call at most meaningfully once; subsequent calls are no-ops.
func (g *Guard) Finalize(ctx context.Context) error {
	g.mu.Lock()
	if g.final {
		g.mu.Unlock()
		return nil
	}
	g.final = true
	if g.status == StatusPending {
		g.status = StatusComplete
	}
	g.mu.Unlock()
	return g.flush(ctx)
}

// Abandon flushes whatever partial state exists and marks the row
// abandoned, unless Finalize already ran. Intended for `defer
// guard.Abandon(ctx)` immediately after NewGuard succeeds.
func (g *Guard) Abandon(ctx context.Context) {
	g.mu.Lock()
	if g.final {
		g.mu.Unlock()
		return
	}
	g.final = true
	if g.status == StatusPending {
		g.status = StatusAbandoned
	}
	g.mu.Unlock()
	_ = g.flush(ctx)
}

func (g *Guard) flushBestEffort(ctx context.Context) {
	if err := g.flush(ctx); err != nil {
		// Tracing is observational; a write failure must never abort the
		// agent loop that produced the data being traced.
		g.store.logFlushError(err)
	}
}

func (g *Guard) flush(ctx context.Context) error {
	g.mu.Lock()
	reqJSON, err := json.Marshal(g.requestMessages)
	if err != nil {
		g.mu.Unlock()
		return fmt.Errorf("trace: marshal request messages: %w", err)
	}
	specJSON, err := json.Marshal(g.toolSpecs)
	if err != nil {
		g.mu.Unlock()
		return fmt.Errorf("trace: marshal tool specs: %w", err)
	}

	calls := make([]toolCallRecord, 0, len(g.toolOrder))
	for _, idx := range g.toolOrder {
		calls = append(calls, *g.toolCalls[idx])
	}
	callsJSON, err := json.Marshal(calls)
	if err != nil {
		g.mu.Unlock()
		return fmt.Errorf("trace: marshal tool calls: %w", err)
	}

	var finishedAt *time.Time
	if g.final {
		now := time.Now()
		finishedAt = &now
	}

	row := struct {
		id, sessionID, agentName, providerName, model, status string
		req, spec, respText, reasonText, calls                string
		errMsg                                                 string
		in, out, reasoning                                     int
		startedAt                                              time.Time
		finishedAt                                             *time.Time
	}{
		id: g.id, sessionID: g.sessionID, agentName: g.agentName, providerName: g.providerName, model: g.model,
		status: string(g.status), req: string(reqJSON), spec: string(specJSON),
		respText: g.responseText, reasonText: g.reasoningText, calls: string(callsJSON),
		errMsg: g.errMessage, in: g.usage.InputTokens, out: g.usage.OutputTokens, reasoning: g.usage.ReasoningTokens,
		startedAt: g.startedAt, finishedAt: finishedAt,
	}
	g.mu.Unlock()

	_, err = g.store.db.ExecContext(ctx, `
INSERT INTO traces (
    id, session_id, agent_name, provider, model, status,
    request_messages, tool_specs, response_text, reasoning_text, tool_calls,
    input_tokens, output_tokens, reasoning_tokens, error_message,
    started_at, updated_at, finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    request_messages = excluded.request_messages,
    tool_specs = excluded.tool_specs,
    response_text = excluded.response_text,
    reasoning_text = excluded.reasoning_text,
    tool_calls = excluded.tool_calls,
    input_tokens = excluded.input_tokens,
    output_tokens = excluded.output_tokens,
    reasoning_tokens = excluded.reasoning_tokens,
    error_message = excluded.error_message,
    updated_at = excluded.updated_at,
    finished_at = excluded.finished_at
`,
		row.id, row.sessionID, row.agentName, row.providerName, row.model, row.status,
		row.req, row.spec, row.respText, row.reasonText, row.calls,
		row.in, row.out, row.reasoning, row.errMsg,
		row.startedAt, time.Now(), row.finishedAt,
	)
	if err != nil {
		return fmt.Errorf("trace: upsert row %s: %w", g.id, err)
	}
	return nil
}

// ID returns the stable id of this trace row.
func (g *Guard) ID() string {
	return g.id
}
