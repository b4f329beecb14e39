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

package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/crow/pkg/agentconfig"
	"github.com/kadirpekel/crow/pkg/eventbus"
	"github.com/kadirpekel/crow/pkg/message"
	"github.com/kadirpekel/crow/pkg/provider"
	"github.com/kadirpekel/crow/pkg/react"
	"github.com/kadirpekel/crow/pkg/toolapi"
	"github.com/kadirpekel/crow/pkg/trace"
)

// scriptedClient replays one []message.StreamDelta per ChatStream call,
// mirroring pkg/react's own test double.
type scriptedClient struct {
	turns []([]message.StreamDelta)
	calls int
}

func (c *scriptedClient) ChatStream(ctx context.Context, messages []message.Message, tools []message.ToolDefinition, model string, sink provider.DeltaSink) error {
	deltas := c.turns[c.calls]
	c.calls++
	for _, d := range deltas {
		sink.OnDelta(d)
	}
	return nil
}

func (c *scriptedClient) ChatToolStructured(ctx context.Context, messages []message.Message, toolName, description string, schema map[string]any, model string) (json.RawMessage, error) {
	return json.RawMessage(`{"criteria":"ship it"}`), nil
}

func textTurn(text string) []message.StreamDelta {
	return []message.StreamDelta{{Kind: message.DeltaText, Text: text}, {Kind: message.DeltaDone}}
}

func toolCallTurn(id, name, args string) []message.StreamDelta {
	return []message.StreamDelta{
		{Kind: message.DeltaToolCall, ToolCall: &message.ToolCallFragment{Index: 0, ID: id, Name: name, ArgsChunk: args}},
		{Kind: message.DeltaDone},
	}
}

type stubTaskComplete struct{}

func (stubTaskComplete) Definition() toolapi.Definition {
	return toolapi.Definition{Name: "task_complete", Description: "done", Parameters: map[string]any{"type": "object"}}
}
func (stubTaskComplete) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args struct {
		Summary string `json:"summary"`
	}
	_ = json.Unmarshal([]byte(argsJSON), &args)
	return toolapi.Success(args.Summary)
}
func (stubTaskComplete) Humanize(argsJSON string, result toolapi.Result) string { return "completed" }

func newEngine(t *testing.T, name string, client provider.Client, tools *toolapi.Registry) *react.Engine {
	t.Helper()
	store, err := trace.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &react.Engine{
		Client:    client,
		Tools:     tools,
		Traces:    store,
		Events:    eventbus.Nop{},
		AgentName: name,
		SessionID: name + "-sess",
		Model:     "test-model",
	}
}

func TestRun_PassthroughReturnsNeedsInput(t *testing.T) {
	client := &scriptedClient{turns: [][]message.StreamDelta{textTurn("here you go")}}
	tools := toolapi.NewRegistry()
	engine := newEngine(t, "primary", client, tools)

	history := []message.Message{message.NewUser("hi")}
	o := &Orchestrator{
		Primary:        engine,
		PrimaryHistory: &history,
		Config:         agentconfig.Config{ControlFlow: agentconfig.ControlFlowPassthrough},
	}

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusNeedsInput, result.Status)
	require.Equal(t, "here you go", result.LastText)
	require.Equal(t, 1, result.Turns)
}

func TestRun_TaskCompleteReturnsComplete(t *testing.T) {
	client := &scriptedClient{turns: [][]message.StreamDelta{
		toolCallTurn("call-1", "task_complete", `{"summary":"done deal"}`),
	}}
	tools := toolapi.NewRegistry()
	require.NoError(t, tools.Register(stubTaskComplete{}))
	engine := newEngine(t, "primary", client, tools)

	history := []message.Message{message.NewUser("go")}
	o := &Orchestrator{Primary: engine, PrimaryHistory: &history, Config: agentconfig.Config{ControlFlow: agentconfig.ControlFlowPassthrough}}

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusComplete, result.Status)
	require.Equal(t, "done deal", result.Summary)
}

func TestRun_LoopContinuesUntilTaskComplete(t *testing.T) {
	client := &scriptedClient{turns: [][]message.StreamDelta{
		textTurn("still working"),
		toolCallTurn("call-1", "task_complete", `{"summary":"finished"}`),
	}}
	tools := toolapi.NewRegistry()
	require.NoError(t, tools.Register(stubTaskComplete{}))
	engine := newEngine(t, "primary", client, tools)

	history := []message.Message{message.NewUser("go")}
	o := &Orchestrator{Primary: engine, PrimaryHistory: &history, Config: agentconfig.Config{ControlFlow: agentconfig.ControlFlowLoop}}

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusComplete, result.Status)
	require.Equal(t, 2, result.Turns)
}

func TestRun_StaticAppendsMessageThenLoops(t *testing.T) {
	client := &scriptedClient{turns: [][]message.StreamDelta{
		textTurn("partial"),
		toolCallTurn("call-1", "task_complete", `{"summary":"ok"}`),
	}}
	tools := toolapi.NewRegistry()
	require.NoError(t, tools.Register(stubTaskComplete{}))
	engine := newEngine(t, "primary", client, tools)

	history := []message.Message{message.NewUser("go")}
	o := &Orchestrator{
		Primary:        engine,
		PrimaryHistory: &history,
		Config:         agentconfig.Config{ControlFlow: agentconfig.ControlFlowStatic, StaticMessage: "keep going"},
	}

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	var found bool
	for _, m := range history {
		if m.Role == message.RoleUser && m.Content == "keep going" {
			found = true
		}
	}
	require.True(t, found)
}

func TestRun_GeneratedCachesAcceptanceCriteriaAcrossTurns(t *testing.T) {
	client := &scriptedClient{turns: [][]message.StreamDelta{
		textTurn("first pass"),
		textTurn("second pass"),
		toolCallTurn("call-1", "task_complete", `{"summary":"ok"}`),
	}}
	tools := toolapi.NewRegistry()
	require.NoError(t, tools.Register(stubTaskComplete{}))
	engine := newEngine(t, "primary", client, tools)

	history := []message.Message{message.NewUser("go")}
	o := &Orchestrator{
		Primary:        engine,
		PrimaryHistory: &history,
		Config:         agentconfig.Config{ControlFlow: agentconfig.ControlFlowGenerated, GeneratePrompt: "what would prove this is done?"},
	}

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	var count int
	for _, m := range history {
		if m.Role == message.RoleUser && m.Content == "ship it" {
			count++
		}
	}
	require.Equal(t, 2, count)
}

func TestRun_MaxTurnsReached(t *testing.T) {
	turns := make([][]message.StreamDelta, 0, 2)
	for i := 0; i < 2; i++ {
		turns = append(turns, textTurn("again"))
	}
	client := &scriptedClient{turns: turns}
	tools := toolapi.NewRegistry()
	engine := newEngine(t, "primary", client, tools)

	history := []message.Message{message.NewUser("go")}
	o := &Orchestrator{
		Primary:        engine,
		PrimaryHistory: &history,
		Config:         agentconfig.Config{ControlFlow: agentconfig.ControlFlowLoop},
		MaxTurns:       2,
	}

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusMaxTurns, result.Status)
}

func TestRun_CoagentApprovesOnSecondTurn(t *testing.T) {
	primaryClient := &scriptedClient{turns: [][]message.StreamDelta{textTurn("done.")}}
	coagentClient := &scriptedClient{turns: [][]message.StreamDelta{
		toolCallTurn("call-1", "task_complete", `{"summary":"ok"}`),
	}}

	primaryTools := toolapi.NewRegistry()
	coagentTools := toolapi.NewRegistry()
	require.NoError(t, coagentTools.Register(stubTaskComplete{}))

	primary := newEngine(t, "primary", primaryClient, primaryTools)
	coagent := newEngine(t, "coagent", coagentClient, coagentTools)

	primaryHistory := []message.Message{message.NewSystem("sys"), message.NewUser("please add a feature")}
	var coagentHistory []message.Message

	o := &Orchestrator{
		Primary:        primary,
		PrimaryHistory: &primaryHistory,
		Config:         agentconfig.Config{ControlFlow: agentconfig.ControlFlowCoagent},
		Coagent:        coagent,
		CoagentHistory: &coagentHistory,
	}

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusComplete, result.Status)
	require.Equal(t, "ok", result.Summary)
	require.Equal(t, 2, result.Turns)

	require.Equal(t, message.RoleUser, coagentHistory[0].Role)
	require.Contains(t, coagentHistory[0].Content, "Review the work below")
	require.Equal(t, message.RoleAssistant, coagentHistory[1].Role)
	require.Equal(t, "please add a feature", coagentHistory[1].Content)
	require.Equal(t, message.RoleUser, coagentHistory[2].Role)
	require.Equal(t, "done.", coagentHistory[2].Content)

	last := primaryHistory[len(primaryHistory)-1]
	require.Equal(t, message.RoleUser, last.Role)
	require.Contains(t, last.Content, "completed: ok")
}
