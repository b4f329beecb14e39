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

package subagent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/crow/pkg/agentconfig"
	"github.com/kadirpekel/crow/pkg/eventbus"
	"github.com/kadirpekel/crow/pkg/message"
	"github.com/kadirpekel/crow/pkg/provider"
	"github.com/kadirpekel/crow/pkg/toolapi"
	"github.com/kadirpekel/crow/pkg/trace"
)

type scriptedClient struct {
	turns [][]message.StreamDelta
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
	return json.RawMessage(`{}`), nil
}

func textTurn(text string) []message.StreamDelta {
	return []message.StreamDelta{{Kind: message.DeltaText, Text: text}, {Kind: message.DeltaDone}}
}

type echoTool struct{}

func (echoTool) Definition() toolapi.Definition {
	return toolapi.Definition{Name: "echo", Description: "echoes", Parameters: map[string]any{"type": "object"}}
}
func (echoTool) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	return toolapi.Success("ok")
}
func (echoTool) Humanize(argsJSON string, result toolapi.Result) string { return "echoed" }

type selfTool struct{ called bool }

func (s *selfTool) Definition() toolapi.Definition {
	return toolapi.Definition{Name: "task", Description: "spawn", Parameters: map[string]any{"type": "object"}}
}
func (s *selfTool) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	s.called = true
	return toolapi.Success("should never run")
}
func (s *selfTool) Humanize(argsJSON string, result toolapi.Result) string { return "spawned" }

func newTestTask(t *testing.T, agents *agentconfig.Registry, tools *toolapi.Registry) *Task {
	t.Helper()
	store, err := trace.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewTask(agents, tools, store, eventbus.Nop{}, nil, nil)
}

func registryWith(t *testing.T, cfgs map[string]agentconfig.Config) *agentconfig.Registry {
	t.Helper()
	r, err := agentconfig.NewRegistry("", "")
	require.NoError(t, err)
	for name, cfg := range cfgs {
		cfg.Name = name
		r.Put(name, cfg)
	}
	return r
}

func TestTask_RunsSubagentAndReturnsFinalText(t *testing.T) {
	agents := registryWith(t, map[string]agentconfig.Config{
		"reviewer": {Mode: agentconfig.ModeSubagent, Prompt: "You review code."},
	})
	tools := toolapi.NewRegistry()
	require.NoError(t, tools.Register(echoTool{}))
	client := &scriptedClient{turns: [][]message.StreamDelta{textTurn("looks good")}}

	task := newTestTask(t, agents, tools)
	toolCtx := toolapi.Context{Context: context.Background(), SessionID: "primary-sess", Provider: provider.Client(client)}

	result := task.Execute(toolCtx, `{"description":"review","prompt":"review this diff","subagent":"reviewer"}`)
	require.False(t, result.IsError)
	require.Equal(t, "looks good", result.Output)
}

func TestTask_RefusesAgentNotAllowedAsSubagent(t *testing.T) {
	agents := registryWith(t, map[string]agentconfig.Config{
		"primary-only": {Mode: agentconfig.ModePrimary},
	})
	tools := toolapi.NewRegistry()
	task := newTestTask(t, agents, tools)
	toolCtx := toolapi.Context{Context: context.Background(), Provider: provider.Client(&scriptedClient{})}

	result := task.Execute(toolCtx, `{"description":"x","prompt":"x","subagent":"primary-only"}`)
	require.True(t, result.IsError)
	require.Contains(t, result.Output, "not permitted")
}

func TestTask_UnknownSubagentErrors(t *testing.T) {
	agents := registryWith(t, nil)
	tools := toolapi.NewRegistry()
	task := newTestTask(t, agents, tools)
	toolCtx := toolapi.Context{Context: context.Background(), Provider: provider.Client(&scriptedClient{})}

	result := task.Execute(toolCtx, `{"description":"x","prompt":"x","subagent":"ghost"}`)
	require.True(t, result.IsError)
	require.Contains(t, result.Output, "unknown subagent")
}

func TestTask_FilteredToolsDenyRecursiveTask(t *testing.T) {
	agents := registryWith(t, map[string]agentconfig.Config{
		"worker": {Mode: agentconfig.ModeSubagent},
	})
	tools := toolapi.NewRegistry()
	self := &selfTool{}
	require.NoError(t, tools.Register(self))
	task := newTestTask(t, agents, tools)

	cfg, _ := agents.Get("worker")
	filtered := task.filteredTools(cfg)
	_, ok := filtered.Lookup("task")
	require.False(t, ok)
	require.False(t, self.called)
}
