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

// Package subagent implements the task tool (C3, spec.md §4.3.10): a
// bounded spawn of a fresh react.Engine for a named subagent, denied the
// task and task_complete tools so it can neither recurse unboundedly nor
// terminate the outer run. Grounded on the teacher's
// pkg/reasoning/chain_of_thought_strategy.go iteration-cap pattern, one
// level deeper: the subagent is itself a capped inner loop, not a
// co-equal agent.
package subagent

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/crow/pkg/agentconfig"
	"github.com/kadirpekel/crow/pkg/eventbus"
	"github.com/kadirpekel/crow/pkg/message"
	"github.com/kadirpekel/crow/pkg/provider"
	"github.com/kadirpekel/crow/pkg/react"
	"github.com/kadirpekel/crow/pkg/snapshot"
	"github.com/kadirpekel/crow/pkg/telemetry"
	"github.com/kadirpekel/crow/pkg/toolapi"
	"github.com/kadirpekel/crow/pkg/trace"
)

// deniedTools are never available to a spawned subagent (spec.md
// §4.3.10): it cannot spawn further subagents, and cannot terminate the
// outer run on the primary's behalf.
var deniedTools = []string{"task", "task_complete"}

// defaultMaxIterations bounds a subagent run when neither the call nor
// the subagent's own config set one.
const defaultMaxIterations = 50

// Task is the "task" tool.
type Task struct {
	Agents *agentconfig.Registry
	Tools  *toolapi.Registry // the primary's full tool set, filtered per spawn

	Traces    *trace.Store
	Events    eventbus.Sink
	Snapshots *snapshot.Store
	Telemetry *telemetry.Telemetry
}

func NewTask(agents *agentconfig.Registry, tools *toolapi.Registry, traces *trace.Store, events eventbus.Sink, snapshots *snapshot.Store, tel *telemetry.Telemetry) *Task {
	return &Task{Agents: agents, Tools: tools, Traces: traces, Events: events, Snapshots: snapshots, Telemetry: tel}
}

func (t *Task) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "task",
		Description: "Spawn a subagent to carry out a focused piece of work and report back.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description":    map[string]any{"type": "string", "description": "Short description of the subagent's task"},
				"prompt":         map[string]any{"type": "string", "description": "Full instructions for the subagent"},
				"subagent":       map[string]any{"type": "string", "description": "Name of the subagent config to run"},
				"max_iterations": map[string]any{"type": "integer", "description": "Optional cap on the subagent's own inner loop"},
			},
			"required": []string{"description", "prompt", "subagent"},
		},
	}
}

type taskArgs struct {
	Description   string `json:"description"`
	Prompt        string `json:"prompt"`
	Subagent      string `json:"subagent"`
	MaxIterations int    `json:"max_iterations"`
}

func (t *Task) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args taskArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}
	if args.Subagent == "" || args.Prompt == "" {
		return toolapi.Error("subagent and prompt are required")
	}

	cfg, ok := t.Agents.Get(args.Subagent)
	if !ok {
		return toolapi.Error(fmt.Sprintf("unknown subagent %q", args.Subagent))
	}
	if !cfg.AllowsMode(agentconfig.ModeSubagent) {
		return toolapi.Error(fmt.Sprintf("agent %q is not permitted to run as a subagent", args.Subagent))
	}

	client, ok := ctx.Provider.(provider.Client)
	if !ok || client == nil {
		return toolapi.Error("no provider available to spawn a subagent")
	}

	tools := t.filteredTools(cfg)

	maxIter := args.MaxIterations
	if maxIter <= 0 {
		maxIter = cfg.ResolvedMaxIterations(defaultMaxIterations)
	}

	engine := &react.Engine{
		Client:       client,
		Tools:        tools,
		Traces:       t.Traces,
		Events:       t.Events,
		Snapshots:    t.Snapshots,
		Telemetry:    t.Telemetry,
		AgentName:    args.Subagent,
		ProviderName: "",
		Model:        cfg.Model,
		SessionID:    ctx.SessionID + "/" + args.Subagent,
		WorkingDir:   ctx.WorkingDir,

		MaxIterations: maxIter,
	}

	history := subagentHistory(cfg, args)
	result, err := engine.Run(ctx, &history)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("subagent %q failed: %v", args.Subagent, err))
	}
	if result.Reason == eventbus.ReasonCancelled {
		return toolapi.Error(fmt.Sprintf("subagent %q was cancelled", args.Subagent))
	}

	if result.Text != "" {
		return toolapi.Success(result.Text)
	}
	return toolapi.Success(summarizeSubagentToolCalls(args.Subagent, result.ToolCalls))
}

func subagentHistory(cfg agentconfig.Config, args taskArgs) []message.Message {
	var history []message.Message
	if cfg.Prompt != "" {
		history = append(history, message.NewSystem(cfg.Prompt))
	}
	prompt := args.Prompt
	if args.Description != "" {
		prompt = args.Description + "\n\n" + args.Prompt
	}
	history = append(history, message.NewUser(prompt))
	return history
}

// filteredTools narrows t.Tools to the subagent's own tool permissions,
// then unconditionally denies task/task_complete.
func (t *Task) filteredTools(cfg agentconfig.Config) *toolapi.Registry {
	var names []string
	for _, d := range t.Tools.Definitions() {
		if cfg.ToolAllowed(d.Name) {
			names = append(names, d.Name)
		}
	}
	return t.Tools.Subset(names).Without(deniedTools...)
}

func summarizeSubagentToolCalls(name string, calls []react.ToolCallRecord) string {
	if len(calls) == 0 {
		return fmt.Sprintf("subagent %q completed with no output", name)
	}
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return fmt.Sprintf("subagent %q completed after calling: %s", name, strings.Join(names, ", "))
}

func (t *Task) Humanize(argsJSON string, result toolapi.Result) string {
	var args taskArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	if result.IsError {
		return fmt.Sprintf("subagent %q failed: %s", args.Subagent, result.Output)
	}
	return fmt.Sprintf("ran subagent %q", args.Subagent)
}
