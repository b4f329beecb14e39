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

// Package toolapi is the tool registry and invocation context of spec.md
// §4.2 (C2): the seam between the inner ReAct engine and the concrete
// tool set in pkg/tools.
package toolapi

import (
	"context"

	"github.com/kadirpekel/crow/pkg/message"
)

// Definition is a tool's stable public contract (spec.md §3).
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// ToOpenAI renders the definition as an OpenAI-style tool spec.
func (d Definition) ToOpenAI() message.ToolDefinition {
	return message.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
}

// Result is a tool's outcome (spec.md §3): output text plus an error flag
// that shapes both the reply message and the trace.
type Result struct {
	Output  string
	IsError bool
}

func Success(output string) Result { return Result{Output: output} }
func Error(output string) Result   { return Result{Output: output, IsError: true} }

// Context bundles everything a tool invocation may need (spec.md §4.2).
// react.Engine populates MessageHistory and Provider on every dispatch;
// any tool that depends on them must degrade gracefully when they are
// nil/absent rather than panicking.
type Context struct {
	context.Context

	WorkingDir string
	SessionID  string

	// MessageHistory, when non-nil, is the running conversation the
	// calling turn is building. Tools must treat it as read-only.
	MessageHistory *[]message.Message

	// Provider, when non-nil, lets a tool issue its own structured LLM
	// call (task_complete's self-evaluation). Declared as `any` here to
	// avoid an import cycle with pkg/provider; task_complete type-asserts
	// it to provider.StructuredCaller and the task tool to provider.Client.
	Provider any
}

// Tool is the base capability every registered tool implements
// (spec.md §9: {definition(), execute(args, ctx), humanise(args, result)}).
type Tool interface {
	Definition() Definition
	Execute(ctx Context, argsJSON string) Result
	Humanize(argsJSON string, result Result) string
}
