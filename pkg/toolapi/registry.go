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

package toolapi

import (
	"encoding/json"
	"fmt"

	"github.com/kadirpekel/crow/internal/registry"
	"github.com/kadirpekel/crow/pkg/message"
)

// Registry maps tool names to Tool implementations and dispatches calls
// by name (spec.md §4.2).
type Registry struct {
	reg *registry.BaseRegistry[Tool]
}

func NewRegistry() *Registry {
	return &Registry{reg: registry.NewBaseRegistry[Tool]()}
}

func (r *Registry) Register(t Tool) error {
	return r.reg.Register(t.Definition().Name, t)
}

// ReplaceOrRegister registers t, overwriting a previous tool of the same
// name. Used when an agent's tool overrides swap out a built-in.
func (r *Registry) ReplaceOrRegister(t Tool) {
	r.reg.Put(t.Definition().Name, t)
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	return r.reg.Get(name)
}

// Definitions returns every registered tool's Definition.
func (r *Registry) Definitions() []Definition {
	tools := r.reg.List()
	defs := make([]Definition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Specs renders every registered tool as an OpenAI-style tool spec, ready
// to hand the provider client (spec.md §4.1/§4.2).
func (r *Registry) Specs() []message.ToolDefinition {
	defs := r.Definitions()
	specs := make([]message.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, d.ToOpenAI())
	}
	return specs
}

// Dispatch looks up name and executes it, returning an error Result (not
// a Go error) when the tool is unknown, per spec.md §4.2.
func (r *Registry) Dispatch(ctx Context, name, argsJSON string) Result {
	t, ok := r.Lookup(name)
	if !ok {
		return Error(fmt.Sprintf("unknown tool %q", name))
	}
	return t.Execute(ctx, argsJSON)
}

// Humanize delegates to the named tool's own Humanize, falling back to a
// generic rendering when the tool is unknown (defensive; should not
// happen for calls that were actually dispatched).
func (r *Registry) Humanize(name, argsJSON string, result Result) string {
	if t, ok := r.Lookup(name); ok {
		return t.Humanize(argsJSON, result)
	}
	return fmt.Sprintf("%s(...)", name)
}

// Subset returns a new Registry containing only the named tools that
// exist in r, used to build a filtered tool set for subagents and
// permission-restricted agents (spec.md §4.3.10).
func (r *Registry) Subset(names []string) *Registry {
	out := NewRegistry()
	for _, n := range names {
		if t, ok := r.Lookup(n); ok {
			out.ReplaceOrRegister(t)
		}
	}
	return out
}

// Without returns a new Registry with the named tools removed. Used to
// deny task/task_complete to subagents (spec.md §4.3.10).
func (r *Registry) Without(names ...string) *Registry {
	deny := make(map[string]bool, len(names))
	for _, n := range names {
		deny[n] = true
	}
	out := NewRegistry()
	for _, t := range r.reg.List() {
		n := t.Definition().Name
		if !deny[n] {
			out.ReplaceOrRegister(t)
		}
	}
	return out
}

// MarshalArgs is a small helper tools use to turn a map back into the raw
// JSON argument string needed by Dispatch/ humanize call sites in tests.
func MarshalArgs(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// UnmarshalArgs decodes a tool's raw JSON argument string into a typed
// struct, the inverse of MarshalArgs. Concrete tools call this first
// thing in Execute.
func UnmarshalArgs(argsJSON string, dst any) error {
	if argsJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(argsJSON), dst)
}
