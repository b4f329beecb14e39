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

// Package thinking implements the thinking tool (C3, spec.md §4.3.8):
// a self-contained scratchpad acknowledgement, letting a model reason
// out loud via a tool call without that reasoning touching any other
// state.
package thinking

import (
	"fmt"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

// Thinking is the thinking tool.
type Thinking struct{}

func NewThinking() *Thinking { return &Thinking{} }

func (t *Thinking) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "thinking",
		Description: "Record a scratchpad thought before acting. Has no side effects; use it to reason through a plan.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"thought": map[string]any{"type": "string", "description": "The thought to record"},
			},
			"required": []string{"thought"},
		},
	}
}

type thinkingArgs struct {
	Thought string `json:"thought"`
}

func (t *Thinking) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args thinkingArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	return toolapi.Success("noted")
}

func (t *Thinking) Humanize(argsJSON string, result toolapi.Result) string {
	var args thinkingArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	return fmt.Sprintf("thought: %s", args.Thought)
}
