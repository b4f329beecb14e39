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

// Package orchestrator is the outer orchestrator of spec.md §4.6 (C7): it
// drives the inner react.Engine turn after turn, choosing the next action
// from the primary agent's control-flow policy, and runs the optional
// coagent sub-loop. Grounded on the teacher's reasoning.ChainOfThoughtStrategy
// outer-loop shape (pkg/reasoning/chain_of_thought_strategy.go), generalized
// from a single strategy's iteration cap into the policy dispatch table
// spec.md §4.6 describes.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kadirpekel/crow/pkg/agentconfig"
	"github.com/kadirpekel/crow/pkg/eventbus"
	"github.com/kadirpekel/crow/pkg/message"
	"github.com/kadirpekel/crow/pkg/react"
	"github.com/kadirpekel/crow/pkg/tools/todo"
)

// Status is the run-level outcome (spec.md §3 RunResult, §7).
type Status string

const (
	StatusComplete   Status = "complete"
	StatusNeedsInput Status = "needs_input"
	StatusMaxTurns   Status = "max_turns"
	StatusCancelled  Status = "cancelled"
	StatusError      Status = "error"
)

// RunResult is what Orchestrator.Run returns (spec.md §3).
type RunResult struct {
	Status   Status
	LastText string
	Turns    int
	Summary  string
	Err      error
}

const defaultMaxTurns = 100

// Orchestrator drives one run. Primary and (if set) Coagent are fully
// configured inner engines; PrimaryHistory/CoagentHistory are owned by
// the caller and mutated in place, exactly like react.Engine.Run's own
// history contract.
type Orchestrator struct {
	Primary        *react.Engine
	PrimaryHistory *[]message.Message
	Config         agentconfig.Config

	// Coagent and CoagentHistory are only required when Config.ControlFlow
	// is agentconfig.ControlFlowCoagent.
	Coagent        *react.Engine
	CoagentHistory *[]message.Message

	// Todos, when set alongside a Coagent, is told to alias the primary
	// and coagent session ids on the first coagent round so both sides
	// share one todo list (spec.md §4.6 "Todo fusion").
	Todos *todo.Store

	MaxTurns int

	generatedCriteria string
	coagentInit       bool
}

func (o *Orchestrator) maxTurns() int {
	if o.MaxTurns > 0 {
		return o.MaxTurns
	}
	return defaultMaxTurns
}

func (o *Orchestrator) emit(ev eventbus.Event) {
	if o.Primary != nil && o.Primary.Events != nil {
		o.Primary.Events.Publish(ev)
	}
}

// Run drives the outer loop until a terminal RunResult is reached or the
// turn cap is exceeded (spec.md §4.6).
func (o *Orchestrator) Run(ctx context.Context) (RunResult, error) {
	turns := 0
	for {
		if turns >= o.maxTurns() {
			return RunResult{Status: StatusMaxTurns, Turns: turns}, nil
		}

		turn, err := o.Primary.Run(ctx, o.PrimaryHistory)
		if err != nil {
			return RunResult{Status: StatusError, Turns: turns, Err: err}, err
		}
		turns++

		switch turn.Reason {
		case eventbus.ReasonTaskComplete:
			return RunResult{Status: StatusComplete, Turns: turns, Summary: turn.Summary}, nil
		case eventbus.ReasonCancelled:
			return RunResult{Status: StatusCancelled, Turns: turns}, nil
		}

		switch o.Config.ControlFlow {
		case agentconfig.ControlFlowLoop:
			continue

		case agentconfig.ControlFlowStatic:
			*o.PrimaryHistory = append(*o.PrimaryHistory, message.NewUser(o.Config.StaticMessage))
			continue

		case agentconfig.ControlFlowGenerated:
			if o.generatedCriteria == "" {
				criteria, err := o.generateAcceptanceCriteria(ctx)
				if err != nil {
					return RunResult{Status: StatusError, Turns: turns, Err: err}, err
				}
				o.generatedCriteria = criteria
			}
			*o.PrimaryHistory = append(*o.PrimaryHistory, message.NewUser(o.generatedCriteria))
			continue

		case agentconfig.ControlFlowCoagent:
			result, done, err := o.runCoagentRound(ctx, turn, turns+1)
			if err != nil {
				return RunResult{Status: StatusError, Turns: turns, Err: err}, err
			}
			turns++
			if done {
				return result, nil
			}
			continue

		default: // "" and ControlFlowPassthrough
			return RunResult{Status: StatusNeedsInput, Turns: turns, LastText: turn.Text}, nil
		}
	}
}

// acceptanceCriteriaSchema is the minimal structured-output shape used by
// the "generated" control-flow policy's one-shot, non-streaming call
// (spec.md §4.6). It mirrors taskcomplete's own judge-via-structured-call
// pattern (pkg/tools/taskcomplete/taskcomplete.go) rather than adding a
// second, plain-completion method to provider.Client.
var acceptanceCriteriaSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"criteria": map[string]any{"type": "string", "description": "Acceptance criteria for the task above"},
	},
	"required": []string{"criteria"},
}

func (o *Orchestrator) generateAcceptanceCriteria(ctx context.Context) (string, error) {
	history := append(append([]message.Message{}, (*o.PrimaryHistory)...), message.NewUser(o.Config.GeneratePrompt))
	raw, err := o.Primary.Client.ChatToolStructured(ctx, history, "acceptance_criteria",
		"Produce acceptance criteria the task above must satisfy before it can be considered done.",
		acceptanceCriteriaSchema, o.Primary.Model)
	if err != nil {
		return "", fmt.Errorf("orchestrator: generate acceptance criteria: %w", err)
	}
	var out struct {
		Criteria string `json:"criteria"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("orchestrator: decode acceptance criteria: %w", err)
	}
	return out.Criteria, nil
}
