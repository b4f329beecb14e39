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

package agentconfig

// builtins returns the hard-coded agent set spec.md §4.7 names: build,
// plan, general, executor, arbiter, planner, architect. These are the
// registry's lowest-priority layer; a per-user or per-project file of the
// same name overrides one wholesale.
func builtins() map[string]Config {
	out := make(map[string]Config)
	add := func(c Config) { out[c.Name] = c }

	add(Config{
		Name:        "build",
		Description: "Implements features and fixes bugs directly in the working directory.",
		Mode:        ModeAll,
		ControlFlow: ControlFlowLoop,
		Permission: Permission{
			Edit:     DecisionAllow,
			WebFetch: DecisionAsk,
			DoomLoop: DecisionDeny,
		},
		Prompt: "You are a careful software engineer. Make the smallest correct change, run the tools available to verify it, and call task_complete when the work is genuinely done.",
	})

	add(Config{
		Name:        "plan",
		Description: "Produces an implementation plan without editing files.",
		Mode:        ModeAll,
		ControlFlow: ControlFlowPassthrough,
		Permission: Permission{
			Edit:     DecisionDeny,
			WebFetch: DecisionAsk,
			DoomLoop: DecisionDeny,
		},
		Prompt: "You are a planning assistant. Read the codebase as needed, then produce a concrete, ordered implementation plan. Do not edit files.",
	})

	add(Config{
		Name:        "general",
		Description: "General-purpose assistant with the full tool set.",
		Mode:        ModeAll,
		ControlFlow: ControlFlowLoop,
		Permission: Permission{
			Edit:     DecisionAsk,
			WebFetch: DecisionAsk,
			DoomLoop: DecisionDeny,
		},
	})

	add(Config{
		Name:        "executor",
		Description: "Runs a single bounded task to completion with minimal back-and-forth, typically spawned as a subagent.",
		Mode:        ModeSubagent,
		ControlFlow: ControlFlowLoop,
		MaxIterations: 20,
		Permission: Permission{
			Edit:     DecisionAllow,
			WebFetch: DecisionDeny,
			DoomLoop: DecisionDeny,
		},
	})

	add(Config{
		Name:        "arbiter",
		Description: "Reviews a primary agent's work and decides whether the task is truly complete; used as a coagent.",
		Mode:        ModeCoagent,
		ControlFlow: ControlFlowPassthrough,
		Permission: Permission{
			Edit:     DecisionDeny,
			WebFetch: DecisionDeny,
			DoomLoop: DecisionDeny,
		},
		Prompt: "You are reviewing a coding agent's work, not performing it yourself. Be skeptical: verify claims against the evidence shown rather than taking the summary at face value. Call task_complete only when the original task is genuinely satisfied.",
	})

	add(Config{
		Name:        "planner",
		Description: "Coagent that keeps a primary build agent honest against a plan.",
		Mode:        ModeCoagent,
		ControlFlow: ControlFlowPassthrough,
		Permission: Permission{
			Edit:     DecisionDeny,
			WebFetch: DecisionDeny,
			DoomLoop: DecisionDeny,
		},
	})

	add(Config{
		Name:        "architect",
		Description: "Designs system structure and interfaces before implementation; read-mostly.",
		Mode:        ModeAll,
		ControlFlow: ControlFlowGenerated,
		GeneratePrompt: "Summarize the acceptance criteria an implementation of this request must satisfy.",
		Permission: Permission{
			Edit:     DecisionAsk,
			WebFetch: DecisionAsk,
			DoomLoop: DecisionDeny,
		},
	})

	return out
}
