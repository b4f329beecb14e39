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

// Package crow is a streaming ReAct agent core: a bounded inner loop
// (pkg/react) that alternates LLM completions and tool calls, driven by
// an outer orchestrator (pkg/orchestrator) that can run a primary agent
// standalone, loop it against a static or LLM-generated goal, or pair it
// with a coagent that reviews its work turn by turn.
//
// # Quick start
//
// Install the CLI:
//
//	go install github.com/kadirpekel/crow/cmd/crow@latest
//
// Run a task:
//
//	crow run --agent build --model gpt-4o-mini --prompt "add a README"
//
// # Architecture
//
// Every run is: provider.Client (one streaming chat-completions
// transport) + toolapi.Registry (the tool set) + trace.Store (persisted
// call history) + snapshot.Store (content-addressed file-edit journal),
// wired into one or two react.Engine instances and driven by one
// orchestrator.Orchestrator. agentconfig.Registry supplies each agent's
// permissions, control-flow policy, and prompt from layered markdown
// documents.
//
// # Status
//
// Pre-1.0; APIs may still change.
package crow
