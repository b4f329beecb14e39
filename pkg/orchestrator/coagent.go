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
	"fmt"

	"github.com/kadirpekel/crow/pkg/eventbus"
	"github.com/kadirpekel/crow/pkg/message"
	"github.com/kadirpekel/crow/pkg/react"
)

// coagentFraming is the message prepended to a freshly-inverted coagent
// session (spec.md §4.6 "Coagent session initialisation").
const coagentFraming = "You previously gave instructions to a coding agent. Review the work below and decide if the task is complete. If complete, call task_complete. Otherwise provide feedback."

// invertPrimaryHistory builds the coagent's initial message list from the
// primary's transcript so far (spec.md §4.6): system messages are
// dropped; primary user messages become coagent assistant messages;
// primary assistant messages become coagent user messages (a summary of
// their tool calls when they carry one); tool messages become truncated
// coagent user messages prefixed "Tool result: ". The coagent then sees
// itself reviewing the primary's work, not continuing its transcript.
func invertPrimaryHistory(primary []message.Message) []message.Message {
	out := make([]message.Message, 0, len(primary)+1)
	out = append(out, message.NewUser(coagentFraming))

	for _, m := range primary {
		switch m.Role {
		case message.RoleSystem:
			continue
		case message.RoleUser:
			out = append(out, message.NewAssistantText(m.Text()))
		case message.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				out = append(out, message.NewUser(summarizeToolCallStubs(m.ToolCalls)))
			} else {
				out = append(out, message.NewUser(m.Text()))
			}
		case message.RoleTool:
			out = append(out, message.NewUser("Tool result: "+truncateString(m.Content, 300)))
		}
	}
	return out
}

func summarizeToolCallStubs(stubs []message.ToolCallStub) string {
	if len(stubs) == 1 {
		return fmt.Sprintf("called %s", stubs[0].Name)
	}
	names := make([]string, 0, len(stubs))
	for _, s := range stubs {
		names = append(names, s.Name)
	}
	out := "called "
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// runCoagentRound executes one iteration of the coagent sub-loop (spec.md
// §4.6 steps 1-6) following a non-terminal primary turn.
func (o *Orchestrator) runCoagentRound(ctx context.Context, primaryTurn react.TurnResult, turns int) (RunResult, bool, error) {
	if o.Coagent == nil || o.CoagentHistory == nil {
		return RunResult{}, false, fmt.Errorf("orchestrator: control_flow coagent requires a configured coagent engine")
	}

	o.emit(eventbus.CoagentStart(o.Primary.AgentName, o.Coagent.AgentName))
	defer o.emit(eventbus.CoagentEnd(o.Primary.AgentName, o.Coagent.AgentName))

	if !o.coagentInit {
		// Inversion walks the primary history through and including the
		// turn that was just finished, so it already supplies a coagent
		// user message derived from that turn (spec.md §8 "Coagent
		// inversion"); only later rounds need an explicit append.
		*o.CoagentHistory = invertPrimaryHistory(*o.PrimaryHistory)
		if o.Todos != nil {
			o.Todos.Alias(o.Coagent.SessionID, o.Primary.SessionID)
		}
		o.coagentInit = true
	} else {
		*o.CoagentHistory = append(*o.CoagentHistory, message.NewUser(Humanize(primaryTurn)))
	}

	coTurn, err := o.Coagent.Run(ctx, o.CoagentHistory)
	if err != nil {
		return RunResult{}, false, fmt.Errorf("orchestrator: coagent turn: %w", err)
	}

	if coTurn.Reason == eventbus.ReasonCancelled {
		return RunResult{Status: StatusCancelled, Turns: turns}, true, nil
	}

	// Mp always records the humanised coagent turn, even when it is the
	// run's last turn (spec.md §8 end-to-end scenario 5: "Mp ends with an
	// extra user message containing the humanised coagent turn").
	*o.PrimaryHistory = append(*o.PrimaryHistory, message.NewUser(Humanize(coTurn)))

	if coTurn.Reason == eventbus.ReasonTaskComplete {
		return RunResult{Status: StatusComplete, Turns: turns, Summary: coTurn.Summary}, true, nil
	}
	return RunResult{}, false, nil
}
