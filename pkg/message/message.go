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

// Package message defines the chat message data model shared by the
// provider client, the inner ReAct engine and the outer orchestrator
// (spec.md §3).
package message

// Role identifies which of the four message variants a Message carries.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallStub is the assistant's request to invoke one tool. Args is the
// raw JSON argument string as streamed/returned by the provider; it is
// parsed lazily by the tool dispatcher.
type ToolCallStub struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// Part is one element of a message's content when it is not plain text.
// The core treats parts as text for compression purposes but preserves
// them verbatim on the wire (spec.md §3).
type Part struct {
	Type string `json:"type"` // "text", "image", "file", ...
	Text string `json:"text,omitempty"`
	// Data carries non-text payloads (e.g. base64 image bytes, file refs)
	// opaque to the core.
	Data map[string]any `json:"data,omitempty"`
}

// Message is the tagged record of spec.md §3. Only the fields relevant to
// Role are meaningful; others are left zero.
type Message struct {
	Role Role `json:"role"`

	// Content is plain text. When Parts is non-empty, Content is derived
	// from Parts by concatenating their text (used for compression /
	// token-budget estimation); Parts remains the source of truth.
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCallStub `json:"tool_calls,omitempty"`

	// ToolCallID and Name identify which stub a tool message answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`

	// IsError marks a tool message whose Content is an error, per the
	// tool-result error flag (spec.md §3).
	IsError bool `json:"is_error,omitempty"`
}

// Text returns the message's textual content, preferring Parts when set.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		out += p.Text
	}
	return out
}

// NewSystem, NewUser, NewAssistantText and NewToolResult are small
// constructors used throughout the engine and its tests.

func NewSystem(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

func NewUser(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func NewAssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

func NewAssistantToolCalls(stubs []ToolCallStub) Message {
	return Message{Role: RoleAssistant, ToolCalls: stubs}
}

func NewToolResult(callID, name, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		Name:       name,
		IsError:    isError,
	}
}

// ValidateToolInvariant checks the spec.md §3 invariant: every assistant
// message bearing tool-call stubs is immediately followed, in stub order,
// by exactly one tool message per stub before any further assistant
// message. It is used by tests and defensively by the engine.
func ValidateToolInvariant(history []Message) error {
	for i, m := range history {
		if m.Role != RoleAssistant || len(m.ToolCalls) == 0 {
			continue
		}
		for j, stub := range m.ToolCalls {
			idx := i + 1 + j
			if idx >= len(history) {
				return errMissingToolReply(stub.ID)
			}
			reply := history[idx]
			if reply.Role != RoleTool || reply.ToolCallID != stub.ID {
				return errMissingToolReply(stub.ID)
			}
		}
	}
	return nil
}

func errMissingToolReply(id string) error {
	return &invariantError{id: id}
}

type invariantError struct{ id string }

func (e *invariantError) Error() string {
	return "message: tool-call stub " + e.id + " has no matching tool reply immediately following it"
}
