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

// Package provider is the streaming/structured chat-completion client of
// spec.md §4.1 (C1): an OpenAI-style transport, specified only by the
// interface it exposes (spec.md §1 leaves the concrete wire format to the
// server under test).
package provider

import (
	"context"
	"encoding/json"

	"github.com/kadirpekel/crow/pkg/message"
)

// DeltaSink receives stream deltas as they are decoded. Implementations
// must not block for long; the engine's trace guard and event bus are
// typical sinks.
type DeltaSink interface {
	OnDelta(message.StreamDelta)
}

// DeltaSinkFunc adapts a function to a DeltaSink.
type DeltaSinkFunc func(message.StreamDelta)

func (f DeltaSinkFunc) OnDelta(d message.StreamDelta) { f(d) }

// Client is the provider contract spec.md §4.1 requires. HTTPClient is
// the default implementation (client.go); tests substitute a stub.
type Client interface {
	// ChatStream streams a completion, publishing deltas to sink until
	// the server signals done or ctx is cancelled. Ends with nil on
	// natural termination, non-nil (including a "cancelled" error) on
	// network/HTTP failure or cancellation.
	ChatStream(ctx context.Context, messages []message.Message, tools []message.ToolDefinition, model string, sink DeltaSink) error

	// ChatToolStructured forces the model to emit exactly one named tool
	// call whose arguments satisfy schema, returning the raw arguments.
	ChatToolStructured(ctx context.Context, messages []message.Message, toolName, description string, schema map[string]any, model string) (json.RawMessage, error)
}

// StructuredCaller is the narrow interface tools that self-evaluate
// (task_complete) depend on; Client satisfies it. Kept separate from
// Client so toolapi.Context.Provider (typed `any`) can be asserted to it
// without importing the whole provider package from toolapi.
type StructuredCaller interface {
	ChatToolStructured(ctx context.Context, messages []message.Message, toolName, description string, schema map[string]any, model string) (json.RawMessage, error)
}
