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

package react

import "github.com/kadirpekel/crow/pkg/message"

// accumulator mirrors the trace guard's own by-index merge of a single
// LLM call's streamed deltas (spec.md §4.5 step 4), kept separately here
// because the engine needs the finished tool-call stubs and text as Go
// values, not just a persisted trace row.
type accumulator struct {
	text      string
	reasoning string
	calls     map[int]*message.ToolCallStub
	order     []int
}

func newAccumulator() *accumulator {
	return &accumulator{calls: make(map[int]*message.ToolCallStub)}
}

func (a *accumulator) mergeToolCall(frag *message.ToolCallFragment) {
	if frag == nil {
		return
	}
	stub, ok := a.calls[frag.Index]
	if !ok {
		stub = &message.ToolCallStub{}
		a.calls[frag.Index] = stub
		a.order = append(a.order, frag.Index)
	}
	if frag.ID != "" {
		stub.ID = frag.ID
	}
	if frag.Name != "" {
		stub.Name = frag.Name
	}
	stub.Args += frag.ArgsChunk
}

// stubs returns the accumulated tool calls in first-seen order.
func (a *accumulator) stubs() []message.ToolCallStub {
	out := make([]message.ToolCallStub, 0, len(a.order))
	for _, idx := range a.order {
		out = append(out, *a.calls[idx])
	}
	return out
}
