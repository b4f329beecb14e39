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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/crow/pkg/react"
)

func TestHumanize_TerminalShortOutput(t *testing.T) {
	turn := react.TurnResult{ToolCalls: []react.ToolCallRecord{
		{Name: "terminal", ArgsJSON: `{"command":"echo hi"}`, Output: "hi\n"},
	}}
	out := Humanize(turn)
	require.Equal(t, "ran `echo hi`\n```\nhi\n\n```", out)
}

func TestHumanize_TerminalLongOutputKeepsHeadAndTail(t *testing.T) {
	lines := []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8"}
	turn := react.TurnResult{ToolCalls: []react.ToolCallRecord{
		{Name: "terminal", ArgsJSON: `{"command":"build"}`, Output: strings.Join(lines, "\n")},
	}}
	out := Humanize(turn)
	require.Contains(t, out, "l1\nl2\nl3\n...\nl7\nl8")
}

func TestHumanize_ReadFile(t *testing.T) {
	turn := react.TurnResult{ToolCalls: []react.ToolCallRecord{
		{Name: "read_file", ArgsJSON: `{"path":"main.go"}`, Output: "a\nb\nc"},
	}}
	require.Equal(t, "read `main.go` (2 lines)", Humanize(turn))
}

func TestHumanize_EditFileSuccessAndFailure(t *testing.T) {
	ok := react.TurnResult{ToolCalls: []react.ToolCallRecord{
		{Name: "edit_file", ArgsJSON: `{"path":"main.go"}`, Output: "Edited main.go (+1 -1 lines)"},
	}}
	require.Equal(t, "edited `main.go`", Humanize(ok))

	fail := react.TurnResult{ToolCalls: []react.ToolCallRecord{
		{Name: "edit_file", ArgsJSON: `{"path":"main.go"}`, Output: "old_string not found", IsError: true},
	}}
	require.Equal(t, "failed to edit `main.go`: old_string not found", Humanize(fail))
}

func TestHumanize_Grep(t *testing.T) {
	turn := react.TurnResult{ToolCalls: []react.ToolCallRecord{
		{Name: "grep", ArgsJSON: `{"pattern":"TODO"}`, Output: "\nFILE: a.go\n1: TODO fix\n3: TODO later\n"},
	}}
	require.Equal(t, "searched `TODO` (2 matches)", Humanize(turn))
}

func TestHumanize_TaskCompleteTruncatesSummary(t *testing.T) {
	long := strings.Repeat("x", 250)
	turn := react.TurnResult{ToolCalls: []react.ToolCallRecord{
		{Name: "task_complete", Output: long},
	}}
	out := Humanize(turn)
	require.True(t, strings.HasPrefix(out, "completed: "))
	require.LessOrEqual(t, len(out), len("completed: ")+200+3)
}

func TestHumanize_SkippedToolsProduceNothing(t *testing.T) {
	turn := react.TurnResult{
		ToolCalls: []react.ToolCallRecord{
			{Name: "thinking", Output: "pondering"},
			{Name: "todo_read", Output: "[]"},
			{Name: "todo_write", Output: "ok"},
			{Name: "now", Output: "2026-07-30T00:00:00Z"},
		},
		Text: "all set",
	}
	require.Equal(t, "all set", Humanize(turn))
}

func TestHumanize_UnknownToolGenericRendering(t *testing.T) {
	turn := react.TurnResult{ToolCalls: []react.ToolCallRecord{
		{Name: "websearch", ArgsJSON: `{"query":"golang context cancellation patterns and idioms"}`},
	}}
	out := Humanize(turn)
	require.Contains(t, out, "websearch(query=")
	require.True(t, len(out) < len("websearch(query=")+40)
}

func TestHumanize_AppendsFinalTextTruncated(t *testing.T) {
	turn := react.TurnResult{Text: strings.Repeat("a", 600)}
	out := Humanize(turn)
	require.True(t, strings.HasSuffix(out, "..."))
	require.Equal(t, 503, len(out))
}
