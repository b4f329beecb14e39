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
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kadirpekel/crow/pkg/react"
)

// skippedTools carries no signal worth re-embedding across the
// primary/coagent boundary (spec.md §4.8).
var skippedTools = map[string]bool{
	"thinking":   true,
	"todo_read":  true,
	"todo_write": true,
	"now":        true,
}

var grepMatchLine = regexp.MustCompile(`(?m)^\d+: `)

// Humanize converts a finished turn into the compact markdown summary
// handed across the primary/coagent boundary (spec.md §4.8). It is a
// distinct, stricter contract than toolapi.Tool.Humanize (which each tool
// implements for its own live per-call narration): this function owns the
// exact per-tool wording, truncation lengths and skip-list the turn
// hand-off requires, rather than delegating to the registry.
func Humanize(turn react.TurnResult) string {
	var lines []string
	for _, tc := range turn.ToolCalls {
		if skippedTools[tc.Name] {
			continue
		}
		if line := humanizeToolCall(tc); line != "" {
			lines = append(lines, line)
		}
	}

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(l)
	}
	if turn.Text != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(truncateString(turn.Text, 500))
	}
	return b.String()
}

func humanizeToolCall(tc react.ToolCallRecord) string {
	switch tc.Name {
	case "terminal":
		cmd := argString(tc.ArgsJSON, "command")
		return fmt.Sprintf("ran `%s`\n```\n%s\n```", cmd, truncateOutputBlock(tc.Output))
	case "read_file":
		path := argString(tc.ArgsJSON, "path")
		return fmt.Sprintf("read `%s` (%d lines)", path, strings.Count(tc.Output, "\n"))
	case "edit_file":
		path := argString(tc.ArgsJSON, "path")
		if tc.IsError {
			return fmt.Sprintf("failed to edit `%s`: %s", path, tc.Output)
		}
		return fmt.Sprintf("edited `%s`", path)
	case "grep":
		pattern := argString(tc.ArgsJSON, "pattern")
		n := len(grepMatchLine.FindAllString(tc.Output, -1))
		return fmt.Sprintf("searched `%s` (%d matches)", pattern, n)
	case "task_complete":
		return fmt.Sprintf("completed: %s", truncateString(tc.Output, 200))
	default:
		return humanizeUnknownTool(tc)
	}
}

// humanizeUnknownTool renders any tool spec.md §4.8 doesn't single out:
// `name(k1=v1, k2=v2)` with each value truncated to 30 characters.
func humanizeUnknownTool(tc react.ToolCallRecord) string {
	args := parseArgsMap(tc.ArgsJSON)
	if len(args) == 0 {
		return fmt.Sprintf("%s()", tc.Name)
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		v := fmt.Sprintf("%v", args[k])
		parts = append(parts, fmt.Sprintf("%s=%s", k, truncateString(v, 30)))
	}
	return fmt.Sprintf("%s(%s)", tc.Name, strings.Join(parts, ", "))
}

// truncateOutputBlock implements spec.md §4.8's terminal rule: up to 300
// characters, or the first 3 + last 2 lines when there are more than 6.
func truncateOutputBlock(output string) string {
	lines := strings.Split(output, "\n")
	if len(lines) > 6 {
		head := lines[:3]
		tail := lines[len(lines)-2:]
		return strings.Join(head, "\n") + "\n...\n" + strings.Join(tail, "\n")
	}
	return truncateString(output, 300)
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
