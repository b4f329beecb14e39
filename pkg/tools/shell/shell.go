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

// Package shell implements the terminal tool (C3, spec.md §4.3.3):
// a single shell command run via the platform shell, with combined
// output capture, truncation, and a hard timeout ceiling. Grounded on
// the teacher's pkg/tools/command.go, generalized from the teacher's
// allow-listed sandboxing model to the spec's timeout/cancellation
// semantics.
package shell

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

const (
	defaultTimeout = 2 * time.Minute
	maxTimeout     = 10 * time.Minute
	maxOutputBytes = 30 * 1024
)

// Terminal is the terminal tool.
type Terminal struct{}

func NewTerminal() *Terminal { return &Terminal{} }

func (t *Terminal) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name: "terminal",
		Description: "Run a single shell command in the working directory. Prefer read-only inspection " +
			"commands (rg, not grep; read_file, not cat). Chain multiple commands with ; or && — never newlines.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command":         map[string]any{"type": "string", "description": "Shell command to run via the platform shell's -c"},
				"timeout_seconds": map[string]any{"type": "integer", "description": "Timeout in seconds, capped at 600"},
			},
			"required": []string{"command"},
		},
	}
}

type terminalArgs struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (t *Terminal) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args terminalArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}
	if args.Command == "" {
		return toolapi.Error("command is required")
	}

	timeout := defaultTimeout
	if args.TimeoutSeconds > 0 {
		timeout = time.Duration(args.TimeoutSeconds) * time.Second
	}
	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx.Context, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", args.Command)
	cmd.Dir = ctx.WorkingDir

	output, runErr := cmd.CombinedOutput()
	text := truncateOutput(string(output))

	// Cancellation takes precedence over an ordinary non-zero exit in how
	// the failure is reported, since the caller asked to stop, not to see
	// the command's own idea of failure.
	if runCtx.Err() == context.Canceled {
		return toolapi.Error("command cancelled")
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return toolapi.Error(fmt.Sprintf("command timed out after %s\n%s", timeout, text))
	}
	if runErr != nil {
		if text == "" {
			return toolapi.Error(fmt.Sprintf("command failed: %v", runErr))
		}
		return toolapi.Error(fmt.Sprintf("%s\n(exit error: %v)", text, runErr))
	}
	if text == "" {
		return toolapi.Success("(no output)")
	}
	return toolapi.Success(text)
}

func truncateOutput(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "\n(Output truncated)"
}

func (t *Terminal) Humanize(argsJSON string, result toolapi.Result) string {
	var args terminalArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	body := result.Output
	lines := splitLines(body)
	if len(lines) > 6 {
		head := lines[:3]
		tail := lines[len(lines)-2:]
		body = join(head) + "\n...\n" + join(tail)
	} else if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("ran `%s`\n```\n%s\n```", args.Command, body)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func join(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
