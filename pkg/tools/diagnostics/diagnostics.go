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

// Package diagnostics implements the diagnostics tool (C3, spec.md
// §4.3.8): runs a language server (or language-server-shaped external
// process) to collect issues for a project or file. Grounded on the
// teacher's pkg/tools/command.go exec.CommandContext idiom, since no
// pack repo vendors a JSON-RPC LSP client; the external-process
// adapter here treats "language server" as any configured diagnostic
// command that emits one finding per line.
package diagnostics

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

// Diagnostic is one reported issue.
type Diagnostic struct {
	Path     string
	Line     int
	Severity string
	Message  string
}

// LanguageServer abstracts a source of diagnostics for a path, whether
// an in-process analysis or an external language server.
type LanguageServer interface {
	Diagnose(ctx context.Context, path string) ([]Diagnostic, error)
}

// CommandAdapter runs an external command (a linter or a language
// server's batch-check mode) and parses its line-oriented output.
// Kill-on-drop applies via exec.CommandContext, the same discipline
// pkg/tools/shell uses for the terminal tool.
type CommandAdapter struct {
	Command    string   // e.g. "go"
	Args       []string // e.g. ["vet", "./..."]
	WorkingDir string
	Parse      func(line string) (Diagnostic, bool)
	Timeout    time.Duration
}

func (a *CommandAdapter) Diagnose(ctx context.Context, path string) ([]Diagnostic, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{}, a.Args...)
	if path != "" {
		args = append(args, path)
	}
	cmd := exec.CommandContext(runCtx, a.Command, args...)
	cmd.Dir = a.WorkingDir

	output, _ := cmd.CombinedOutput()

	var diags []Diagnostic
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if a.Parse != nil {
			if d, ok := a.Parse(line); ok {
				diags = append(diags, d)
				continue
			}
		}
		diags = append(diags, Diagnostic{Message: line, Severity: "error"})
	}
	return diags, nil
}

// Diagnostics is the diagnostics tool.
type Diagnostics struct {
	server LanguageServer
}

func NewDiagnostics(server LanguageServer) *Diagnostics {
	return &Diagnostics{server: server}
}

func (t *Diagnostics) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "diagnostics",
		Description: "Run static analysis/diagnostics for a project or a single file.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "File or directory to check (default: whole project)"},
			},
		},
	}
}

type diagnosticsArgs struct {
	Path string `json:"path"`
}

func (t *Diagnostics) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args diagnosticsArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}
	if t.server == nil {
		return toolapi.Error("no diagnostics backend configured")
	}

	diags, err := t.server.Diagnose(ctx.Context, args.Path)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("diagnostics failed: %v", err))
	}
	if len(diags) == 0 {
		return toolapi.Success("No issues found")
	}

	var b strings.Builder
	for _, d := range diags {
		if d.Path != "" {
			fmt.Fprintf(&b, "%s:%d: [%s] %s\n", d.Path, d.Line, d.Severity, d.Message)
		} else {
			fmt.Fprintf(&b, "[%s] %s\n", d.Severity, d.Message)
		}
	}
	return toolapi.Success(b.String())
}

func (t *Diagnostics) Humanize(argsJSON string, result toolapi.Result) string {
	return "ran diagnostics"
}
