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

// Package agentconfig is the agent config & registry of spec.md §4.7/§6
// (C5): a typed front-matter block plus an optional markdown body, the
// built-in agent set, and permission evaluation (tool/bash/edit/
// web-fetch/doom-loop/external-directory). Grounded on the teacher's
// pkg/config (AgentConfig, SetDefaults, Validate) and pkg/config/loader.go
// (YAML decode, gopkg.in/yaml.v3), generalized from the teacher's
// all-in-one-YAML-document shape to one-document-per-agent with a
// markdown body, which is what spec.md §6 requires.
package agentconfig

import (
	"bufio"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode restricts which role(s) an agent may be invoked in.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeSubagent Mode = "subagent"
	ModeCoagent  Mode = "coagent"
	ModeAll      Mode = "all"
)

// ControlFlow selects the outer orchestrator's dispatch policy (spec.md §4.6).
type ControlFlow string

const (
	ControlFlowPassthrough ControlFlow = "passthrough"
	ControlFlowLoop        ControlFlow = "loop"
	ControlFlowStatic      ControlFlow = "static"
	ControlFlowGenerated   ControlFlow = "generated"
	ControlFlowCoagent     ControlFlow = "coagent"
)

// Decision is the outcome of an allow/deny/ask permission check.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
	DecisionAsk   Decision = "ask"
)

// Permission is the front-matter `permission` block (spec.md §4.7).
// Bash is a pattern → Decision map; everything else is a single Decision.
type Permission struct {
	Edit              Decision            `yaml:"edit,omitempty"`
	Bash              map[string]Decision `yaml:"bash,omitempty"`
	WebFetch          Decision            `yaml:"webfetch,omitempty"`
	DoomLoop          Decision            `yaml:"doom_loop,omitempty"`
	ExternalDirectory Decision            `yaml:"external_directory,omitempty"`
}

// Config is one agent's parsed configuration document (spec.md §6). Name
// is not a front-matter field: it is the file stem, set by the registry
// when a document is loaded from disk (or the built-in's key).
type Config struct {
	Name string `yaml:"-"`

	Description string  `yaml:"description,omitempty"`
	Mode        Mode    `yaml:"mode,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	TopP        float64 `yaml:"top_p,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`

	// MaxIterations bounds the inner ReAct loop (spec.md §4.5); 0 means
	// "use the engine default" (50).
	MaxIterations int    `yaml:"max_iterations,omitempty"`
	Color         string `yaml:"color,omitempty"`

	// Tools is a name → enabled override map. A tool absent from this map
	// falls back to DefaultToolsEnabled (spec.md §4.7).
	Tools map[string]bool `yaml:"tools,omitempty"`

	Permission Permission `yaml:"permission,omitempty"`

	ControlFlow ControlFlow `yaml:"control_flow,omitempty"`

	// StaticMessage backs control_flow: static.
	StaticMessage string `yaml:"static_message,omitempty"`

	// GeneratePrompt backs control_flow: generated; the cached acceptance
	// criteria produced from it live on the run, not on the config.
	GeneratePrompt string `yaml:"generate_prompt,omitempty"`

	// Coagent names the agent config to pair with under control_flow: coagent.
	Coagent string `yaml:"coagent,omitempty"`

	// Prompt is the optional markdown body, used as the agent's system
	// prompt; there are no built-in instructions ahead of it.
	Prompt string `yaml:"-"`
}

// DefaultToolsEnabled is the fallback when a tool has no explicit entry
// in Config.Tools (spec.md §4.7: "absent ⇒ default-enabled flag").
const DefaultToolsEnabled = true

const frontMatterDelim = "---"

// Parse reads one agent configuration document: a leading `---` delimited
// YAML front-matter block followed by an optional markdown body. A
// document with no front-matter delimiters is treated as body-only (the
// zero-value Config, entirely defaults). Unknown front-matter fields are
// tolerated silently, per yaml.v3's default decode behaviour (no
// KnownFields enforcement), satisfying spec.md §4.7's forward-compatibility
// requirement.
func Parse(data []byte) (Config, error) {
	text := string(data)
	if !strings.HasPrefix(strings.TrimLeft(text, "\n"), frontMatterDelim) {
		return Config{Prompt: strings.TrimSpace(text)}, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var fm strings.Builder
	var body strings.Builder
	seenOpen := false
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if !seenOpen && trimmed == frontMatterDelim {
			seenOpen = true
			continue
		}
		if seenOpen && !closed && trimmed == frontMatterDelim {
			closed = true
			continue
		}
		if seenOpen && !closed {
			fm.WriteString(line)
			fm.WriteByte('\n')
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("agentconfig: scan document: %w", err)
	}
	if seenOpen && !closed {
		return Config{}, fmt.Errorf("agentconfig: unterminated front-matter block")
	}

	var cfg Config
	if fm.Len() > 0 {
		if err := yaml.Unmarshal([]byte(fm.String()), &cfg); err != nil {
			return Config{}, fmt.Errorf("agentconfig: parse front-matter: %w", err)
		}
	}
	cfg.Prompt = strings.TrimSpace(body.String())
	return cfg, nil
}

// ResolvedMaxIterations returns c.MaxIterations, or fallback when unset.
func (c Config) ResolvedMaxIterations(fallback int) int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return fallback
}

// AllowsMode reports whether this config may be instantiated in role m.
func (c Config) AllowsMode(m Mode) bool {
	if c.Mode == "" || c.Mode == ModeAll {
		return true
	}
	return c.Mode == m
}
