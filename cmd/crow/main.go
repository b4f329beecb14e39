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

// Command crow is the thin CLI front end around the agent core
// (spec.md §1: "the CLI/TUI surface is explicitly out of scope beyond a
// minimal driver"). It wires one provider client, one tool registry, a
// trace store and a snapshot store into a react.Engine pair and an
// orchestrator.Orchestrator, runs one task to completion, and prints the
// result. Grounded on the teacher's cmd/hector/main.go kong CLI shape,
// stripped of everything A2A-server-specific that spec.md puts out of
// scope.
//
// Usage:
//
//	crow run --agent build --model gpt-4o-mini --prompt "add a README"
//	crow version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/crow"
	"github.com/kadirpekel/crow/pkg/agentconfig"
	"github.com/kadirpekel/crow/pkg/eventbus"
	"github.com/kadirpekel/crow/pkg/message"
	"github.com/kadirpekel/crow/pkg/orchestrator"
	"github.com/kadirpekel/crow/pkg/provider"
	"github.com/kadirpekel/crow/pkg/react"
	"github.com/kadirpekel/crow/pkg/snapshot"
	"github.com/kadirpekel/crow/pkg/telemetry"
	"github.com/kadirpekel/crow/pkg/toolapi"
	"github.com/kadirpekel/crow/pkg/tools/diagnostics"
	"github.com/kadirpekel/crow/pkg/tools/fetch"
	"github.com/kadirpekel/crow/pkg/tools/filetool"
	"github.com/kadirpekel/crow/pkg/tools/findpath"
	"github.com/kadirpekel/crow/pkg/tools/grep"
	"github.com/kadirpekel/crow/pkg/tools/listdir"
	"github.com/kadirpekel/crow/pkg/tools/now"
	"github.com/kadirpekel/crow/pkg/tools/shell"
	"github.com/kadirpekel/crow/pkg/tools/subagent"
	"github.com/kadirpekel/crow/pkg/tools/taskcomplete"
	"github.com/kadirpekel/crow/pkg/tools/thinking"
	"github.com/kadirpekel/crow/pkg/tools/todo"
	"github.com/kadirpekel/crow/pkg/tools/websearch"
	"github.com/kadirpekel/crow/pkg/trace"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Run     RunCmd     `cmd:"" help:"Run a task to completion."`

	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

const defaultBaseURL = "https://api.openai.com/v1"

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(crow.GetVersion().String())
	return nil
}

// RunCmd drives one orchestrator run against a single prompt.
type RunCmd struct {
	Prompt string `required:"" help:"The task to hand to the agent."`
	Agent  string `default:"build" help:"Agent config name to run as primary."`

	Provider string `help:"LLM provider name, used to key credentials and the base URL default." default:"openai"`
	Model    string `help:"Model name." required:""`
	APIKey   string `name:"api-key" help:"API key (defaults to ANTHROPIC_API_KEY for anthropic, GEMINI_API_KEY for gemini, OPENAI_API_KEY otherwise, then ~/.crow/credentials.json)."`
	BaseURL  string `name:"base-url" help:"API base URL (Ollama host when --provider=ollama)." default:"https://api.openai.com/v1"`

	WorkingDir string `name:"working-dir" help:"Project directory the agent operates in." default:"."`
	UserConfig string `name:"user-config" help:"Per-user agent config directory." default:""`

	TraceDB     string `name:"trace-db" help:"SQLite trace database path (empty = in-memory)."`
	NoSnapshots bool   `name:"no-snapshots" help:"Disable file-edit snapshot tracking."`
	MaxTurns    int    `name:"max-turns" help:"Cap on outer orchestrator turns." default:"0"`
}

// buildClient selects the transport matching --provider: Ollama speaks a
// local, keyless NDJSON API (pkg/provider.OllamaClient); every other name
// is treated as an OpenAI-compatible SSE endpoint (pkg/provider.HTTPClient).
func (c *RunCmd) buildClient() (provider.Client, error) {
	if c.Provider == "ollama" {
		host := c.BaseURL
		if host == "" || host == defaultBaseURL {
			host = "http://localhost:11434"
		}
		return provider.NewOllamaClient(host, c.Model), nil
	}

	cred, err := provider.ResolveAPIKey(envVarFor(c.Provider), c.Provider)
	if err != nil && c.APIKey == "" {
		return nil, fmt.Errorf("crow: resolve API key: %w", err)
	}
	apiKey := c.APIKey
	if apiKey == "" {
		apiKey = cred.Key
	}
	baseURL := c.BaseURL
	if cred.BaseURL != "" && (c.BaseURL == "" || c.BaseURL == defaultBaseURL) {
		baseURL = cred.BaseURL
	}

	return provider.NewHTTPClient(provider.Config{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   c.Model,
	}), nil
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("crow: shutting down")
		cancel()
	}()

	client, err := c.buildClient()
	if err != nil {
		return err
	}
	providers := provider.NewRegistry()
	if err := providers.Register(c.Provider, client); err != nil {
		return fmt.Errorf("crow: register provider client: %w", err)
	}
	client, _ = providers.Get(c.Provider)

	agents, err := agentconfig.NewRegistry(c.UserConfig, projectConfigDir(c.WorkingDir))
	if err != nil {
		return fmt.Errorf("crow: load agent configs: %w", err)
	}
	defer agents.Close()
	if err := agents.Watch(); err != nil {
		slog.Warn("crow: agent config hot-reload disabled", "error", err)
	}

	cfg, ok := agents.Get(c.Agent)
	if !ok {
		return fmt.Errorf("crow: unknown agent %q", c.Agent)
	}
	if !cfg.AllowsMode(agentconfig.ModePrimary) {
		return fmt.Errorf("crow: agent %q is not permitted to run as a primary", c.Agent)
	}

	traces, err := trace.Open(c.TraceDB)
	if err != nil {
		return fmt.Errorf("crow: open trace store: %w", err)
	}
	defer traces.Close()

	var snapshots *snapshot.Store
	if !c.NoSnapshots {
		snapshots, err = snapshot.NewStore(c.WorkingDir)
		if err != nil {
			return fmt.Errorf("crow: open snapshot store: %w", err)
		}
	}

	events := eventbus.New()
	unsub := subscribeStderr(events)
	defer unsub()

	tel := telemetry.New("crow")
	defer tel.Shutdown(context.Background())

	todos := todo.NewStore()
	tools := buildToolRegistry(agents, todos, traces, events, snapshots, tel)

	sessionID := sessionIDFor(c.Agent)
	primary := &react.Engine{
		Client:       client,
		Tools:        tools,
		Traces:       traces,
		Events:       events,
		Snapshots:    snapshots,
		Telemetry:    tel,
		AgentName:    c.Agent,
		ProviderName: c.Provider,
		Model:        firstNonEmpty(cfg.Model, c.Model),
		SessionID:    sessionID,
		WorkingDir:   c.WorkingDir,

		MaxIterations: cfg.ResolvedMaxIterations(0),
	}

	history := []message.Message{message.NewUser(c.Prompt)}
	if cfg.Prompt != "" {
		history = append([]message.Message{message.NewSystem(cfg.Prompt)}, history...)
	}

	orch := &orchestrator.Orchestrator{
		Primary:        primary,
		PrimaryHistory: &history,
		Config:         cfg,
		Todos:          todos,
		MaxTurns:       c.MaxTurns,
	}

	if cfg.ControlFlow == agentconfig.ControlFlowCoagent {
		coCfg, ok := agents.Get(cfg.Coagent)
		if !ok {
			return fmt.Errorf("crow: agent %q names unknown coagent %q", c.Agent, cfg.Coagent)
		}
		var coHistory []message.Message
		orch.Coagent = &react.Engine{
			Client:        client,
			Tools:         tools,
			Traces:        traces,
			Events:        events,
			Snapshots:     snapshots,
			Telemetry:     tel,
			AgentName:     cfg.Coagent,
			ProviderName:  c.Provider,
			Model:         firstNonEmpty(coCfg.Model, c.Model),
			SessionID:     sessionIDFor(cfg.Coagent),
			WorkingDir:    c.WorkingDir,
			MaxIterations: coCfg.ResolvedMaxIterations(0),
		}
		orch.CoagentHistory = &coHistory
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("crow: run failed: %w", err)
	}

	fmt.Println()
	fmt.Printf("status: %s (turns: %d)\n", result.Status, result.Turns)
	switch result.Status {
	case orchestrator.StatusComplete:
		fmt.Println(result.Summary)
	case orchestrator.StatusNeedsInput:
		fmt.Println(result.LastText)
	case orchestrator.StatusError:
		return result.Err
	}
	return nil
}

// buildToolRegistry assembles the full tool set (spec.md §4.2/§4.3): every
// tool shares the same trace/event/snapshot wiring as the primary engine,
// so a subagent spawn sees the exact same seams.
func buildToolRegistry(agents *agentconfig.Registry, todos *todo.Store, traces *trace.Store, events eventbus.Sink, snapshots *snapshot.Store, tel *telemetry.Telemetry) *toolapi.Registry {
	tools := toolapi.NewRegistry()

	register(tools, filetool.NewReadFile())
	register(tools, filetool.NewEditFile())
	register(tools, shell.NewTerminal())
	register(tools, grep.NewGrep())
	register(tools, findpath.NewFindPath())
	register(tools, listdir.NewListDirectory())
	register(tools, fetch.NewFetch())
	register(tools, websearch.NewWebSearch(websearch.NewDuckDuckGoProvider()))
	register(tools, diagnostics.NewDiagnostics(&diagnostics.CommandAdapter{Command: "go", Args: []string{"vet", "./..."}}))
	register(tools, todo.NewRead(todos))
	register(tools, todo.NewWrite(todos))
	register(tools, thinking.NewThinking())
	register(tools, now.NewNow())
	register(tools, taskcomplete.NewTaskComplete())
	register(tools, subagent.NewTask(agents, tools, traces, events, snapshots, tel))

	return tools
}

func register(tools *toolapi.Registry, t toolapi.Tool) {
	if err := tools.Register(t); err != nil {
		slog.Error("crow: register tool failed", "tool", t.Definition().Name, "error", err)
	}
}

// subscribeStderr drains the event bus to stderr for the lifetime of the
// run; a richer front end would fan this out to a UI instead.
func subscribeStderr(bus *eventbus.Bus) func() {
	ch, cancel := bus.Subscribe(256)
	go func() {
		for ev := range ch {
			switch ev.Kind {
			case eventbus.KindTextDelta:
				fmt.Fprint(os.Stderr, ev.Text)
			case eventbus.KindToolCallStart:
				fmt.Fprintf(os.Stderr, "\n[tool] %s\n", ev.ToolName)
			case eventbus.KindCoagentStart:
				fmt.Fprintf(os.Stderr, "\n[coagent] %s -> %s\n", ev.Primary, ev.Coagent)
			case eventbus.KindCancelled:
				fmt.Fprintln(os.Stderr, "\n[cancelled]")
			}
		}
	}()
	return cancel
}

func envVarFor(providerName string) string {
	switch providerName {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func projectConfigDir(workingDir string) string {
	if workingDir == "" {
		return ".crow/agents"
	}
	return workingDir + "/.crow/agents"
}

func sessionIDFor(agentName string) string {
	return "cli/" + agentName
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("crow"),
		kong.Description("A streaming ReAct agent core with a primary/coagent orchestrator."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	switch cli.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
