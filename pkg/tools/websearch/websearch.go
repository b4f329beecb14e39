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

// Package websearch implements the web_search tool (C3, spec.md
// §4.3.8): hits an external search endpoint and returns top-N
// snippets. Grounded on the pack's vanducng-goclaw repo
// (internal/tools/web_search.go), generalized from its
// Brave/DuckDuckGo provider pair to a single pluggable Provider seam
// so the endpoint itself stays an external collaborator.
package websearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

const (
	defaultCount = 5
	maxCount     = 10
)

// Result is one search hit.
type Result struct {
	Title       string
	URL         string
	Description string
}

// Provider abstracts a web search backend (spec.md §4.3.8 names this
// as an external search endpoint). This package ships one
// implementation, DuckDuckGoProvider; other backends plug in here.
type Provider interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// WebSearch is the web_search tool.
type WebSearch struct {
	provider Provider
	timeout  time.Duration
}

func NewWebSearch(provider Provider) *WebSearch {
	return &WebSearch{provider: provider, timeout: 10 * time.Second}
}

func (t *WebSearch) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "web_search",
		Description: "Search the web for current information; returns titles, URLs, and snippets.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Search query"},
				"count": map[string]any{"type": "integer", "description": "Number of results (1-10, default 5)"},
			},
			"required": []string{"query"},
		},
	}
}

type searchArgs struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

func (t *WebSearch) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args searchArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}
	if args.Query == "" {
		return toolapi.Error("query is required")
	}
	if t.provider == nil {
		return toolapi.Error("no search provider configured")
	}

	count := defaultCount
	if args.Count >= 1 && args.Count <= maxCount {
		count = args.Count
	}

	searchCtx, cancel := context.WithTimeout(ctx.Context, t.timeout)
	defer cancel()

	results, err := t.provider.Search(searchCtx, args.Query, count)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("search failed: %v", err))
	}
	return toolapi.Success(formatResults(args.Query, results))
}

func formatResults(query string, results []Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for: %s", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for: %s\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Description != "" {
			fmt.Fprintf(&b, "   %s\n", r.Description)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (t *WebSearch) Humanize(argsJSON string, result toolapi.Result) string {
	var args searchArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	return fmt.Sprintf("searched the web for %q", args.Query)
}
