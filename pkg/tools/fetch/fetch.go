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

// Package fetch implements the fetch tool (C3, spec.md §4.3.7): an
// HTTP GET with JSON pretty-printing and a hand-written HTML-to-markdown
// streaming converter. Grounded on the web-fetch tool in the pack's
// vanducng-goclaw repo (internal/tools/web_fetch.go), generalized from
// its regex-pass pipeline to a single-pass tag-state scanner per
// spec.md's "streaming parser" wording.
package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

const (
	userAgent    = "crow-agent/1.0"
	fetchTimeout = 20 * time.Second
	maxBodyBytes = 1 << 20 // 1 MiB
)

// Fetch is the fetch tool.
type Fetch struct {
	client *http.Client
}

func NewFetch() *Fetch {
	return &Fetch{client: &http.Client{Timeout: fetchTimeout}}
}

func (t *Fetch) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "fetch",
		Description: "HTTP GET a URL. JSON is pretty-printed, HTML is reduced to markdown.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "URL to fetch"},
			},
			"required": []string{"url"},
		},
	}
}

type fetchArgs struct {
	URL string `json:"url"`
}

func (t *Fetch) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args fetchArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}
	if args.URL == "" {
		return toolapi.Error("url is required")
	}
	if !strings.HasPrefix(args.URL, "http://") && !strings.HasPrefix(args.URL, "https://") {
		return toolapi.Error("only http(s) URLs are supported")
	}

	req, err := http.NewRequestWithContext(ctx.Context, http.MethodGet, args.URL, nil)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("invalid request: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("fetch failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return toolapi.Error(fmt.Sprintf("failed to read response: %v", err))
	}

	contentType := resp.Header.Get("Content-Type")
	var rendered string
	switch {
	case strings.Contains(contentType, "application/json"):
		rendered = renderJSON(body)
	case strings.Contains(contentType, "text/html"):
		rendered = htmlToMarkdown(string(body))
	default:
		rendered = string(body)
	}

	return toolapi.Success(fmt.Sprintf("URL: %s\nStatus: %d\n\n%s", args.URL, resp.StatusCode, rendered))
}

func renderJSON(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(body)
	}
	return fmt.Sprintf("```json\n%s\n```", pretty)
}

func (t *Fetch) Humanize(argsJSON string, result toolapi.Result) string {
	var args fetchArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	return fmt.Sprintf("fetched `%s`", args.URL)
}
