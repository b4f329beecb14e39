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

package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/crow/pkg/message"
)

// OllamaClient is a second Client implementation against Ollama's native
// /api/chat endpoint, whose newline-delimited JSON streaming shape
// differs from the OpenAI SSE one HTTPClient speaks. Grounded on the
// teacher's pkg/llms/ollama.go (OllamaProvider, host/timeout wiring),
// generalized from its single-shot Generate(prompt) call into the full
// streaming, tool-call-capable Client contract spec.md §6 requires.
type OllamaClient struct {
	httpClient *http.Client
	host       string
	model      string
}

// NewOllamaClient builds a client against an Ollama daemon at host (e.g.
// "http://localhost:11434"); model is the default used when ChatStream's
// own model argument is empty.
func NewOllamaClient(host, model string) *OllamaClient {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute, Transport: &http.Transport{DisableKeepAlives: true}},
		host:       strings.TrimRight(host, "/"),
		model:      model,
	}
}

func (c *OllamaClient) modelOrDefault(model string) string {
	if model != "" {
		return model
	}
	return c.model
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
}

type ollamaChunk struct {
	Message      ollamaMessage `json:"message"`
	Done         bool          `json:"done"`
	PromptEvalCt int           `json:"prompt_eval_count"`
	EvalCount    int           `json:"eval_count"`
	DoneReason   string        `json:"done_reason"`
}

func toOllamaMessages(msgs []message.Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ollamaMessage{Role: string(m.Role), Content: m.Text()})
	}
	return out
}

func toOllamaTools(defs []message.ToolDefinition) []ollamaTool {
	out := make([]ollamaTool, 0, len(defs))
	for _, d := range defs {
		t := ollamaTool{Type: "function"}
		t.Function.Name = d.Name
		t.Function.Description = d.Description
		t.Function.Parameters = d.Parameters
		out = append(out, t)
	}
	return out
}

// ChatStream implements Client against Ollama's NDJSON /api/chat stream.
// Ollama does not stream partial tool-call arguments the way OpenAI does:
// a tool call arrives whole, in the one chunk that carries it, so each is
// forwarded to sink as a single complete ToolCallFragment.
func (c *OllamaClient) ChatStream(ctx context.Context, messages []message.Message, tools []message.ToolDefinition, model string, sink DeltaSink) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	payload, err := json.Marshal(ollamaRequest{
		Model:    c.modelOrDefault(model),
		Messages: toOllamaMessages(messages),
		Stream:   true,
		Tools:    toOllamaTools(tools),
	})
	if err != nil {
		return fmt.Errorf("provider: marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("provider: build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return fmt.Errorf("provider: ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider: ollama http %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	toolIndex := 0
	var responseText strings.Builder
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			resp.Body.Close()
			sink.OnDelta(message.StreamDelta{Kind: message.DeltaDone})
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk ollamaChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}

		if chunk.Message.Content != "" {
			responseText.WriteString(chunk.Message.Content)
			sink.OnDelta(message.StreamDelta{Kind: message.DeltaText, Text: chunk.Message.Content})
		}
		for _, tc := range chunk.Message.ToolCalls {
			args, _ := json.Marshal(tc.Function.Arguments)
			sink.OnDelta(message.StreamDelta{
				Kind: message.DeltaToolCall,
				ToolCall: &message.ToolCallFragment{
					Index:     toolIndex,
					ID:        fmt.Sprintf("ollama-call-%d", toolIndex),
					Name:      tc.Function.Name,
					ArgsChunk: string(args),
				},
			})
			toolIndex++
		}
		if chunk.Done {
			outputTokens := chunk.EvalCount
			if outputTokens == 0 {
				// Older Ollama builds omit eval_count for some model
				// backends; fall back to a rough estimate rather than
				// reporting a false zero.
				outputTokens = EstimateTokens(responseText.String())
			}
			sink.OnDelta(message.StreamDelta{
				Kind: message.DeltaUsage,
				Usage: &message.Usage{
					InputTokens:  chunk.PromptEvalCt,
					OutputTokens: outputTokens,
				},
			})
			sink.OnDelta(message.StreamDelta{Kind: message.DeltaDone})
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("provider: ollama stream read: %w", err)
	}
	sink.OnDelta(message.StreamDelta{Kind: message.DeltaDone})
	return nil
}

// ChatToolStructured implements Client via a non-streaming call with a
// single forced tool, Ollama's equivalent of OpenAI's tool_choice.
func (c *OllamaClient) ChatToolStructured(ctx context.Context, messages []message.Message, toolName, description string, schema map[string]any, model string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	tool := ollamaTool{Type: "function"}
	tool.Function.Name = toolName
	tool.Function.Description = description
	tool.Function.Parameters = schema

	payload, err := json.Marshal(ollamaRequest{
		Model:    c.modelOrDefault(model),
		Messages: toOllamaMessages(messages),
		Stream:   false,
		Tools:    []ollamaTool{tool},
	})
	if err != nil {
		return nil, fmt.Errorf("provider: marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("provider: build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return nil, fmt.Errorf("provider: ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider: ollama http %d", resp.StatusCode)
	}

	var chunk ollamaChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return nil, fmt.Errorf("provider: decode ollama response: %w", err)
	}
	if len(chunk.Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("provider: ollama returned no tool call for %q", toolName)
	}
	args, err := json.Marshal(chunk.Message.ToolCalls[0].Function.Arguments)
	if err != nil {
		return nil, fmt.Errorf("provider: marshal ollama tool arguments: %w", err)
	}
	return args, nil
}
