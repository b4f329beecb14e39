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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/crow/internal/httpclient"
	"github.com/kadirpekel/crow/pkg/message"
)

// ErrCancelled is returned by ChatStream/ChatToolStructured when ctx is
// cancelled before or during the request (spec.md §4.1).
var ErrCancelled = errors.New("provider: cancelled")

// HTTPClient is the default Client implementation: an OpenAI-style
// streaming chat-completions transport (spec.md §6), grounded in the
// teacher's pkg/llms/openai.go SSE reader.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// Config configures a new HTTPClient.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewHTTPClient builds a client whose transport does not pool idle
// connections, so that cancellation actually closes the socket instead
// of parking it (spec.md §5).
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	transport := &http.Transport{DisableKeepAlives: true}
	return &HTTPClient{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

func (c *HTTPClient) modelOrDefault(model string) string {
	if model != "" {
		return model
	}
	return c.model
}

// statusError turns a non-200 response into a *httpclient.RetryableError
// on 429 (so callers can branch on rate limiting specifically, e.g. a
// future retry loop), or a plain error otherwise.
func statusError(resp *http.Response, body []byte) error {
	if resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("provider: http %d: %s", resp.StatusCode, string(body))
	}
	info := httpclient.ParseOpenAIRateLimitHeaders(resp.Header)
	return fmt.Errorf("provider: %w", &httpclient.RetryableError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		RetryAfter: info.RetryAfter,
	})
}

// ChatStream implements Client.
func (c *HTTPClient) ChatStream(ctx context.Context, messages []message.Message, tools []message.ToolDefinition, model string, sink DeltaSink) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	body := chatRequest{
		Model:         c.modelOrDefault(model),
		Messages:      toWireMessages(messages),
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
		Tools:         toWireTools(tools),
		CachePrompt:   true,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("provider: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("provider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return fmt.Errorf("provider: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp, b)
	}

	return c.readSSE(ctx, resp.Body, sink)
}

// readSSE decodes `data: {...}` lines until `data: [DONE]` or the stream
// ends, forwarding each chunk to sink and observing cancellation at
// every delta boundary and at the HTTP-read boundary (spec.md §4.1/§5).
func (c *HTTPClient) readSSE(ctx context.Context, body io.ReadCloser, sink DeltaSink) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	toolState := make(map[int]*message.ToolCallFragment)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			// Explicitly close the socket so the server actually stops
			// generating, rather than merely dropping our interest.
			body.Close()
			sink.OnDelta(message.StreamDelta{Kind: message.DeltaDone})
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			sink.OnDelta(message.StreamDelta{Kind: message.DeltaDone})
			return nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Recover locally: skip a single malformed chunk rather than
			// aborting the whole stream (spec.md §7 recovery policy).
			slog.Warn("provider: skipping malformed stream chunk", "error", err)
			continue
		}

		c.emitChunk(chunk, toolState, sink)
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			sink.OnDelta(message.StreamDelta{Kind: message.DeltaDone})
			return fmt.Errorf("%w: %v", ErrCancelled, ctxErr)
		}
		return fmt.Errorf("provider: stream read: %w", err)
	}
	sink.OnDelta(message.StreamDelta{Kind: message.DeltaDone})
	return nil
}

func (c *HTTPClient) emitChunk(chunk chatChunk, toolState map[int]*message.ToolCallFragment, sink DeltaSink) {
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			sink.OnDelta(message.StreamDelta{Kind: message.DeltaText, Text: choice.Delta.Content})
		}
		if choice.Delta.ReasoningContent != "" {
			sink.OnDelta(message.StreamDelta{Kind: message.DeltaReasoning, ReasoningChunk: choice.Delta.ReasoningContent})
		}
		for _, tc := range choice.Delta.ToolCalls {
			frag, ok := toolState[tc.Index]
			if !ok {
				frag = &message.ToolCallFragment{Index: tc.Index}
				toolState[tc.Index] = frag
			}
			if tc.ID != "" {
				frag.ID = tc.ID
			}
			if tc.Function.Name != "" {
				frag.Name = tc.Function.Name
			}
			frag.ArgsChunk = tc.Function.Arguments
			sink.OnDelta(message.StreamDelta{
				Kind: message.DeltaToolCall,
				ToolCall: &message.ToolCallFragment{
					Index:     tc.Index,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					ArgsChunk: tc.Function.Arguments,
				},
			})
		}
	}
	if chunk.Usage != nil {
		reasoning := 0
		if chunk.Usage.CompletionTokensDetails != nil {
			reasoning = chunk.Usage.CompletionTokensDetails.ReasoningTokens
		}
		sink.OnDelta(message.StreamDelta{
			Kind: message.DeltaUsage,
			Usage: &message.Usage{
				InputTokens:     chunk.Usage.PromptTokens,
				OutputTokens:    chunk.Usage.CompletionTokens,
				ReasoningTokens: reasoning,
			},
		})
	}
}

// ChatToolStructured implements Client: a non-streaming call that forces
// exactly one tool call (spec.md §4.1).
func (c *HTTPClient) ChatToolStructured(ctx context.Context, messages []message.Message, toolName, description string, schema map[string]any, model string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	tool := wireTool{Type: "function"}
	tool.Function.Name = toolName
	tool.Function.Description = description
	tool.Function.Parameters = schema

	choice := &wireToolChoice{Type: "function"}
	choice.Function.Name = toolName

	body := chatRequest{
		Model:      c.modelOrDefault(model),
		Messages:   toWireMessages(messages),
		Stream:     false,
		Tools:      []wireTool{tool},
		ToolChoice: choice,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("provider: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("provider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return nil, fmt.Errorf("provider: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp, b)
	}

	var parsed nonStreamingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("provider: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || len(parsed.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("provider: model did not return a %q tool call", toolName)
	}
	return json.RawMessage(parsed.Choices[0].Message.ToolCalls[0].Function.Arguments), nil
}
