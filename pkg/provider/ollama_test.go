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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/crow/pkg/message"
)

type collectingSink struct {
	deltas []message.StreamDelta
}

func (s *collectingSink) OnDelta(d message.StreamDelta) { s.deltas = append(s.deltas, d) }

func TestOllamaClient_ChatStream_TextAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"hel"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":10,"eval_count":2}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3")
	sink := &collectingSink{}
	err := client.ChatStream(context.Background(), []message.Message{message.NewUser("hi")}, nil, "", sink)
	require.NoError(t, err)

	var text string
	var sawUsage, sawDone bool
	for _, d := range sink.deltas {
		switch d.Kind {
		case message.DeltaText:
			text += d.Text
		case message.DeltaUsage:
			sawUsage = true
			require.Equal(t, 10, d.Usage.InputTokens)
			require.Equal(t, 2, d.Usage.OutputTokens)
		case message.DeltaDone:
			sawDone = true
		}
	}
	require.Equal(t, "hello", text)
	require.True(t, sawUsage)
	require.True(t, sawDone)
}

func TestOllamaClient_ChatStream_ToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"echo","arguments":{"text":"hi"}}}]},"done":true,"prompt_eval_count":5,"eval_count":1}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3")
	sink := &collectingSink{}
	err := client.ChatStream(context.Background(), []message.Message{message.NewUser("hi")}, nil, "", sink)
	require.NoError(t, err)

	var found bool
	for _, d := range sink.deltas {
		if d.Kind == message.DeltaToolCall {
			found = true
			require.Equal(t, "echo", d.ToolCall.Name)
			require.Contains(t, d.ToolCall.ArgsChunk, "hi")
		}
	}
	require.True(t, found)
}

func TestOllamaClient_ChatToolStructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","tool_calls":[{"function":{"name":"judge","arguments":{"complete":true}}}]},"done":true}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3")
	raw, err := client.ChatToolStructured(context.Background(), []message.Message{message.NewUser("hi")}, "judge", "judge it", map[string]any{"type": "object"}, "")
	require.NoError(t, err)
	require.JSONEq(t, `{"complete":true}`, string(raw))
}
