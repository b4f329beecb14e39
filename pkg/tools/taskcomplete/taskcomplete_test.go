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

package taskcomplete

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/crow/pkg/message"
	"github.com/kadirpekel/crow/pkg/toolapi"
)

type fakeCaller struct {
	raw json.RawMessage
	err error
}

func (f *fakeCaller) ChatToolStructured(ctx context.Context, messages []message.Message, toolName, description string, schema map[string]any, model string) (json.RawMessage, error) {
	return f.raw, f.err
}

func TestTaskComplete_EchoesWhenNoProviderOrHistory(t *testing.T) {
	tool := NewTaskComplete()
	result := tool.Execute(toolapi.Context{Context: context.Background()}, `{"summary":"done"}`)
	require.False(t, result.IsError)
	require.Equal(t, "done", result.Output)
}

func TestTaskComplete_VerifiedOnCompleteTrue(t *testing.T) {
	history := []message.Message{message.NewUser("do the thing")}
	caller := &fakeCaller{raw: json.RawMessage(`{"complete":true,"reason":"all tests pass"}`)}
	tool := NewTaskComplete()

	result := tool.Execute(toolapi.Context{
		Context:        context.Background(),
		MessageHistory: &history,
		Provider:       caller,
	}, `{"summary":"did the thing"}`)

	require.False(t, result.IsError)
	require.Contains(t, result.Output, "did the thing")
	require.Contains(t, result.Output, "Verified: all tests pass")
}

func TestTaskComplete_ErrorsOnCompleteFalse(t *testing.T) {
	history := []message.Message{message.NewUser("do the thing")}
	caller := &fakeCaller{raw: json.RawMessage(`{"complete":false,"reason":"tests still fail"}`)}
	tool := NewTaskComplete()

	result := tool.Execute(toolapi.Context{
		Context:        context.Background(),
		MessageHistory: &history,
		Provider:       caller,
	}, `{"summary":"did the thing"}`)

	require.True(t, result.IsError)
	require.Contains(t, result.Output, "tests still fail")
}

func TestTaskComplete_FailsOpenOnTransportError(t *testing.T) {
	history := []message.Message{message.NewUser("do the thing")}
	caller := &fakeCaller{err: errors.New("connection reset")}
	tool := NewTaskComplete()

	result := tool.Execute(toolapi.Context{
		Context:        context.Background(),
		MessageHistory: &history,
		Provider:       caller,
	}, `{"summary":"did the thing"}`)

	require.False(t, result.IsError)
	require.Equal(t, "did the thing", result.Output)
}
