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

package shell

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

func testCtx(t *testing.T) toolapi.Context {
	t.Helper()
	return toolapi.Context{Context: context.Background(), WorkingDir: t.TempDir()}
}

func TestTerminal_CapturesCombinedOutput(t *testing.T) {
	tool := NewTerminal()
	result := tool.Execute(testCtx(t), `{"command":"echo out; echo err 1>&2"}`)
	require.False(t, result.IsError)
	require.Contains(t, result.Output, "out")
	require.Contains(t, result.Output, "err")
}

func TestTerminal_NonZeroExitIsError(t *testing.T) {
	tool := NewTerminal()
	result := tool.Execute(testCtx(t), `{"command":"exit 1"}`)
	require.True(t, result.IsError)
}

func TestTerminal_TruncatesLargeOutput(t *testing.T) {
	tool := NewTerminal()
	result := tool.Execute(testCtx(t), `{"command":"head -c 40000 /dev/zero | tr '\\0' 'a'"}`)
	require.False(t, result.IsError)
	require.Contains(t, result.Output, "(Output truncated)")
	require.LessOrEqual(t, len(result.Output), maxOutputBytes+64)
}

func TestTerminal_CancellationStopsCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tool := NewTerminal()
	toolCtx := toolapi.Context{Context: ctx, WorkingDir: t.TempDir()}

	done := make(chan toolapi.Result, 1)
	go func() {
		done <- tool.Execute(toolCtx, `{"command":"sleep 10"}`)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		require.True(t, result.IsError)
		require.Contains(t, strings.ToLower(result.Output), "cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("terminal did not observe cancellation in time")
	}
}

func TestTerminal_HumanizeFormatsFencedBlock(t *testing.T) {
	tool := NewTerminal()
	result := toolapi.Success("line1\nline2")
	out := tool.Humanize(`{"command":"ls"}`, result)
	require.Contains(t, out, "ran `ls`")
	require.Contains(t, out, "```")
}
