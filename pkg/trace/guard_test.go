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

package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/crow/pkg/message"
)

func TestGuard_FlushesIncrementally(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	guard, err := NewGuard(ctx, store, "sess-1", "main", "openai", "gpt-4o", []message.Message{message.NewUser("hi")}, nil)
	require.NoError(t, err)
	defer guard.Abandon(ctx)

	row, err := store.Get(ctx, guard.ID())
	require.NoError(t, err)
	require.Equal(t, StatusPending, row.Status)

	guard.PushText(ctx, "hel")
	guard.PushText(ctx, "lo")
	row, err = store.Get(ctx, guard.ID())
	require.NoError(t, err)
	require.Equal(t, "hello", row.ResponseText)

	guard.PushToolCall(ctx, 0, "call_1", "grep", "")
	guard.PushToolCall(ctx, 0, "", "", `{"pattern":"foo"}`)
	row, err = store.Get(ctx, guard.ID())
	require.NoError(t, err)
	require.Contains(t, row.ToolCallsJSON, "call_1")
	require.Contains(t, row.ToolCallsJSON, "foo")

	require.NoError(t, guard.Finalize(ctx))
	row, err = store.Get(ctx, guard.ID())
	require.NoError(t, err)
	require.Equal(t, StatusComplete, row.Status)

	// Abandon after Finalize must be a no-op, not revert status.
	guard.Abandon(ctx)
	row, err = store.Get(ctx, guard.ID())
	require.NoError(t, err)
	require.Equal(t, StatusComplete, row.Status)
}

func TestGuard_AbandonMarksPartialRow(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	guard, err := NewGuard(ctx, store, "sess-2", "main", "openai", "gpt-4o", nil, nil)
	require.NoError(t, err)

	guard.PushText(ctx, "partial")
	guard.Abandon(ctx)

	row, err := store.Get(ctx, guard.ID())
	require.NoError(t, err)
	require.Equal(t, StatusAbandoned, row.Status)
	require.Equal(t, "partial", row.ResponseText)
}

func TestGuard_SetErrorMarksRowErrored(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	guard, err := NewGuard(ctx, store, "sess-3", "main", "openai", "gpt-4o", nil, nil)
	require.NoError(t, err)
	defer guard.Abandon(ctx)

	guard.SetError(ctx, context.DeadlineExceeded)
	row, err := store.Get(ctx, guard.ID())
	require.NoError(t, err)
	require.Equal(t, StatusError, row.Status)
	require.Contains(t, row.ErrorMessage, "deadline")
}

func TestListBySession(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	g1, err := NewGuard(ctx, store, "sess-4", "main", "openai", "gpt-4o", nil, nil)
	require.NoError(t, err)
	defer g1.Abandon(ctx)
	g2, err := NewGuard(ctx, store, "sess-4", "coagent", "openai", "gpt-4o", nil, nil)
	require.NoError(t, err)
	defer g2.Abandon(ctx)

	rows, err := store.ListBySession(ctx, "sess-4")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
