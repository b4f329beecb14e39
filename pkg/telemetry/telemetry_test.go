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

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelemetry_RecordToolCall_UpdatesCounters(t *testing.T) {
	tel := New("crow-test")

	tel.RecordToolCall("read_file", false, 10*time.Millisecond)
	tel.RecordToolCall("edit_file", true, 5*time.Millisecond)

	assert.Equal(t, 1, int(testutil.ToFloat64(tel.toolCallsTotal.WithLabelValues("read_file", "ok"))))
	assert.Equal(t, 1, int(testutil.ToFloat64(tel.toolCallsTotal.WithLabelValues("edit_file", "error"))))
	assert.Equal(t, 1, int(testutil.ToFloat64(tel.toolErrorsTotal.WithLabelValues("edit_file"))))
}

func TestTelemetry_RecordTurnAndDoomLoop(t *testing.T) {
	tel := New("crow-test")

	tel.RecordTurn("build", "text_only")
	tel.RecordDoomLoopTrip("build", "grep")
	tel.RecordPatchRejected()

	assert.Equal(t, 1, int(testutil.ToFloat64(tel.turnsTotal.WithLabelValues("build", "text_only"))))
	assert.Equal(t, 1, int(testutil.ToFloat64(tel.doomLoopTrips.WithLabelValues("build", "grep"))))
	assert.Equal(t, 1, int(testutil.ToFloat64(tel.patchesRejected)))
}

func TestTelemetry_NilIsNoOp(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		ctx, span := tel.StartTurn(context.Background(), "build")
		span.End()
		ctx2, toolSpan := tel.StartToolCall(ctx, "grep")
		toolSpan.End()
		_ = ctx2
		tel.RecordTurn("build", "text_only")
		tel.RecordToolCall("grep", false, time.Millisecond)
		tel.RecordDoomLoopTrip("build", "grep")
		tel.RecordPatchRejected()
		require.NoError(t, tel.Shutdown(context.Background()))
		assert.Nil(t, tel.Registry())
	})
}

func TestTelemetry_Shutdown(t *testing.T) {
	tel := New("crow-test")
	require.NoError(t, tel.Shutdown(context.Background()))
}
