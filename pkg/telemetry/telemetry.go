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

// Package telemetry is the additive instrumentation spec.md's "telemetry
// layer is external" non-goal leaves room for: a span around each react
// turn and tool call, plus Prometheus counters a caller can scrape if it
// wires Registry() into an HTTP handler. Nothing in this package exports
// anywhere on its own; exporting is the external layer's job.
//
// Grounded on the teacher's pkg/observability (tracer.go's TracerProvider
// setup, metrics.go's CounterVec shape), trimmed to the handful of
// signals the react/orchestrator loop actually produces and built
// directly on prometheus/client_golang rather than the otel metrics API,
// which the teacher's go.mod never pulled in.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry holds one process's tracer and metric counters. A nil
// *Telemetry is valid everywhere it's accepted: react.Engine treats it
// as an optional collaborator, the same way it treats a nil Snapshots
// store.
type Telemetry struct {
	tracer trace.Tracer
	tp     *sdktrace.TracerProvider

	registry *prometheus.Registry

	turnsTotal      *prometheus.CounterVec
	toolCallsTotal  *prometheus.CounterVec
	toolErrorsTotal *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	doomLoopTrips   *prometheus.CounterVec
	patchesRejected prometheus.Counter
}

// New builds a Telemetry with its own TracerProvider and Prometheus
// registry, named serviceName (used as the tracer's instrumentation
// name and the "service" constant label on every metric).
func New(serviceName string) *Telemetry {
	tp := sdktrace.NewTracerProvider()

	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": serviceName}

	t := &Telemetry{
		tracer:   tp.Tracer(serviceName),
		tp:       tp,
		registry: reg,
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crow_turns_total",
			Help:        "React turns completed, labeled by completion reason.",
			ConstLabels: constLabels,
		}, []string{"agent", "reason"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crow_tool_calls_total",
			Help:        "Tool dispatches, labeled by tool name and outcome.",
			ConstLabels: constLabels,
		}, []string{"tool", "outcome"}),
		toolErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crow_tool_errors_total",
			Help:        "Tool dispatches that returned an error result.",
			ConstLabels: constLabels,
		}, []string{"tool"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "crow_tool_call_duration_seconds",
			Help:        "Tool dispatch wall-clock duration.",
			ConstLabels: constLabels,
		}, []string{"tool"}),
		doomLoopTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crow_doom_loop_trips_total",
			Help:        "Times the doom-loop detector rejected a repeated tool call.",
			ConstLabels: constLabels,
		}, []string{"agent", "tool"}),
		patchesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "crow_patches_rejected_total",
			Help:        "edit_file calls whose fuzzy replacer found no match.",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(t.turnsTotal, t.toolCallsTotal, t.toolErrorsTotal, t.toolDuration, t.doomLoopTrips, t.patchesRejected)
	return t
}

// Registry exposes the Prometheus registry so a caller can mount
// promhttp.HandlerFor(t.Registry(), ...) on its own HTTP server; crow's
// CLI driver doesn't run one, so nothing in this repo calls this today.
func (t *Telemetry) Registry() *prometheus.Registry {
	if t == nil {
		return nil
	}
	return t.registry
}

// Shutdown flushes the tracer provider. Safe to call on a nil Telemetry.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}

// StartTurn opens a span covering one react.Engine.Run iteration.
func (t *Telemetry) StartTurn(ctx context.Context, agent string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noopSpan{}
	}
	return t.tracer.Start(ctx, "react.turn", trace.WithAttributes())
}

// StartToolCall opens a span covering one tool dispatch.
func (t *Telemetry) StartToolCall(ctx context.Context, toolName string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noopSpan{}
	}
	return t.tracer.Start(ctx, "tool."+toolName)
}

// RecordTurn increments the turn counter for agent/reason.
func (t *Telemetry) RecordTurn(agent, reason string) {
	if t == nil {
		return
	}
	t.turnsTotal.WithLabelValues(agent, reason).Inc()
}

// RecordToolCall increments the tool-call counters and duration
// histogram for one dispatch.
func (t *Telemetry) RecordToolCall(tool string, isError bool, d time.Duration) {
	if t == nil {
		return
	}
	outcome := "ok"
	if isError {
		outcome = "error"
		t.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
	t.toolCallsTotal.WithLabelValues(tool, outcome).Inc()
	t.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordDoomLoopTrip increments the doom-loop counter for agent/tool.
func (t *Telemetry) RecordDoomLoopTrip(agent, tool string) {
	if t == nil {
		return
	}
	t.doomLoopTrips.WithLabelValues(agent, tool).Inc()
}

// RecordPatchRejected increments the fuzzy-replacer rejection counter.
func (t *Telemetry) RecordPatchRejected() {
	if t == nil {
		return
	}
	t.patchesRejected.Inc()
}

// noopSpan satisfies trace.Span without a real provider behind it, for
// the nil-Telemetry case; trace.Span has no exported constructor for
// this so we implement the handful of methods callers in this repo use
// through the embedded interface and panic-free no-ops for the rest.
type noopSpan struct {
	trace.Span
}

func (noopSpan) End(...trace.SpanEndOption) {}
