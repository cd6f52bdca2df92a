/*
Copyright 2025 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Generation provides OpenTelemetry metrics for calls to a text-generation
// backend: call counts by outcome, fallbacks, latency and token usage.
// Instruments that fail to initialize degrade to no-ops.
type Generation struct {
	meter            metric.Meter
	calls            metric.Int64Counter
	fallbacks        metric.Int64Counter
	latency          metric.Float64Histogram
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	attrEnricher     AttributeEnricher
}

// NewGeneration creates generation metrics under the given meter name. The
// backend and model are recorded as attributes so a single meter can serve
// every backend.
func NewGeneration(meterName string) *Generation {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	calls, err := meter.Int64Counter("genai.calls",
		metric.WithDescription("The number of generation calls by outcome"),
		metric.WithUnit("{calls}"))
	if err != nil {
		slog.Warn("Failed to create calls counter, metrics will be disabled", "error", err, "meter", meterName)
		calls = noop.Int64Counter{}
	}

	fallbacks, err := meter.Int64Counter("genai.fallbacks",
		metric.WithDescription("The number of calls answered with fallback text"),
		metric.WithUnit("{calls}"))
	if err != nil {
		slog.Warn("Failed to create fallback counter, metrics will be disabled", "error", err, "meter", meterName)
		fallbacks = noop.Int64Counter{}
	}

	latency, err := meter.Float64Histogram("genai.latency",
		metric.WithDescription("Time spent waiting on the generation backend"),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("Failed to create latency histogram, metrics will be disabled", "error", err, "meter", meterName)
		latency = noop.Float64Histogram{}
	}

	promptTokens, err := meter.Int64Counter("genai.token.prompt",
		metric.WithDescription("The number of prompt tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create prompt tokens counter, metrics will be disabled", "error", err, "meter", meterName)
		promptTokens = noop.Int64Counter{}
	}

	completionTokens, err := meter.Int64Counter("genai.token.completion",
		metric.WithDescription("The number of completion tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create completion tokens counter, metrics will be disabled", "error", err, "meter", meterName)
		completionTokens = noop.Int64Counter{}
	}

	return &Generation{
		meter:            meter,
		calls:            calls,
		fallbacks:        fallbacks,
		latency:          latency,
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		attrEnricher:     EventAttributes,
	}
}

// SetAttributeEnricher replaces the enricher applied before each recording.
// The default enricher adds the event context attached to the request.
func (m *Generation) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *Generation) attrs(ctx context.Context, base []attribute.KeyValue, extra []attribute.KeyValue) metric.MeasurementOption {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return metric.WithAttributes(append(base, extra...)...)
}

// RecordCall records one completed call, its outcome ("ok", "fallback") and
// how long the backend took.
func (m *Generation) RecordCall(ctx context.Context, backend, model, outcome string, elapsed time.Duration, attrs ...attribute.KeyValue) {
	opt := m.attrs(ctx, []attribute.KeyValue{
		attribute.String("backend", backend),
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	}, attrs)

	m.calls.Add(ctx, 1, opt)
	m.latency.Record(ctx, elapsed.Seconds(), opt)
	if outcome == "fallback" {
		m.fallbacks.Add(ctx, 1, opt)
	}
}

// RecordTokens records prompt and completion token usage. Backends that do
// not report usage skip this call.
func (m *Generation) RecordTokens(ctx context.Context, backend, model string, promptTokens, completionTokens int64, attrs ...attribute.KeyValue) {
	opt := m.attrs(ctx, []attribute.KeyValue{
		attribute.String("backend", backend),
		attribute.String("model", model),
	}, attrs)

	m.promptTokens.Add(ctx, promptTokens, opt)
	m.completionTokens.Add(ctx, completionTokens, opt)
}
